package service

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

type auditService struct {
	repo ports.AuditRepository
}

// NewAuditService returns an AuditService reading from repo.
func NewAuditService(repo ports.AuditRepository) ports.AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	return s.repo.Recent(ctx, limit)
}

// recordAudit appends an audit entry. A failed append never fails the action
// being audited.
func recordAudit(
	ctx context.Context,
	repo ports.AuditRepository,
	log zerolog.Logger,
	at time.Time,
	action domain.AuditAction,
	actor, target string,
	details map[string]any,
) {
	if repo == nil {
		return
	}
	entry := &domain.AuditEntry{
		ID:        ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		Action:    action,
		Actor:     actor,
		Target:    target,
		Details:   details,
		CreatedAt: at,
	}
	if err := repo.Append(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", string(action)).Str("target", target).Msg("audit append failed")
	}
}
