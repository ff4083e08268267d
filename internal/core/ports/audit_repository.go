package ports

import (
	"context"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
)

type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
}
