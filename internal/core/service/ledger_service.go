package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

const (
	maxGenerateAttempts     = 10
	defaultCodeExpiryDays   = 365
	adminQuantityLimit      = 50
	superAdminQuantityLimit = 100
	minPrefixLength         = 3
	defaultInvitePrefix     = "MPT"
	// 32 symbols without 0/O and 1/I so a random byte maps without bias.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var prefixPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// LedgerService implements the invitation code ledger.
type LedgerService struct {
	repo   ports.InvitationRepository
	audit  ports.AuditRepository
	stats  statsInvalidator
	log    zerolog.Logger
	now    func() time.Time
	random io.Reader
}

func NewLedgerService(
	repo ports.InvitationRepository,
	audit ports.AuditRepository,
	stats statsInvalidator,
	log zerolog.Logger,
) *LedgerService {
	if stats == nil {
		stats = noopInvalidator{}
	}
	return &LedgerService{
		repo:   repo,
		audit:  audit,
		stats:  stats,
		log:    log,
		now:    time.Now,
		random: rand.Reader,
	}
}

// Validate reports whether code could be redeemed right now.
func (s *LedgerService) Validate(ctx context.Context, code string) (*domain.InvitationCode, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return nil, domain.NewValidationError("code", "is required")
	}

	ic, err := s.repo.Find(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := ic.Check(s.now().UTC()); err != nil {
		return nil, err
	}
	return ic, nil
}

// Redeem consumes one use of code. The capacity check and the increment are a
// single conditional write in the repository.
func (s *LedgerService) Redeem(ctx context.Context, code, redeemedBy string) (*domain.InvitationCode, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return nil, domain.NewValidationError("invitation_code", "is required")
	}

	now := s.now().UTC()
	ic, err := s.repo.Redeem(ctx, code, now)
	if err != nil {
		s.log.Debug().Err(err).Str("code", code).Msg("invitation code refused")
		return nil, err
	}

	recordAudit(ctx, s.audit, s.log, now, domain.AuditCodeUsed, redeemedBy, ic.Code, map[string]any{
		"used_count": ic.UsedCount,
		"max_uses":   ic.MaxUses,
	})
	s.stats.Invalidate(ctx)
	return ic, nil
}

// Release returns a use taken by Redeem when the registration it was taken for
// could not be completed. The code_used entry stays and is answered by a
// code_released entry.
func (s *LedgerService) Release(ctx context.Context, code, releasedBy string) error {
	code = domain.NormalizeCode(code)
	if err := s.repo.Release(ctx, code); err != nil {
		return fmt.Errorf("release code: %w", err)
	}

	recordAudit(ctx, s.audit, s.log, s.now().UTC(), domain.AuditCodeReleased, releasedBy, code, map[string]any{
		"reason": "registration not completed",
	})
	s.stats.Invalidate(ctx)
	return nil
}

// Generate creates a batch of sequential PREFIX-NNN codes.
func (s *LedgerService) Generate(ctx context.Context, actor *domain.Account, in ports.GenerateCodesInput) ([]*domain.InvitationCode, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleWarrior
	}
	if err := domain.CanIssueRole(actor, role); err != nil {
		return nil, err
	}
	if in.Quantity < 1 {
		return nil, domain.NewValidationError("quantity", "must be at least 1")
	}
	if in.Quantity > quantityLimit(actor.Role) {
		return nil, domain.ErrQuantityExceeded
	}
	prefix, err := normalizePrefix(in.Prefix)
	if err != nil {
		return nil, err
	}
	maxUses, expiresAt, err := s.capacity(in.MaxUsesPerCode, in.ExpiryDays)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.CountWithPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("count codes: %w", err)
	}

	now := s.now().UTC()
	next := existing + 1
	codes := make([]*domain.InvitationCode, 0, in.Quantity)
	for i := 1; i <= in.Quantity; i++ {
		ic := &domain.InvitationCode{
			Role:        role,
			MaxUses:     maxUses,
			IsActive:    true,
			ExpiresAt:   expiresAt,
			CreatedBy:   actor.Email,
			Description: batchDescription(in.Description, prefix, i, in.Quantity),
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		inserted := false
		for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
			ic.Code = fmt.Sprintf("%s-%03d", prefix, next)
			next++
			ok, err := s.insertIfAbsent(ctx, ic)
			if err != nil {
				return nil, s.discardBatch(ctx, codes, err)
			}
			if ok {
				inserted = true
				break
			}
		}
		if !inserted {
			return nil, s.discardBatch(ctx, codes, domain.ErrCodeGenerationExhausted)
		}
		codes = append(codes, ic)
	}

	for _, ic := range codes {
		recordAudit(ctx, s.audit, s.log, now, domain.AuditCodeCreated, actor.Email, ic.Code, map[string]any{
			"role":     string(role),
			"max_uses": maxUses,
			"batch":    prefix,
		})
	}
	s.stats.Invalidate(ctx)
	s.log.Info().
		Str("prefix", prefix).
		Int("quantity", len(codes)).
		Str("role", string(role)).
		Str("created_by", actor.Email).
		Msg("invitation codes generated")
	return codes, nil
}

// GenerateInvitation creates one random PREFIX-XXXX-XXXX code.
func (s *LedgerService) GenerateInvitation(ctx context.Context, actor *domain.Account, in ports.GenerateInvitationInput) (*domain.InvitationCode, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleWarrior
	}
	if err := domain.CanIssueRole(actor, role); err != nil {
		return nil, err
	}
	prefix := in.Prefix
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultInvitePrefix
	}
	prefix, err := normalizePrefix(prefix)
	if err != nil {
		return nil, err
	}
	maxUses, expiresAt, err := s.capacity(in.MaxUses, in.ExpiryDays)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ic := &domain.InvitationCode{
		Role:        role,
		MaxUses:     maxUses,
		IsActive:    true,
		ExpiresAt:   expiresAt,
		CreatedBy:   actor.Email,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		a, err := s.randomBlock(4)
		if err != nil {
			return nil, err
		}
		b, err := s.randomBlock(4)
		if err != nil {
			return nil, err
		}
		ic.Code = prefix + "-" + a + "-" + b

		ok, err := s.insertIfAbsent(ctx, ic)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.log.Debug().Str("code", ic.Code).Int("attempt", attempt+1).Msg("invitation code collision")
			continue
		}

		recordAudit(ctx, s.audit, s.log, now, domain.AuditCodeCreated, actor.Email, ic.Code, map[string]any{
			"role":     string(role),
			"max_uses": maxUses,
		})
		s.stats.Invalidate(ctx)
		s.log.Info().Str("code", ic.Code).Str("created_by", actor.Email).Msg("invitation code generated")
		return ic, nil
	}

	s.log.Warn().Str("prefix", prefix).Msg("invitation code generation gave up")
	return nil, domain.ErrCodeGenerationExhausted
}

// CreateLegacy stores a hand-picked founder-granting code.
func (s *LedgerService) CreateLegacy(ctx context.Context, actor *domain.Account, in ports.LegacyCodeInput) (*domain.InvitationCode, error) {
	if err := domain.CanIssueRole(actor, domain.RoleFounder); err != nil {
		return nil, err
	}
	code := domain.NormalizeCode(in.Code)
	if code == "" {
		return nil, domain.NewValidationError("code", "is required")
	}
	maxUses, expiresAt, err := s.capacity(in.MaxUses, in.ExpiryDays)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ic := &domain.InvitationCode{
		Code:        code,
		Role:        domain.RoleFounder,
		MaxUses:     maxUses,
		IsActive:    true,
		ExpiresAt:   expiresAt,
		CreatedBy:   actor.Email,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, ic); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.log, now, domain.AuditCodeCreated, actor.Email, ic.Code, map[string]any{
		"role":     string(domain.RoleFounder),
		"max_uses": maxUses,
		"legacy":   true,
	})
	s.stats.Invalidate(ctx)
	s.log.Info().Str("code", ic.Code).Str("created_by", actor.Email).Msg("legacy code created")
	return ic, nil
}

func (s *LedgerService) List(ctx context.Context, activeOnly bool) ([]*domain.InvitationCode, error) {
	return s.repo.List(ctx, activeOnly, s.now().UTC())
}

// Edit changes the editable fields of a code. max_uses can never drop below
// the uses already consumed.
func (s *LedgerService) Edit(ctx context.Context, actor *domain.Account, code string, in ports.EditCodeInput) (*domain.InvitationCode, error) {
	ic, err := s.editable(ctx, actor, code)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if in.MaxUses != nil {
		if *in.MaxUses < 1 {
			return nil, domain.NewValidationError("max_uses", "must be at least 1")
		}
		if *in.MaxUses < ic.UsedCount {
			return nil, domain.ErrMaxUsesBelowUsed
		}
		ic.MaxUses = *in.MaxUses
		changes["max_uses"] = ic.MaxUses
	}
	if in.ExpiresAt != nil {
		ic.ExpiresAt = in.ExpiresAt.UTC()
		changes["expires_at"] = ic.ExpiresAt
	}
	if in.Description != nil {
		ic.Description = strings.TrimSpace(*in.Description)
		changes["description"] = ic.Description
	}
	if in.IsActive != nil {
		ic.IsActive = *in.IsActive
		changes["is_active"] = ic.IsActive
	}
	if len(changes) == 0 {
		return ic, nil
	}

	now := s.now().UTC()
	ic.UpdatedAt = now
	if err := s.repo.Update(ctx, ic); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.log, now, domain.AuditCodeUpdated, actor.Email, ic.Code, changes)
	s.stats.Invalidate(ctx)
	return ic, nil
}

func (s *LedgerService) Deactivate(ctx context.Context, actor *domain.Account, code string) (*domain.InvitationCode, error) {
	ic, err := s.editable(ctx, actor, code)
	if err != nil {
		return nil, err
	}
	if !ic.IsActive {
		return ic, nil
	}

	now := s.now().UTC()
	ic.IsActive = false
	ic.UpdatedAt = now
	if err := s.repo.Update(ctx, ic); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.log, now, domain.AuditCodeDeactivated, actor.Email, ic.Code, nil)
	s.stats.Invalidate(ctx)
	s.log.Info().Str("code", ic.Code).Str("by", actor.Email).Msg("invitation code deactivated")
	return ic, nil
}

// Delete removes a code. SUPER_ADMIN only.
func (s *LedgerService) Delete(ctx context.Context, actor *domain.Account, code string) error {
	if err := domain.Authorize(actor, domain.RoleSuperAdmin, domain.StatusActive); err != nil {
		return err
	}
	code = domain.NormalizeCode(code)
	ic, err := s.repo.Find(ctx, code)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, code); err != nil {
		return err
	}

	recordAudit(ctx, s.audit, s.log, s.now().UTC(), domain.AuditCodeDeleted, actor.Email, code, map[string]any{
		"used_count": ic.UsedCount,
		"max_uses":   ic.MaxUses,
	})
	s.stats.Invalidate(ctx)
	s.log.Info().Str("code", code).Str("by", actor.Email).Msg("invitation code deleted")
	return nil
}

// DeactivateExpired switches off every active code past its expiry.
func (s *LedgerService) DeactivateExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeactivateExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("deactivate expired codes: %w", err)
	}
	if n > 0 {
		s.stats.Invalidate(ctx)
		s.log.Info().Int64("count", n).Msg("expired invitation codes deactivated")
	}
	return n, nil
}

func (s *LedgerService) editable(ctx context.Context, actor *domain.Account, code string) (*domain.InvitationCode, error) {
	if err := domain.Authorize(actor, domain.RoleAdmin, domain.StatusActive); err != nil {
		return nil, err
	}
	ic, err := s.repo.Find(ctx, domain.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	if err := domain.CanIssueRole(actor, ic.Role); err != nil {
		return nil, err
	}
	return ic, nil
}

func (s *LedgerService) capacity(maxUses, expiryDays int) (int, time.Time, error) {
	if maxUses == 0 {
		maxUses = 1
	}
	if maxUses < 0 {
		return 0, time.Time{}, domain.NewValidationError("max_uses", "must be at least 1")
	}
	if expiryDays == 0 {
		expiryDays = defaultCodeExpiryDays
	}
	if expiryDays < 0 {
		return 0, time.Time{}, domain.NewValidationError("expiry_days", "must be positive")
	}
	return maxUses, s.now().UTC().AddDate(0, 0, expiryDays), nil
}

// insertIfAbsent reports false when code is already taken.
// discardBatch deletes the codes of a batch that failed part way so a batch
// is stored whole or not at all. cause is returned with any delete failures.
func (s *LedgerService) discardBatch(ctx context.Context, codes []*domain.InvitationCode, cause error) error {
	ctx = context.WithoutCancel(ctx)
	err := cause
	for _, ic := range codes {
		if delErr := s.repo.Delete(ctx, ic.Code); delErr != nil {
			s.log.Error().Err(delErr).Str("code", ic.Code).Msg("failed to discard code from incomplete batch")
			err = multierr.Append(err, fmt.Errorf("discard %s: %w", ic.Code, delErr))
		}
	}
	if len(codes) > 0 {
		s.log.Warn().Err(cause).Int("discarded", len(codes)).Msg("invitation code batch abandoned")
	}
	return err
}

func (s *LedgerService) insertIfAbsent(ctx context.Context, ic *domain.InvitationCode) (bool, error) {
	exists, err := s.repo.Exists(ctx, ic.Code)
	if err != nil {
		return false, fmt.Errorf("check code: %w", err)
	}
	if exists {
		return false, nil
	}
	if err := s.repo.Insert(ctx, ic); err != nil {
		if errors.Is(err, domain.ErrCodeExists) {
			return false, nil
		}
		return false, fmt.Errorf("insert code: %w", err)
	}
	return true, nil
}

func (s *LedgerService) randomBlock(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", fmt.Errorf("random code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

func quantityLimit(role domain.Role) int {
	switch role {
	case domain.RoleSuperAdmin:
		return superAdminQuantityLimit
	case domain.RoleAdmin:
		return adminQuantityLimit
	}
	return 0
}

func normalizePrefix(prefix string) (string, error) {
	p := domain.NormalizeCode(prefix)
	if len(p) < minPrefixLength {
		return "", domain.NewValidationError("prefix", fmt.Sprintf("must be at least %d characters", minPrefixLength))
	}
	if !prefixPattern.MatchString(p) {
		return "", domain.NewValidationError("prefix", "must contain only letters and digits")
	}
	return p, nil
}

func batchDescription(desc, prefix string, i, total int) string {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		desc = "Batch " + prefix
	}
	return fmt.Sprintf("%s (%d/%d)", desc, i, total)
}
