package ports

import (
	"context"
	"time"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
)

// GenerateCodesInput requests a batch of sequential PREFIX-NNN codes.
type GenerateCodesInput struct {
	Quantity       int
	Prefix         string
	MaxUsesPerCode int
	ExpiryDays     int
	Role           domain.Role
	Description    string
}

// GenerateInvitationInput requests one random PREFIX-XXXX-XXXX code.
type GenerateInvitationInput struct {
	Prefix      string
	MaxUses     int
	ExpiryDays  int
	Role        domain.Role
	Description string
}

// LegacyCodeInput requests a hand-picked founder-granting code.
type LegacyCodeInput struct {
	Code        string
	MaxUses     int
	ExpiryDays  int
	Description string
}

// EditCodeInput carries optional changes; nil fields are left untouched.
type EditCodeInput struct {
	MaxUses     *int
	ExpiresAt   *time.Time
	Description *string
	IsActive    *bool
}

// LedgerService manages invitation codes.
type LedgerService interface {
	Validate(ctx context.Context, code string) (*domain.InvitationCode, error)
	Redeem(ctx context.Context, code, redeemedBy string) (*domain.InvitationCode, error)
	Release(ctx context.Context, code, releasedBy string) error
	Generate(ctx context.Context, actor *domain.Account, in GenerateCodesInput) ([]*domain.InvitationCode, error)
	GenerateInvitation(ctx context.Context, actor *domain.Account, in GenerateInvitationInput) (*domain.InvitationCode, error)
	CreateLegacy(ctx context.Context, actor *domain.Account, in LegacyCodeInput) (*domain.InvitationCode, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.InvitationCode, error)
	Edit(ctx context.Context, actor *domain.Account, code string, in EditCodeInput) (*domain.InvitationCode, error)
	Deactivate(ctx context.Context, actor *domain.Account, code string) (*domain.InvitationCode, error)
	Delete(ctx context.Context, actor *domain.Account, code string) error
	DeactivateExpired(ctx context.Context) (int64, error)
}
