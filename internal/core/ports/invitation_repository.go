package ports

import (
	"context"
	"time"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
)

// CodeStats summarises the ledger.
type CodeStats struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Exhausted int64 `json:"exhausted"`
	Expired   int64 `json:"expired"`
	Redeemed  int64 `json:"redeemed"`
}

// InvitationRepository defines persistence for the invitation code ledger.
type InvitationRepository interface {
	// Insert stores a new code. Returns domain.ErrCodeExists on a duplicate.
	Insert(ctx context.Context, code *domain.InvitationCode) error
	Find(ctx context.Context, code string) (*domain.InvitationCode, error)
	Exists(ctx context.Context, code string) (bool, error)
	// CountWithPrefix counts sequential codes of the form PREFIX-NNN.
	CountWithPrefix(ctx context.Context, prefix string) (int64, error)
	// Redeem atomically increments used_count by one if, and only if, the code
	// is active, unexpired at now and below max_uses. On refusal it returns
	// the matching domain error and leaves the code untouched.
	Redeem(ctx context.Context, code string, now time.Time) (*domain.InvitationCode, error)
	// Release gives back one use taken by Redeem.
	Release(ctx context.Context, code string) error
	// Update persists the editable fields (max_uses, expires_at, description,
	// is_active). It refuses with domain.ErrMaxUsesBelowUsed when the stored
	// used_count already exceeds the new max_uses.
	Update(ctx context.Context, code *domain.InvitationCode) error
	Delete(ctx context.Context, code string) error
	List(ctx context.Context, activeOnly bool, now time.Time) ([]*domain.InvitationCode, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
	Stats(ctx context.Context, now time.Time) (CodeStats, error)
}
