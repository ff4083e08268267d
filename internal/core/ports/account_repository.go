package ports

import (
	"context"
	"time"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
)

// AccountRepository defines persistence for registered accounts.
type AccountRepository interface {
	// Create inserts a new account. Returns domain.ErrEmailTaken when the email
	// is already registered.
	Create(ctx context.Context, account *domain.Account) error
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	// Update replaces the account only if its stored status still equals
	// expected; otherwise domain.ErrStatusChanged is returned.
	Update(ctx context.Context, account *domain.Account, expected domain.AccountStatus) error
	ListByStatus(ctx context.Context, status domain.AccountStatus, limit int) ([]*domain.Account, error)
	CountByStatus(ctx context.Context) (map[domain.AccountStatus]int64, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
	// NextWarriorSequence atomically allocates the next member number for year.
	NextWarriorSequence(ctx context.Context, year int) (int64, error)
}

// AccountFinder is the read-only slice of AccountRepository used by the
// authorization middleware.
type AccountFinder interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
}
