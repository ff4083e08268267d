package ports

import (
	"context"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
)

// RegisterInput carries a registration request after schema validation.
type RegisterInput struct {
	Name           string
	Email          string
	Password       string
	WhatsApp       string
	TelegramID     string
	InvitationCode string
}

// AccountService drives the account state machine.
type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Account, error)
	Login(ctx context.Context, email, password string) (string, *domain.Account, error)
	Get(ctx context.Context, id string) (*domain.Account, error)
	CheckStatus(ctx context.Context, email string) (*domain.Account, error)
	ListPending(ctx context.Context, limit int) ([]*domain.Account, error)
	Approve(ctx context.Context, actor *domain.Account, id string) (*domain.Account, error)
	Reject(ctx context.Context, actor *domain.Account, id, reason string) (*domain.Account, error)
	Suspend(ctx context.Context, actor *domain.Account, id, reason string) (*domain.Account, error)
	Promote(ctx context.Context, actor *domain.Account, id string) (*domain.Account, error)
	MarkFounder(ctx context.Context, actor *domain.Account, id string) (*domain.Account, error)
}
