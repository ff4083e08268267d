package ports

import (
	"context"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
)

// Notifier delivers best-effort lifecycle notifications. Implementations must
// not block the caller on delivery.
type Notifier interface {
	AccountApproved(ctx context.Context, account *domain.Account)
}

// Message is a plain-text email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
