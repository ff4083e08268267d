package ports

import (
	"context"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
)

// LifecycleStats is the back-office overview.
type LifecycleStats struct {
	Accounts map[domain.AccountStatus]int64 `json:"accounts"`
	Codes    CodeStats                      `json:"codes"`
}

type StatsService interface {
	Stats(ctx context.Context) (*LifecycleStats, error)
	Invalidate(ctx context.Context)
}

type AuditService interface {
	Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
}
