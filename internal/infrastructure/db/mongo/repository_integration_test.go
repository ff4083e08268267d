//go:build integration

package mongo

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
)

// setupMongo starts a disposable MongoDB container and returns a database
// handle with all indexes in place.
func setupMongo(t *testing.T) *mongo.Database {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)

	client, db, err := Connect(ctx, Config{
		URI:      fmt.Sprintf("mongodb://%s:%s", host, port.Port()),
		Database: "lifecycle_test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	require.NoError(t, EnsureIndexes(ctx,
		NewAccountRepository(db),
		NewInvitationRepository(db),
		NewAuditRepository(db),
	))
	return db
}

func seedCode(t *testing.T, repo *InvitationRepository, code string, maxUses int, now time.Time) {
	t.Helper()
	require.NoError(t, repo.Insert(context.Background(), &domain.InvitationCode{
		Code:      code,
		Role:      domain.RoleWarrior,
		MaxUses:   maxUses,
		IsActive:  true,
		ExpiresAt: now.Add(24 * time.Hour),
		CreatedBy: "admin@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func TestInvitationRepository_ConcurrentRedeem(t *testing.T) {
	db := setupMongo(t)
	repo := NewInvitationRepository(db)
	now := time.Now().UTC().Truncate(time.Millisecond)
	seedCode(t, repo, "RACE-001", 1, now)

	const attempts = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, exhausted := 0, 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Redeem(context.Background(), "RACE-001", now)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if err == domain.ErrCodeExhausted {
				exhausted++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, exhausted)

	ic, err := repo.Find(context.Background(), "RACE-001")
	require.NoError(t, err)
	assert.Equal(t, 1, ic.UsedCount)
}

func TestInvitationRepository_RedeemReasons(t *testing.T) {
	db := setupMongo(t)
	repo := NewInvitationRepository(db)
	now := time.Now().UTC().Truncate(time.Millisecond)
	seedCode(t, repo, "OPEN-001", 2, now)

	_, err := repo.Redeem(context.Background(), "NOPE-001", now)
	assert.ErrorIs(t, err, domain.ErrCodeNotFound)

	_, err = repo.Redeem(context.Background(), "OPEN-001", now.Add(48*time.Hour))
	assert.ErrorIs(t, err, domain.ErrCodeExpired)

	ic, err := repo.Find(context.Background(), "OPEN-001")
	require.NoError(t, err)
	ic.IsActive = false
	require.NoError(t, repo.Update(context.Background(), ic))
	_, err = repo.Redeem(context.Background(), "OPEN-001", now)
	assert.ErrorIs(t, err, domain.ErrCodeInactive)

	ic, err = repo.Find(context.Background(), "OPEN-001")
	require.NoError(t, err)
	assert.Equal(t, 0, ic.UsedCount)
}

func TestInvitationRepository_UpdateGuardsUsedCount(t *testing.T) {
	db := setupMongo(t)
	repo := NewInvitationRepository(db)
	now := time.Now().UTC().Truncate(time.Millisecond)
	seedCode(t, repo, "EDIT-001", 3, now)

	_, err := repo.Redeem(context.Background(), "EDIT-001", now)
	require.NoError(t, err)
	_, err = repo.Redeem(context.Background(), "EDIT-001", now)
	require.NoError(t, err)

	ic, err := repo.Find(context.Background(), "EDIT-001")
	require.NoError(t, err)
	ic.MaxUses = 1
	assert.ErrorIs(t, repo.Update(context.Background(), ic), domain.ErrMaxUsesBelowUsed)

	require.NoError(t, repo.Release(context.Background(), "EDIT-001"))
	require.NoError(t, repo.Update(context.Background(), ic))
}

func TestAccountRepository_ConditionalUpdate(t *testing.T) {
	db := setupMongo(t)
	repo := NewAccountRepository(db)
	now := time.Now().UTC().Truncate(time.Millisecond)

	acc := &domain.Account{
		ID:        uuid.NewString(),
		Email:     "lee@example.com",
		Role:      domain.RolePending,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(context.Background(), acc))
	assert.ErrorIs(t, repo.Create(context.Background(), &domain.Account{ID: uuid.NewString(), Email: acc.Email}), domain.ErrEmailTaken)

	acc.Status = domain.StatusActive
	require.NoError(t, repo.Update(context.Background(), acc, domain.StatusPending))

	acc.Status = domain.StatusRejected
	assert.ErrorIs(t, repo.Update(context.Background(), acc, domain.StatusPending), domain.ErrStatusChanged)

	stored, err := repo.FindByEmail(context.Background(), "lee@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, stored.Status)

	first, err := repo.NextWarriorSequence(context.Background(), 2025)
	require.NoError(t, err)
	second, err := repo.NextWarriorSequence(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
}
