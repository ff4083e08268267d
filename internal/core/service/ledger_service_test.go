package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

func TestLedger_Generate_SequentialBatch(t *testing.T) {
	codes := newMemCodes()
	ledger := newTestLedger(codes, &memAudit{})

	out, err := ledger.Generate(context.Background(), adminActor(), ports.GenerateCodesInput{
		Quantity:       5,
		Prefix:         "BATCH",
		MaxUsesPerCode: 10,
	})
	require.NoError(t, err)
	require.Len(t, out, 5)

	pattern := regexp.MustCompile(`^BATCH-00[1-5]$`)
	seen := map[string]bool{}
	for i, c := range out {
		assert.Regexp(t, pattern, c.Code)
		assert.Equal(t, fmt.Sprintf("BATCH-%03d", i+1), c.Code)
		assert.False(t, seen[c.Code], "duplicate code %s", c.Code)
		seen[c.Code] = true

		assert.Equal(t, 0, c.UsedCount)
		assert.Equal(t, 10, c.MaxUses)
		assert.True(t, c.IsActive)
		assert.Equal(t, domain.RoleWarrior, c.Role)
		assert.Equal(t, fixedNow.AddDate(0, 0, defaultCodeExpiryDays), c.ExpiresAt)
		assert.Equal(t, fmt.Sprintf("Batch BATCH (%d/5)", i+1), c.Description)
		assert.NotNil(t, codes.get(c.Code))
	}
}

func TestLedger_Generate_ContinuesAfterExistingCodes(t *testing.T) {
	codes := newMemCodes(activeCode("WAVE-001", 1), activeCode("WAVE-002", 1))
	ledger := newTestLedger(codes, &memAudit{})

	out, err := ledger.Generate(context.Background(), adminActor(), ports.GenerateCodesInput{Quantity: 2, Prefix: "wave"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "WAVE-003", out[0].Code)
	assert.Equal(t, "WAVE-004", out[1].Code)
	assert.Equal(t, 1, out[0].MaxUses)
}

func TestLedger_Generate_FailedBatchLeavesNothing(t *testing.T) {
	codes := newMemCodes()
	codes.insertErr = map[string]error{"BATCH-003": errors.New("write conflict")}
	audit := &memAudit{}
	ledger := newTestLedger(codes, audit)

	out, err := ledger.Generate(context.Background(), adminActor(), ports.GenerateCodesInput{Quantity: 5, Prefix: "BATCH"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write conflict")
	assert.Nil(t, out)

	for _, code := range []string{"BATCH-001", "BATCH-002", "BATCH-003"} {
		assert.Nil(t, codes.get(code), "code %s should not be stored", code)
	}
	assert.Empty(t, audit.actions())
}

func TestLedger_Generate_QuantityCeiling(t *testing.T) {
	tests := []struct {
		name     string
		actor    *domain.Account
		quantity int
		wantErr  error
	}{
		{"admin at limit", adminActor(), adminQuantityLimit, nil},
		{"admin above limit", adminActor(), adminQuantityLimit + 1, domain.ErrQuantityExceeded},
		{"super admin above admin limit", superActor(), adminQuantityLimit + 1, nil},
		{"super admin above limit", superActor(), superAdminQuantityLimit + 1, domain.ErrQuantityExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newTestLedger(newMemCodes(), &memAudit{})
			out, err := ledger.Generate(context.Background(), tt.actor, ports.GenerateCodesInput{Quantity: tt.quantity, Prefix: "CAP"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, domain.ErrForbidden)
				return
			}
			require.NoError(t, err)
			assert.Len(t, out, tt.quantity)
		})
	}
}

func TestLedger_Generate_Validation(t *testing.T) {
	ledger := newTestLedger(newMemCodes(), &memAudit{})

	_, err := ledger.Generate(context.Background(), adminActor(), ports.GenerateCodesInput{Quantity: 1, Prefix: "AB"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ledger.Generate(context.Background(), adminActor(), ports.GenerateCodesInput{Quantity: 1, Prefix: "AB-C"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ledger.Generate(context.Background(), adminActor(), ports.GenerateCodesInput{Quantity: 0, Prefix: "ABC"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLedger_Generate_FounderCodesRequireSuperAdmin(t *testing.T) {
	ledger := newTestLedger(newMemCodes(), &memAudit{})

	_, err := ledger.Generate(context.Background(), adminActor(), ports.GenerateCodesInput{
		Quantity: 1, Prefix: "FND", Role: domain.RoleFounder,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	out, err := ledger.Generate(context.Background(), superActor(), ports.GenerateCodesInput{
		Quantity: 1, Prefix: "FND", Role: domain.RoleFounder,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleFounder, out[0].Role)
}

func TestLedger_Generate_NonAdminForbidden(t *testing.T) {
	ledger := newTestLedger(newMemCodes(), &memAudit{})
	warrior := &domain.Account{ID: "w", Email: "w@example.com", Role: domain.RoleWarrior, Status: domain.StatusActive}

	_, err := ledger.Generate(context.Background(), warrior, ports.GenerateCodesInput{Quantity: 1, Prefix: "ABC"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestLedger_GenerateInvitation_BoundedRetry(t *testing.T) {
	codes := newMemCodes()
	ledger := newTestLedger(codes, &memAudit{})
	ledger.random = zeroReader{}

	first, err := ledger.GenerateInvitation(context.Background(), adminActor(), ports.GenerateInvitationInput{})
	require.NoError(t, err)
	assert.Equal(t, "MPT-AAAA-AAAA", first.Code)

	_, err = ledger.GenerateInvitation(context.Background(), adminActor(), ports.GenerateInvitationInput{})
	assert.ErrorIs(t, err, domain.ErrCodeGenerationExhausted)
}

func TestLedger_GenerateInvitation_Format(t *testing.T) {
	ledger := newTestLedger(newMemCodes(), &memAudit{})

	ic, err := ledger.GenerateInvitation(context.Background(), adminActor(), ports.GenerateInvitationInput{Prefix: "vip", MaxUses: 3})
	require.NoError(t, err)
	assert.Regexp(t, `^VIP-[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}$`, ic.Code)
	assert.Equal(t, 3, ic.MaxUses)
}

func TestLedger_Redeem_ConcurrentLastUse(t *testing.T) {
	const attempts = 32
	codes := newMemCodes(activeCode("LAST-001", 1))
	ledger := newTestLedger(codes, &memAudit{})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := ledger.Redeem(context.Background(), "last-001", fmt.Sprintf("user%d@example.com", i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
	assert.Equal(t, 1, codes.get("LAST-001").UsedCount)
}

func TestLedger_Redeem_CapacityNeverExceeded(t *testing.T) {
	const capacity, attempts = 5, 50
	codes := newMemCodes(activeCode("POOL-001", capacity))
	ledger := newTestLedger(codes, &memAudit{})

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Redeem(context.Background(), "POOL-001", "x@example.com"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, capacity, successes)
	assert.Equal(t, capacity, codes.get("POOL-001").UsedCount)
}

func TestLedger_Redeem_RefusalsDoNotMutate(t *testing.T) {
	inactive := activeCode("OFF-001", 5)
	inactive.IsActive = false
	expired := activeCode("OLD-001", 5)
	expired.ExpiresAt = fixedNow.Add(-1)
	exhausted := activeCode("FULL-001", 2)
	exhausted.UsedCount = 2

	codes := newMemCodes(inactive, expired, exhausted)
	audit := &memAudit{}
	ledger := newTestLedger(codes, audit)

	tests := []struct {
		code     string
		wantErr  error
		wantUsed int
	}{
		{"OFF-001", domain.ErrCodeInactive, 0},
		{"OLD-001", domain.ErrCodeExpired, 0},
		{"FULL-001", domain.ErrCodeExhausted, 2},
		{"NOPE-001", domain.ErrCodeNotFound, 0},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			_, err := ledger.Redeem(context.Background(), tt.code, "a@example.com")
			assert.ErrorIs(t, err, tt.wantErr)

			_, err = ledger.Validate(context.Background(), tt.code)
			assert.ErrorIs(t, err, tt.wantErr)

			if c := codes.get(tt.code); c != nil {
				assert.Equal(t, tt.wantUsed, c.UsedCount)
			}
		})
	}
	assert.Empty(t, audit.actions())
}

func TestLedger_Validate_CaseInsensitive(t *testing.T) {
	ledger := newTestLedger(newMemCodes(activeCode("JOIN-001", 3)), &memAudit{})

	ic, err := ledger.Validate(context.Background(), "  join-001 ")
	require.NoError(t, err)
	assert.Equal(t, 3, ic.RemainingUses())
}

func TestLedger_Edit(t *testing.T) {
	used := activeCode("EDIT-001", 5)
	used.UsedCount = 3
	codes := newMemCodes(used)
	audit := &memAudit{}
	ledger := newTestLedger(codes, audit)

	tooLow := 2
	_, err := ledger.Edit(context.Background(), adminActor(), "EDIT-001", ports.EditCodeInput{MaxUses: &tooLow})
	assert.ErrorIs(t, err, domain.ErrMaxUsesBelowUsed)

	ok := 3
	desc := "spring cohort"
	ic, err := ledger.Edit(context.Background(), adminActor(), "EDIT-001", ports.EditCodeInput{MaxUses: &ok, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, 3, ic.MaxUses)
	assert.Equal(t, "spring cohort", codes.get("EDIT-001").Description)
	assert.Equal(t, []domain.AuditAction{domain.AuditCodeUpdated}, audit.actions())
}

func TestLedger_DeactivateAndDelete(t *testing.T) {
	codes := newMemCodes(activeCode("GONE-001", 5))
	audit := &memAudit{}
	ledger := newTestLedger(codes, audit)

	ic, err := ledger.Deactivate(context.Background(), adminActor(), "GONE-001")
	require.NoError(t, err)
	assert.False(t, ic.IsActive)

	_, err = ledger.Redeem(context.Background(), "GONE-001", "a@example.com")
	assert.ErrorIs(t, err, domain.ErrCodeInactive)

	err = ledger.Delete(context.Background(), adminActor(), "GONE-001")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, ledger.Delete(context.Background(), superActor(), "gone-001"))
	assert.Nil(t, codes.get("GONE-001"))
	assert.Equal(t, []domain.AuditAction{domain.AuditCodeDeactivated, domain.AuditCodeDeleted}, audit.actions())
}

func TestLedger_CreateLegacy(t *testing.T) {
	codes := newMemCodes()
	ledger := newTestLedger(codes, &memAudit{})

	_, err := ledger.CreateLegacy(context.Background(), adminActor(), ports.LegacyCodeInput{Code: "OG-FOUNDER"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	ic, err := ledger.CreateLegacy(context.Background(), superActor(), ports.LegacyCodeInput{Code: "og-founder", MaxUses: 2})
	require.NoError(t, err)
	assert.Equal(t, "OG-FOUNDER", ic.Code)
	assert.Equal(t, domain.RoleFounder, ic.Role)

	_, err = ledger.CreateLegacy(context.Background(), superActor(), ports.LegacyCodeInput{Code: "OG-FOUNDER"})
	assert.ErrorIs(t, err, domain.ErrCodeExists)
}

func TestLedger_DeactivateExpired(t *testing.T) {
	expired := activeCode("PAST-001", 5)
	expired.ExpiresAt = fixedNow.AddDate(0, 0, -1)
	codes := newMemCodes(expired, activeCode("LIVE-001", 5))
	ledger := newTestLedger(codes, &memAudit{})

	n, err := ledger.DeactivateExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.False(t, codes.get("PAST-001").IsActive)
	assert.True(t, codes.get("LIVE-001").IsActive)

	active, err := ledger.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "LIVE-001", active[0].Code)
}
