package service

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

// ----------------------------------------------------------------------------
// In-memory invitation ledger
// ----------------------------------------------------------------------------

type memCodes struct {
	mu    sync.Mutex
	codes map[string]*domain.InvitationCode
	// insertErr fails Insert for the listed codes.
	insertErr map[string]error
}

func newMemCodes(codes ...*domain.InvitationCode) *memCodes {
	r := &memCodes{codes: make(map[string]*domain.InvitationCode)}
	for _, c := range codes {
		cp := *c
		r.codes[c.Code] = &cp
	}
	return r
}

func (r *memCodes) get(code string) *domain.InvitationCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[code]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

func (r *memCodes) Insert(_ context.Context, code *domain.InvitationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.insertErr[code.Code]; err != nil {
		return err
	}
	if _, ok := r.codes[code.Code]; ok {
		return domain.ErrCodeExists
	}
	cp := *code
	r.codes[code.Code] = &cp
	return nil
}

func (r *memCodes) Find(_ context.Context, code string) (*domain.InvitationCode, error) {
	if c := r.get(code); c != nil {
		return c, nil
	}
	return nil, domain.ErrCodeNotFound
}

func (r *memCodes) Exists(_ context.Context, code string) (bool, error) {
	return r.get(code) != nil, nil
}

var sequentialCode = regexp.MustCompile(`^[A-Z0-9]+-[0-9]+$`)

func (r *memCodes) CountWithPrefix(_ context.Context, prefix string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for code := range r.codes {
		if sequentialCode.MatchString(code) && len(code) > len(prefix) && code[:len(prefix)+1] == prefix+"-" {
			n++
		}
	}
	return n, nil
}

func (r *memCodes) Redeem(_ context.Context, code string, now time.Time) (*domain.InvitationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[code]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	if err := c.Check(now); err != nil {
		return nil, err
	}
	c.UsedCount++
	cp := *c
	return &cp, nil
}

func (r *memCodes) Release(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.codes[code]; ok && c.UsedCount > 0 {
		c.UsedCount--
	}
	return nil
}

func (r *memCodes) Update(_ context.Context, code *domain.InvitationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[code.Code]
	if !ok {
		return domain.ErrCodeNotFound
	}
	if c.UsedCount > code.MaxUses {
		return domain.ErrMaxUsesBelowUsed
	}
	c.MaxUses = code.MaxUses
	c.ExpiresAt = code.ExpiresAt
	c.Description = code.Description
	c.IsActive = code.IsActive
	c.UpdatedAt = code.UpdatedAt
	return nil
}

func (r *memCodes) Delete(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codes[code]; !ok {
		return domain.ErrCodeNotFound
	}
	delete(r.codes, code)
	return nil
}

func (r *memCodes) List(_ context.Context, activeOnly bool, now time.Time) ([]*domain.InvitationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.InvitationCode, 0, len(r.codes))
	for _, c := range r.codes {
		if activeOnly && c.Check(now) != nil {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memCodes) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.codes {
		if c.IsActive && !now.Before(c.ExpiresAt) {
			c.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *memCodes) Stats(_ context.Context, now time.Time) (ports.CodeStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var st ports.CodeStats
	for _, c := range r.codes {
		st.Total++
		st.Redeemed += int64(c.UsedCount)
		switch c.Check(now) {
		case nil:
			st.Active++
		case domain.ErrCodeExhausted:
			st.Exhausted++
		case domain.ErrCodeExpired:
			st.Expired++
		}
	}
	return st, nil
}

// ----------------------------------------------------------------------------
// In-memory accounts
// ----------------------------------------------------------------------------

type memAccounts struct {
	mu        sync.Mutex
	byID      map[string]*domain.Account
	seq       map[int]int64
	createErr error
}

func newMemAccounts(accounts ...*domain.Account) *memAccounts {
	r := &memAccounts{byID: make(map[string]*domain.Account), seq: make(map[int]int64)}
	for _, a := range accounts {
		cp := *a
		r.byID[a.ID] = &cp
	}
	return r
}

func (r *memAccounts) Create(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.byID {
		if existing.Email == a.Email {
			return domain.ErrEmailTaken
		}
	}
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *memAccounts) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAccounts) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *memAccounts) Update(_ context.Context, a *domain.Account, expected domain.AccountStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[a.ID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if stored.Status != expected {
		return domain.ErrStatusChanged
	}
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *memAccounts) ListByStatus(_ context.Context, status domain.AccountStatus, limit int) ([]*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Account
	for _, a := range r.byID {
		if a.Status == status && len(out) < limit {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memAccounts) CountByStatus(_ context.Context) (map[domain.AccountStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[domain.AccountStatus]int64)
	for _, a := range r.byID {
		out[a.Status]++
	}
	return out, nil
}

func (r *memAccounts) TouchLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[id]; ok {
		a.LastLoginAt = &at
	}
	return nil
}

func (r *memAccounts) NextWarriorSequence(_ context.Context, year int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq[year]++
	return r.seq[year], nil
}

// ----------------------------------------------------------------------------
// Audit, cache and notifier doubles
// ----------------------------------------------------------------------------

type memAudit struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry
}

func (r *memAudit) Append(_ context.Context, e *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *memAudit) Recent(_ context.Context, limit int) ([]*domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.AuditEntry, 0, limit)
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}

func (r *memAudit) actions() []domain.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type memCache struct {
	mu       sync.Mutex
	values   map[string][]byte
	refreshs int
}

func newMemCache() *memCache {
	return &memCache{values: make(map[string][]byte)}
}

func (c *memCache) GetOrRefresh(ctx context.Context, key string, _ time.Duration, dst any, refresh ports.RefreshFunc) error {
	c.mu.Lock()
	raw, ok := c.values[key]
	c.mu.Unlock()
	if !ok {
		v, err := refresh(ctx)
		if err != nil {
			return err
		}
		if raw, err = json.Marshal(v); err != nil {
			return err
		}
		c.mu.Lock()
		c.values[key] = raw
		c.refreshs++
		c.mu.Unlock()
	}
	return json.Unmarshal(raw, dst)
}

func (c *memCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	approved []string
}

func (n *recordingNotifier) AccountApproved(_ context.Context, a *domain.Account) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approved = append(n.approved, a.Email)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.approved)
}

// ----------------------------------------------------------------------------
// Builders
// ----------------------------------------------------------------------------

var fixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func activeCode(code string, maxUses int) *domain.InvitationCode {
	return &domain.InvitationCode{
		Code:      code,
		Role:      domain.RoleWarrior,
		MaxUses:   maxUses,
		IsActive:  true,
		ExpiresAt: fixedNow.AddDate(0, 1, 0),
		CreatedBy: "admin@example.com",
		CreatedAt: fixedNow.AddDate(0, 0, -1),
	}
}

func adminActor() *domain.Account {
	return &domain.Account{ID: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin, Status: domain.StatusActive}
}

func superActor() *domain.Account {
	return &domain.Account{ID: "super-1", Email: "root@example.com", Role: domain.RoleSuperAdmin, Status: domain.StatusActive}
}

func newTestLedger(codes *memCodes, audit *memAudit) *LedgerService {
	l := NewLedgerService(codes, audit, nil, zerolog.Nop())
	l.now = fixedClock
	return l
}

type accountFixture struct {
	svc      *AccountService
	accounts *memAccounts
	codes    *memCodes
	audit    *memAudit
	notifier *recordingNotifier
	tokens   *TokenService
}

func newAccountFixture(codes ...*domain.InvitationCode) *accountFixture {
	f := &accountFixture{
		accounts: newMemAccounts(adminActor(), superActor()),
		codes:    newMemCodes(codes...),
		audit:    &memAudit{},
		notifier: &recordingNotifier{},
		tokens:   NewTokenService("test-secret", 0),
	}
	f.tokens.now = fixedClock
	ledger := newTestLedger(f.codes, f.audit)
	f.svc = NewAccountService(AccountDeps{
		Accounts: f.accounts,
		Ledger:   ledger,
		Tokens:   f.tokens,
		Notifier: f.notifier,
		Audit:    f.audit,
		HashCost: bcrypt.MinCost,
	}, zerolog.Nop())
	f.svc.now = fixedClock
	return f
}

func registration(email, code string) ports.RegisterInput {
	return ports.RegisterInput{
		Name:           "Test Warrior",
		Email:          email,
		Password:       "hunter2hunter2",
		WhatsApp:       "+6281234567890",
		InvitationCode: code,
	}
}
