package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

type stubAccountService struct {
	registerFn    func(ctx context.Context, in ports.RegisterInput) (*domain.Account, error)
	loginFn       func(ctx context.Context, email, password string) (string, *domain.Account, error)
	getFn         func(ctx context.Context, id string) (*domain.Account, error)
	checkStatusFn func(ctx context.Context, email string) (*domain.Account, error)
	listPendingFn func(ctx context.Context, limit int) ([]*domain.Account, error)
	approveFn     func(ctx context.Context, actor *domain.Account, id string) (*domain.Account, error)
	rejectFn      func(ctx context.Context, actor *domain.Account, id, reason string) (*domain.Account, error)
	suspendFn     func(ctx context.Context, actor *domain.Account, id, reason string) (*domain.Account, error)
	promoteFn     func(ctx context.Context, actor *domain.Account, id string) (*domain.Account, error)
	markFounderFn func(ctx context.Context, actor *domain.Account, id string) (*domain.Account, error)
}

func (s *stubAccountService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Account, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAccountService) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAccountService) Get(ctx context.Context, id string) (*domain.Account, error) {
	return s.getFn(ctx, id)
}

func (s *stubAccountService) CheckStatus(ctx context.Context, email string) (*domain.Account, error) {
	return s.checkStatusFn(ctx, email)
}

func (s *stubAccountService) ListPending(ctx context.Context, limit int) ([]*domain.Account, error) {
	return s.listPendingFn(ctx, limit)
}

func (s *stubAccountService) Approve(ctx context.Context, actor *domain.Account, id string) (*domain.Account, error) {
	return s.approveFn(ctx, actor, id)
}

func (s *stubAccountService) Reject(ctx context.Context, actor *domain.Account, id, reason string) (*domain.Account, error) {
	return s.rejectFn(ctx, actor, id, reason)
}

func (s *stubAccountService) Suspend(ctx context.Context, actor *domain.Account, id, reason string) (*domain.Account, error) {
	return s.suspendFn(ctx, actor, id, reason)
}

func (s *stubAccountService) Promote(ctx context.Context, actor *domain.Account, id string) (*domain.Account, error) {
	return s.promoteFn(ctx, actor, id)
}

func (s *stubAccountService) MarkFounder(ctx context.Context, actor *domain.Account, id string) (*domain.Account, error) {
	return s.markFounderFn(ctx, actor, id)
}

type stubLedgerService struct {
	ports.LedgerService
	validateFn           func(ctx context.Context, code string) (*domain.InvitationCode, error)
	generateFn           func(ctx context.Context, actor *domain.Account, in ports.GenerateCodesInput) ([]*domain.InvitationCode, error)
	generateInvitationFn func(ctx context.Context, actor *domain.Account, in ports.GenerateInvitationInput) (*domain.InvitationCode, error)
	listFn               func(ctx context.Context, activeOnly bool) ([]*domain.InvitationCode, error)
	editFn               func(ctx context.Context, actor *domain.Account, code string, in ports.EditCodeInput) (*domain.InvitationCode, error)
	deleteFn             func(ctx context.Context, actor *domain.Account, code string) error
}

func (s *stubLedgerService) Validate(ctx context.Context, code string) (*domain.InvitationCode, error) {
	return s.validateFn(ctx, code)
}

func (s *stubLedgerService) Generate(ctx context.Context, actor *domain.Account, in ports.GenerateCodesInput) ([]*domain.InvitationCode, error) {
	return s.generateFn(ctx, actor, in)
}

func (s *stubLedgerService) GenerateInvitation(ctx context.Context, actor *domain.Account, in ports.GenerateInvitationInput) (*domain.InvitationCode, error) {
	return s.generateInvitationFn(ctx, actor, in)
}

func (s *stubLedgerService) List(ctx context.Context, activeOnly bool) ([]*domain.InvitationCode, error) {
	return s.listFn(ctx, activeOnly)
}

func (s *stubLedgerService) Edit(ctx context.Context, actor *domain.Account, code string, in ports.EditCodeInput) (*domain.InvitationCode, error) {
	return s.editFn(ctx, actor, code, in)
}

func (s *stubLedgerService) Delete(ctx context.Context, actor *domain.Account, code string) error {
	return s.deleteFn(ctx, actor, code)
}

type stubStatsService struct {
	statsFn func(ctx context.Context) (*ports.LifecycleStats, error)
}

func (s *stubStatsService) Stats(ctx context.Context) (*ports.LifecycleStats, error) {
	return s.statsFn(ctx)
}

func (s *stubStatsService) Invalidate(context.Context) {}

type stubAuditService struct {
	recentFn func(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
}

func (s *stubAuditService) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	return s.recentFn(ctx, limit)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func newJSONContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func adminActor() *domain.Account {
	return &domain.Account{ID: "admin-1", Email: "admin@mpt.id", Role: domain.RoleAdmin, Status: domain.StatusActive}
}

func pendingAccount(id string) *domain.Account {
	return &domain.Account{
		ID:        id,
		WarriorID: "MPT-2025-00001",
		Name:      "Alice",
		Email:     "alice@example.com",
		Role:      domain.RolePending,
		Status:    domain.StatusPending,
	}
}

