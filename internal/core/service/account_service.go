package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

const (
	minPasswordLength   = 8
	maxPasswordBytes    = 72 // bcrypt input limit
	defaultPendingLimit = 100
)

// AccountDeps groups the collaborators of AccountService.
type AccountDeps struct {
	Accounts ports.AccountRepository
	Ledger   ports.LedgerService
	Tokens   ports.TokenIssuer
	Notifier ports.Notifier
	Audit    ports.AuditRepository
	Stats    statsInvalidator
	// SuperAdminEmail overrides domain.ReservedSuperAdminEmail when set.
	SuperAdminEmail string
	// HashCost defaults to bcrypt.DefaultCost.
	HashCost int
}

// AccountService implements registration, login and the admin-driven account
// state machine.
type AccountService struct {
	accounts        ports.AccountRepository
	ledger          ports.LedgerService
	tokens          ports.TokenIssuer
	notifier        ports.Notifier
	audit           ports.AuditRepository
	stats           statsInvalidator
	superAdminEmail string
	hashCost        int
	log             zerolog.Logger
	now             func() time.Time
}

func NewAccountService(deps AccountDeps, log zerolog.Logger) *AccountService {
	s := &AccountService{
		accounts:        deps.Accounts,
		ledger:          deps.Ledger,
		tokens:          deps.Tokens,
		notifier:        deps.Notifier,
		audit:           deps.Audit,
		stats:           deps.Stats,
		superAdminEmail: deps.SuperAdminEmail,
		hashCost:        deps.HashCost,
		log:             log,
		now:             time.Now,
	}
	if s.stats == nil {
		s.stats = noopInvalidator{}
	}
	if s.superAdminEmail == "" {
		s.superAdminEmail = domain.ReservedSuperAdminEmail
	}
	if s.hashCost == 0 {
		s.hashCost = bcrypt.DefaultCost
	}
	return s
}

// Register redeems the invitation code and creates a pending account. If the
// account cannot be stored the consumed use is given back.
func (s *AccountService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Account, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = domain.NormalizeEmail(in.Email)
	in.WhatsApp = strings.TrimSpace(in.WhatsApp)
	in.TelegramID = strings.TrimSpace(in.TelegramID)
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	if _, err := s.accounts.FindByEmail(ctx, in.Email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	code, err := s.ledger.Redeem(ctx, in.InvitationCode, in.Email)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	account, err := s.create(ctx, in, string(hash), code, now)
	if err != nil {
		if relErr := s.ledger.Release(context.WithoutCancel(ctx), code.Code, in.Email); relErr != nil {
			s.log.Error().Err(relErr).Str("code", code.Code).Msg("failed to release invitation code")
		}
		return nil, err
	}

	recordAudit(ctx, s.audit, s.log, now, domain.AuditUserRegistered, account.Email, account.ID, map[string]any{
		"invitation_code": code.Code,
		"warrior_id":      account.WarriorID,
	})
	s.stats.Invalidate(ctx)
	s.log.Info().
		Str("account_id", account.ID).
		Str("email", account.Email).
		Str("code", code.Code).
		Msg("account registered")
	return account, nil
}

func (s *AccountService) create(ctx context.Context, in ports.RegisterInput, hash string, code *domain.InvitationCode, now time.Time) (*domain.Account, error) {
	seq, err := s.accounts.NextWarriorSequence(ctx, now.Year())
	if err != nil {
		return nil, fmt.Errorf("allocate warrior id: %w", err)
	}

	account := &domain.Account{
		ID:             uuid.NewString(),
		WarriorID:      fmt.Sprintf("MPT-%d-%05d", now.Year(), seq),
		Name:           in.Name,
		Email:          in.Email,
		PasswordHash:   hash,
		WhatsApp:       in.WhatsApp,
		TelegramID:     in.TelegramID,
		InvitationCode: code.Code,
		Role:           domain.RolePending,
		GrantedRole:    code.Role,
		Status:         domain.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Login checks credentials and issues a token carrying the current role and
// status. Pending accounts may log in; rejected and suspended may not.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err := account.LoginAllowed(); err != nil {
		return "", nil, err
	}

	now := s.now().UTC()
	if err := s.accounts.TouchLogin(ctx, account.ID, now); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("failed to record login time")
	} else {
		account.LastLoginAt = &now
	}

	token, err := s.tokens.Issue(account)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, account, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*domain.Account, error) {
	return s.accounts.FindByID(ctx, id)
}

// CheckStatus returns the live account record for email.
func (s *AccountService) CheckStatus(ctx context.Context, email string) (*domain.Account, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.NewValidationError("email", "is required")
	}
	return s.accounts.FindByEmail(ctx, email)
}

func (s *AccountService) ListPending(ctx context.Context, limit int) ([]*domain.Account, error) {
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	return s.accounts.ListByStatus(ctx, domain.StatusPending, limit)
}

// Approve activates a pending or suspended account. Approving an active
// account returns it unchanged and sends nothing.
func (s *AccountService) Approve(ctx context.Context, actor *domain.Account, id string) (*domain.Account, error) {
	return s.transition(ctx, actor, id, domain.AuditUserApproved, func(target *domain.Account, now time.Time) (bool, error) {
		if target.Status == domain.StatusActive {
			return false, nil
		}
		if !target.Status.CanTransitionTo(domain.StatusActive) {
			return false, domain.ErrInvalidTransition
		}

		role := target.Role
		if target.Status == domain.StatusPending || role == domain.RolePending {
			role = domain.ApprovalRole(target, s.superAdminEmail)
		}
		if role.IsAdmin() && actor.Role != domain.RoleSuperAdmin && !s.isReserved(target) {
			return false, domain.ErrInsufficientRole
		}

		target.Status = domain.StatusActive
		target.Role = role
		target.StatusReason = ""
		target.IsFounder = target.IsFounder || role == domain.RoleFounder
		target.ApprovedBy = actor.Email
		target.ApprovedAt = &now
		return true, nil
	})
}

func (s *AccountService) Reject(ctx context.Context, actor *domain.Account, id, reason string) (*domain.Account, error) {
	return s.transition(ctx, actor, id, domain.AuditUserRejected, func(target *domain.Account, _ time.Time) (bool, error) {
		if target.Status == domain.StatusRejected {
			return false, nil
		}
		if !target.Status.CanTransitionTo(domain.StatusRejected) {
			return false, domain.ErrInvalidTransition
		}
		target.Status = domain.StatusRejected
		target.StatusReason = strings.TrimSpace(reason)
		return true, nil
	})
}

func (s *AccountService) Suspend(ctx context.Context, actor *domain.Account, id, reason string) (*domain.Account, error) {
	return s.transition(ctx, actor, id, domain.AuditUserSuspended, func(target *domain.Account, _ time.Time) (bool, error) {
		if target.Status == domain.StatusSuspended {
			return false, nil
		}
		if !target.Status.CanTransitionTo(domain.StatusSuspended) {
			return false, domain.ErrInvalidTransition
		}
		target.Status = domain.StatusSuspended
		target.StatusReason = strings.TrimSpace(reason)
		return true, nil
	})
}

// Promote grants ADMIN, or SUPER_ADMIN for the reserved email. SUPER_ADMIN only.
func (s *AccountService) Promote(ctx context.Context, actor *domain.Account, id string) (*domain.Account, error) {
	if err := domain.Authorize(actor, domain.RoleSuperAdmin, domain.StatusActive); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, id, domain.AuditUserPromoted, func(target *domain.Account, _ time.Time) (bool, error) {
		if target.Status != domain.StatusActive {
			return false, fmt.Errorf("promote: %w", domain.ErrInvalidTransition)
		}
		role := domain.RoleAdmin
		if s.isReserved(target) {
			role = domain.RoleSuperAdmin
		}
		if target.Role == role {
			return false, nil
		}
		target.Role = role
		return true, nil
	})
}

// MarkFounder flags the account as a founder and activates it. Admins keep
// their admin role. SUPER_ADMIN only.
func (s *AccountService) MarkFounder(ctx context.Context, actor *domain.Account, id string) (*domain.Account, error) {
	if err := domain.Authorize(actor, domain.RoleSuperAdmin, domain.StatusActive); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, id, domain.AuditUserMarkedFounder, func(target *domain.Account, now time.Time) (bool, error) {
		if target.Status == domain.StatusRejected {
			return false, domain.ErrInvalidTransition
		}
		role := target.Role
		if !role.IsAdmin() {
			role = domain.RoleFounder
		}
		if target.IsFounder && target.Role == role && target.Status == domain.StatusActive {
			return false, nil
		}

		target.IsFounder = true
		target.Role = role
		target.GrantedRole = domain.RoleFounder
		target.StatusReason = ""
		if target.Status != domain.StatusActive {
			target.Status = domain.StatusActive
			target.ApprovedBy = actor.Email
			target.ApprovedAt = &now
		}
		return true, nil
	})
}

// transition loads target, checks that actor may manage it, applies mutate
// and persists the result conditioned on the status it was loaded with.
// mutate returns false when the account is already in the requested state.
func (s *AccountService) transition(
	ctx context.Context,
	actor *domain.Account,
	id string,
	action domain.AuditAction,
	mutate func(target *domain.Account, now time.Time) (bool, error),
) (*domain.Account, error) {
	target, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CanManage(actor, target); err != nil {
		return nil, err
	}

	from := target.Status
	now := s.now().UTC()
	changed, err := mutate(target, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		s.log.Debug().Str("account_id", target.ID).Str("action", string(action)).Msg("account already in requested state")
		return target, nil
	}

	target.UpdatedAt = now
	if err := s.accounts.Update(ctx, target, from); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.log, now, action, actor.Email, target.ID, map[string]any{
		"from":   string(from),
		"to":     string(target.Status),
		"role":   string(target.Role),
		"reason": target.StatusReason,
	})
	s.stats.Invalidate(ctx)
	s.log.Info().
		Str("account_id", target.ID).
		Str("action", string(action)).
		Str("from", string(from)).
		Str("to", string(target.Status)).
		Str("role", string(target.Role)).
		Str("by", actor.Email).
		Msg("account transitioned")

	if from == domain.StatusPending && target.Status == domain.StatusActive && s.notifier != nil {
		s.notifier.AccountApproved(ctx, target)
	}
	return target, nil
}

func (s *AccountService) isReserved(a *domain.Account) bool {
	return domain.NormalizeEmail(a.Email) == domain.NormalizeEmail(s.superAdminEmail)
}

func validateRegistration(in ports.RegisterInput) error {
	switch {
	case in.Name == "":
		return domain.NewValidationError("name", "is required")
	case in.Email == "":
		return domain.NewValidationError("email", "is required")
	case len(in.Password) < minPasswordLength:
		return domain.NewValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	case len(in.Password) > maxPasswordBytes:
		return domain.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	case in.WhatsApp == "" && in.TelegramID == "":
		return domain.NewValidationError("contact", "whatsapp or telegram_id is required")
	case strings.TrimSpace(in.InvitationCode) == "":
		return domain.NewValidationError("invitation_code", "is required")
	}
	return nil
}
