package domain

import (
	"strings"
	"time"
)

// Role is the privilege axis of an account.
type Role string

const (
	RolePending    Role = "PENDING"
	RoleWarrior    Role = "WARRIOR"
	RoleFounder    Role = "FOUNDER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// roleRank orders roles for minimum-role checks.
var roleRank = map[Role]int{
	RolePending:    0,
	RoleWarrior:    1,
	RoleFounder:    2,
	RoleAdmin:      3,
	RoleSuperAdmin: 4,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r ranks equal to or above min.
func (r Role) AtLeast(min Role) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	return rank >= roleRank[min]
}

// IsAdmin reports whether r carries back-office privileges.
func (r Role) IsAdmin() bool {
	return r.AtLeast(RoleAdmin)
}

// AccountStatus is the lifecycle axis of an account.
type AccountStatus string

const (
	StatusPending   AccountStatus = "pending"
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
	StatusRejected  AccountStatus = "rejected"
)

// AllStatuses lists every account status in display order.
var AllStatuses = []AccountStatus{StatusPending, StatusActive, StatusSuspended, StatusRejected}

// validTransitions defines the allowed account state machine moves.
// Rejected is terminal.
var validTransitions = map[AccountStatus][]AccountStatus{
	StatusPending:   {StatusActive, StatusRejected},
	StatusActive:    {StatusSuspended},
	StatusSuspended: {StatusActive},
}

// CanTransitionTo reports whether a transition from s to next is valid.
func (s AccountStatus) CanTransitionTo(next AccountStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusSuspended, StatusRejected:
		return true
	}
	return false
}

// ReservedSuperAdminEmail is always promoted to SUPER_ADMIN on approval.
const ReservedSuperAdminEmail = "info.mptcommunity@gmail.com"

var (
	ErrAccountNotFound    = newError(ErrNotFound, "user not found")
	ErrEmailTaken         = newError(ErrConflict, "email already registered")
	ErrInvalidCredentials = newError(ErrUnauthorized, "invalid email or password")
	ErrAccountRejected    = newError(ErrForbidden, "account has been rejected")
	ErrAccountSuspended   = newError(ErrForbidden, "account is suspended")
	ErrInvalidTransition  = newError(ErrConflict, "invalid status transition")
	ErrStatusChanged      = newError(ErrConflict, "account status changed concurrently")
	ErrSelfAction         = newError(ErrForbidden, "cannot change your own account")
)

// Account is a registered community member.
type Account struct {
	ID             string        `json:"id"`
	WarriorID      string        `json:"warrior_id"`
	Name           string        `json:"name"`
	Email          string        `json:"email"`
	PasswordHash   string        `json:"-"`
	WhatsApp       string        `json:"whatsapp,omitempty"`
	TelegramID     string        `json:"telegram_id,omitempty"`
	InvitationCode string        `json:"invitation_code"`
	Role           Role          `json:"role"`
	GrantedRole    Role          `json:"granted_role"`
	Status         AccountStatus `json:"status"`
	StatusReason   string        `json:"status_reason,omitempty"`
	IsFounder      bool          `json:"is_founder"`
	ApprovedBy     string        `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time    `json:"approved_at,omitempty"`
	LastLoginAt    *time.Time    `json:"last_login_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ApprovalRole returns the role an account receives on approval. The reserved
// email always becomes SUPER_ADMIN; everyone else gets the role granted by the
// invitation code they registered with, falling back to WARRIOR.
func ApprovalRole(a *Account, superAdminEmail string) Role {
	if superAdminEmail == "" {
		superAdminEmail = ReservedSuperAdminEmail
	}
	if NormalizeEmail(a.Email) == NormalizeEmail(superAdminEmail) {
		return RoleSuperAdmin
	}
	if a.GrantedRole.Valid() && a.GrantedRole != RolePending {
		return a.GrantedRole
	}
	return RoleWarrior
}

// LoginAllowed reports whether the account may obtain a token.
func (a *Account) LoginAllowed() error {
	switch a.Status {
	case StatusRejected:
		return ErrAccountRejected
	case StatusSuspended:
		return ErrAccountSuspended
	}
	return nil
}
