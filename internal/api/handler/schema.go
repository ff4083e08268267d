package handler

import "time"

// errorResponse is the error envelope written directly by handlers.
type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// --- Auth ---

type registerRequest struct {
	Name           string `json:"name"            validate:"required,max=100"`
	Email          string `json:"email"           validate:"required,email"`
	Password       string `json:"password"        validate:"required,min=8,maxbytes=72"`
	WhatsApp       string `json:"whatsapp"        validate:"omitempty,max=32"`
	TelegramID     string `json:"telegram_id"     validate:"omitempty,max=64"`
	InvitationCode string `json:"invitation_code" validate:"required"`
}

type registerResponse struct {
	User    accountResponse `json:"user"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User      accountResponse `json:"user"`
	Token     string          `json:"token"`
	ExpiresIn int64           `json:"expires_in"`
}

type statusResponse struct {
	Email  string `json:"email"`
	Status string `json:"status"`
	Role   string `json:"role"`
}

type accountResponse struct {
	ID             string     `json:"id"`
	WarriorID      string     `json:"warrior_id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	WhatsApp       string     `json:"whatsapp,omitempty"`
	TelegramID     string     `json:"telegram_id,omitempty"`
	InvitationCode string     `json:"invitation_code"`
	Role           string     `json:"role"`
	Status         string     `json:"status"`
	StatusReason   string     `json:"status_reason,omitempty"`
	IsFounder      bool       `json:"is_founder"`
	ApprovedBy     string     `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type accountListResponse struct {
	Data  []accountResponse `json:"data"`
	Total int               `json:"total"`
}

// --- Account administration ---

type userActionRequest struct {
	UserID string `json:"userId" validate:"required"`
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// --- Invitation codes ---

type validateCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

type validateCodeResponse struct {
	Valid         bool       `json:"valid"`
	Reason        string     `json:"reason,omitempty"`
	Role          string     `json:"role,omitempty"`
	RemainingUses int        `json:"remaining_uses,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

type generateCodesRequest struct {
	Quantity       int    `json:"quantity"       validate:"required,min=1"`
	Prefix         string `json:"prefix"         validate:"required,min=3,max=16,alphanum"`
	MaxUsesPerCode int    `json:"maxUsesPerCode" validate:"omitempty,min=1"`
	ExpiryDays     int    `json:"expiryDays"     validate:"omitempty,min=1,max=3650"`
	Role           string `json:"role"           validate:"omitempty,oneof=WARRIOR FOUNDER ADMIN"`
	Description    string `json:"description"    validate:"omitempty,max=200"`
}

type generateInvitationRequest struct {
	Prefix      string `json:"prefix"      validate:"omitempty,min=3,max=16,alphanum"`
	MaxUses     int    `json:"maxUses"     validate:"omitempty,min=1"`
	ExpiryDays  int    `json:"expiryDays"  validate:"omitempty,min=1,max=3650"`
	Role        string `json:"role"        validate:"omitempty,oneof=WARRIOR FOUNDER ADMIN"`
	Description string `json:"description" validate:"omitempty,max=200"`
}

type legacyCodeRequest struct {
	Code        string `json:"code"        validate:"required,min=3,max=32"`
	MaxUses     int    `json:"maxUses"     validate:"omitempty,min=1"`
	ExpiryDays  int    `json:"expiryDays"  validate:"omitempty,min=1,max=3650"`
	Description string `json:"description" validate:"omitempty,max=200"`
}

type editCodeRequest struct {
	MaxUses     *int       `json:"maxUses"     validate:"omitempty,min=1"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	Description *string    `json:"description" validate:"omitempty,max=200"`
	IsActive    *bool      `json:"isActive"`
}

type codeResponse struct {
	Code          string    `json:"code"`
	Role          string    `json:"role"`
	MaxUses       int       `json:"max_uses"`
	UsedCount     int       `json:"used_count"`
	RemainingUses int       `json:"remaining_uses"`
	IsActive      bool      `json:"is_active"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedBy     string    `json:"created_by"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type codeListResponse struct {
	Data  []codeResponse `json:"data"`
	Total int            `json:"total"`
}

// --- Back office ---

type statsResponse struct {
	Accounts map[string]int64 `json:"accounts"`
	Codes    codeStatsResponse `json:"codes"`
}

type codeStatsResponse struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Exhausted int64 `json:"exhausted"`
	Expired   int64 `json:"expired"`
	Redeemed  int64 `json:"redeemed"`
}

type auditEntryResponse struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Actor     string         `json:"actor"`
	Target    string         `json:"target"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type auditListResponse struct {
	Data []auditEntryResponse `json:"data"`
}
