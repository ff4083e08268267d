package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrCodeNotFound            = newError(ErrNotFound, "invitation code not found")
	ErrCodeExpired             = newError(ErrConflict, "invitation code has expired")
	ErrCodeInactive            = newError(ErrConflict, "invitation code is inactive")
	ErrCodeExhausted           = newError(ErrConflict, "invitation code has reached its usage limit")
	ErrCodeExists              = newError(ErrConflict, "invitation code already exists")
	ErrCodeGenerationExhausted = newError(ErrConflict, "could not generate a unique invitation code")
	ErrQuantityExceeded        = newError(ErrForbidden, "requested quantity exceeds your limit")
	ErrMaxUsesBelowUsed        = newError(ErrValidation, "max_uses cannot be lower than used_count")
)

// InvitationCode gates registration. UsedCount never exceeds MaxUses.
type InvitationCode struct {
	Code        string    `json:"code" bson:"code"`
	Role        Role      `json:"role" bson:"role"`
	MaxUses     int       `json:"max_uses" bson:"max_uses"`
	UsedCount   int       `json:"used_count" bson:"used_count"`
	IsActive    bool      `json:"is_active" bson:"is_active"`
	ExpiresAt   time.Time `json:"expires_at" bson:"expires_at"`
	CreatedBy   string    `json:"created_by" bson:"created_by"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// NormalizeCode upper-cases and trims user input.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Check returns the reason the code cannot be redeemed at now, or nil.
func (c *InvitationCode) Check(now time.Time) error {
	switch {
	case !now.Before(c.ExpiresAt):
		return ErrCodeExpired
	case !c.IsActive:
		return ErrCodeInactive
	case c.UsedCount >= c.MaxUses:
		return ErrCodeExhausted
	}
	return nil
}

// RemainingUses never reports a negative value.
func (c *InvitationCode) RemainingUses() int {
	if n := c.MaxUses - c.UsedCount; n > 0 {
		return n
	}
	return 0
}

// CodeRejectionReason maps a ledger error to a short machine-readable reason.
func CodeRejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrCodeNotFound):
		return "not_found"
	case errors.Is(err, ErrCodeExpired):
		return "expired"
	case errors.Is(err, ErrCodeInactive):
		return "inactive"
	case errors.Is(err, ErrCodeExhausted):
		return "exhausted"
	}
	return ""
}
