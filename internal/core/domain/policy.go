package domain

var (
	ErrUnauthenticated  = newError(ErrUnauthorized, "authentication required")
	ErrInvalidToken     = newError(ErrUnauthorized, "invalid token")
	ErrInsufficientRole = newError(ErrForbidden, "insufficient role")
	ErrActorNotActive   = newError(ErrForbidden, "account is not active")
)

// Authorize is the single access decision for the service. actor must be the
// live account record, never a token snapshot. An empty requiredStatus skips
// the status check.
func Authorize(actor *Account, requiredRole Role, requiredStatus AccountStatus) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if requiredStatus != "" && actor.Status != requiredStatus {
		return ErrActorNotActive
	}
	if !actor.Role.AtLeast(requiredRole) {
		return ErrInsufficientRole
	}
	return nil
}

// CanManage decides whether actor may change target's status or role.
// ADMIN may act on non-admin accounts only; SUPER_ADMIN may act on anyone but
// themselves.
func CanManage(actor, target *Account) error {
	if err := Authorize(actor, RoleAdmin, StatusActive); err != nil {
		return err
	}
	if actor.ID == target.ID {
		return ErrSelfAction
	}
	if actor.Role == RoleSuperAdmin {
		return nil
	}
	if target.Role.IsAdmin() || target.GrantedRole.IsAdmin() {
		return ErrInsufficientRole
	}
	return nil
}

// CanIssueRole decides whether actor may issue invitation codes granting role.
// Only SUPER_ADMIN issues founder or admin granting codes.
func CanIssueRole(actor *Account, role Role) error {
	switch role {
	case RoleWarrior:
		return Authorize(actor, RoleAdmin, StatusActive)
	case RoleFounder, RoleAdmin:
		return Authorize(actor, RoleSuperAdmin, StatusActive)
	}
	return NewValidationError("role", "must be one of: WARRIOR FOUNDER ADMIN")
}
