package domain

import "time"

// Claims is the identity snapshot carried by a bearer token. It reflects the
// account at issue time only.
type Claims struct {
	AccountID string
	Email     string
	Role      Role
	Status    AccountStatus
	IssuedAt  time.Time
	ExpiresAt time.Time
}
