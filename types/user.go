package types

import "time"

// Plan tiers a user account can hold. The free tier can register but is
// gated from logging in until upgraded.
const (
	PlanFree       = "free"
	PlanStarter    = "starter"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// KnownPlan reports whether the given tier is one the product sells.
func KnownPlan(plan string) bool {
	switch plan {
	case PlanFree, PlanStarter, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// User represents an account holder.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the display name derived from "<first> <last>" at
	// registration.
	Username string `json:"username" db:"username"`

	// Email is the unique address used as the login key.
	Email string `json:"email" db:"email"`

	// PlanType is the subscription tier ("free", "starter", "pro",
	// "enterprise") controlling login and feature access.
	PlanType string `json:"plan_type" db:"plan_type"`

	// PasswordHash stores the salted one-way derivation of the user's
	// password. Never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// ActiveSessionID is rotated on every successful login; tokens carrying
	// an older value are rejected on protected routes.
	ActiveSessionID string `json:"-" db:"active_session_id"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
