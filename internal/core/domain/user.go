package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated account: customer, delivery agent or admin.
type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"` // Argon2id, never expose
	FullName      string    `json:"full_name"`
	Role          Role      `json:"role"`
	AgentApproved bool      `json:"agent_approved"` // delivery agents only
	// RefreshTokenHash is the SHA-256 hex digest of the current refresh
	// token; raw tokens never reach storage or the audit trail.
	RefreshTokenHash *string   `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CanTransition reports whether the user is an eligible actor at all:
// delivery agents must be admin-approved before taking transitions.
func (u *User) CanTransition() bool {
	if u.Role == RoleDelivery {
		return u.AgentApproved
	}
	return u.Role == RoleCustomer || u.Role == RoleAdmin
}

// Actor returns the user's actor identity for transition requests.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
