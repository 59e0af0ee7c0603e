package auth

import "time"

// Roles supported by the service. The role filter matches by exact equality:
// admin does not implicitly satisfy a staff requirement.
const (
	RoleUser  = "user"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// User represents a registered account. Role is immutable after registration.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// ValidRole reports whether role is one of the supported role names.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleStaff, RoleAdmin:
		return true
	}
	return false
}
