package tokenauth

import (
	"strings"
	"time"
)

// Role is the authorization role carried in every token.
type Role string

const (
	RoleGuest Role = "GUEST"
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleUser, RoleAdmin:
		return true
	}
	return false
}

// ParseRole accepts a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

func validRoleName(s string) bool {
	return Role(s).Valid()
}

// Principal is the authenticated identity attached to a request.
// SubjectID is empty for a guest that has not been linked to a member yet.
type Principal struct {
	SubjectID string
	Role      Role
	Email     string
}

// Session is the credential set delivered to a client. RefreshToken is empty
// for access-only results (guest access, access-only rotation).
type Session struct {
	AccessToken  string
	RefreshToken string
	RefreshTTL   time.Duration
	SubjectID    string
	Role         Role
	Email        string
}

// ValidationResult is the identity bound to a valid refresh token.
type ValidationResult struct {
	SubjectID string
	Email     string
	Role      Role
}

// LogoutResult reports what terminate actually changed. It exists for
// logging and tests; clients always see success.
type LogoutResult struct {
	SubjectID      string
	RefreshDeleted bool
	AccessRevoked  bool
}
