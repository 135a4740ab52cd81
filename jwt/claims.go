package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Kind tags a token as an access or refresh credential.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

type claimSet uint8

const (
	hasSubject claimSet = 1 << iota
	hasRole
	hasEmail
)

// Claims is the payload embedded in every token. SubjectID and Email may be
// empty for a guest that is not yet linked to a member record.
type Claims struct {
	SubjectID string `json:"id"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	Kind      Kind   `json:"type"`
	jwt.RegisteredClaims

	present claimSet
}

// HasSubject reports whether the verified token carried the id claim.
// Always false for claims that did not come from Verify.
func (c *Claims) HasSubject() bool { return c != nil && c.present&hasSubject != 0 }

// HasRole reports whether the verified token carried the role claim.
func (c *Claims) HasRole() bool { return c != nil && c.present&hasRole != 0 }

// HasEmail reports whether the verified token carried the email claim.
func (c *Claims) HasEmail() bool { return c != nil && c.present&hasEmail != 0 }

// wireClaims distinguishes an absent claim from an empty one.
type wireClaims struct {
	SubjectID *string `json:"id"`
	Role      *string `json:"role"`
	Email     *string `json:"email"`
	Kind      Kind    `json:"type"`
	jwt.RegisteredClaims
}

func (w *wireClaims) toClaims() *Claims {
	c := &Claims{
		Kind:             w.Kind,
		RegisteredClaims: w.RegisteredClaims,
	}
	if w.SubjectID != nil {
		c.SubjectID = *w.SubjectID
		c.present |= hasSubject
	}
	if w.Role != nil {
		c.Role = *w.Role
		c.present |= hasRole
	}
	if w.Email != nil {
		c.Email = *w.Email
		c.present |= hasEmail
	}
	return c
}
