package auth

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the verified claim set extracted from a bearer token. It is
// created once per request and read-only thereafter.
type Claims struct {
	Permissions PermissionSet `json:"permissions"`
	jwt.RegisteredClaims
}

// HasPermission reports whether the token grants the named permission.
func (c *Claims) HasPermission(perm string) bool {
	if c == nil {
		return false
	}
	return c.Permissions.Contains(perm)
}

// PermissionSet holds the permission strings granted by a token.
//
// The identity provider is expected to emit a JSON array of strings, but
// the claim is decoded tolerantly: absent or non-array values yield an
// empty set instead of a parse failure. Enforcement then simply denies.
type PermissionSet []string

func (p *PermissionSet) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		*p = nil
		return nil
	}
	*p = list
	return nil
}

// Contains reports whether perm is in the set.
func (p PermissionSet) Contains(perm string) bool {
	for _, granted := range p {
		if granted == perm {
			return true
		}
	}
	return false
}
