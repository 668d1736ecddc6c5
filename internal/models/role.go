package models

import "strings"

// Role is the authorization tier of an account or family member
type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleParent || r == RoleChild
}

// ParseRole normalises s into a Role. Empty input yields def.
func ParseRole(s string, def Role) (Role, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def, true
	}
	r := Role(s)
	return r, r.Valid()
}
