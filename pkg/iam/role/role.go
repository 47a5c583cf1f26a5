package role

import "sort"

// Role is a platform role. The set of roles is closed; anything else found in
// a token is ignored.
type Role string

const (
	SuperAdmin     Role = "superAdmin"
	PlatformAdmin  Role = "platformAdmin"
	SupportAgent   Role = "supportAgent"
	ContentManager Role = "contentManager"
)

// Known lists every valid role.
var Known = []Role{SuperAdmin, PlatformAdmin, SupportAgent, ContentManager}

// Parse returns the Role for s, if s is a known role value.
func Parse(s string) (Role, bool) {
	for _, r := range Known {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

func (r Role) String() string { return string(r) }

// Set is a set of roles. A principal may hold zero, one, or — due to legacy
// data — several roles at once; multiplicity is preserved, never collapsed.
type Set map[Role]struct{}

// NewSet builds a set from the given roles.
func NewSet(roles ...Role) Set {
	s := make(Set, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Add inserts a role into the set.
func (s Set) Add(r Role) { s[r] = struct{}{} }

// Has reports whether the set contains r.
func (s Set) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// IsEmpty reports whether the set holds no roles.
func (s Set) IsEmpty() bool { return len(s) == 0 }

// Intersects reports whether the set shares any role with roles.
func (s Set) Intersects(roles []Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Values returns the roles in stable order.
func (s Set) Values() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the role names in stable order.
func (s Set) Strings() []string {
	roles := s.Values()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
