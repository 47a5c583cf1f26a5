package role

import (
	"crypto/subtle"
	"strings"
)

// Extractor derives the platform roles a principal holds from verified token
// claims. The provider has issued several claim shapes over the years, so
// extraction runs an explicit, ordered list of strategies instead of scanning
// the claim map for anything role-shaped:
//
//  1. DirectRoleClaim     — a top-level "role" claim holding a role value
//  2. AttributeKeyMatch   — a top-level claim whose name or string value is a
//     role value (legacy tokens stored the role as an attribute key)
//  3. RealmRolesList      — realm_access.roles, filtered to known roles
//  4. ResourceRolesMap    — resource_access.<client>.roles, filtered
//  5. SuperAdminEmailFallback — bootstrap escape hatch for the configured
//     super-admin email
//
// Strategies 1 and 2 always both run since they read different shapes; the
// rest only run while the set is still empty. Extraction never fails — an
// empty set is a valid result.
type Extractor struct {
	strategies []strategy
}

type strategy interface {
	name() string
	extract(claims map[string]interface{}) (Set, bool)
}

// NewExtractor builds an extractor. superAdminEmail may be empty, disabling
// the fallback strategy.
func NewExtractor(superAdminEmail string) *Extractor {
	return &Extractor{
		strategies: []strategy{
			directRoleClaim{},
			attributeKeyMatch{},
			realmRolesList{},
			resourceRolesMap{},
			superAdminEmailFallback{email: superAdminEmail},
		},
	}
}

// Extract returns the set of roles the claims carry.
func (e *Extractor) Extract(claims map[string]interface{}) Set {
	result := NewSet()
	if claims == nil {
		return result
	}

	for _, s := range e.strategies {
		// Tiers beyond the first two only apply while nothing matched.
		switch s.(type) {
		case directRoleClaim, attributeKeyMatch:
		default:
			if !result.IsEmpty() {
				return result
			}
		}

		if found, ok := s.extract(claims); ok {
			for r := range found {
				result.Add(r)
			}
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Strategies
// ---------------------------------------------------------------------------

type directRoleClaim struct{}

func (directRoleClaim) name() string { return "direct_role_claim" }

func (directRoleClaim) extract(claims map[string]interface{}) (Set, bool) {
	raw, ok := claims["role"].(string)
	if !ok {
		return nil, false
	}
	r, known := Parse(raw)
	if !known {
		return nil, false
	}
	return NewSet(r), true
}

type attributeKeyMatch struct{}

func (attributeKeyMatch) name() string { return "attribute_key_match" }

func (attributeKeyMatch) extract(claims map[string]interface{}) (Set, bool) {
	found := NewSet()
	for key, value := range claims {
		if key == "role" {
			continue // handled by directRoleClaim
		}
		if r, known := Parse(key); known {
			found.Add(r)
		}
		if s, ok := value.(string); ok {
			if r, known := Parse(s); known {
				found.Add(r)
			}
		}
	}
	if found.IsEmpty() {
		return nil, false
	}
	return found, true
}

type realmRolesList struct{}

func (realmRolesList) name() string { return "realm_roles_list" }

func (realmRolesList) extract(claims map[string]interface{}) (Set, bool) {
	realm, ok := claims["realm_access"].(map[string]interface{})
	if !ok {
		return nil, false
	}
	found := rolesFromList(realm["roles"])
	if found.IsEmpty() {
		return nil, false
	}
	return found, true
}

type resourceRolesMap struct{}

func (resourceRolesMap) name() string { return "resource_roles_map" }

func (resourceRolesMap) extract(claims map[string]interface{}) (Set, bool) {
	resources, ok := claims["resource_access"].(map[string]interface{})
	if !ok {
		return nil, false
	}
	found := NewSet()
	for _, clientClaims := range resources {
		client, ok := clientClaims.(map[string]interface{})
		if !ok {
			continue
		}
		for r := range rolesFromList(client["roles"]) {
			found.Add(r)
		}
	}
	if found.IsEmpty() {
		return nil, false
	}
	return found, true
}

type superAdminEmailFallback struct {
	email string
}

func (superAdminEmailFallback) name() string { return "super_admin_email_fallback" }

func (s superAdminEmailFallback) extract(claims map[string]interface{}) (Set, bool) {
	if s.email == "" {
		return nil, false
	}
	// Only applies to principals that carry a recognized username claim.
	username, _ := claims["preferred_username"].(string)
	if strings.TrimSpace(username) == "" {
		return nil, false
	}
	email, _ := claims["email"].(string)
	if len(email) == len(s.email) && subtle.ConstantTimeCompare([]byte(email), []byte(s.email)) == 1 {
		return NewSet(SuperAdmin), true
	}
	return nil, false
}

func rolesFromList(raw interface{}) Set {
	found := NewSet()
	switch list := raw.(type) {
	case []interface{}:
		for _, item := range list {
			if s, ok := item.(string); ok {
				if r, known := Parse(s); known {
					found.Add(r)
				}
			}
		}
	case []string:
		for _, s := range list {
			if r, known := Parse(s); known {
				found.Add(r)
			}
		}
	}
	return found
}
