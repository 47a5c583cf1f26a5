package role_test

import (
	"testing"

	"github.com/vendala/backoffice/pkg/iam/role"
)

const adminEmail = "root@vendala.com"

func extract(t *testing.T, claims map[string]interface{}) role.Set {
	t.Helper()
	return role.NewExtractor(adminEmail).Extract(claims)
}

func TestExtract_DirectRoleClaim(t *testing.T) {
	got := extract(t, map[string]interface{}{"role": "superAdmin"})
	if !got.Has(role.SuperAdmin) || len(got) != 1 {
		t.Fatalf("expected {superAdmin}, got %v", got.Values())
	}
}

func TestExtract_DirectRoleClaimUnknownValue(t *testing.T) {
	got := extract(t, map[string]interface{}{"role": "janitor"})
	if !got.IsEmpty() {
		t.Fatalf("unknown role value must not match, got %v", got.Values())
	}
}

func TestExtract_AttributeKeyShape(t *testing.T) {
	// Legacy tokens stored the role as a claim key rather than a value.
	got := extract(t, map[string]interface{}{"supportAgent": "true"})
	if !got.Has(role.SupportAgent) {
		t.Fatalf("expected supportAgent from attribute key, got %v", got.Values())
	}
}

func TestExtract_AttributeValueShape(t *testing.T) {
	got := extract(t, map[string]interface{}{"user_type": "contentManager"})
	if !got.Has(role.ContentManager) {
		t.Fatalf("expected contentManager from attribute value, got %v", got.Values())
	}
}

func TestExtract_FirstTwoTiersBothRun(t *testing.T) {
	// A direct role claim must not suppress an attribute-key match.
	got := extract(t, map[string]interface{}{
		"role":          "superAdmin",
		"platformAdmin": "yes",
	})
	if !got.Has(role.SuperAdmin) || !got.Has(role.PlatformAdmin) {
		t.Fatalf("expected both superAdmin and platformAdmin, got %v", got.Values())
	}
}

func TestExtract_RealmRoles(t *testing.T) {
	got := extract(t, map[string]interface{}{
		"realm_access": map[string]interface{}{
			"roles": []interface{}{"superAdmin", "unrelated"},
		},
	})
	if !got.Has(role.SuperAdmin) || len(got) != 1 {
		t.Fatalf("expected {superAdmin} filtered from realm roles, got %v", got.Values())
	}
}

func TestExtract_RealmRolesSkippedWhenEarlierTierMatched(t *testing.T) {
	got := extract(t, map[string]interface{}{
		"role": "supportAgent",
		"realm_access": map[string]interface{}{
			"roles": []interface{}{"superAdmin"},
		},
	})
	if got.Has(role.SuperAdmin) {
		t.Fatalf("realm roles must not run once an earlier tier matched, got %v", got.Values())
	}
}

func TestExtract_ResourceRoles(t *testing.T) {
	got := extract(t, map[string]interface{}{
		"resource_access": map[string]interface{}{
			"backoffice": map[string]interface{}{
				"roles": []interface{}{"contentManager"},
			},
			"other-client": map[string]interface{}{
				"roles": []interface{}{"nonsense"},
			},
		},
	})
	if !got.Has(role.ContentManager) || len(got) != 1 {
		t.Fatalf("expected {contentManager} from resource roles, got %v", got.Values())
	}
}

func TestExtract_SuperAdminEmailFallback(t *testing.T) {
	got := extract(t, map[string]interface{}{
		"preferred_username": "root",
		"email":              adminEmail,
	})
	if !got.Has(role.SuperAdmin) {
		t.Fatalf("expected superAdmin via email fallback, got %v", got.Values())
	}
}

func TestExtract_EmailFallbackRequiresUsernameClaim(t *testing.T) {
	got := extract(t, map[string]interface{}{"email": adminEmail})
	if !got.IsEmpty() {
		t.Fatalf("fallback must require a username claim, got %v", got.Values())
	}
}

func TestExtract_EmailFallbackWrongEmail(t *testing.T) {
	got := extract(t, map[string]interface{}{
		"preferred_username": "someone",
		"email":              "someone@vendala.com",
	})
	if !got.IsEmpty() {
		t.Fatalf("expected empty set, got %v", got.Values())
	}
}

func TestExtract_EmailFallbackDisabled(t *testing.T) {
	got := role.NewExtractor("").Extract(map[string]interface{}{
		"preferred_username": "root",
		"email":              adminEmail,
	})
	if !got.IsEmpty() {
		t.Fatalf("disabled fallback must not grant roles, got %v", got.Values())
	}
}

func TestExtract_NoRecognizableRole(t *testing.T) {
	got := extract(t, map[string]interface{}{
		"sub":   "abc",
		"email": "user@example.com",
	})
	if !got.IsEmpty() {
		t.Fatalf("expected empty set, got %v", got.Values())
	}
}

func TestExtract_NilClaims(t *testing.T) {
	if got := extract(t, nil); !got.IsEmpty() {
		t.Fatalf("nil claims must yield empty set, got %v", got.Values())
	}
}

func TestSet_Intersects(t *testing.T) {
	s := role.NewSet(role.SupportAgent, role.ContentManager)
	if !s.Intersects([]role.Role{role.SuperAdmin, role.SupportAgent}) {
		t.Fatal("expected intersection")
	}
	if s.Intersects([]role.Role{role.PlatformAdmin}) {
		t.Fatal("expected no intersection")
	}
}
