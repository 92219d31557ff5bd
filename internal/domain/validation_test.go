package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vn.io.arda/account/internal/domain"
)

func TestValidRoleProvenance_Table(t *testing.T) {
	for _, role := range domain.AllRoles() {
		for _, prov := range domain.AllProvenances() {
			var want bool
			switch {
			case role == domain.RoleVerifiedMedia:
				want = prov != domain.ProvenanceInternalSSO
			case role.IsThirdParty():
				want = prov == domain.ProvenanceThirdParty
			default:
				want = prov == domain.ProvenanceInternalSSO
			}
			assert.Equal(t, want, domain.ValidRoleProvenance(role, prov), "%s/%s", role, prov)
		}
	}
}

func TestValidRoleProvenance_Examples(t *testing.T) {
	cases := []struct {
		role domain.Role
		prov domain.Provenance
		want bool
	}{
		{domain.RoleVerifiedMedia, domain.ProvenanceInternalSSO, false},
		{domain.RoleVerifiedMedia, domain.ProvenanceExternalIdP, true},
		{domain.RoleVerifiedMedia, domain.ProvenanceCourtSystemB, true},
		{domain.RoleSystemAdmin, domain.ProvenanceInternalSSO, true},
		{domain.RoleSystemAdmin, domain.ProvenanceThirdParty, false},
		{domain.RoleInternalAdminCTSC, domain.ProvenanceExternalIdP, false},
		{domain.RoleVerifiedThirdPartyAll, domain.ProvenanceThirdParty, true},
		{domain.RoleGeneralThirdParty, domain.ProvenanceInternalSSO, false},
		{domain.RoleTechnical, domain.ProvenanceInternalSSO, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, domain.ValidRoleProvenance(c.role, c.prov), "%s/%s", c.role, c.prov)
	}
}

func TestValidNameCombination(t *testing.T) {
	cases := []struct {
		name                  string
		title, first, surname string
		want                  bool
	}{
		{"all present", "Dr", "Ann", "Smith", true},
		{"first only", "", "Ann", "", true},
		{"all absent", "", "", "", true},
		{"title and surname", "Dr", "", "Smith", true},
		{"title only", "Dr", "", "", false},
		{"surname only", "", "", "Smith", false},
		{"title and first", "Dr", "Ann", "", false},
		{"first and surname", "", "Ann", "Smith", false},
		{"blank counts as absent", "  ", "Ann", " ", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, domain.ValidNameCombination(c.title, c.first, c.surname))
		})
	}
}

func TestParseRoleAndProvenance(t *testing.T) {
	r, ok := domain.ParseRole("system_admin")
	assert.True(t, ok)
	assert.Equal(t, domain.RoleSystemAdmin, r)

	_, ok = domain.ParseRole("SUPERUSER")
	assert.False(t, ok)

	p, ok := domain.ParseProvenance(" pi_aad ")
	assert.True(t, ok)
	assert.Equal(t, domain.ProvenanceExternalIdP, p)

	_, ok = domain.ParseProvenance("GOOGLE")
	assert.False(t, ok)
}

func TestIdentityFullName(t *testing.T) {
	id := domain.Identity{Title: "Dr", Surname: "Smith"}
	assert.Equal(t, "Dr Smith", id.FullName())

	id = domain.Identity{Forenames: "Ann"}
	assert.Equal(t, "Ann", id.FullName())
}
