package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provenance identifies the system of record that issued an identity.
type Provenance string

const (
	// ProvenanceInternalSSO is the internal single-sign-on directory used by staff.
	ProvenanceInternalSSO Provenance = "SSO"
	// ProvenanceExternalIdP is the external identity provider holding media accounts.
	ProvenanceExternalIdP Provenance = "PI_AAD"
	// ProvenanceCourtSystemA is the first court case-management system.
	ProvenanceCourtSystemA Provenance = "CFT_IDAM"
	// ProvenanceCourtSystemB is the second court case-management system.
	ProvenanceCourtSystemB Provenance = "CRIME_IDAM"
	// ProvenanceThirdParty marks accounts owned by a third-party integration.
	ProvenanceThirdParty Provenance = "THIRD_PARTY"
)

// AllProvenances returns every declared provenance.
func AllProvenances() []Provenance {
	return []Provenance{
		ProvenanceInternalSSO,
		ProvenanceExternalIdP,
		ProvenanceCourtSystemA,
		ProvenanceCourtSystemB,
		ProvenanceThirdParty,
	}
}

// IsKnown reports whether p is one of the declared provenances.
func (p Provenance) IsKnown() bool {
	switch p {
	case ProvenanceInternalSSO, ProvenanceExternalIdP, ProvenanceCourtSystemA,
		ProvenanceCourtSystemB, ProvenanceThirdParty:
		return true
	default:
		return false
	}
}

// HasProviderRecord reports whether identities of this provenance are mirrored
// in the identity provider and must be removed from it on deletion.
func (p Provenance) HasProviderRecord() bool {
	return p == ProvenanceExternalIdP
}

// ParseProvenance converts a raw value into a Provenance, rejecting unknown values.
func ParseProvenance(s string) (Provenance, bool) {
	p := Provenance(strings.ToUpper(strings.TrimSpace(s)))
	return p, p.IsKnown()
}

// Role is the authorization category assigned to an identity.
type Role string

const (
	RoleSystemAdmin            Role = "SYSTEM_ADMIN"
	RoleInternalSuperAdminCTSC Role = "INTERNAL_SUPER_ADMIN_CTSC"
	RoleInternalSuperAdminLoc  Role = "INTERNAL_SUPER_ADMIN_LOCAL"
	RoleInternalAdminCTSC      Role = "INTERNAL_ADMIN_CTSC"
	RoleInternalAdminLocal     Role = "INTERNAL_ADMIN_LOCAL"
	RoleVerifiedMedia          Role = "VERIFIED"
	RoleTechnical              Role = "TECHNICAL"

	RoleGeneralThirdParty            Role = "GENERAL_THIRD_PARTY"
	RoleVerifiedThirdPartyCrime      Role = "VERIFIED_THIRD_PARTY_CRIME"
	RoleVerifiedThirdPartyCFT        Role = "VERIFIED_THIRD_PARTY_CFT"
	RoleVerifiedThirdPartyPress      Role = "VERIFIED_THIRD_PARTY_PRESS"
	RoleVerifiedThirdPartyCrimeCFT   Role = "VERIFIED_THIRD_PARTY_CRIME_CFT"
	RoleVerifiedThirdPartyCrimePress Role = "VERIFIED_THIRD_PARTY_CRIME_PRESS"
	RoleVerifiedThirdPartyCFTPress   Role = "VERIFIED_THIRD_PARTY_CFT_PRESS"
	RoleVerifiedThirdPartyAll        Role = "VERIFIED_THIRD_PARTY_ALL"
)

// AllRoles returns every declared role.
func AllRoles() []Role {
	return []Role{
		RoleSystemAdmin,
		RoleInternalSuperAdminCTSC,
		RoleInternalSuperAdminLoc,
		RoleInternalAdminCTSC,
		RoleInternalAdminLocal,
		RoleVerifiedMedia,
		RoleTechnical,
		RoleGeneralThirdParty,
		RoleVerifiedThirdPartyCrime,
		RoleVerifiedThirdPartyCFT,
		RoleVerifiedThirdPartyPress,
		RoleVerifiedThirdPartyCrimeCFT,
		RoleVerifiedThirdPartyCrimePress,
		RoleVerifiedThirdPartyCFTPress,
		RoleVerifiedThirdPartyAll,
	}
}

// IsKnown reports whether r is one of the declared roles.
func (r Role) IsKnown() bool {
	for _, known := range AllRoles() {
		if r == known {
			return true
		}
	}
	return false
}

// IsThirdParty reports whether r belongs to the third-party role set.
func (r Role) IsThirdParty() bool {
	switch r {
	case RoleGeneralThirdParty, RoleVerifiedThirdPartyCrime, RoleVerifiedThirdPartyCFT,
		RoleVerifiedThirdPartyPress, RoleVerifiedThirdPartyCrimeCFT, RoleVerifiedThirdPartyCrimePress,
		RoleVerifiedThirdPartyCFTPress, RoleVerifiedThirdPartyAll:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether r is the system admin role or one of the internal admin variants.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleSystemAdmin, RoleInternalSuperAdminCTSC, RoleInternalSuperAdminLoc,
		RoleInternalAdminCTSC, RoleInternalAdminLocal:
		return true
	default:
		return false
	}
}

// AdminRoles returns the roles matched by IsAdmin.
func AdminRoles() []Role {
	return []Role{
		RoleSystemAdmin,
		RoleInternalSuperAdminCTSC,
		RoleInternalSuperAdminLoc,
		RoleInternalAdminCTSC,
		RoleInternalAdminLocal,
	}
}

// ParseRole converts a raw value into a Role, rejecting unknown values.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.IsKnown()
}

// Identity is a platform account.
type Identity struct {
	UserID           uuid.UUID  `json:"userId"`
	Provenance       Provenance `json:"userProvenance"`
	ProvenanceUserID string     `json:"provenanceUserId"`
	Role             Role       `json:"roles"`
	Email            string     `json:"email"`
	Title            string     `json:"title,omitempty"`
	Forenames        string     `json:"forenames,omitempty"`
	Surname          string     `json:"surname,omitempty"`
	CreatedDate      time.Time  `json:"createdDate"`
	LastVerifiedDate *time.Time `json:"lastVerifiedDate,omitempty"`
	LastSignedInDate *time.Time `json:"lastSignedInDate,omitempty"`
}

// FullName renders the display name used in notifications.
func (i *Identity) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{i.Title, i.Forenames, i.Surname} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// SystemAdminRequest is the input for admitting a new system admin. It is never
// persisted as-is.
type SystemAdminRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	Surname   string `json:"surname"`
}

// AccountInput is the input for creating a general account.
type AccountInput struct {
	Email            string     `json:"email"`
	Provenance       Provenance `json:"userProvenance"`
	ProvenanceUserID string     `json:"provenanceUserId"`
	Role             Role       `json:"roles"`
	Title            string     `json:"title,omitempty"`
	Forenames        string     `json:"forenames,omitempty"`
	Surname          string     `json:"surname,omitempty"`
}
