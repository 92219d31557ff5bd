package domain

import "strings"

// ValidRoleProvenance reports whether role and provenance may be combined on one identity.
//
// Verified media accounts may come from any provenance except internal SSO,
// third-party roles only from third-party provenance, and every other role only
// from internal SSO. Unknown values must be rejected by the caller beforehand.
func ValidRoleProvenance(role Role, provenance Provenance) bool {
	switch {
	case role == RoleVerifiedMedia:
		return provenance != ProvenanceInternalSSO
	case role.IsThirdParty():
		return provenance == ProvenanceThirdParty
	default:
		return provenance == ProvenanceInternalSSO
	}
}

// ValidNameCombination reports whether a display name can be rendered from the given parts.
//
// Accepted shapes: all three present, first name only, nothing at all, or title
// with surname but no first name. A part is present when it is not blank.
func ValidNameCombination(title, firstName, surname string) bool {
	hasTitle := strings.TrimSpace(title) != ""
	hasFirst := strings.TrimSpace(firstName) != ""
	hasSurname := strings.TrimSpace(surname) != ""

	switch {
	case hasTitle && hasFirst && hasSurname:
		return true
	case !hasTitle && hasFirst && !hasSurname:
		return true
	case !hasTitle && !hasFirst && !hasSurname:
		return true
	case hasTitle && !hasFirst && hasSurname:
		return true
	default:
		return false
	}
}
