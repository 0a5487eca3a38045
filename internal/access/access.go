// Package access is the single authorization gate for the credential engine.
// Every mutating operation calls Authorize before reading or writing; list
// endpoints call Scope to narrow queries to the principal's visible cities.
package access

import (
	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
)

// Authorize decides whether the principal may perform an administrative
// mutation scoped to the given city.
//
//   - top_admin: always allowed.
//   - branch_admin: allowed iff the city is in the assigned set.
//   - clinic: never allowed; clinics only mutate credential profiles they
//     own, which is gated elsewhere by last-editor identity.
//
// Failures are CodeUnauthorized, never CodeNotFound: a scoped admin must not
// learn whether records exist outside their cities.
func Authorize(p domain.Principal, city domain.CityID) error {
	switch p.Role {
	case domain.RoleTopAdmin:
		return nil
	case domain.RoleBranchAdmin:
		if p.CanSee(city) {
			return nil
		}
		return dErrors.New(dErrors.CodeUnauthorized, "city outside assigned scope")
	case domain.RoleClinic:
		return dErrors.New(dErrors.CodeUnauthorized, "clinics may not perform administrative operations")
	default:
		return dErrors.New(dErrors.CodeUnauthorized, "unknown role")
	}
}

// AuthorizeGlobal decides whether the principal may perform a city-agnostic
// administrative operation (batch minting, city management).
func AuthorizeGlobal(p domain.Principal) error {
	if p.Role.IsAdmin() {
		return nil
	}
	return dErrors.New(dErrors.CodeUnauthorized, "administrative role required")
}

// Scope returns the city filter for list/count queries.
//
// nil means unrestricted (top_admin). A non-nil empty slice means "no
// visibility": a branch admin with no assignments gets zero records back,
// which is a valid empty result, not an error. Stores must distinguish nil
// from empty when building queries.
func Scope(p domain.Principal) []domain.CityID {
	if p.Role == domain.RoleTopAdmin {
		return nil
	}
	if p.Cities == nil {
		return []domain.CityID{}
	}
	return p.Cities
}
