package domain

// Principal is the authenticated actor threaded through every core call.
// It is produced exactly once per request at the authentication boundary
// (JWT middleware) and never re-derived inside operations.
//
// Cities is the branch admin's assigned city scope. For a top admin it is
// ignored (implicitly all cities); for a clinic it is empty and irrelevant.
// A branch admin with an empty assignment sees zero records, not all records.
type Principal struct {
	ID     AccountID
	Role   Role
	Cities []CityID
}

// CanSee reports whether the principal's city scope includes the given city.
// This is membership only; use internal/access for operation authorization.
func (p Principal) CanSee(city CityID) bool {
	if p.Role == RoleTopAdmin {
		return true
	}
	for _, c := range p.Cities {
		if c == city {
			return true
		}
	}
	return false
}
