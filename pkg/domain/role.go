package domain

import (
	"fmt"

	dErrors "vetcred/pkg/domain-errors"
)

// Role is the closed set of actor roles. The zero value is invalid on
// purpose: a Principal with no role must never pass authorization.
type Role string

const (
	RoleTopAdmin    Role = "top_admin"
	RoleBranchAdmin Role = "branch_admin"
	RoleClinic      Role = "clinic"
)

// ParseRole validates a role string at trust boundaries (JWT claims, seeds).
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleTopAdmin, RoleBranchAdmin, RoleClinic:
		return Role(s), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown role: %s", s))
}

func (r Role) String() string {
	return string(r)
}

// IsAdmin reports whether the role may perform administrative mutations at
// all; clinics only ever edit credential profiles they own.
func (r Role) IsAdmin() bool {
	return r == RoleTopAdmin || r == RoleBranchAdmin
}
