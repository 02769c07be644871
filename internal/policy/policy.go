// Package policy holds the authorization decisions for department scoping,
// content writes and profile mutations. Every function is pure.
package policy

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"smartdocs/internal/errors"
	"smartdocs/internal/model"
)

// Caller is the authenticated principal a decision is made for.
type Caller struct {
	ID         uuid.UUID
	Role       model.Role
	Department string
	FullName   string
}

// Target is the user a profile mutation is aimed at.
type Target struct {
	ID   uuid.UUID
	Role model.Role
}

// ResolveScope returns the department filter the caller is allowed to use.
//
// Superadmin always gets model.AllDepartments. Anyone else asking for it is
// refused; an empty request falls back to the caller's own department and a
// named department is passed through lowercased. A non-superadmin whose own
// department is the sentinel is refused as well.
func ResolveScope(caller Caller, requested string) (string, error) {
	if caller.Role == model.RoleSuperadmin {
		return model.AllDepartments, nil
	}
	requested = strings.ToLower(strings.TrimSpace(requested))
	if requested == "" {
		requested = caller.Department
	}
	if requested == model.AllDepartments {
		return "", errors.Forbidden(errors.ErrForbiddenScope.Code,
			fmt.Sprintf("role %s cannot access all departments", roleName(caller.Role)))
	}
	return requested, nil
}

// RequireWriter allows document and category writes for admin and above.
func RequireWriter(role model.Role) error {
	if role.Rank() >= model.RoleAdmin.Rank() {
		return nil
	}
	return errors.Forbidden(errors.ErrForbiddenRole.Code,
		fmt.Sprintf("role %s cannot modify documents or categories", roleName(role)))
}

// RequireAdmin allows user administration listings for admin and above.
func RequireAdmin(role model.Role) error {
	if role.Rank() >= model.RoleAdmin.Rank() {
		return nil
	}
	return errors.Forbidden(errors.ErrForbiddenRole.Code,
		fmt.Sprintf("role %s cannot manage users", roleName(role)))
}

// CanModifyUser decides whether caller may update or delete target's profile.
func CanModifyUser(caller Caller, target Target) error {
	if caller.ID == target.ID {
		return nil
	}
	switch caller.Role {
	case model.RoleSuperadmin:
		return nil
	case model.RoleAdmin:
		if target.Role == model.RoleSuperadmin {
			return errors.Forbidden(errors.ErrForbiddenRole.Code, "admin cannot modify a superadmin profile")
		}
		return nil
	default:
		return errors.Forbidden(errors.ErrForbiddenRole.Code,
			fmt.Sprintf("role %s can only modify its own profile", roleName(caller.Role)))
	}
}

// CanAssignRole decides whether caller may set a user's role to next.
// Nobody may assign a role above their own and plain users may not change roles at all.
func CanAssignRole(caller Caller, next model.Role) error {
	if !next.Valid() {
		return errors.Validation(errors.ErrInvalidInput.Code, fmt.Sprintf("unknown role %q", next))
	}
	if caller.Role.Rank() < model.RoleAdmin.Rank() {
		return errors.Forbidden(errors.ErrForbiddenRole.Code,
			fmt.Sprintf("role %s cannot change roles", roleName(caller.Role)))
	}
	if next.Rank() > caller.Role.Rank() {
		return errors.Forbidden(errors.ErrForbiddenRole.Code,
			fmt.Sprintf("role %s cannot grant %s", roleName(caller.Role), next))
	}
	return nil
}

// CanCreateInDepartment refuses the all-departments sentinel to non-superadmin writers.
func CanCreateInDepartment(caller Caller, department string) error {
	if department == model.AllDepartments && caller.Role != model.RoleSuperadmin {
		return errors.Forbidden(errors.ErrForbiddenScope.Code,
			fmt.Sprintf("role %s cannot write to all departments", roleName(caller.Role)))
	}
	return nil
}

// CheckMembership validates the department a user with role would end up in.
// Only superadmin may belong to model.AllDepartments.
func CheckMembership(role model.Role, department string) error {
	if department == model.AllDepartments && role != model.RoleSuperadmin {
		return errors.Validation(errors.ErrDepartmentRequired.Code,
			fmt.Sprintf("role %s needs a named department", roleName(role)))
	}
	return nil
}

func roleName(r model.Role) string {
	if r == "" {
		return "anonymous"
	}
	return string(r)
}
