// Package policy holds the role-hierarchy authorization rules. Every function
// is a pure function of roles; callers invoke them explicitly at the top of
// each workflow and translate a false answer into common.ErrForbidden.
package policy

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/netguard/internal/common"
	"github.com/dmitrijs2005/netguard/internal/server/models"
)

// CanManageUsers reports whether role may administer User accounts.
func CanManageUsers(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleSuperAdmin
}

// CanManageAdmins reports whether role may administer Admin and SuperAdmin
// accounts.
func CanManageAdmins(role models.Role) bool {
	return role == models.RoleSuperAdmin
}

// CanManage reports whether actor may edit or delete an account holding
// target. Elevated targets need CanManageAdmins, plain users need
// CanManageUsers.
func CanManage(actor, target models.Role) bool {
	switch target {
	case models.RoleAdmin, models.RoleSuperAdmin:
		return CanManageAdmins(actor)
	default:
		return CanManageUsers(actor)
	}
}

// VisibleRoles returns the roles whose accounts actor may list. A nil result
// means actor may list nothing.
func VisibleRoles(actor models.Role) []models.Role {
	switch {
	case CanManageAdmins(actor):
		return models.Roles
	case CanManageUsers(actor):
		return []models.Role{models.RoleUser}
	default:
		return nil
	}
}

// ParseRole validates a role name coming from the outside. Matching is exact;
// "admin" is rejected just like "root".
func ParseRole(s string) (models.Role, error) {
	s = strings.TrimSpace(s)
	for _, r := range models.Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", common.ErrInvalidRole, s)
}
