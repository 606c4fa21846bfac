package rbac

import (
	"context"
	"slices"
	"sort"

	"github.com/loomworks/erpconsole/internal/shared"
)

// StaticStore serves a fixed role assignment from memory. It backs demo mode
// and tests.
type StaticStore struct {
	Permissions []Permission
	// RolePermissions maps a role name to the permission names it grants.
	RolePermissions map[string][]string
	// UserRoles maps a user id to role names.
	UserRoles map[int64][]string
}

func (s *StaticStore) UserEffectivePermissions(_ context.Context, userID int64) ([]string, error) {
	var out []string
	for _, role := range s.UserRoles[userID] {
		for _, perm := range s.RolePermissions[role] {
			if !slices.Contains(out, perm) {
				out = append(out, perm)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *StaticStore) ListGrants(context.Context) ([]Grant, error) {
	grants := make([]Grant, 0, len(s.Permissions))
	for _, p := range s.Permissions {
		g := Grant{Permission: p, Roles: []string{}}
		for role, perms := range s.RolePermissions {
			if slices.Contains(perms, p.Name) {
				g.Roles = append(g.Roles, role)
			}
		}
		sort.Strings(g.Roles)
		grants = append(grants, g)
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].Name < grants[j].Name })
	return grants, nil
}

var _ Store = (*StaticStore)(nil)

// AdminRole is the role granted every console permission.
const AdminRole = "admin"

// DemoStore returns a store in which userID holds the admin role.
func DemoStore(userID int64) *StaticStore {
	scopes := shared.CoreScopes()
	return &StaticStore{
		Permissions: []Permission{
			{ID: 1, Name: shared.PermCodesView, Description: "Browse code books"},
			{ID: 2, Name: shared.PermCodesEdit, Description: "Create, edit and delete codes"},
			{ID: 3, Name: shared.PermCodesExport, Description: "Export code books as CSV"},
		},
		RolePermissions: map[string][]string{AdminRole: scopes, "viewer": {shared.PermCodesView}},
		UserRoles:       map[int64][]string{userID: {AdminRole}},
	}
}
