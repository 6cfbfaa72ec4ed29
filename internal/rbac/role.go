// Package rbac implements the role-permission matrix and the permission
// enforcement primitives that gate every project-scoped operation.
//
// The matrix is declared once as static data (see matrix.go) and is the single
// source of truth: nothing else in the codebase decides what a role may do.
// Role resolution (which role a user holds in a project) is delegated to the
// membership layer through the RoleResolver interface so this package stays
// free of storage concerns and is trivially testable.
package rbac

// Role is a member's role within a project. The set of roles is closed;
// privilege is not totally ordered — capabilities are enumerated per role in
// the permission matrix rather than derived from a rank.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// AllRoles returns every valid role.
func AllRoles() []Role {
	return []Role{RoleOwner, RoleAdmin, RoleEditor, RoleViewer}
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// ParseRole converts a raw string into a Role, reporting whether it is valid.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}
