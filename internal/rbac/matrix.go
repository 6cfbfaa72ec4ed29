// matrix.go declares the role-permission matrix as static data. Changing a
// role's capabilities means editing this table and nothing else.
package rbac

// matrix maps each role to the exact set of actions it may perform.
//
//   - owner:  everything, including project:delete and all members:* actions.
//   - admin:  everything except project:delete.
//   - editor: dashboards and reports plus read access; no member management,
//     no project settings.
//   - viewer: read-only across the board.
var matrix = map[Role][]Action{
	RoleOwner: {
		ActionProjectRead, ActionProjectUpdate, ActionProjectDelete,
		ActionMembersRead, ActionMembersInvite, ActionMembersUpdate, ActionMembersRemove,
		ActionDashboardCreate, ActionDashboardRead, ActionDashboardUpdate, ActionDashboardDelete,
		ActionReportCreate, ActionReportRead, ActionReportUpdate, ActionReportDelete,
		ActionProfileRead, ActionEventRead,
	},
	RoleAdmin: {
		ActionProjectRead, ActionProjectUpdate,
		ActionMembersRead, ActionMembersInvite, ActionMembersUpdate, ActionMembersRemove,
		ActionDashboardCreate, ActionDashboardRead, ActionDashboardUpdate, ActionDashboardDelete,
		ActionReportCreate, ActionReportRead, ActionReportUpdate, ActionReportDelete,
		ActionProfileRead, ActionEventRead,
	},
	RoleEditor: {
		ActionProjectRead,
		ActionDashboardCreate, ActionDashboardRead, ActionDashboardUpdate, ActionDashboardDelete,
		ActionReportCreate, ActionReportRead, ActionReportUpdate, ActionReportDelete,
		ActionProfileRead, ActionEventRead,
	},
	RoleViewer: {
		ActionProjectRead,
		ActionDashboardRead,
		ActionReportRead,
		ActionProfileRead, ActionEventRead,
	},
}

// PermissionsFor returns the set of actions the given role may perform.
// Unknown roles get an empty set.
func PermissionsFor(role Role) map[Action]struct{} {
	actions := matrix[role]
	set := make(map[Action]struct{}, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

// RoleAllows reports whether the given role may perform the action.
func RoleAllows(role Role, action Action) bool {
	for _, a := range matrix[role] {
		if a == action {
			return true
		}
	}
	return false
}
