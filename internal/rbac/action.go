// action.go defines the closed set of permission action tags checked against
// the role matrix. Tags follow the "<resource>:<verb>" convention and are used
// verbatim in enforcement denial messages.
package rbac

// Action is a tagged capability of the form "<resource>:<verb>".
type Action string

const (
	// Project actions
	ActionProjectRead   Action = "project:read"
	ActionProjectUpdate Action = "project:update"
	ActionProjectDelete Action = "project:delete"

	// Member management actions
	ActionMembersRead   Action = "members:read"
	ActionMembersInvite Action = "members:invite"
	ActionMembersUpdate Action = "members:update"
	ActionMembersRemove Action = "members:remove"

	// Dashboard actions
	ActionDashboardCreate Action = "dashboard:create"
	ActionDashboardRead   Action = "dashboard:read"
	ActionDashboardUpdate Action = "dashboard:update"
	ActionDashboardDelete Action = "dashboard:delete"

	// Report actions
	ActionReportCreate Action = "report:create"
	ActionReportRead   Action = "report:read"
	ActionReportUpdate Action = "report:update"
	ActionReportDelete Action = "report:delete"

	// Customer data actions (read-only; ingestion happens outside this API)
	ActionProfileRead Action = "profile:read"
	ActionEventRead   Action = "event:read"
)

// AllActions returns every valid action tag.
func AllActions() []Action {
	return []Action{
		ActionProjectRead,
		ActionProjectUpdate,
		ActionProjectDelete,
		ActionMembersRead,
		ActionMembersInvite,
		ActionMembersUpdate,
		ActionMembersRemove,
		ActionDashboardCreate,
		ActionDashboardRead,
		ActionDashboardUpdate,
		ActionDashboardDelete,
		ActionReportCreate,
		ActionReportRead,
		ActionReportUpdate,
		ActionReportDelete,
		ActionProfileRead,
		ActionEventRead,
	}
}
