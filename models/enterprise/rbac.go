package enterprise

// Org-scoped actions checked by middleware.RequireOrgRole.
const (
	ActionManageOrg    = "manage_org"
	ActionManageSeats  = "manage_seats"
	ActionInvite       = "invite"
	ActionViewRoster   = "view_roster"
	ActionExportRoster = "export_roster"
	ActionEvaluate     = "evaluate"
	ActionViewOrg      = "view_org"
)

var roleActions = map[string]map[string]bool{
	RoleOwner: {
		ActionManageOrg: true, ActionManageSeats: true, ActionInvite: true,
		ActionViewRoster: true, ActionExportRoster: true, ActionEvaluate: true, ActionViewOrg: true,
	},
	RoleAdmin: {
		ActionManageOrg: true, ActionManageSeats: true, ActionInvite: true,
		ActionViewRoster: true, ActionExportRoster: true, ActionEvaluate: true, ActionViewOrg: true,
	},
	RoleSupervisor: {
		ActionViewRoster: true, ActionEvaluate: true, ActionViewOrg: true,
	},
	RoleLearner: {
		ActionViewOrg: true,
	},
}

var roleRank = map[string]int{
	RoleLearner:    1,
	RoleSupervisor: 2,
	RoleAdmin:      3,
	RoleOwner:      4,
}

// Can reports whether role may perform action.
func Can(role, action string) bool {
	return roleActions[role][action]
}

// ValidRole reports whether role is a known org role.
func ValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// HigherRole returns whichever of a and b carries more privilege.
func HigherRole(a, b string) string {
	if roleRank[b] > roleRank[a] {
		return b
	}
	return a
}
