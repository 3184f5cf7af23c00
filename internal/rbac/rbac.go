package rbac

type Role string
type Action string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleFinance  Role = "finance"
	RoleAdmin    Role = "admin"
)

const (
	ActionRead    Action = "read"
	ActionWrite   Action = "write"
	ActionApprove Action = "approve"
	ActionAdmin   Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleFinance:
		return action == ActionRead || action == ActionWrite || action == ActionApprove
	case RoleOperator:
		return action == ActionRead || action == ActionWrite
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

// CanAny reports whether any of the roles permits the action.
func CanAny(roles []string, action Action) bool {
	for _, role := range roles {
		if Can(Normalize(role), action) {
			return true
		}
	}
	return false
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RoleOperator, RoleFinance, RoleAdmin:
		return Role(role)
	default:
		return RoleViewer
	}
}
