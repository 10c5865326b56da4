package auth

import "github.com/uptrace/bun"

// userPolicy guards account management. The privilege-escalation rules live
// here: an org admin can never create or touch another admin, only teachers
// and students inside their own organization.
type userPolicy struct{}

func (userPolicy) Kind() ResourceKind { return ResourceUser }

func (p userPolicy) Authorize(actor *User, action Action, record any) (PolicyDecision, error) {
	target, _ := record.(*User)

	switch action {
	case ActionIndex:
		if actor.IsGlobalAdmin() || actor.IsOrgAdmin() || actor.IsTeacher() {
			return permit(), nil
		}
		return deny("user listing requires teacher or admin role"), nil

	case ActionCreate:
		if target == nil {
			return deny("no target user"), nil
		}
		if actor.IsGlobalAdmin() {
			return permit(), nil
		}
		if actor.IsOrgAdmin() {
			// Escalation guard: org admins mint only non-admin accounts, and
			// only inside their own organization.
			if target.Role.IsAdmin() {
				return deny("org admins cannot create admin accounts"), nil
			}
			if target.OrganizationID == nil || !actor.InOrganization(*target.OrganizationID) {
				return deny("target belongs to another organization"), nil
			}
			return permit(), nil
		}
		return deny("user creation requires an admin role"), nil

	case ActionActivate, ActionDeactivate, ActionUpdate, ActionDestroy:
		if target == nil {
			return deny("no target user"), nil
		}
		if actor.IsGlobalAdmin() {
			return permit(), nil
		}
		if actor.IsOrgAdmin() {
			if target.Role == RoleGlobalAdmin || target.Role == RoleOrgAdmin {
				return deny("org admins cannot manage admin accounts"), nil
			}
			if target.OrganizationID == nil || !actor.InOrganization(*target.OrganizationID) {
				return deny("target belongs to another organization"), nil
			}
			return permit(), nil
		}
		return deny("user management requires an admin role"), nil

	case ActionShow:
		return containsDecision(p.Scope(actor), target, "user is outside the actor's visibility"), nil

	case ActionBulkCreate:
		if actor.IsGlobalAdmin() || actor.IsOrgAdmin() {
			return permit(), nil
		}
		return deny("bulk user creation requires an admin role"), nil

	default:
		return PolicyDecision{}, ErrPolicyNotDefined
	}
}

func (p userPolicy) Scope(actor *User) Scope {
	switch {
	case actor.IsGlobalAdmin():
		return allScope{}
	case actor.IsOrgAdmin():
		return userScope{orgID: orgID(actor)}
	case actor.IsTeacher():
		return userScope{orgID: orgID(actor), role: RoleStudent, roleOnly: true}
	default:
		return emptyScope{}
	}
}

// userScope restricts users to one organization, optionally to one role
// (teachers see only students).
type userScope struct {
	orgID    int64
	role     Role
	roleOnly bool
}

func (s userScope) Contains(record any) bool {
	user, ok := record.(*User)
	if !ok || user == nil {
		return false
	}
	if !user.InOrganization(s.orgID) {
		return false
	}
	if s.roleOnly && user.Role != s.role {
		return false
	}
	return true
}

func (s userScope) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	q = q.Where("?TableAlias.organization_id = ?", s.orgID)
	if s.roleOnly {
		q = q.Where("?TableAlias.role = ?", int(s.role))
	}
	return q
}

// containsDecision turns scope membership into a show decision so the two
// stay mirror images by construction.
func containsDecision(s Scope, record any, reason string) PolicyDecision {
	if s != nil && s.Contains(record) {
		return permit()
	}
	return deny(reason)
}
