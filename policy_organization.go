package auth

import "github.com/uptrace/bun"

// organizationPolicy: only the global admin creates or destroys tenants; an
// org admin can see and update their own organization and nothing else.
type organizationPolicy struct{}

func (organizationPolicy) Kind() ResourceKind { return ResourceOrganization }

func (p organizationPolicy) Authorize(actor *User, action Action, record any) (PolicyDecision, error) {
	org, _ := record.(*Organization)

	switch action {
	case ActionCreate, ActionDestroy:
		if actor.IsGlobalAdmin() {
			return permit(), nil
		}
		return deny("organization create/destroy is global admin only"), nil

	case ActionIndex:
		if actor.IsGlobalAdmin() || actor.IsOrgAdmin() {
			return permit(), nil
		}
		return deny("organization listing requires an admin role"), nil

	case ActionShow, ActionUpdate:
		if actor.IsGlobalAdmin() {
			return permit(), nil
		}
		if actor.IsOrgAdmin() && org != nil && actor.InOrganization(org.ID) {
			return permit(), nil
		}
		return deny("organization is outside the actor's tenancy"), nil

	default:
		return PolicyDecision{}, ErrPolicyNotDefined
	}
}

func (p organizationPolicy) Scope(actor *User) Scope {
	switch {
	case actor.IsGlobalAdmin():
		return allScope{}
	case actor.IsOrgAdmin():
		return organizationScope{orgID: orgID(actor)}
	default:
		return emptyScope{}
	}
}

type organizationScope struct {
	orgID int64
}

func (s organizationScope) Contains(record any) bool {
	org, ok := record.(*Organization)
	return ok && org != nil && org.ID == s.orgID
}

func (s organizationScope) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Where("?TableAlias.id = ?", s.orgID)
}
