package auth

import (
	"github.com/uptrace/bun"
)

// Action names a policy-checked operation on a resource.
type Action string

const (
	ActionIndex      Action = "index"
	ActionShow       Action = "show"
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDestroy    Action = "destroy"
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
	ActionBulkCreate Action = "bulk_create"
)

// ResourceKind names a policy-governed resource type.
type ResourceKind string

const (
	ResourceOrganization ResourceKind = "organization"
	ResourceUser         ResourceKind = "user"
	ResourceCourse       ResourceKind = "course"
	ResourceEnrollment   ResourceKind = "enrollment"
	ResourceAssignment   ResourceKind = "assignment"
	ResourceAssessment   ResourceKind = "assessment"
)

// PolicyDecision is the ephemeral result of one authorization call. It is
// never persisted. Reason is for logs only; transports return the generic
// access-denied message regardless.
type PolicyDecision struct {
	Permit bool
	Reason string
}

func permit() PolicyDecision {
	return PolicyDecision{Permit: true}
}

func deny(reason string) PolicyDecision {
	return PolicyDecision{Permit: false, Reason: reason}
}

// Scope is a filter limiting a resource collection to what an actor may
// view. Contains evaluates a loaded record in memory; Apply narrows a bun
// select the same way. The two must agree with Authorize(show) exactly.
type Scope interface {
	Contains(record any) bool
	Apply(q *bun.SelectQuery) *bun.SelectQuery
}

// ResourcePolicy is the per-resource strategy behind the uniform
// Authorize/Scope interface.
type ResourcePolicy interface {
	Kind() ResourceKind
	// Authorize returns ErrPolicyNotDefined when action has no rule for this
	// resource; that is a configuration fault, not a deny.
	Authorize(actor *User, action Action, record any) (PolicyDecision, error)
	Scope(actor *User) Scope
}

// Engine dispatches authorization calls to per-resource policies. It holds
// only the immutable rule table and is safe for unlimited parallel use.
type Engine struct {
	policies map[ResourceKind]ResourcePolicy
	logger   Logger
}

// EngineOption customizes engine construction.
type EngineOption func(*Engine)

// WithEngineLogger overrides the logger used for policy faults.
func WithEngineLogger(logger Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPolicy registers or replaces the policy for its resource kind.
func WithPolicy(p ResourcePolicy) EngineOption {
	return func(e *Engine) {
		if p != nil {
			e.policies[p.Kind()] = p
		}
	}
}

// NewEngine builds an engine with the default policy per resource type.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		policies: map[ResourceKind]ResourcePolicy{},
		logger:   defLogger{},
	}

	for _, p := range []ResourcePolicy{
		organizationPolicy{},
		userPolicy{},
		coursePolicy{},
		enrollmentPolicy{},
		assignmentPolicy{},
		assessmentPolicy{},
	} {
		e.policies[p.Kind()] = p
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	return e
}

// Authorize decides whether actor may perform action on the record of the
// given kind. A nil or inactive actor always denies. An unregistered kind or
// action surfaces ErrPolicyNotDefined, logged at error severity. That is a
// deployment bug, never a silent deny or permit.
func (e *Engine) Authorize(actor *User, action Action, kind ResourceKind, record any) (PolicyDecision, error) {
	if actor == nil {
		return deny("no actor"), nil
	}

	// Deactivated actors keep no rights; this also keeps Authorize and Scope
	// consistent for inactive accounts.
	if !actor.Active {
		return deny("actor inactive"), nil
	}

	policy, ok := e.policies[kind]
	if !ok {
		e.logger.Error("no policy registered for resource %q", kind)
		return PolicyDecision{}, ErrPolicyNotDefined
	}

	decision, err := policy.Authorize(actor, action, record)
	if err != nil {
		if IsPolicyNotDefinedError(err) {
			e.logger.Error("no rule for action %q on resource %q", action, kind)
		}
		return PolicyDecision{}, err
	}

	return decision, nil
}

// Must is the error-returning form of Authorize: a deny becomes the generic
// ErrAccessDenied without revealing which rule failed.
func (e *Engine) Must(actor *User, action Action, kind ResourceKind, record any) error {
	decision, err := e.Authorize(actor, action, kind, record)
	if err != nil {
		return err
	}
	if !decision.Permit {
		return ErrAccessDenied
	}
	return nil
}

// Scope returns the listing filter for the actor over the given kind. The
// filter mirrors Authorize(show): a record it contains is exactly a record
// show would permit.
func (e *Engine) Scope(actor *User, kind ResourceKind) (Scope, error) {
	policy, ok := e.policies[kind]
	if !ok {
		e.logger.Error("no policy registered for resource %q", kind)
		return nil, ErrPolicyNotDefined
	}

	if actor == nil || !actor.Active {
		return emptyScope{}, nil
	}

	return policy.Scope(actor), nil
}

// emptyScope matches nothing.
type emptyScope struct{}

func (emptyScope) Contains(any) bool { return false }

func (emptyScope) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Where("1 = 0")
}

// allScope matches everything.
type allScope struct{}

func (allScope) Contains(record any) bool { return record != nil }

func (allScope) Apply(q *bun.SelectQuery) *bun.SelectQuery { return q }

// orgID returns the actor's organization id, or 0 when unset. Policies only
// call it after ruling out the global admin.
func orgID(actor *User) int64 {
	if actor.OrganizationID == nil {
		return 0
	}
	return *actor.OrganizationID
}
