package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const textCodeInvalidTransition = "INVALID_USER_STATE_TRANSITION"

// ErrInvalidTransition is returned when a requested status change is a no-op
// or the target user is missing.
var ErrInvalidTransition = goerrors.New("invalid user state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// UserLifecycle flips accounts between active and deactivated. Every
// transition is authorized through the policy engine and records which
// actor performed it.
type UserLifecycle interface {
	Activate(ctx context.Context, actor *User, target *User) (*User, error)
	Deactivate(ctx context.Context, actor *User, target *User) (*User, error)
}

// LifecycleOption customizes lifecycle construction.
type LifecycleOption func(*userLifecycle)

// WithLifecycleClock injects a custom clock (useful for tests).
func WithLifecycleClock(clock func() time.Time) LifecycleOption {
	return func(lc *userLifecycle) {
		if clock != nil {
			lc.now = clock
		}
	}
}

// WithLifecycleActivitySink sets the ActivitySink used to publish lifecycle events.
func WithLifecycleActivitySink(sink ActivitySink) LifecycleOption {
	return func(lc *userLifecycle) {
		lc.activitySink = normalizeActivitySink(sink)
	}
}

// WithLifecycleLogger overrides the logger used for sink failures.
func WithLifecycleLogger(logger Logger) LifecycleOption {
	return func(lc *userLifecycle) {
		if logger != nil {
			lc.logger = logger
		}
	}
}

// NewUserLifecycle returns the default implementation backed by the provided
// store and policy engine.
func NewUserLifecycle(users UserStore, policies *Engine, opts ...LifecycleOption) UserLifecycle {
	lc := &userLifecycle{
		users:        users,
		policies:     policies,
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(lc)
		}
	}

	return lc
}

type userLifecycle struct {
	users        UserStore
	policies     *Engine
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
}

func (lc *userLifecycle) Activate(ctx context.Context, actor *User, target *User) (*User, error) {
	return lc.transition(ctx, actor, target, ActionActivate, true)
}

func (lc *userLifecycle) Deactivate(ctx context.Context, actor *User, target *User) (*User, error) {
	return lc.transition(ctx, actor, target, ActionDeactivate, false)
}

func (lc *userLifecycle) transition(ctx context.Context, actor *User, target *User, action Action, active bool) (*User, error) {
	if target == nil {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"action": string(action),
			"reason": "target user is nil",
		})
	}

	if err := lc.policies.Must(actor, action, ResourceUser, target); err != nil {
		return nil, err
	}

	if target.Active == active {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"action":  string(action),
			"user_id": target.ID,
			"reason":  "user already in requested state",
		})
	}

	at := lc.now()
	updated, err := lc.users.SetActive(ctx, target.ID, active, ActorRefFor(actor), at)
	if err != nil {
		return nil, err
	}

	lc.applyUpdates(target, updated, actor, active, at)

	lc.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventUserStatusChanged,
		Actor:     ActorRefFor(actor),
		UserID:    target.ID,
		Metadata: map[string]any{
			"active": active,
		},
	})

	return target, nil
}

func (lc *userLifecycle) applyUpdates(target, updated, actor *User, active bool, at time.Time) {
	if updated != nil {
		target.Active = updated.Active
		target.ActivatedByID = updated.ActivatedByID
		target.DeactivatedAt = updated.DeactivatedAt
		target.DeactivatedByID = updated.DeactivatedByID
		return
	}

	target.Active = active
	if active {
		if actor != nil {
			target.ActivatedByID = &actor.ID
		}
		target.DeactivatedAt = nil
		target.DeactivatedByID = nil
	} else {
		target.DeactivatedAt = &at
		if actor != nil {
			target.DeactivatedByID = &actor.ID
		}
	}
}

func (lc *userLifecycle) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = lc.now()
	}

	sink := normalizeActivitySink(lc.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		lc.logger.Warn("lifecycle activity sink error: %v", err)
	}
}
