package auth

import (
	"context"
	"strconv"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess          ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure          ActivityEventType = "auth.login.failure"
	ActivityEventSecurityChallenge     ActivityEventType = "auth.login.challenge"
	ActivityEventPasswordChanged       ActivityEventType = "auth.password.changed"
	ActivityEventPasswordResetRequest  ActivityEventType = "auth.password.reset_requested"
	ActivityEventPasswordResetConsumed ActivityEventType = "auth.password.reset"
	ActivityEventUserCreated           ActivityEventType = "user.created"
	ActivityEventUserStatusChanged     ActivityEventType = "user.status.changed"
)

// ActorRef identifies who/what triggered an event.
type ActorRef struct {
	ID   int64
	Type string
}

// ActorRefFor builds an ActorRef for a known user, or a system ref when nil.
func ActorRefFor(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "system"}
	}
	return ActorRef{ID: user.ID, Type: "user"}
}

// String renders the ref for log lines.
func (a ActorRef) String() string {
	if a.Type == "" {
		return "unknown"
	}
	if a.ID == 0 {
		return a.Type
	}
	return a.Type + ":" + strconv.FormatInt(a.ID, 10)
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     int64
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best-effort: errors are logged, never propagated.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
