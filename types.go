package auth

import (
	"context"
	"fmt"
	"time"
)

// Logger is the minimal logging surface this package needs. Inject your own;
// defLogger writes to stdout.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options. The signing secret is explicit configuration,
// injected once at startup; the codec never rotates it mid-process.
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int // session token TTL in hours
	GetResetTokenTTL() time.Duration
	GetWelcomeTokenTTL() time.Duration
	GetMinPasswordLength() int
	GetContextKey() string
	GetAuthScheme() string
	GetTokenLookup() string
	GetResetURLBase() string
}

// UserStore is the actor store contract this core consumes. The bun-backed
// implementation lives in repo_users.go; tests substitute in-memory fakes.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	// GetByOrgEmail resolves a user by organization-scoped email. A nil orgID
	// matches only users without an organization, i.e. the global admin.
	GetByOrgEmail(ctx context.Context, orgID *int64, email string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	// ConsumeResetToken sets the password hash and advances the reset
	// watermark in one conditional update keyed on the prior watermark value.
	// It fails with ErrResetLinkUsed when another consumption won the race.
	ConsumeResetToken(ctx context.Context, id int64, passwordHash string, prior *time.Time, usedAt time.Time) error
	MarkResetTokenSent(ctx context.Context, id int64, sentAt time.Time) error
	SetActive(ctx context.Context, id int64, active bool, actor ActorRef, at time.Time) (*User, error)
}

// OrganizationStore is the tenancy lookup contract.
type OrganizationStore interface {
	GetByID(ctx context.Context, id int64) (*Organization, error)
}

// Notifier delivers account emails. Calls are fire-and-forget: failures are
// logged by the caller and never surfaced to the end user.
type Notifier interface {
	SendPasswordReset(ctx context.Context, user *User, resetURL string) error
	SendWelcome(ctx context.Context, user *User, tempPassword, resetURL string) error
}

// NotifierFunc adapts a function to the password-reset half of Notifier.
type NotifierFunc func(ctx context.Context, user *User, resetURL string) error

func (f NotifierFunc) SendPasswordReset(ctx context.Context, user *User, resetURL string) error {
	if f == nil {
		return nil
	}
	return f(ctx, user, resetURL)
}

func (f NotifierFunc) SendWelcome(ctx context.Context, user *User, _, resetURL string) error {
	if f == nil {
		return nil
	}
	return f(ctx, user, resetURL)
}

type noopNotifier struct{}

func (noopNotifier) SendPasswordReset(context.Context, *User, string) error { return nil }

func (noopNotifier) SendWelcome(context.Context, *User, string, string) error { return nil }

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
