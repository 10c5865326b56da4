package auth

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// InitializePasswordResetMessage asks for a reset link to be mailed to the
// given address. The response never reveals whether the account exists.
type InitializePasswordResetMessage struct {
	Email      string `json:"email" doc:"Account email."`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

// InitializePasswordResetResponse reports only that the request was taken.
type InitializePasswordResetResponse struct {
	Email   string
	Success bool
}

// InitializePasswordResetHandler issues a reset token and hands the link to
// the notifier. Repeated requests do not invalidate earlier tokens; only
// consumption moves the watermark.
type InitializePasswordResetHandler struct {
	users    UserStore
	tokens   TokenService
	notifier Notifier
	resetTTL time.Duration
	urlBase  string
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

// NewInitializePasswordResetHandler creates a handler with sane defaults.
func NewInitializePasswordResetHandler(users UserStore, tokens TokenService, cfg Config) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		users:    users,
		tokens:   tokens,
		notifier: noopNotifier{},
		resetTTL: cfg.GetResetTokenTTL(),
		urlBase:  cfg.GetResetURLBase(),
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
	}
}

// WithNotifier sets the mail sender used for the reset link.
func (h *InitializePasswordResetHandler) WithNotifier(n Notifier) *InitializePasswordResetHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithActivitySink sets the sink used to emit password reset events.
func (h *InitializePasswordResetHandler) WithActivitySink(sink ActivitySink) *InitializePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *InitializePasswordResetHandler) WithClock(clock func() time.Time) *InitializePasswordResetHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	resp := &InitializePasswordResetResponse{Email: event.Email}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.users.GetByEmail(ctx, NormalizeEmail(event.Email))
	if err != nil {
		if !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
		}
		// Unknown address: report success anyway so the endpoint cannot be
		// used to enumerate accounts.
		resp.Success = true
		h.respond(event, resp)
		return nil
	}

	if !user.Active {
		resp.Success = true
		h.respond(event, resp)
		return nil
	}

	token, err := IssueResetToken(h.tokens, user, h.resetTTL, h.now())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue reset token")
	}

	if err := h.users.MarkResetTokenSent(ctx, user.ID, h.now()); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record reset token issuance")
	}

	resetURL := fmt.Sprintf("%s?token=%s", h.urlBase, token)
	if err := h.notifier.SendPasswordReset(ctx, user, resetURL); err != nil {
		// Delivery is fire-and-forget; the caller never learns it failed.
		h.logger.Error("failed to send password reset email to %s: %v", user.Email, err)
	}

	h.recordActivity(ctx, user)

	resp.Success = true
	h.respond(event, resp)

	return nil
}

// IssueResetToken encodes {user_id, iat} with the given ttl. Token creation
// never fails on domain grounds; multiple outstanding tokens may coexist.
func IssueResetToken(tokens TokenService, user *User, ttl time.Duration, issuedAt time.Time) (string, error) {
	if user == nil {
		return "", goerrors.New("user must not be nil", goerrors.CategoryInternal)
	}
	return tokens.Encode(map[string]any{
		ClaimUserID:   user.ID,
		ClaimIssuedAt: issuedAt.Unix(),
	}, ttl)
}

func (h *InitializePasswordResetHandler) respond(event InitializePasswordResetMessage, resp *InitializePasswordResetResponse) {
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}
}

func (h *InitializePasswordResetHandler) recordActivity(ctx context.Context, user *User) {
	event := ActivityEvent{
		EventType:  ActivityEventPasswordResetRequest,
		Actor:      ActorRefFor(user),
		UserID:     user.ID,
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset request: %v", err)
	}
}
