package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// FinalizePasswordResetMessage consumes a reset token and applies the new
// password.
type FinalizePasswordResetMessage struct {
	Token    string `json:"token" doc:"Reset password token"`
	Password string `json:"password" doc:"New password"`
}

func (p FinalizePasswordResetMessage) Type() string { return "user.password_reset_finalize" }

// FinalizePasswordResetHandler enforces single use: consuming any token sets
// the account's watermark, and every token issued before that watermark is
// permanently rejected, used or not, expired or not. Only a token issued
// after the last successful consumption can succeed.
type FinalizePasswordResetHandler struct {
	users          UserStore
	tokens         TokenService
	minPasswordLen int
	logger         Logger
	activity       ActivitySink
	now            func() time.Time
}

// NewFinalizePasswordResetHandler creates a handler with sane defaults.
func NewFinalizePasswordResetHandler(users UserStore, tokens TokenService, cfg Config) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		users:          users,
		tokens:         tokens,
		minPasswordLen: cfg.GetMinPasswordLength(),
		logger:         defLogger{},
		activity:       noopActivitySink{},
		now:            time.Now,
	}
}

// WithActivitySink sets the sink used to emit password reset events.
func (h *FinalizePasswordResetHandler) WithActivitySink(sink ActivitySink) *FinalizePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *FinalizePasswordResetHandler) WithClock(clock func() time.Time) *FinalizePasswordResetHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// Expired and malformed tokens propagate unchanged; the transport layer
	// distinguishes "request a fresh link" from garbage.
	claims, err := h.tokens.Decode(event.Token)
	if err != nil {
		return err
	}

	user, err := h.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve user for password reset")
	}

	// Replay guard: the watermark invalidates every token issued before it.
	issuedAt := claims.IssuedAt()
	if user.ResetTokenUsedAt != nil && user.ResetTokenUsedAt.After(issuedAt) {
		return ErrResetLinkUsed
	}

	if err := ValidatePasswordPolicy(event.Password, h.minPasswordLen); err != nil {
		return err
	}

	passwordHash, err := HashPassword(event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	// Conditional update keyed on the watermark we read: when two calls race
	// on the same token, exactly one advances the watermark and the loser
	// gets the replay error.
	usedAt := h.now()
	if err := h.users.ConsumeResetToken(ctx, user.ID, passwordHash, user.ResetTokenUsedAt, usedAt); err != nil {
		return err
	}

	user.PasswordHash = passwordHash
	user.ResetTokenUsedAt = &usedAt

	h.recordActivity(ctx, user)

	return nil
}

func (h *FinalizePasswordResetHandler) recordActivity(ctx context.Context, user *User) {
	event := ActivityEvent{
		EventType:  ActivityEventPasswordResetConsumed,
		Actor:      ActorRefFor(user),
		UserID:     user.ID,
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset: %v", err)
	}
}
