package auth

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// CreateUserMessage is an admin-initiated account creation. The new user
// receives a generated temporary password and a welcome email carrying a
// short-lived reset link.
type CreateUserMessage struct {
	Actor          *User  `json:"-"`
	OrganizationID int64  `json:"organization_id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Phone          string `json:"phone,omitempty"`

	OnResponse func(*User)
}

func (e CreateUserMessage) Type() string { return "user.create" }

func (e CreateUserMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.OrganizationID, validation.Required),
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Role, validation.Required),
	)
	if err != nil {
		return ValidationFromOzzo(err)
	}
	return nil
}

type CreateUserHandler struct {
	repo            RepositoryManager
	tokens          TokenService
	policies        *Engine
	notifier        Notifier
	welcomeTokenTTL time.Duration
	resetURLBase    string
	logger          Logger
	activitySink    ActivitySink
	now             func() time.Time
}

func NewCreateUserHandler(repo RepositoryManager, tokens TokenService, policies *Engine, cfg Config) *CreateUserHandler {
	ttl := DefaultWelcomeTokenTTL
	urlBase := ""
	if cfg != nil {
		if cfg.GetWelcomeTokenTTL() > 0 {
			ttl = cfg.GetWelcomeTokenTTL()
		}
		urlBase = cfg.GetResetURLBase()
	}

	return &CreateUserHandler{
		repo:            repo,
		tokens:          tokens,
		policies:        policies,
		notifier:        noopNotifier{},
		welcomeTokenTTL: ttl,
		resetURLBase:    urlBase,
		logger:          defLogger{},
		activitySink:    noopActivitySink{},
		now:             time.Now,
	}
}

func (h *CreateUserHandler) WithNotifier(n Notifier) *CreateUserHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

func (h *CreateUserHandler) WithLogger(logger Logger) *CreateUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *CreateUserHandler) WithActivitySink(sink ActivitySink) *CreateUserHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *CreateUserHandler) WithClock(clock func() time.Time) *CreateUserHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *CreateUserHandler) Execute(ctx context.Context, event CreateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateUserHandler) execute(ctx context.Context, event CreateUserMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	role, ok := ParseRole(event.Role)
	if !ok {
		return NewValidationError(map[string][]string{
			"role": {"is not a valid role"},
		})
	}

	var phone string
	if event.Phone != "" {
		normalized, err := NormalizePhone(event.Phone)
		if err != nil {
			return NewValidationError(map[string][]string{
				"phone": {"is not a valid phone number"},
			})
		}
		phone = normalized
	}

	orgID := event.OrganizationID
	user := &User{
		Email:          NormalizeEmail(event.Email),
		Role:           role,
		OrganizationID: &orgID,
		Active:         true,
	}

	if err := h.policies.Must(event.Actor, ActionCreate, ResourceUser, user); err != nil {
		return err
	}

	tempPassword := RandomPassword()

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Organizations().GetByIDTx(ctx, tx, event.OrganizationID); err != nil {
			if goerrors.IsNotFound(err) {
				return NewValidationError(map[string][]string{
					"organization_id": {"organization does not exist"},
				})
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "organization lookup failed")
		}

		hash, err := HashPassword(tempPassword)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}
		user.PasswordHash = hash

		if err := user.Validate(); err != nil {
			return err
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		profile := &Profile{UserID: user.ID, Phone: phone}
		if _, err := h.repo.Profiles().CreateTx(ctx, tx, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create profile")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user creation transaction failed")
	}

	h.sendWelcome(ctx, user, tempPassword)
	h.recordActivity(ctx, event.Actor, user)

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

// sendWelcome delivers the welcome email out of band. Failures are logged,
// never surfaced: the account exists either way and the admin can trigger a
// password reset later.
func (h *CreateUserHandler) sendWelcome(ctx context.Context, user *User, tempPassword string) {
	token, err := IssueResetToken(h.tokens, user, h.welcomeTokenTTL, h.now())
	if err != nil {
		h.logger.Error("welcome token issue error for user %d: %v", user.ID, err)
		return
	}

	resetURL := fmt.Sprintf("%s?token=%s", h.resetURLBase, token)
	notifier := normalizeNotifier(h.notifier)
	if err := notifier.SendWelcome(ctx, user, tempPassword, resetURL); err != nil {
		h.logger.Error("welcome email delivery error for user %d: %v", user.ID, err)
	}
}

func (h *CreateUserHandler) recordActivity(ctx context.Context, actor, user *User) {
	sink := normalizeActivitySink(h.activitySink)
	err := sink.Record(ctx, ActivityEvent{
		EventType:  ActivityEventUserCreated,
		Actor:      ActorRefFor(actor),
		UserID:     user.ID,
		OccurredAt: h.now(),
		Metadata: map[string]any{
			"role": user.Role.String(),
		},
	})
	if err != nil {
		h.logger.Warn("create user activity sink error: %v", err)
	}
}
