package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// SignupMessage is a self-service registration into an existing organization.
// The global admin account is never created this way.
type SignupMessage struct {
	OrganizationID int64  `json:"organization_id"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	Phone          string `json:"phone,omitempty"`

	OnResponse func(*User)
}

func (e SignupMessage) Type() string { return "user.signup" }

func (e SignupMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.OrganizationID, validation.Required),
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Role, validation.Required, validation.In(
			RoleOrgAdmin.String(),
			RoleTeacher.String(),
			RoleStudent.String(),
		)),
	)
	if err != nil {
		return ValidationFromOzzo(err)
	}
	return nil
}

type SignupHandler struct {
	repo           RepositoryManager
	minPasswordLen int
	logger         Logger
	activitySink   ActivitySink
}

func NewSignupHandler(repo RepositoryManager, cfg Config) *SignupHandler {
	minLen := MinPasswordLength
	if cfg != nil && cfg.GetMinPasswordLength() > 0 {
		minLen = cfg.GetMinPasswordLength()
	}

	return &SignupHandler{
		repo:           repo,
		minPasswordLen: minLen,
		logger:         defLogger{},
		activitySink:   noopActivitySink{},
	}
}

func (h *SignupHandler) WithLogger(logger Logger) *SignupHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SignupHandler) WithActivitySink(sink ActivitySink) *SignupHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	role, ok := ParseRole(event.Role)
	if !ok || role == RoleGlobalAdmin {
		return NewValidationError(map[string][]string{
			"role": {"is not a valid signup role"},
		})
	}

	if err := ValidatePasswordPolicy(event.Password, h.minPasswordLen); err != nil {
		return err
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

	user := &User{}
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

		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		orgID := event.OrganizationID
		user.Email = NormalizeEmail(event.Email)
		user.Role = role
		user.OrganizationID = &orgID
		user.Active = true
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
		return goerrors.Wrap(err, goerrors.CategoryInternal, "signup transaction failed")
	}

	h.recordActivity(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

func (h *SignupHandler) recordActivity(ctx context.Context, user *User) {
	sink := normalizeActivitySink(h.activitySink)
	err := sink.Record(ctx, ActivityEvent{
		EventType:  ActivityEventUserCreated,
		Actor:      ActorRefFor(user),
		UserID:     user.ID,
		OccurredAt: time.Now(),
		Metadata: map[string]any{
			"role": user.Role.String(),
		},
	})
	if err != nil {
		h.logger.Warn("signup activity sink error: %v", err)
	}
}
