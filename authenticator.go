package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

// LoginResult is the outcome of a credential check. Exactly one of Token or
// Challenge is set: a Challenge means the password matched but the account's
// security question must be resolved through VerifySecurity before a session
// token is issued. A Challenge grants no access by itself.
type LoginResult struct {
	Token     string             `json:"token,omitempty"`
	User      *User              `json:"user,omitempty"`
	Challenge *SecurityChallenge `json:"challenge,omitempty"`
}

// Challenged reports whether the caller must complete the secondary factor.
func (r LoginResult) Challenged() bool {
	return r.Challenge != nil
}

// SecurityChallenge carries the question the caller must answer. It
// deliberately excludes any credential material.
type SecurityChallenge struct {
	Email    string `json:"email"`
	Question string `json:"security_question"`
}

// Auther resolves credentials to authenticated users and session tokens.
// It is stateless per call; the only shared state is the signing secret
// inside the token service.
type Auther struct {
	users           UserStore
	tokens          TokenService
	tokenExpiration int
	minPasswordLen  int
	logger          Logger
	activitySink    ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(users UserStore, opts Config) *Auther {
	return &Auther{
		users:           users,
		tokens:          NewTokenService([]byte(opts.GetSigningKey()), defLogger{}),
		tokenExpiration: opts.GetTokenExpiration(),
		minPasswordLen:  opts.GetMinPasswordLength(),
		logger:          defLogger{},
		activitySink:    noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenService overrides the token service (useful for tests).
func (s *Auther) WithTokenService(tokens TokenService) *Auther {
	if tokens != nil {
		s.tokens = tokens
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login authenticates (orgID, email, password[, securityAnswer]). The email
// lookup is organization-scoped; a nil orgID reaches only the global admin.
// Missing account, wrong password, and deactivated account all fail with the
// same ErrUnauthorized so callers cannot enumerate accounts.
func (s *Auther) Login(ctx context.Context, orgID *int64, email, password, securityAnswer string) (LoginResult, error) {
	user, err := s.users.GetByOrgEmail(ctx, orgID, NormalizeEmail(email))
	if err != nil {
		if !errors.IsNotFound(err) {
			return LoginResult{}, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during login")
		}
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, 0, map[string]any{
			"email": email,
		})
		return LoginResult{}, ErrUnauthorized
	}

	if !user.Active {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRefFor(user), user.ID, map[string]any{
			"email":  email,
			"reason": "inactive",
		})
		return LoginResult{}, ErrUnauthorized
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRefFor(user), user.ID, map[string]any{
			"email": email,
		})
		return LoginResult{}, ErrUnauthorized
	}

	// Accounts with an enrolled security question get a challenge instead of
	// a token until the answer checks out.
	if user.HasSecurityQuestion() {
		if securityAnswer == "" || s.compareSecurityAnswer(user, securityAnswer) != nil {
			s.emitAuthEvent(ctx, ActivityEventSecurityChallenge, ActorRefFor(user), user.ID, nil)
			return LoginResult{
				User: user,
				Challenge: &SecurityChallenge{
					Email:    user.Email,
					Question: *user.SecurityQuestion,
				},
			}, nil
		}
	}

	token, err := EncodeSession(s.tokens, user, s.tokenExpiration)
	if err != nil {
		return LoginResult{}, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, ActorRefFor(user), user.ID, nil)

	return LoginResult{Token: token, User: user}, nil
}

// VerifySecurity independently confirms the security answer and, on success,
// issues the session token the preceding challenge withheld.
func (s *Auther) VerifySecurity(ctx context.Context, email, securityAnswer string) (LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !errors.IsNotFound(err) {
			return LoginResult{}, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during security verification")
		}
		return LoginResult{}, ErrUnauthorized
	}

	if !user.Active || !user.HasSecurityQuestion() {
		return LoginResult{}, ErrUnauthorized
	}

	if err := s.compareSecurityAnswer(user, securityAnswer); err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRefFor(user), user.ID, map[string]any{
			"reason": "security_answer",
		})
		return LoginResult{}, ErrUnauthorized
	}

	token, err := EncodeSession(s.tokens, user, s.tokenExpiration)
	if err != nil {
		return LoginResult{}, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, ActorRefFor(user), user.ID, nil)

	return LoginResult{Token: token, User: user}, nil
}

// ChangePassword verifies the current password before accepting the new one.
// The caller must already hold an authenticated user.
func (s *Auther) ChangePassword(ctx context.Context, user *User, currentPassword, newPassword string) error {
	if user == nil {
		return ErrUnauthorized
	}

	if err := ComparePasswordAndHash(currentPassword, user.PasswordHash); err != nil {
		return ErrUnauthorized
	}

	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to persist new password")
	}

	user.PasswordHash = hash
	s.emitAuthEvent(ctx, ActivityEventPasswordChanged, ActorRefFor(user), user.ID, nil)

	return nil
}

// ValidatePassword applies the minimum length policy, accumulating the
// failure as a field-level validation message.
func (s *Auther) ValidatePassword(password string) error {
	return ValidatePasswordPolicy(password, s.minPasswordLen)
}

// ValidatePasswordPolicy enforces the configurable minimum length. Both
// ChangePassword and reset-token consumption run new passwords through it.
func ValidatePasswordPolicy(password string, minLen int) error {
	if minLen <= 0 {
		minLen = MinPasswordLength
	}

	err := validation.Validate(password,
		validation.Required,
		validation.Length(minLen, 0),
	)
	if err != nil {
		return NewValidationError(map[string][]string{"password": {err.Error()}})
	}
	return nil
}

// SessionFromToken decodes a bearer token into claims without touching the
// store. Expired and malformed tokens surface as their distinct error kinds.
func (s *Auther) SessionFromToken(raw string) (Claims, error) {
	claims, err := s.tokens.Decode(raw)
	if err != nil {
		s.logger.Debug("session token validation failed: %v", err)
		return nil, err
	}
	return claims, nil
}

// IdentityFromToken resolves a bearer token to its active user. A missing or
// deactivated user fails exactly like a missing token.
func (s *Auther) IdentityFromToken(ctx context.Context, raw string) (*User, error) {
	claims, err := s.SessionFromToken(raw)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user from session")
	}

	if !user.Active {
		return nil, ErrUnauthorized
	}

	return user, nil
}

func (s *Auther) compareSecurityAnswer(user *User, answer string) error {
	if user.SecurityAnswerHash == nil {
		return ErrMismatchedHashAndPassword
	}
	return CompareSecurityAnswer(answer, *user.SecurityAnswerHash)
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID int64, metadata map[string]any) {
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := normalizeActivitySink(s.activitySink).Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}
