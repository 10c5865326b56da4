package auth

import (
	"time"

	"github.com/campusworks/go-campus-auth/middleware/jwtware"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteAuthenticator wires the authenticator into an HTTP router: the
// bearer-token middleware stage plus JSON error rendering. Routing and
// payload parsing stay with the host application.
type RouteAuthenticator struct {
	auth             *Auther
	cfg              Config
	sessionDuration  time.Duration
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther *Auther, cfg Config) (*RouteAuthenticator, error) {
	sessionDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		sessionDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:             cfg,
		auth:            auther,
		Logger:          defLogger{},
		sessionDuration: sessionDuration,
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a RouteAuthenticator) GetSessionDuration() time.Duration {
	return a.sessionDuration
}

// ProtectedRoute guards a route group with the bearer-token middleware. The
// claims land under the configured context key; a missing or malformed
// Authorization header is handled exactly like a missing token.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler:    errorHandler,
		TokenValidator:  middlewareValidator{tokens: a.auth.TokenService()},
		AuthScheme:      cfg.GetAuthScheme(),
		ContextKey:      cfg.GetContextKey(),
		TokenLookup:     cfg.GetTokenLookup(),
		ContextEnricher: ContextEnricherAdapter,
	})
}

// MakeClientRouteAuthErrorHandler maps middleware failures onto the error
// taxonomy. With optional set, an unauthenticated request proceeds instead of
// failing, for routes that merely personalize when a session is present.
func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("optional auth failed, proceeding: %s", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"authentication error: %s text_code=%s path=%s",
		richErr.Message,
		richErr.TextCode,
		c.OriginalURL(),
	)

	status := richErr.Code
	if status == 0 {
		status = router.StatusUnauthorized
	}

	return c.JSON(status, map[string]any{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"middleware error handler: %s category=%s details=%s",
		richErr.Message,
		richErr.Category,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	case errors.CategoryValidation:
		return c.JSON(router.StatusBadRequest, map[string]any{
			"error":  richErr.Message,
			"fields": ValidationFields(richErr),
		})
	default:
		status := richErr.Code
		if status == 0 {
			status = router.StatusInternalServerError
		}
		return c.JSON(status, map[string]any{
			"error": richErr.Message,
		})
	}
}

// middlewareValidator bridges the TokenService into the middleware package
// without an import cycle.
type middlewareValidator struct {
	tokens TokenService
}

func (v middlewareValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.tokens.Decode(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
