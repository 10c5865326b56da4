package auth

import (
	"context"

	"github.com/campusworks/go-campus-auth/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener so consumers can use auth helpers directly.
type ValidationListener = jwtware.ValidationListener

// ContextEnricherAdapter stores validated claims in the standard context so
// downstream code can recover the session with ClaimsFromContext.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	if mapped, ok := claims.(Claims); ok {
		return WithClaimsContext(c, mapped)
	}
	return c
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}
