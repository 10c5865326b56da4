package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

const (
	// TextCodeTokenExpired marks tokens rejected because exp has passed.
	TextCodeTokenExpired = "TOKEN_EXPIRED"
	// TextCodeTokenInvalid marks tokens rejected for any signature or format failure.
	TextCodeTokenInvalid = "TOKEN_INVALID"
	// TextCodeResetLinkUsed marks reset tokens invalidated by the consumption watermark.
	TextCodeResetLinkUsed = "RESET_LINK_USED"
	// TextCodePolicyNotDefined marks authorization calls with no matching policy rule.
	TextCodePolicyNotDefined = "POLICY_NOT_DEFINED"
)

// ErrTokenExpired is returned when a token's exp claim has passed. Callers can
// retry after a refresh; contrast with ErrTokenMalformed.
var ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for any signature, format, or algorithm
// failure. The token is garbage; retrying will not help.
var ErrTokenMalformed = errors.New("token invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthorized is the single generic authentication failure. It covers
// missing accounts, wrong passwords, and deactivated accounts alike so the
// caller cannot enumerate which factor failed.
var ErrUnauthorized = errors.New("Unauthorized or account deactivated", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrResetLinkUsed is returned when a reset token's iat predates the actor's
// consumption watermark.
var ErrResetLinkUsed = errors.New("This reset link has already been used", errors.CategoryAuth).
	WithTextCode(TextCodeResetLinkUsed).
	WithCode(errors.CodeUnauthorized)

// ErrAccessDenied is the generic authorization failure. It never reveals
// which rule denied the request.
var ErrAccessDenied = errors.New("access denied", errors.CategoryAuthz).
	WithCode(errors.CodeForbidden)

// ErrPolicyNotDefined signals a configuration fault: an action reached the
// policy engine with no matching rule. This is an internal error, distinct
// from a legitimate deny, and must be logged where it happens.
var ErrPolicyNotDefined = errors.New("authorization policy not found", errors.CategoryInternal).
	WithTextCode(TextCodePolicyNotDefined).
	WithCode(errors.CodeInternal)

// ErrNotFound is returned when a record lookup comes back empty outside of
// the anti-enumeration paths.
var ErrNotFound = errors.New("resource not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrMismatchedHashAndPassword is the internal marker for a failed hash
// comparison. Public surfaces translate it to ErrUnauthorized.
var ErrMismatchedHashAndPassword = errors.New("credentials mismatch", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty input to the hashing helpers.
var ErrNoEmptyString = errors.New("string must not be empty", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// NewValidationError wraps accumulated field messages in a single validation
// failure. Field messages travel in metadata under "fields" so transports can
// return several corrections in one round trip.
func NewValidationError(fields map[string][]string) *errors.Error {
	return errors.New("Validation failed", errors.CategoryValidation).
		WithCode(errors.CodeBadRequest).
		WithMetadata(map[string]any{"fields": fields})
}

// ValidationFromOzzo converts ozzo-validation's per-field error map into the
// repository's validation error shape. Returns nil when err carries no
// failures.
func ValidationFromOzzo(err error) error {
	if err == nil {
		return nil
	}

	verrs, ok := err.(validation.Errors)
	if !ok {
		return NewValidationError(map[string][]string{"base": {err.Error()}})
	}

	fields := make(map[string][]string, len(verrs))
	for field, ferr := range verrs {
		if ferr == nil {
			continue
		}
		fields[field] = append(fields[field], ferr.Error())
	}

	if len(fields) == 0 {
		return nil
	}

	return NewValidationError(fields)
}

// ValidationFields extracts the per-field messages from a validation error,
// or nil if err is not one.
func ValidationFields(err error) map[string][]string {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return nil
	}
	if richErr.Category != errors.CategoryValidation {
		return nil
	}
	fields, _ := richErr.Metadata["fields"].(map[string][]string)
	return fields
}

// IsAuthenticationError reports whether err is an authentication failure.
func IsAuthenticationError(err error) bool {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryAuth
	}
	return false
}

// IsAuthorizationError reports whether err is a policy deny.
func IsAuthorizationError(err error) bool {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryAuthz
	}
	return false
}

// IsValidationError reports whether err carries field-level validation failures.
func IsValidationError(err error) bool {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryValidation
	}
	return false
}

// IsPolicyNotDefinedError distinguishes the configuration fault from a
// legitimate deny.
func IsPolicyNotDefinedError(err error) bool {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == TextCodePolicyNotDefined
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenInvalid {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
