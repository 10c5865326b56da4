package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claim keys used across session and reset tokens. Session tokens carry
// {user_id, exp}; reset tokens additionally carry iat.
const (
	ClaimUserID   = "user_id"
	ClaimIssuedAt = "iat"
	ClaimExpires  = "exp"
)

// Claims is a decoded token payload with typed accessors. JSON numbers come
// back as float64 from the JWT parser, so the accessors normalize.
type Claims map[string]any

// UserID returns the user_id claim, or 0 when absent.
func (c Claims) UserID() int64 {
	return c.intClaim(ClaimUserID)
}

// IssuedAt returns the iat claim as a time, or the zero time when absent.
func (c Claims) IssuedAt() time.Time {
	return c.timeClaim(ClaimIssuedAt)
}

// Expires returns the exp claim as a time, or the zero time when absent.
func (c Claims) Expires() time.Time {
	return c.timeClaim(ClaimExpires)
}

func (c Claims) intClaim(key string) int64 {
	switch v := c[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case jwt.NumericDate:
		return v.Unix()
	default:
		return 0
	}
}

func (c Claims) timeClaim(key string) time.Time {
	unix := c.intClaim(key)
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}
