package auth

import "time"

// Package-level policy defaults. Override per deployment before wiring the
// authenticator, the same way MinPasswordLength feeds the ozzo rules.
var (
	// DefaultTokenExpiration is the session token TTL in hours.
	DefaultTokenExpiration = 5
	// DefaultResetTokenTTL bounds how long a password-reset link stays valid.
	DefaultResetTokenTTL = time.Hour
	// DefaultWelcomeTokenTTL bounds the reset link embedded in welcome emails.
	DefaultWelcomeTokenTTL = 15 * time.Minute
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8
	// TempPasswordLength controls generated temporary passwords.
	TempPasswordLength = 12
)

// SimpleConfig is a plain-struct Config for wiring and tests.
type SimpleConfig struct {
	SigningKey        string
	TokenExpiration   int
	ResetTokenTTL     time.Duration
	WelcomeTokenTTL   time.Duration
	MinPasswordLength int
	ContextKey        string
	AuthScheme        string
	TokenLookup       string
	ResetURLBase      string
}

var _ Config = (*SimpleConfig)(nil)

func (c *SimpleConfig) GetSigningKey() string { return c.SigningKey }

func (c *SimpleConfig) GetTokenExpiration() int {
	if c.TokenExpiration > 0 {
		return c.TokenExpiration
	}
	return DefaultTokenExpiration
}

func (c *SimpleConfig) GetResetTokenTTL() time.Duration {
	if c.ResetTokenTTL > 0 {
		return c.ResetTokenTTL
	}
	return DefaultResetTokenTTL
}

func (c *SimpleConfig) GetWelcomeTokenTTL() time.Duration {
	if c.WelcomeTokenTTL > 0 {
		return c.WelcomeTokenTTL
	}
	return DefaultWelcomeTokenTTL
}

func (c *SimpleConfig) GetMinPasswordLength() int {
	if c.MinPasswordLength > 0 {
		return c.MinPasswordLength
	}
	return MinPasswordLength
}

func (c *SimpleConfig) GetContextKey() string {
	if c.ContextKey != "" {
		return c.ContextKey
	}
	return "user"
}

func (c *SimpleConfig) GetAuthScheme() string {
	if c.AuthScheme != "" {
		return c.AuthScheme
	}
	return "Bearer"
}

func (c *SimpleConfig) GetTokenLookup() string {
	if c.TokenLookup != "" {
		return c.TokenLookup
	}
	return "header:Authorization"
}

func (c *SimpleConfig) GetResetURLBase() string {
	if c.ResetURLBase != "" {
		return c.ResetURLBase
	}
	return "/reset_password"
}
