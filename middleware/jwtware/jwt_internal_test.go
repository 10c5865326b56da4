package jwtware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExtractors(t *testing.T) {
	t.Run("single header lookup", func(t *testing.T) {
		extractors := GetExtractors("header:Authorization", "Bearer")
		require.Len(t, extractors, 1)
	})

	t.Run("multiple lookups", func(t *testing.T) {
		extractors := GetExtractors("header:Authorization, cookie:jwt, query:auth_token")
		require.Len(t, extractors, 3)
	})
}

func TestGetDefaultConfig(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		cfg := GetDefaultConfig(Config{
			TokenValidator: stubValidator{},
		})

		assert.Equal(t, "user", cfg.ContextKey)
		assert.Equal(t, "Bearer", cfg.AuthScheme)
		assert.Equal(t, defaultTokenLookup, cfg.TokenLookup)
		assert.NotNil(t, cfg.SuccessHandler)
		assert.NotNil(t, cfg.ErrorHandler)
	})

	t.Run("panics without a validator", func(t *testing.T) {
		require.Panics(t, func() {
			GetDefaultConfig(Config{})
		})
	})
}

type stubValidator struct{}

func (stubValidator) Validate(string) (AuthClaims, error) {
	return nil, ErrJWTMissingOrMalformed
}
