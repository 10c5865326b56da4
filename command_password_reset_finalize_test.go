package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	auth "github.com/campusworks/go-campus-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFixture(t *testing.T) (*memUserStore, auth.TokenService, *auth.SimpleConfig) {
	t.Helper()
	store := newMemUserStore(&auth.User{
		ID:             1,
		Email:          "teacher@school.edu",
		Role:           auth.RoleTeacher,
		OrganizationID: ptrInt64(1),
		Active:         true,
		PasswordHash:   hashFixture(t, "old password"),
	})
	tokens := auth.NewTokenService([]byte("test-signing-key"), testLogger{})
	cfg := &auth.SimpleConfig{SigningKey: "test-signing-key"}
	return store, tokens, cfg
}

func TestFinalizePasswordReset(t *testing.T) {
	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	t.Run("valid token updates the password", func(t *testing.T) {
		store, tokens, cfg := resetFixture(t)
		sink := &captureSink{}

		raw, err := auth.IssueResetToken(tokens, &auth.User{ID: 1}, time.Hour, base)
		require.NoError(t, err)

		handler := auth.NewFinalizePasswordResetHandler(store, tokens, cfg).
			WithActivitySink(sink).
			WithLogger(testLogger{}).
			WithClock(func() time.Time { return base.Add(time.Minute) })

		require.NoError(t, handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    raw,
			Password: "brand new password",
		}))

		stored, err := store.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.NoError(t, auth.ComparePasswordAndHash("brand new password", stored.PasswordHash))
		require.NotNil(t, stored.ResetTokenUsedAt)
		assert.True(t, stored.ResetTokenUsedAt.Equal(base.Add(time.Minute)))

		assert.Len(t, sink.byType(auth.ActivityEventPasswordResetConsumed), 1)
	})

	t.Run("second use of the same token is rejected", func(t *testing.T) {
		store, tokens, cfg := resetFixture(t)

		raw, err := auth.IssueResetToken(tokens, &auth.User{ID: 1}, time.Hour, base)
		require.NoError(t, err)

		handler := auth.NewFinalizePasswordResetHandler(store, tokens, cfg).
			WithLogger(testLogger{}).
			WithClock(func() time.Time { return base.Add(time.Minute) })

		require.NoError(t, handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    raw,
			Password: "brand new password",
		}))

		err = handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    raw,
			Password: "another password",
		})
		assert.ErrorIs(t, err, auth.ErrResetLinkUsed)

		stored, err := store.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.NoError(t, auth.ComparePasswordAndHash("brand new password", stored.PasswordHash))
	})

	t.Run("consumption invalidates every earlier token", func(t *testing.T) {
		store, tokens, cfg := resetFixture(t)

		older, err := auth.IssueResetToken(tokens, &auth.User{ID: 1}, time.Hour, base)
		require.NoError(t, err)
		newer, err := auth.IssueResetToken(tokens, &auth.User{ID: 1}, time.Hour, base.Add(time.Minute))
		require.NoError(t, err)

		handler := auth.NewFinalizePasswordResetHandler(store, tokens, cfg).
			WithLogger(testLogger{}).
			WithClock(func() time.Time { return base.Add(2 * time.Minute) })

		require.NoError(t, handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    newer,
			Password: "brand new password",
		}))

		// The older link was never used, but its issuance predates the
		// watermark now.
		err = handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    older,
			Password: "another password",
		})
		assert.ErrorIs(t, err, auth.ErrResetLinkUsed)
	})

	t.Run("token issued after consumption still works", func(t *testing.T) {
		store, tokens, cfg := resetFixture(t)

		first, err := auth.IssueResetToken(tokens, &auth.User{ID: 1}, time.Hour, base)
		require.NoError(t, err)

		handler := auth.NewFinalizePasswordResetHandler(store, tokens, cfg).
			WithLogger(testLogger{}).
			WithClock(func() time.Time { return base.Add(time.Minute) })

		require.NoError(t, handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    first,
			Password: "brand new password",
		}))

		second, err := auth.IssueResetToken(tokens, &auth.User{ID: 1}, time.Hour, base.Add(5*time.Minute))
		require.NoError(t, err)

		later := auth.NewFinalizePasswordResetHandler(store, tokens, cfg).
			WithLogger(testLogger{}).
			WithClock(func() time.Time { return base.Add(6 * time.Minute) })

		require.NoError(t, later.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    second,
			Password: "yet another password",
		}))
	})

	t.Run("expired token", func(t *testing.T) {
		store, tokens, cfg := resetFixture(t)

		raw, err := tokens.Encode(map[string]any{
			auth.ClaimUserID:   int64(1),
			auth.ClaimIssuedAt: time.Now().Add(-2 * time.Hour).Unix(),
		}, -time.Hour)
		require.NoError(t, err)

		handler := auth.NewFinalizePasswordResetHandler(store, tokens, cfg).
			WithLogger(testLogger{})

		err = handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    raw,
			Password: "brand new password",
		})
		assert.True(t, auth.IsTokenExpiredError(err))
	})

	t.Run("malformed token", func(t *testing.T) {
		store, tokens, cfg := resetFixture(t)
		handler := auth.NewFinalizePasswordResetHandler(store, tokens, cfg).
			WithLogger(testLogger{})

		err := handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    "garbage",
			Password: "brand new password",
		})
		assert.True(t, auth.IsMalformedError(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		store, tokens, cfg := resetFixture(t)

		raw, err := auth.IssueResetToken(tokens, &auth.User{ID: 99}, time.Hour, base)
		require.NoError(t, err)

		handler := auth.NewFinalizePasswordResetHandler(store, tokens, cfg).
			WithLogger(testLogger{})

		err = handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    raw,
			Password: "brand new password",
		})
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("weak password leaves the token unconsumed", func(t *testing.T) {
		store, tokens, cfg := resetFixture(t)

		raw, err := auth.IssueResetToken(tokens, &auth.User{ID: 1}, time.Hour, base)
		require.NoError(t, err)

		handler := auth.NewFinalizePasswordResetHandler(store, tokens, cfg).
			WithLogger(testLogger{}).
			WithClock(func() time.Time { return base.Add(time.Minute) })

		err = handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    raw,
			Password: "short",
		})
		require.True(t, auth.IsValidationError(err))

		// The same link still works with an acceptable password.
		require.NoError(t, handler.Execute(ctx, auth.FinalizePasswordResetMessage{
			Token:    raw,
			Password: "brand new password",
		}))
	})
}

func TestFinalizePasswordResetConcurrentConsumption(t *testing.T) {
	ctx := context.Background()
	base := time.Unix(1700000000, 0)
	store, tokens, cfg := resetFixture(t)

	raw, err := auth.IssueResetToken(tokens, &auth.User{ID: 1}, time.Hour, base)
	require.NoError(t, err)

	handler := auth.NewFinalizePasswordResetHandler(store, tokens, cfg).
		WithLogger(testLogger{}).
		WithClock(func() time.Time { return base.Add(time.Minute) })

	const attempts = 6
	results := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = handler.Execute(ctx, auth.FinalizePasswordResetMessage{
				Token:    raw,
				Password: "brand new password",
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, auth.ErrResetLinkUsed)
	}
	assert.Equal(t, 1, winners, "exactly one concurrent consumption must win")
}
