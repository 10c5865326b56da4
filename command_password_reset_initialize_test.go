package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	auth "github.com/campusworks/go-campus-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializePasswordReset(t *testing.T) {
	ctx := context.Background()
	tokens := auth.NewTokenService([]byte("test-signing-key"), testLogger{})
	cfg := &auth.SimpleConfig{SigningKey: "test-signing-key", ResetURLBase: "/reset_password"}

	t.Run("known active user receives a link", func(t *testing.T) {
		store := newMemUserStore(&auth.User{
			ID:             1,
			Email:          "teacher@school.edu",
			Role:           auth.RoleTeacher,
			OrganizationID: ptrInt64(1),
			Active:         true,
			PasswordHash:   hashFixture(t, "password12345"),
		})
		notifier := &captureNotifier{}
		sink := &captureSink{}

		handler := auth.NewInitializePasswordResetHandler(store, tokens, cfg).
			WithNotifier(notifier).
			WithActivitySink(sink).
			WithLogger(testLogger{})

		var resp *auth.InitializePasswordResetResponse
		err := handler.Execute(ctx, auth.InitializePasswordResetMessage{
			Email:      "Teacher@school.edu",
			OnResponse: func(r *auth.InitializePasswordResetResponse) { resp = r },
		})
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.True(t, resp.Success)

		require.Len(t, notifier.resetURLs, 1)
		url := notifier.resetURLs[0]
		require.True(t, strings.HasPrefix(url, "/reset_password?token="))

		raw := strings.TrimPrefix(url, "/reset_password?token=")
		claims, err := tokens.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, int64(1), claims.UserID())
		assert.False(t, claims.IssuedAt().IsZero())

		stored, err := store.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.NotNil(t, stored.ResetTokenSentAt)

		assert.Len(t, sink.byType(auth.ActivityEventPasswordResetRequest), 1)
	})

	t.Run("unknown address reports success without mail", func(t *testing.T) {
		store := newMemUserStore()
		notifier := &captureNotifier{}

		handler := auth.NewInitializePasswordResetHandler(store, tokens, cfg).
			WithNotifier(notifier).
			WithLogger(testLogger{})

		var resp *auth.InitializePasswordResetResponse
		err := handler.Execute(ctx, auth.InitializePasswordResetMessage{
			Email:      "nobody@school.edu",
			OnResponse: func(r *auth.InitializePasswordResetResponse) { resp = r },
		})
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.True(t, resp.Success)
		assert.Empty(t, notifier.resetURLs)
	})

	t.Run("deactivated account reports success without mail", func(t *testing.T) {
		store := newMemUserStore(&auth.User{
			ID:             1,
			Email:          "ghost@school.edu",
			Role:           auth.RoleStudent,
			OrganizationID: ptrInt64(1),
			Active:         false,
			PasswordHash:   hashFixture(t, "password12345"),
		})
		notifier := &captureNotifier{}

		handler := auth.NewInitializePasswordResetHandler(store, tokens, cfg).
			WithNotifier(notifier).
			WithLogger(testLogger{})

		var resp *auth.InitializePasswordResetResponse
		err := handler.Execute(ctx, auth.InitializePasswordResetMessage{
			Email:      "ghost@school.edu",
			OnResponse: func(r *auth.InitializePasswordResetResponse) { resp = r },
		})
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.True(t, resp.Success)
		assert.Empty(t, notifier.resetURLs)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		store := newMemUserStore()
		handler := auth.NewInitializePasswordResetHandler(store, tokens, cfg).
			WithLogger(testLogger{})

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := handler.Execute(cancelled, auth.InitializePasswordResetMessage{Email: "x@y.z"})
		require.Error(t, err)
	})
}

func TestInitializePasswordResetRepeatedRequests(t *testing.T) {
	// Requesting again does not invalidate earlier links; only consumption
	// moves the watermark.
	ctx := context.Background()
	tokens := auth.NewTokenService([]byte("test-signing-key"), testLogger{})
	cfg := &auth.SimpleConfig{SigningKey: "test-signing-key"}

	store := newMemUserStore(&auth.User{
		ID:             1,
		Email:          "teacher@school.edu",
		Role:           auth.RoleTeacher,
		OrganizationID: ptrInt64(1),
		Active:         true,
		PasswordHash:   hashFixture(t, "password12345"),
	})
	notifier := &captureNotifier{}

	base := time.Unix(1700000000, 0)
	handler := auth.NewInitializePasswordResetHandler(store, tokens, cfg).
		WithNotifier(notifier).
		WithLogger(testLogger{}).
		WithClock(func() time.Time { return base })

	for i := 0; i < 2; i++ {
		require.NoError(t, handler.Execute(ctx, auth.InitializePasswordResetMessage{
			Email: "teacher@school.edu",
		}))
	}
	require.Len(t, notifier.resetURLs, 2)

	finalize := auth.NewFinalizePasswordResetHandler(store, tokens, cfg).
		WithLogger(testLogger{}).
		WithClock(func() time.Time { return base.Add(time.Minute) })

	first := strings.TrimPrefix(notifier.resetURLs[0], "/reset_password?token=")
	require.NoError(t, finalize.Execute(ctx, auth.FinalizePasswordResetMessage{
		Token:    first,
		Password: "brand new password",
	}))
}
