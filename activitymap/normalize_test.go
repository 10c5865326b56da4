package activitymap_test

import (
	"testing"
	"time"

	auth "github.com/campusworks/go-campus-auth"
	"github.com/campusworks/go-campus-auth/activitymap"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeDefaults(t *testing.T) {
	occurred := time.Unix(1700000000, 0)

	got := activitymap.Normalize(auth.ActivityEvent{
		EventType:  auth.ActivityEventLoginSuccess,
		Actor:      auth.ActorRef{ID: 7, Type: "user"},
		UserID:     7,
		OccurredAt: occurred,
	})

	assert.Equal(t, "7", got.ActorID)
	assert.Equal(t, "auth.login.success", got.Verb)
	assert.Equal(t, "user", got.ObjectType)
	assert.Equal(t, "7", got.ObjectID)
	assert.Equal(t, "auth", got.Channel)
	assert.Equal(t, "user", got.Metadata[activitymap.MetadataKeyActorType])
	assert.True(t, got.OccurredAt.Equal(occurred))
}

func TestNormalizeActorFallbacks(t *testing.T) {
	t.Run("falls back to the subject user", func(t *testing.T) {
		got := activitymap.Normalize(auth.ActivityEvent{
			EventType: auth.ActivityEventPasswordResetRequest,
			Actor:     auth.ActorRef{Type: "system"},
			UserID:    9,
		})
		assert.Equal(t, "9", got.ActorID)
		assert.Equal(t, "system", got.Metadata[activitymap.MetadataKeyActorType])
	})

	t.Run("falls back to system when nothing identifies the actor", func(t *testing.T) {
		got := activitymap.Normalize(auth.ActivityEvent{
			EventType: auth.ActivityEventLoginFailure,
		})
		assert.Equal(t, "system", got.ActorID)
	})

	t.Run("custom fallback", func(t *testing.T) {
		got := activitymap.Normalize(auth.ActivityEvent{
			EventType: auth.ActivityEventLoginFailure,
		}, activitymap.WithActorFallback("batch-import"))
		assert.Equal(t, "batch-import", got.ActorID)
	})
}

func TestNormalizeOptions(t *testing.T) {
	event := auth.ActivityEvent{
		EventType: auth.ActivityEventUserStatusChanged,
		Actor:     auth.ActorRef{ID: 1, Type: "user"},
		UserID:    2,
		Metadata:  map[string]any{"active": false},
	}

	got := activitymap.Normalize(event,
		activitymap.WithDefaultChannel("audit"),
		activitymap.WithDefaultObjectType("account"),
		activitymap.WithObjectIDResolver(func(e auth.ActivityEvent) string {
			return "account-2"
		}),
	)

	assert.Equal(t, "audit", got.Channel)
	assert.Equal(t, "account", got.ObjectType)
	assert.Equal(t, "account-2", got.ObjectID)
	assert.Equal(t, false, got.Metadata["active"])

	// The source event's metadata must stay untouched.
	assert.NotContains(t, event.Metadata, activitymap.MetadataKeyActorType)
}

func TestNormalizeZeroTime(t *testing.T) {
	got := activitymap.Normalize(auth.ActivityEvent{
		EventType: auth.ActivityEventLoginSuccess,
		Actor:     auth.ActorRef{ID: 1, Type: "user"},
	})
	assert.False(t, got.OccurredAt.IsZero())
}
