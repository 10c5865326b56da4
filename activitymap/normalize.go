// Package activitymap converts auth activity events into a transport-agnostic
// shape for downstream audit and analytics systems.
package activitymap

import (
	"strconv"
	"strings"
	"time"

	auth "github.com/campusworks/go-campus-auth"
)

// MetadataKeyActorType stores the actor type derived from auth.ActorRef.Type.
const MetadataKeyActorType = "actor_type"

const (
	defaultChannel    = "auth"
	defaultObjectType = "user"
	defaultActorID    = "system"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	objectType       string
	actorFallback    string
	objectIDResolver func(auth.ActivityEvent) string
}

// Normalize converts an auth.ActivityEvent into a generic normalized shape.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		formatID(event.Actor.ID),
		formatID(event.UserID),
		strings.TrimSpace(options.actorFallback),
	)

	objectID := resolveObjectID(event, options.objectIDResolver)
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: strings.TrimSpace(options.objectType),
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(options.channel),
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the default channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the default object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver overrides object-id extraction from ActivityEvent.
func WithObjectIDResolver(resolver func(auth.ActivityEvent) string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the final actor-id fallback when actor/user ids are empty.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
}

func resolveObjectID(event auth.ActivityEvent, resolver func(auth.ActivityEvent) string) string {
	if resolver != nil {
		return strings.TrimSpace(resolver(event))
	}
	return formatID(event.UserID)
}

func normalizeMetadata(event auth.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)

	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[MetadataKeyActorType]; !exists {
			metadata[MetadataKeyActorType] = actorType
		}
	}

	return metadata
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
