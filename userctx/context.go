package userctx

import (
	"context"
	"time"

	"github.com/blogem/people-directory/models"
)

// Context key type
type contextKey string

const (
	actorKey        contextKey = "actor"
	sessionStartKey contextKey = "session_start"
	requestIDKey    contextKey = "request_id"
)

// SetActor adds the resolved caller to request context
func SetActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor retrieves the caller from request context.
// Callers without a session are anonymous viewers.
func GetActor(ctx context.Context) models.Actor {
	actor, ok := ctx.Value(actorKey).(models.Actor)
	if !ok {
		return models.Anonymous
	}
	return actor
}

// GetUsername retrieves the caller's username, empty when anonymous
func GetUsername(ctx context.Context) string {
	return GetActor(ctx).Username
}

// SetSessionStart adds the sign-in time of the current session
func SetSessionStart(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, sessionStartKey, t)
}

// GetSessionStart retrieves the sign-in time, zero when anonymous
func GetSessionStart(ctx context.Context) time.Time {
	t, _ := ctx.Value(sessionStartKey).(time.Time)
	return t
}

// SetRequestID adds the request id to request context
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request id
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
