package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRoomID is the standardized structured logging key for support room identifiers.
	FieldRoomID = "room_id"
	// FieldUserID is the standardized structured logging key for the acting user.
	FieldUserID = "user_id"
	// FieldRole is the standardized structured logging key for the acting user's role.
	FieldRole = "role"
	// FieldRequestID is the standardized structured logging key for request correlation identifiers.
	FieldRequestID = "request_id"
	// FieldEventType classifies a log line for alerting and dashboards.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to an operator reading a WARN or ERROR.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldSessionID ties every line of one diagnostic daemon run together.
	FieldSessionID = "session_id"
)

type contextKey int

const (
	roomIDKey contextKey = iota
	userIDKey
	roleKey
	requestIDKey
)

// WithRoomID tags ctx with the room being operated on.
func WithRoomID(ctx context.Context, roomID string) context.Context {
	return context.WithValue(ctx, roomIDKey, roomID)
}

// WithUser tags ctx with the acting user and role.
func WithUser(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

// WithRequestID tags ctx with a correlation identifier.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	for _, entry := range []struct {
		key   contextKey
		field string
	}{
		{roomIDKey, FieldRoomID},
		{userIDKey, FieldUserID},
		{roleKey, FieldRole},
		{requestIDKey, FieldRequestID},
	} {
		if value, ok := ctx.Value(entry.key).(string); ok && value != "" {
			fields = append(fields, slog.String(entry.field, value))
		}
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
