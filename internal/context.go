package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextSubjectKey ctxKey = "subject"
	ContextUndoKey    ctxKey = "undo"
)

// SubjectFromContext returns the token subject placed by the auth middleware.
func SubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if subject, ok := ctx.Value(ContextSubjectKey).(string); ok {
		return subject
	}
	return ""
}

func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ContextSubjectKey, subject)
}

// ContextWithUndo marks ledger mutations made while reverting history, so they are not
// recorded as new history entries.
func ContextWithUndo(ctx context.Context) context.Context {
	return context.WithValue(ctx, ContextUndoKey, true)
}

func IsUndo(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	undo, _ := ctx.Value(ContextUndoKey).(bool)
	return undo
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
