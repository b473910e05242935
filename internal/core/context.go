package core

import "context"

type contextKey string

const ctxKeyRunID contextKey = "run_id"

// ContextWithRunID fixes the run ID the next analysis will use, so callers
// can log and route by it before parsing finishes.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ctxKeyRunID, runID)
}

// RunIDFromContext returns the run ID set by ContextWithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRunID).(string); ok {
		return v
	}
	return ""
}
