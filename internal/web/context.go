package web

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/JonMunkholm/txrecover/internal/core"
)

// WithRunID assigns the analysis ID before parsing starts, so request logs
// and parse logs carry the same run_id and the ID can be returned even when
// the analysis fails.
func WithRunID(r *http.Request) (context.Context, string) {
	runID := uuid.New().String()
	return core.ContextWithRunID(r.Context(), runID), runID
}
