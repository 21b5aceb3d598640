package core

import "context"

// Context keys for run tracking
type contextKey string

const (
	runIDKey    contextKey = "runID"
	analysisKey contextKey = "analysis"
)

// withRunID stores the history run ID in the context.
func withRunID(ctx context.Context, runID int64) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// getRunID returns the history run ID from context, if any.
func getRunID(ctx context.Context) (int64, bool) {
	val := ctx.Value(runIDKey)
	if val == nil {
		return 0, false
	}
	runID, ok := val.(int64)
	return runID, ok && runID > 0
}

// withAnalysis stores the name of the running analysis in the context.
func withAnalysis(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, analysisKey, name)
}

// analysisFromContext returns the running analysis name, or "" when unset.
func analysisFromContext(ctx context.Context) string {
	name, _ := ctx.Value(analysisKey).(string)
	return name
}
