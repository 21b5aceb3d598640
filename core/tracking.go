package core

import (
	"context"
	"time"

	"github.com/huangsam/backupwatch/schema"
	"go.uber.org/zap"
)

// beginRun opens a history run and returns a context carrying its ID.
// Tracking failures are logged and never abort the analysis.
func beginRun(ctx context.Context, env *Env, analysis schema.AnalysisName, params map[string]any) context.Context {
	ctx = withAnalysis(ctx, string(analysis))
	if env.History == nil {
		return ctx
	}
	runID, err := env.History.BeginRun(analysis, time.Now(), params)
	if err != nil {
		env.logger().Warn("run tracking initialization failed", zap.String("analysis", string(analysis)), zap.Error(err))
		return ctx
	}
	if runID > 0 {
		ctx = withRunID(ctx, runID)
	}
	return ctx
}

// finishRun records the dispatched alerts and closes the run, then observes
// the run in the metrics registry.
func finishRun(ctx context.Context, env *Env, started time.Time, rows []schema.AlertRow) {
	log := closeRun(ctx, env, started, rows)
	log.Info("analysis finished", zap.Int("alerts", len(rows)), zap.Duration("took", time.Since(started)))
}

// abortRun closes a run whose dispatch failed part way. The rows are what the
// backend already accepted, so later runs treat them as sent.
func abortRun(ctx context.Context, env *Env, started time.Time, rows []schema.AlertRow, cause error) {
	log := closeRun(ctx, env, started, rows)
	log.Warn("analysis aborted", zap.Int("delivered", len(rows)), zap.Error(cause))
}

func closeRun(ctx context.Context, env *Env, started time.Time, rows []schema.AlertRow) *zap.Logger {
	analysis := schema.AnalysisName(analysisFromContext(ctx))
	log := env.logger().With(zap.String("analysis", string(analysis)))

	if runID, ok := getRunID(ctx); ok && env.History != nil {
		if len(rows) > 0 {
			if err := env.History.RecordAlerts(runID, rows); err != nil {
				log.Warn("failed to record alerts", zap.Int64("run_id", runID), zap.Error(err))
			}
		}
		if err := env.History.EndRun(runID, time.Now(), len(rows)); err != nil {
			log.Warn("failed to finalize run tracking", zap.Int64("run_id", runID), zap.Error(err))
		}
	}

	for kind, n := range countByKind(rows) {
		env.Metrics.ObserveAlerts(kind, n)
	}
	env.Metrics.ObserveRun(analysis, time.Since(started))
	return log
}

func countByKind(rows []schema.AlertRow) map[schema.AlertKind]int {
	counts := make(map[schema.AlertKind]int)
	for _, r := range rows {
		counts[r.Kind]++
	}
	return counts
}

// newResult builds the result returned to callers of every analysis.
func newResult(analysis schema.AnalysisName, rows []schema.AlertRow, start, stop time.Time) schema.AnalysisResult {
	if rows == nil {
		rows = []schema.AlertRow{}
	}
	return schema.AnalysisResult{
		Analysis: analysis,
		Count:    len(rows),
		Alerts:   rows,
		Start:    start,
		Stop:     stop,
		ByKind:   countByKind(rows),
	}
}
