package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/backupwatch/core/algo"
	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/schema"
)

// RunStorageAnalysis loads the data stores and runs AnalyzeStorage.
func RunStorageAnalysis(ctx context.Context, env *Env, cfg *contract.Config) (schema.AnalysisResult, error) {
	stores, err := env.Metadata.ListDataStores(ctx)
	if err != nil {
		return schema.AnalysisResult{}, fmt.Errorf("failed to load data stores: %w", err)
	}
	return AnalyzeStorage(ctx, env, stores, cfg.AlertLimit)
}

// AnalyzeStorage alerts on data stores filled above their high water mark.
// Stores missing any of the three levels are ignored.
func AnalyzeStorage(ctx context.Context, env *Env, stores []schema.DataStore, limit int) (schema.AnalysisResult, error) {
	started := time.Now()
	if err := ctx.Err(); err != nil {
		return schema.AnalysisResult{}, err
	}
	ctx = beginRun(ctx, env, schema.StorageAnalysis, map[string]any{"alert_limit": limit})

	var alerts []schema.StorageFillAlert
	for _, ds := range stores {
		if ds.Capacity == nil || ds.Filled == nil || ds.HighWaterMark == nil {
			continue
		}
		if *ds.Filled <= *ds.HighWaterMark {
			continue
		}
		alerts = append(alerts, schema.StorageFillAlert{
			Name:          ds.Name,
			UUID:          ds.UUID,
			Capacity:      *ds.Capacity,
			Filled:        *ds.Filled,
			HighWaterMark: *ds.HighWaterMark,
		})
	}
	alerts = algo.LimitAlerts(alerts, limit)

	if len(alerts) > 0 {
		if err := env.Sink.SubmitStorageFillAlerts(ctx, alerts); err != nil {
			err = fmt.Errorf("failed to submit storage fill alerts: %w", err)
			abortRun(ctx, env, started, nil, err)
			return schema.AnalysisResult{}, err
		}
	}

	rows := make([]schema.AlertRow, len(alerts))
	for i, a := range alerts {
		rows[i] = a.Row(started)
	}
	finishRun(ctx, env, started, rows)
	return newResult(schema.StorageAnalysis, rows, time.Time{}, started), nil
}
