package core

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/huangsam/backupwatch/core/algo"
	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/schema"
)

const bytesPerMB = 1_000_000

// SizeInput is everything one size-change analysis needs.
type SizeInput struct {
	Records    []schema.BackupRecord
	Thresholds map[schema.BackupKind]float64
	AlertLimit int
	Start      time.Time // only records after Start may alert
}

// RunSizeAnalysis loads the backup records, resolves the SIZE_ALERT watermark
// and runs AnalyzeSizes.
func RunSizeAnalysis(ctx context.Context, env *Env, cfg *contract.Config) (schema.AnalysisResult, error) {
	records, err := env.Metadata.ListBackupRecords(ctx)
	if err != nil {
		return schema.AnalysisResult{}, fmt.Errorf("failed to load backup records: %w", err)
	}
	start, err := resolveStart(ctx, env, records, []schema.AlertKind{schema.SizeKind}, cfg.Start)
	if err != nil {
		return schema.AnalysisResult{}, err
	}
	return AnalyzeSizes(ctx, env, SizeInput{
		Records:    records,
		Thresholds: cfg.SizeThresholds,
		AlertLimit: cfg.AlertLimit,
		Start:      start,
	})
}

// AnalyzeSizes compares consecutive backups of the same task and kind and
// alerts on relative size changes above the kind's threshold.
func AnalyzeSizes(ctx context.Context, env *Env, in SizeInput) (schema.AnalysisResult, error) {
	started := time.Now()
	if err := ctx.Err(); err != nil {
		return schema.AnalysisResult{}, err
	}
	ctx = beginRun(ctx, env, schema.SizeAnalysis, map[string]any{
		"alert_limit": in.AlertLimit,
		"start":       in.Start,
		"thresholds":  in.Thresholds,
	})

	alerts := sizeAlerts(in.Records, in.Thresholds, in.Start)
	slices.SortStableFunc(alerts, func(a, b schema.SizeAlert) int {
		return a.Date.Compare(b.Date)
	})
	alerts = algo.LimitAlerts(alerts, in.AlertLimit)

	if len(alerts) > 0 {
		if err := env.Sink.SubmitSizeAlerts(ctx, alerts); err != nil {
			err = fmt.Errorf("failed to submit size alerts: %w", err)
			abortRun(ctx, env, started, nil, err)
			return schema.AnalysisResult{}, err
		}
	}

	rows := make([]schema.AlertRow, len(alerts))
	for i, a := range alerts {
		rows[i] = a.Row()
	}
	finishRun(ctx, env, started, rows)
	return newResult(schema.SizeAnalysis, rows, in.Start, started), nil
}

type sizeKey struct {
	task string
	kind schema.BackupKind
}

// sizeAlerts groups sized records per task and kind, orders each group by
// start and compares neighbours. The later backup of a pair carries the alert.
func sizeAlerts(records []schema.BackupRecord, thresholds map[schema.BackupKind]float64, start time.Time) []schema.SizeAlert {
	groups := make(map[sizeKey][]schema.BackupRecord)
	var keys []sizeKey
	for _, r := range records {
		if r.Task == "" || r.Kind == "" || r.DataSize == nil || !r.HasStart() {
			continue
		}
		k := sizeKey{task: r.Task, kind: r.Kind}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r)
	}
	slices.SortFunc(keys, func(a, b sizeKey) int {
		return cmp.Or(cmp.Compare(a.task, b.task), cmp.Compare(a.kind, b.kind))
	})

	var alerts []schema.SizeAlert
	for _, k := range keys {
		threshold, ok := thresholds[k.kind]
		if !ok {
			threshold = contract.DefaultSizeThreshold
		}

		group := slices.Clone(groups[k])
		slices.SortStableFunc(group, func(a, b schema.BackupRecord) int {
			return a.Start.Compare(b.Start)
		})
		for i := 1; i < len(group); i++ {
			prev, cur := group[i-1], group[i]
			if !cur.Start.After(start) {
				continue
			}
			if relativeChange(*prev.DataSize, *cur.DataSize) <= threshold {
				continue
			}
			alerts = append(alerts, schema.SizeAlert{
				BackupID:      cur.ID,
				Saveset:       cur.Saveset,
				Size:          float64(*cur.DataSize) / bytesPerMB,
				ReferenceSize: float64(*prev.DataSize) / bytesPerMB,
				Date:          cur.Start,
				Task:          cur.Task,
			})
		}
	}
	return alerts
}

// relativeChange is |b-a|/a. From zero it is 0 when b is also zero and
// infinite otherwise.
func relativeChange(a, b int64) float64 {
	if a == 0 {
		if b == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(float64(b-a)) / float64(a)
}
