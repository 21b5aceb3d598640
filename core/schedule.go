package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/huangsam/backupwatch/core/algo"
	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/internal/metrics"
	"github.com/huangsam/backupwatch/schema"
	"go.uber.org/zap"
)

// ScheduleInput is everything one schedule analysis needs.
type ScheduleInput struct {
	Records    []schema.BackupRecord
	Schedules  []schema.Schedule
	Events     []schema.TaskEvent
	AlertLimit int
	Start      time.Time // emit only for slots whose predecessor is at or after Start
	Stop       time.Time // zero means now
}

// ScheduleError reports a schedule that could not be analyzed for a task.
type ScheduleError struct {
	Task     string
	Schedule string
	Err      error
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("task %q schedule %q: %v", e.Task, e.Schedule, e.Err)
}

func (e *ScheduleError) Unwrap() error { return e.Err }

// pairOutcome is the result of one (task, schedule) pair.
type pairOutcome struct {
	index   int
	alerts  []schema.Alert
	skipped *ScheduleError
}

// RunScheduleAnalysis loads the metadata, resolves the start boundary and
// runs AnalyzeSchedules.
func RunScheduleAnalysis(ctx context.Context, env *Env, cfg *contract.Config) (schema.AnalysisResult, error) {
	snap, err := LoadMetadata(ctx, env.Metadata)
	if err != nil {
		return schema.AnalysisResult{}, err
	}
	start, err := resolveStart(ctx, env, snap.Records, schema.ScheduleAlertKinds, cfg.Start)
	if err != nil {
		return schema.AnalysisResult{}, err
	}
	return AnalyzeSchedules(ctx, env, ScheduleInput{
		Records:    snap.Records,
		Schedules:  snap.Schedules,
		Events:     snap.Events,
		AlertLimit: cfg.AlertLimit,
		Start:      start,
		Stop:       cfg.Stop,
	})
}

// AnalyzeSchedules checks every (task, schedule) pair against its recurrence,
// then sorts, limits and dispatches the alerts. Count is the number dispatched.
func AnalyzeSchedules(ctx context.Context, env *Env, in ScheduleInput) (schema.AnalysisResult, error) {
	started := time.Now()
	if err := ctx.Err(); err != nil {
		return schema.AnalysisResult{}, err
	}
	if in.Stop.IsZero() {
		in.Stop = started
	}

	ctx = beginRun(ctx, env, schema.ScheduleAnalysis, map[string]any{
		"alert_limit": in.AlertLimit,
		"start":       in.Start,
		"stop":        in.Stop,
		"workers":     env.workers(),
	})

	pairs := algo.Pairs(algo.GroupByTask(in.Records), algo.UsedSchedules(in.Events))
	defs := make(map[string]schema.Schedule, len(in.Schedules))
	for _, s := range in.Schedules {
		defs[s.Name] = s
	}

	outcomes := analyzePairs(ctx, env, pairs, defs, in.Start, in.Stop)
	if err := ctx.Err(); err != nil {
		return schema.AnalysisResult{}, fmt.Errorf("schedule analysis canceled: %w", err)
	}

	perPair := make([][]schema.Alert, len(pairs))
	var skipped []string
	for _, o := range outcomes {
		perPair[o.index] = o.alerts
		if o.skipped != nil {
			skipped = append(skipped, o.skipped.Error())
		}
	}

	kept, batches := algo.Assemble(perPair, in.AlertLimit)
	if sent, err := dispatchSchedule(ctx, env.Sink, batches); err != nil {
		abortRun(ctx, env, started, scheduleRows(sent), err)
		return schema.AnalysisResult{}, err
	}

	rows := scheduleRows(kept)
	finishRun(ctx, env, started, rows)

	result := newResult(schema.ScheduleAnalysis, rows, in.Start, in.Stop)
	result.Skipped = skipped
	return result, nil
}

// analyzePairs runs the pairs on a pool of env.Workers goroutines. Outcomes
// are indexed by pair so that the merge is independent of scheduling.
func analyzePairs(ctx context.Context, env *Env, pairs []algo.Pair, defs map[string]schema.Schedule, start, stop time.Time) []pairOutcome {
	pairCh := make(chan int, len(pairs))
	outcomeCh := make(chan pairOutcome, len(pairs))
	var wg sync.WaitGroup

	for range env.workers() {
		wg.Go(func() {
			for i := range pairCh {
				if ctx.Err() != nil {
					env.Metrics.ObserveSkip(metrics.ReasonCanceled)
					continue
				}
				outcomeCh <- analyzePair(env, i, pairs[i], defs, start, stop)
			}
		})
	}

	for i := range pairs {
		pairCh <- i
	}
	close(pairCh)

	wg.Wait()
	close(outcomeCh)

	outcomes := make([]pairOutcome, 0, len(pairs))
	for o := range outcomeCh {
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// analyzePair resolves the recurrence of one pair and walks its slots.
func analyzePair(env *Env, index int, p algo.Pair, defs map[string]schema.Schedule, start, stop time.Time) pairOutcome {
	out := pairOutcome{index: index}
	log := env.logger().With(zap.String("task", p.Task), zap.String("schedule", p.Schedule))

	def, ok := defs[p.Schedule]
	if !ok {
		log.Warn("schedule definition not found, skipping")
		env.Metrics.ObserveSkip(metrics.ReasonNoDefinition)
		return out
	}

	rec, err := algo.NewRecurrence(def)
	switch {
	case errors.Is(err, algo.ErrUnsupportedBase):
		log.Warn("unsupported schedule base, skipping", zap.String("base", string(def.Base)))
		env.Metrics.ObserveSkip(metrics.ReasonUnsupportedBase)
		return out
	case errors.Is(err, algo.ErrNoWeekdays):
		env.Metrics.ObserveSkip(metrics.ReasonNoWeekdays)
		out.skipped = &ScheduleError{Task: p.Task, Schedule: p.Schedule, Err: err}
		return out
	case err != nil:
		env.Metrics.ObserveSkip(metrics.ReasonInvalidCount)
		out.skipped = &ScheduleError{Task: p.Task, Schedule: p.Schedule, Err: err}
		return out
	}

	if anchorErr := rec.AnchorErr(); anchorErr != nil {
		log.Warn("ignoring malformed anchor", zap.Error(anchorErr))
	}

	out.alerts = algo.MatchSchedule(rec, p.Task, p.Records, start, stop)
	env.Metrics.ObservePair()
	return out
}

// dispatchSchedule sends creation-date alerts in one batch and the other
// kinds one call per alert. It returns the alerts the sink accepted, also
// when a later call fails.
func dispatchSchedule(ctx context.Context, sink contract.AlertSink, b algo.Batches) ([]schema.Alert, error) {
	sent := make([]schema.Alert, 0, b.Len())
	if len(b.CreationDate) > 0 {
		if err := sink.SubmitCreationDateAlerts(ctx, b.CreationDate); err != nil {
			return sent, fmt.Errorf("failed to submit creation date alerts: %w", err)
		}
		for _, a := range b.CreationDate {
			sent = append(sent, a)
		}
	}
	for _, a := range b.Missing {
		if err := sink.SubmitMissingBackupAlert(ctx, a); err != nil {
			return sent, fmt.Errorf("failed to submit missing backup alert: %w", err)
		}
		sent = append(sent, a)
	}
	for _, a := range b.Additional {
		if err := sink.SubmitAdditionalBackupAlert(ctx, a); err != nil {
			return sent, fmt.Errorf("failed to submit additional backup alert: %w", err)
		}
		sent = append(sent, a)
	}
	return sent, nil
}

func scheduleRows(alerts []schema.Alert) []schema.AlertRow {
	rows := make([]schema.AlertRow, len(alerts))
	for i, a := range alerts {
		rows[i] = schema.RowOf(a)
	}
	return rows
}
