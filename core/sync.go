package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/schema"
	"go.uber.org/zap"
)

// SyncInput is everything one backup data sync needs.
type SyncInput struct {
	Records   []schema.BackupRecord
	BatchSize int
	After     time.Time // only records created after this instant; zero sends all
}

// RunSync loads the backup records and pushes them to the backend. With
// incremental set only backups newer than the backend's latest are sent.
func RunSync(ctx context.Context, env *Env, cfg *contract.Config, incremental bool) (schema.AnalysisResult, error) {
	records, err := env.Metadata.ListBackupRecords(ctx)
	if err != nil {
		return schema.AnalysisResult{}, fmt.Errorf("failed to load backup records: %w", err)
	}

	var after time.Time
	if incremental && env.Watermark != nil {
		after, err = env.Watermark.LatestBackupDate(ctx)
		if err != nil {
			return schema.AnalysisResult{}, fmt.Errorf("failed to fetch latest synced backup: %w", err)
		}
		env.logger().Info("incremental sync", zap.Time("after", after))
	}

	return SyncBackupData(ctx, env, SyncInput{Records: records, BatchSize: cfg.BatchSize, After: after})
}

// SyncBackupData converts the full backups that carry a size and a start into
// backup data and sends them in batches. Count is the number of records sent.
func SyncBackupData(ctx context.Context, env *Env, in SyncInput) (schema.AnalysisResult, error) {
	started := time.Now()
	if err := ctx.Err(); err != nil {
		return schema.AnalysisResult{}, err
	}
	batchSize := in.BatchSize
	if batchSize <= 0 {
		batchSize = contract.DefaultBatchSize
	}
	ctx = beginRun(ctx, env, schema.SyncAnalysis, map[string]any{"batch_size": batchSize, "after": in.After})

	batch := make([]schema.BackupData, 0, batchSize)
	count := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := env.Sink.SendBackupDataBatched(ctx, batch); err != nil {
			return fmt.Errorf("failed to send backup data batch: %w", err)
		}
		count += len(batch)
		batch = make([]schema.BackupData, 0, batchSize)
		return nil
	}

	for _, r := range in.Records {
		if r.Kind != schema.FullBackup || r.DataSize == nil || !r.HasStart() {
			continue
		}
		if !in.After.IsZero() && !r.Start.After(in.After) {
			continue
		}
		batch = append(batch, schema.BackupData{
			ID:           r.ID,
			Saveset:      r.Saveset,
			SizeMB:       *r.DataSize / bytesPerMB,
			CreationDate: r.Start,
		})
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				abortRun(ctx, env, started, nil, err)
				return schema.AnalysisResult{}, err
			}
		}
	}
	if err := flush(); err != nil {
		abortRun(ctx, env, started, nil, err)
		return schema.AnalysisResult{}, err
	}

	finishRun(ctx, env, started, nil)
	result := newResult(schema.SyncAnalysis, nil, in.After, started)
	result.Count = count
	return result, nil
}
