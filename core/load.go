package core

import (
	"context"
	"fmt"

	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/schema"
	"golang.org/x/sync/errgroup"
)

// MetadataSnapshot is what the schedule analysis reads from the metadata store.
type MetadataSnapshot struct {
	Records   []schema.BackupRecord
	Schedules []schema.Schedule
	Events    []schema.TaskEvent
}

// LoadMetadata runs the three input queries concurrently. Any failure cancels
// the others and fails the whole load.
func LoadMetadata(ctx context.Context, src contract.MetadataSource) (MetadataSnapshot, error) {
	var snap MetadataSnapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		records, err := src.ListBackupRecords(gctx)
		if err != nil {
			return fmt.Errorf("failed to load backup records: %w", err)
		}
		snap.Records = records
		return nil
	})
	g.Go(func() error {
		schedules, err := src.ListSchedules(gctx)
		if err != nil {
			return fmt.Errorf("failed to load schedules: %w", err)
		}
		snap.Schedules = schedules
		return nil
	})
	g.Go(func() error {
		events, err := src.ListTaskEvents(gctx)
		if err != nil {
			return fmt.Errorf("failed to load task events: %w", err)
		}
		snap.Events = events
		return nil
	})

	if err := g.Wait(); err != nil {
		return MetadataSnapshot{}, err
	}
	return snap, nil
}
