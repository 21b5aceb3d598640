package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/schema"
	"go.uber.org/zap"
)

// resolveStart decides the lower bound of an analysis. An explicit override
// wins. Otherwise it is the newest of the backend watermarks, mapped to the
// start of the referenced backup, and the newest locally recorded alert.
// The zero time means everything is new.
func resolveStart(ctx context.Context, env *Env, records []schema.BackupRecord, kinds []schema.AlertKind, override time.Time) (time.Time, error) {
	if !override.IsZero() {
		return override, nil
	}

	var start time.Time
	if env.Watermark != nil {
		byID := make(map[string]time.Time, len(records))
		for _, r := range records {
			if r.HasStart() {
				byID[r.ID] = r.Start
			}
		}

		for _, kind := range kinds {
			id, err := env.Watermark.LatestAlertBackupID(ctx, kind)
			if errors.Is(err, contract.ErrNoWatermark) {
				continue
			}
			if err != nil {
				return time.Time{}, fmt.Errorf("failed to fetch watermark for %s: %w", kind, err)
			}
			if id == "" {
				continue
			}
			ts, ok := byID[id]
			if !ok {
				env.logger().Warn("watermark references an unknown backup", zap.String("kind", string(kind)), zap.String("backup_id", id))
				continue
			}
			if ts.After(start) {
				start = ts
			}
		}
	}

	if env.History != nil {
		local, err := env.History.LatestEventTime(kinds)
		if err != nil {
			env.logger().Warn("failed to read local watermark", zap.Error(err))
		} else if local.After(start) {
			start = local
		}
	}

	return start, nil
}
