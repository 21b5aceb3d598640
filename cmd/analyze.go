package cmd

import (
	"time"

	"github.com/huangsam/backupwatch/core"
	"github.com/huangsam/backupwatch/internal/outwriter"
	"github.com/huangsam/backupwatch/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runAndWrite runs one analysis, prints its result and flushes the metrics.
func runAndWrite(run func() (schema.AnalysisResult, error)) error {
	started := time.Now()
	result, err := run()
	flushMetrics()
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteResult(result, cfg, time.Since(started))
}

// scheduleCmd checks backups against their schedules.
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Check every backup task against its recurrence schedule",
	Long: `Walk the expected slots of every (task, schedule) pair and compare them with the
backups that actually ran.

Each slot produces at most:
- a creation-date alert when the nearest backup is outside the tolerance (a tenth of the interval)
- a missing-backup alert when no backup ran near the slot
- an additional-backup alert for every other backup near the slot

Only slots after the backend watermark (or --start) are reported.

Examples:
  # Analyze and send up to 10 alerts
  backupwatch schedule

  # Preview every alert of the last week without sending
  backupwatch schedule --dry-run --limit -1 --start "1 week ago"`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runAndWrite(func() (schema.AnalysisResult, error) {
			return core.RunScheduleAnalysis(rootCtx, env, cfg)
		})
	},
}

// sizeCmd checks backup sizes.
var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Find drastic size changes between consecutive backups",
	Long: `Compare each backup with the previous one of the same task and kind (full, incremental,
differential, copy) and alert when the relative change exceeds the kind's threshold.

Examples:
  # Use a stricter threshold for full backups
  backupwatch size --size-threshold-full 0.1`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runAndWrite(func() (schema.AnalysisResult, error) {
			return core.RunSizeAnalysis(rootCtx, env, cfg)
		})
	},
}

// storageCmd checks storage fill levels.
var storageCmd = &cobra.Command{
	Use:     "storage",
	Short:   "List data stores filled above their high water mark",
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runAndWrite(func() (schema.AnalysisResult, error) {
			return core.RunStorageAnalysis(rootCtx, env, cfg)
		})
	},
}

// syncCmd pushes backup data to the backend.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Send full backup sizes and dates to the alerting backend",
	Long: `Convert every full backup with a size and a start time into a backup data record and
POST them to the backend in batches of --batch-size.

With --incremental only backups newer than the backend's latest record are sent.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		incremental := viper.GetBool("incremental")
		return runAndWrite(func() (schema.AnalysisResult, error) {
			return core.RunSync(rootCtx, env, cfg, incremental)
		})
	},
}
