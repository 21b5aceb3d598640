package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/internal/store"
	"github.com/huangsam/backupwatch/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyStore is opened by historySetup for status and export.
var historyStore contract.HistoryStore

// historyBackendConfig reads and validates the history backend settings.
func historyBackendConfig() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	backend := schema.DatabaseBackend(strings.ToLower(viper.GetString("history-backend")))
	if backend == "" {
		backend = schema.NoneBackend
	}
	connStr := viper.GetString("history-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// historySetup loads the minimal configuration and opens the history store.
// It skips the metadata and backend setup that analyses need.
func historySetup(_ *cobra.Command, _ []string) error {
	if err := historyBackendConfig(); err != nil {
		return err
	}
	hs, err := store.NewHistoryStore(cfg.HistoryBackend, cfg.HistoryDBConnect)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	historyStore = hs
	return nil
}

// historyMigrateSetup validates the backend without creating tables,
// so that migrations can run on a fresh database.
func historyMigrateSetup(_ *cobra.Command, _ []string) error {
	if err := historyBackendConfig(); err != nil {
		return err
	}
	if cfg.HistoryBackend == schema.SQLiteBackend && cfg.HistoryDBConnect == "" {
		cfg.HistoryDBConnect = contract.GetHistoryDBFilePath()
	}
	return nil
}

func closeHistory() {
	if historyStore != nil {
		_ = historyStore.Close()
	}
}

// historyCmd groups the run history commands.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the local record of analysis runs and their alerts",
	Long: `When --history-backend is set, every run and every alert it produced is recorded.
The newest recorded alert also serves as a fallback watermark when the backend has none.

Supported backends: SQLite, MySQL, PostgreSQL, or None (default, disabled)

Subcommands:
  status  - Show run history statistics
  export  - Export runs and alerts to Parquet
  clear   - Remove all run history
  migrate - Run database schema migrations`,
}

var historyStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display run history statistics and connection details",
	PreRunE: historySetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		defer closeHistory()
		status, err := historyStore.GetStatus()
		if err != nil {
			return fmt.Errorf("failed to get history status: %w", err)
		}
		store.PrintHistoryStatus(os.Stdout, status)
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export runs and alerts to Parquet for BI tools",
	Long: `Write <output-file>.runs.parquet and <output-file>.alerts.parquet.

Examples:
  backupwatch history export --history-backend sqlite --output-file backupwatch`,
	PreRunE: historySetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		defer closeHistory()
		return store.ExportHistory(os.Stdout, historyStore, cfg.OutputFile)
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all run history",
	Long: `Delete every recorded run and alert. For SQLite the database file is removed,
for MySQL and PostgreSQL the history tables are dropped.

WARNING: This action cannot be undone. Consider exporting data first.`,
	PreRunE: historyMigrateSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := store.ClearHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, cfg.HistoryDBConnect); err != nil {
			return fmt.Errorf("failed to clear run history: %w", err)
		}
		fmt.Println("Run history cleared successfully.")
		return nil
	},
}

var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply run history schema migrations",
	Long: `Apply the embedded schema migrations to the history database.

Examples:
  # Migrate to the latest version
  backupwatch history migrate --history-backend postgresql --history-db-connect "host=... dbname=..."

  # Roll back every migration
  backupwatch history migrate --target-version 0`,
	PreRunE: historyMigrateSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		target := viper.GetInt("target-version")
		if err := store.MigrateHistory(os.Stdout, cfg.HistoryBackend, cfg.HistoryDBConnect, target); err != nil {
			return err
		}
		fmt.Println("Migrations applied successfully.")
		return nil
	},
}
