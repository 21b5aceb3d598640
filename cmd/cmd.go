// Package cmd defines the command-line interface for backupwatch.
package cmd

import (
	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(sizeCmd)
	rootCmd.AddCommand(storageCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(historyCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultAlertLimit, "Maximum number of alerts to send (-1 for all)")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().String("start", "", "Only alert on events after this date (RFC 3339 or time ago); default is the backend watermark")
	rootCmd.PersistentFlags().String("stop", "", "Stop walking schedules at this date (RFC 3339 or time ago); default is now")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to (.gz or .zst compresses)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("metadata-backend", string(schema.PostgreSQLBackend), "Metadata database: sqlite or mysql or postgresql")
	rootCmd.PersistentFlags().String("metadata-db-connect", "", "Metadata connection string (postgresql defaults to DATABASE_* variables)")
	rootCmd.PersistentFlags().String("history-backend", string(schema.NoneBackend), "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Run history connection string (must differ from metadata-db-connect)")
	rootCmd.PersistentFlags().String("backend-url", contract.DefaultBackendURL, "Base URL of the alerting backend")
	rootCmd.PersistentFlags().String("backend-timeout", contract.DefaultBackendTimeout.String(), "Timeout of one backend request")
	rootCmd.PersistentFlags().Float64("backend-rate", 0, "Backend requests per second (0 is unlimited)")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Analyze without sending anything to the backend")
	rootCmd.PersistentFlags().String("metrics-file", "", "Write run metrics in node-exporter textfile format")
	rootCmd.PersistentFlags().String("metrics-push-url", "", "Push run metrics to this Pushgateway")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this rotating file")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of sizeCmd to Viper
	sizeCmd.Flags().Float64("size-threshold-full", contract.DefaultSizeThreshold, "Relative size change that alerts for full backups")
	sizeCmd.Flags().Float64("size-threshold-inc", contract.DefaultSizeThreshold, "Relative size change that alerts for incremental backups")
	sizeCmd.Flags().Float64("size-threshold-diff", contract.DefaultSizeThreshold, "Relative size change that alerts for differential backups")
	sizeCmd.Flags().Float64("size-threshold-copy", contract.DefaultSizeThreshold, "Relative size change that alerts for copy backups")
	if err := viper.BindPFlags(sizeCmd.Flags()); err != nil {
		contract.LogFatal("Error binding size flags", err)
	}

	// Bind all flags of syncCmd to Viper
	syncCmd.Flags().Int("batch-size", contract.DefaultBatchSize, "Backup records per request")
	syncCmd.Flags().Bool("incremental", false, "Only send backups newer than the backend's latest")
	if err := viper.BindPFlags(syncCmd.Flags()); err != nil {
		contract.LogFatal("Error binding sync flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("listen", contract.DefaultListenAddr, "Address the trigger API listens on")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
