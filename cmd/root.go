package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/backupwatch/core"
	"github.com/huangsam/backupwatch/internal/backend"
	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/internal/metrics"
	"github.com/huangsam/backupwatch/internal/store"
	"github.com/huangsam/backupwatch/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// env is built by sharedSetup and released by Shutdown.
var env *core.Env

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "backupwatch",
	Short: "Check backup metadata against schedules and raise alerts.",
	Long: `Backupwatch reads backup metadata, compares every task against the schedule it runs under,
and reports late, missing and additional backups to the alerting backend.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Set environment variable prefix
	viper.SetEnvPrefix("BACKUPWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("limit", contract.DefaultAlertLimit)
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("output", string(schema.TextOut))
	viper.SetDefault("color", "yes")
	viper.SetDefault("metadata-backend", string(schema.PostgreSQLBackend))
	viper.SetDefault("metadata-db-connect", "")
	viper.SetDefault("history-backend", string(schema.NoneBackend))
	viper.SetDefault("history-db-connect", "")
	viper.SetDefault("backend-url", contract.DefaultBackendURL)
	viper.SetDefault("backend-timeout", contract.DefaultBackendTimeout.String())
	viper.SetDefault("log-level", "info")
	viper.SetDefault("listen", contract.DefaultListenAddr)
	viper.SetDefault("batch-size", contract.DefaultBatchSize)
}

// loadConfigFile handles config file loading logic common to all setup functions.
func loadConfigFile() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".backupwatch") // Name of config file (without extension)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// sharedSetup unmarshals config, runs validation and builds the environment.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	color.NoColor = !cfg.UseColors

	// 4. Build the environment the analyses run against.
	built, err := buildEnv(cfg)
	if err != nil {
		return err
	}
	env = built
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// buildEnv opens the logger, the metadata store, the alert backend and the history store.
func buildEnv(c *contract.Config) (*core.Env, error) {
	logger, err := contract.NewLogger(contract.LogConfig{Level: c.LogLevel, File: c.LogFile})
	if err != nil {
		return nil, err
	}

	metadata, err := store.NewMetadataStore(c.MetadataBackend, c.MetadataDBConnect)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store (%s): %w", c.MetadataBackend, err)
	}

	e := &core.Env{
		Logger:   logger,
		Metadata: metadata,
		Metrics:  metrics.New(),
		Workers:  c.Workers,
	}

	if c.DryRun {
		nop := &backend.NopSink{}
		e.Sink, e.Watermark = nop, nop
		logger.Info("dry run, alerts are not sent")
	} else {
		client, err := backend.NewClient(c.BackendURL, c.BackendTimeout, c.BackendRate)
		if err != nil {
			_ = metadata.Close()
			return nil, err
		}
		e.Sink, e.Watermark = client, client
	}

	if c.HistoryBackend != schema.NoneBackend {
		history, err := store.NewHistoryStore(c.HistoryBackend, c.HistoryDBConnect)
		if err != nil {
			// Run history is optional; the analysis still runs without it.
			logger.Warn("run history disabled", zap.String("backend", string(c.HistoryBackend)), zap.Error(err))
		} else {
			e.History = history
		}
	}
	return e, nil
}

// flushMetrics writes or pushes the run metrics when configured.
func flushMetrics() {
	if env == nil || env.Metrics == nil {
		return
	}
	if err := env.Metrics.Flush(rootCtx, cfg.MetricsFile, cfg.MetricsPushURL); err != nil {
		env.Logger.Warn("failed to flush metrics", zap.Error(err))
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Shutdown releases the stores and flushes the logger.
func Shutdown() {
	if env == nil {
		return
	}
	if env.Metadata != nil {
		_ = env.Metadata.Close()
	}
	if env.History != nil {
		_ = env.History.Close()
	}
	if env.Logger != nil {
		_ = env.Logger.Sync()
	}
}
