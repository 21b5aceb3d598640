// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"time"

	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the commands.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteResult prints an analysis result using the configured output format.
func (ow *OutWriter) WriteResult(result schema.AnalysisResult, cfg *contract.Config, duration time.Duration) error {
	return WriteAnalysisResult(result, cfg, duration)
}

// WriteAnalysisResult outputs an analysis result, dispatching based on the output format configured.
func WriteAnalysisResult(result schema.AnalysisResult, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeAlertCSV(w, result.Alerts)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeAlertTable(w, result, tableOptions{
				nameWidth: maxNameWidth(terminalWidth()),
				workers:   cfg.Workers,
				dryRun:    cfg.DryRun,
				duration:  duration,
			})
		}, "Wrote table")
	}
	return nil
}
