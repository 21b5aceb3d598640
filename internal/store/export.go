package store

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/internal/parquet"
)

// ExportHistory writes the runs and alerts of a history store to Parquet files
// named <outputFile>.runs.parquet and <outputFile>.alerts.parquet.
func ExportHistory(w io.Writer, hs contract.HistoryStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := hs.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total alerts: %d\n", status.TotalAlerts)

	runs, err := hs.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	alerts, err := hs.GetAllAlerts()
	if err != nil {
		return fmt.Errorf("failed to retrieve alerts: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteRunsParquet(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(runs), runsFile)

	alertsFile := outputFile + ".alerts.parquet"
	if err := parquet.WriteAlertsParquet(parquet.ConvertAlertRecords(alerts), alertsFile); err != nil {
		return fmt.Errorf("failed to write alerts: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d alerts to: %s\n", len(alerts), alertsFile)

	_, _ = fmt.Fprintln(w, "\nExport complete! The Parquet files can be used with:")
	_, _ = fmt.Fprintln(w, "  - DuckDB")
	_, _ = fmt.Fprintln(w, "  - Pandas (via pyarrow)")
	_, _ = fmt.Fprintln(w, "  - Any other Parquet-compatible tool")
	return nil
}
