package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// kindOrder fixes the order of kinds in summaries.
var kindOrder = []schema.AlertKind{
	schema.CreationDateKind,
	schema.MissingBackupKind,
	schema.AdditionalBackupKind,
	schema.SizeKind,
	schema.StorageFillKind,
}

type tableOptions struct {
	nameWidth int
	workers   int
	dryRun    bool
	duration  time.Duration
}

// writeAlertTable generates and writes the human-readable table.
func writeAlertTable(w io.Writer, result schema.AnalysisResult, opts tableOptions) error {
	if result.Analysis == schema.SyncAnalysis {
		if _, err := fmt.Fprintf(w, "Sent %d backup records\n", result.Count); err != nil {
			return err
		}
		return writeFooter(w, opts)
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Kind", "Task", "Schedule", "Backup", "Event", "Expected"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	data := make([][]string, 0, len(result.Alerts))
	for i, a := range result.Alerts {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			contract.GetColorLabel(a.Kind),
			contract.TruncateText(a.Task, opts.nameWidth),
			contract.TruncateText(a.Schedule, opts.nameWidth),
			a.BackupID,
			a.EventTime.Format(contract.DateTimeFormat),
			formatReference(a.ReferenceTime),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Dispatched %d alerts (%s)\n", result.Count, summarizeKinds(result.ByKind)); err != nil {
		return err
	}
	if !result.Start.IsZero() {
		if _, err := fmt.Fprintf(w, "Window: %s to %s\n", result.Start.Format(contract.DateTimeFormat), result.Stop.Format(contract.DateTimeFormat)); err != nil {
			return err
		}
	}
	for _, s := range result.Skipped {
		if _, err := fmt.Fprintf(w, "Skipped %s\n", s); err != nil {
			return err
		}
	}
	return writeFooter(w, opts)
}

func writeFooter(w io.Writer, opts tableOptions) error {
	mode := "live"
	if opts.dryRun {
		mode = "dry run"
	}
	_, err := fmt.Fprintf(w, "Analysis completed in %v with %d workers (%s)\n", opts.duration, opts.workers, mode)
	return err
}

// summarizeKinds renders counts per kind, e.g. "CreationDate: 2, Missing: 1".
func summarizeKinds(byKind map[schema.AlertKind]int) string {
	var parts []string
	for _, kind := range kindOrder {
		if n := byKind[kind]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", contract.GetPlainLabel(kind), n))
		}
	}
	// Kinds outside the known set still get counted
	var extra []string
	for kind, n := range byKind {
		if n > 0 && !slices.Contains(kindOrder, kind) {
			extra = append(extra, fmt.Sprintf("%s: %d", kind, n))
		}
	}
	slices.Sort(extra)
	parts = append(parts, extra...)

	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func formatReference(ref *time.Time) string {
	if ref == nil {
		return "-"
	}
	return ref.Format(contract.DateTimeFormat)
}

// writeAlertCSV writes alert rows in CSV format.
func writeAlertCSV(w io.Writer, alerts []schema.AlertRow) error {
	header := []string{"rank", "kind", "task", "schedule", "backup_id", "event_time", "reference_time"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, a := range alerts {
			ref := ""
			if a.ReferenceTime != nil {
				ref = a.ReferenceTime.Format(contract.DateTimeFormat)
			}
			rec := []string{
				strconv.Itoa(i + 1),
				contract.GetPlainLabel(a.Kind),
				a.Task,
				a.Schedule,
				a.BackupID,
				a.EventTime.Format(contract.DateTimeFormat),
				ref,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
