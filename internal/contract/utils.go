package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/backupwatch/schema"
)

// Color variables for console output.
var (
	CreationDateColor = color.New(color.FgYellow)              // backup ran, but off schedule
	MissingColor      = color.New(color.FgRed, color.Bold)     // nothing ran at all
	AdditionalColor   = color.New(color.FgCyan)                // extra run, informational
	SizeColor         = color.New(color.FgMagenta)             // size jump
	StorageColor      = color.New(color.FgMagenta, color.Bold) // pool above its high water mark
)

var kindLabels = map[schema.AlertKind]string{
	schema.CreationDateKind:     "CreationDate",
	schema.MissingBackupKind:    "Missing",
	schema.AdditionalBackupKind: "Additional",
	schema.SizeKind:             "Size",
	schema.StorageFillKind:      "StorageFill",
}

// GetPlainLabel returns the short label of an alert kind used in tables and CSV.
func GetPlainLabel(kind schema.AlertKind) string {
	if label, ok := kindLabels[kind]; ok {
		return label
	}
	return string(kind)
}

// GetColorLabel returns a colored label for console output (table).
func GetColorLabel(kind schema.AlertKind) string {
	text := GetPlainLabel(kind)

	switch kind {
	case schema.CreationDateKind:
		return CreationDateColor.Sprint(text)
	case schema.MissingBackupKind:
		return MissingColor.Sprint(text)
	case schema.AdditionalBackupKind:
		return AdditionalColor.Sprint(text)
	case schema.SizeKind:
		return SizeColor.Sprint(text)
	case schema.StorageFillKind:
		return StorageColor.Sprint(text)
	default:
		return text
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".backupwatch_history.db"
	}
	return filepath.Join(homeDir, ".backupwatch_history.db")
}

// TruncateText shortens s to maxWidth runes with an ellipsis suffix.
// Requires maxWidth > 3 so that at least one character of content survives.
func TruncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
