package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// A .gz or .zst suffix on outputFile compresses the output.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	w, closeFn, err := wrapCompression(file, outputFile)
	if err != nil {
		return err
	}
	if err := writer(w); err != nil {
		_ = closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return fmt.Errorf("failed to finish %s: %w", outputFile, err)
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// wrapCompression picks a compressor from the file suffix. The returned close
// function flushes the compressor but leaves the underlying writer open.
func wrapCompression(w io.Writer, name string) (io.Writer, func() error, error) {
	switch {
	case strings.HasSuffix(name, ".gz"):
		gz := gzip.NewWriter(w)
		return gz, gz.Close, nil
	case strings.HasSuffix(name, ".zst"):
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return enc, enc.Close, nil
	default:
		return w, func() error { return nil }, nil
	}
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if err := writeRows(csvWriter); err != nil {
		return err
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
