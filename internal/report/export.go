package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/quadrant/internal/contracts"
)

// Export formats
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatXLSX  = "xlsx"
)

// SheetName is the worksheet written by WriteXLSX
const SheetName = "Quadrants"

var header = []string{"Symbol", "PE Ratio", "Net Margin %", "Quadrant", "Label", "Source", "Error"}

// Write renders results in format
func Write(w io.Writer, format string, results []contracts.ClassificationResult) error {
	switch strings.ToLower(format) {
	case FormatTable, "":
		return WriteTable(w, results)
	case FormatCSV:
		return WriteCSV(w, results)
	case FormatJSON:
		return WriteJSON(w, results)
	case FormatXLSX:
		return WriteXLSX(w, results)
	default:
		return fmt.Errorf("unknown output format %q (want table, csv, json or xlsx)", format)
	}
}

// FormatFromPath picks a format from a file extension, defaulting to CSV
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".txt":
		return FormatTable
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// WriteFile exports results to path, format chosen by extension
func WriteFile(path string, results []contracts.ClassificationResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	if err := Write(file, FormatFromPath(path), results); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteTable prints an aligned text table. Absent metrics show as "-".
func WriteTable(w io.Writer, results []contracts.ClassificationResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(header[:5], "\t"))
	fmt.Fprintln(tw, "──────\t────────\t────────────\t────────\t─────")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Symbol,
			formatOr(r.PERatio, "-"),
			formatOr(r.NetMarginPercent, "-"),
			r.Quadrant,
			r.Label,
		)
	}

	return tw.Flush()
}

// WriteCSV writes one row per result. Absent metrics are empty cells.
func WriteCSV(w io.Writer, results []contracts.ClassificationResult) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range results {
		record := []string{
			r.Symbol,
			formatOr(r.PERatio, ""),
			formatOr(r.NetMarginPercent, ""),
			string(r.Quadrant),
			r.Label,
			r.Source,
			r.Error,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteJSON writes an indented array. Absent metrics are null.
func WriteJSON(w io.Writer, results []contracts.ClassificationResult) error {
	if results == nil {
		results = []contracts.ClassificationResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// WriteXLSX writes a single-sheet workbook with the CSV header. Absent metrics are empty cells.
func WriteXLSX(w io.Writer, results []contracts.ClassificationResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for col, name := range header {
		if err := setCell(f, col+1, 1, name); err != nil {
			return err
		}
	}

	for i, r := range results {
		row := i + 2
		cells := []interface{}{r.Symbol, r.PERatio, r.NetMarginPercent, string(r.Quadrant), r.Label, r.Source, r.Error}
		for col, v := range cells {
			if err := setCell(f, col+1, row, v); err != nil {
				return err
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// setCell leaves the cell untouched for nil metrics and empty strings
func setCell(f *excelize.File, col, row int, v interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}

	switch val := v.(type) {
	case *float64:
		if val == nil {
			return nil
		}
		err = f.SetCellFloat(SheetName, cell, *val, -1, 64)
	case string:
		if val == "" {
			return nil
		}
		err = f.SetCellStr(SheetName, cell, val)
	}
	if err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}

func formatOr(v *float64, absent string) string {
	if v == nil {
		return absent
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
