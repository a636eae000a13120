package cli

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"insightchat-backend/internal/models"
)

// loadRecords reads a tabular file into records. The format follows the
// extension: .json (array of objects), .csv/.tsv (header row), .xlsx.
func loadRecords(path, sheet string) ([]models.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSONRecords(path)
	case ".csv":
		return loadDelimitedRecords(path, ',')
	case ".tsv":
		return loadDelimitedRecords(path, '\t')
	case ".xlsx", ".xlsm":
		return loadSheetRecords(path, sheet)
	default:
		return nil, fmt.Errorf("unsupported data file %q (use .json, .csv, .tsv or .xlsx)", filepath.Base(path))
	}
}

func loadJSONRecords(path string) ([]models.Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	var records []models.Record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("decode json records: %w", err)
	}
	return records, nil
}

func loadDelimitedRecords(path string, delim rune) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, row)
	}
	return rowsToRecords(header, rows), nil
}

func loadSheetRecords(path, sheet string) ([]models.Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowsToRecords(rows[0], rows[1:]), nil
}

// rowsToRecords pairs each row with the header. Short rows leave trailing
// fields unset; blank header cells get a positional name.
func rowsToRecords(header []string, rows [][]string) []models.Record {
	names := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		names[i] = h
	}

	out := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		var rec models.Record
		for i, name := range names {
			if i >= len(row) {
				break
			}
			rec.Set(name, cellValue(row[i]))
		}
		out = append(out, rec)
	}
	return out
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// cellValue types a raw cell: numbers become float64, booleans bool, blanks nil.
func cellValue(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
