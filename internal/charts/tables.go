package charts

import (
	"regexp"
	"strconv"
	"strings"

	"insightchat-backend/internal/models"
)

var (
	separatorRow   = regexp.MustCompile(`^\|?[\s:|-]*-[\s:|-]*$`)
	isoDatePrefix  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	currencyPrefix = regexp.MustCompile(`^[-+]?\s?[$€£¥₹]`)
)

// ExtractTables finds pipe-delimited markdown tables: a header row, a
// separator row and at least one data row.
func ExtractTables(text string) []models.Table {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var tables []models.Table

	for i := 0; i+2 < len(lines); i++ {
		if !isPipeRow(lines[i]) || !isSeparatorRow(lines[i+1]) || !isPipeRow(lines[i+2]) {
			continue
		}

		t := models.Table{Headers: splitRow(lines[i])}
		j := i + 2
		for ; j < len(lines) && isPipeRow(lines[j]) && !isSeparatorRow(lines[j]); j++ {
			cells := splitRow(lines[j])
			hints := make([]models.CellHint, len(cells))
			for k, cell := range cells {
				hints[k] = ClassifyCell(cell)
			}
			t.Rows = append(t.Rows, cells)
			t.Hints = append(t.Hints, hints)
		}
		tables = append(tables, t)
		i = j - 1
	}
	return tables
}

// ClassifyCell returns a display hint for a cell. It never changes the text.
func ClassifyCell(cell string) models.CellHint {
	s := strings.TrimSpace(cell)
	switch {
	case s == "":
		return models.CellText
	case currencyPrefix.MatchString(s):
		return models.CellCurrency
	case isoDatePrefix.MatchString(s):
		return models.CellDate
	case isNumericCell(s):
		return models.CellNumeric
	}
	return models.CellText
}

func isNumericCell(s string) bool {
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

func isPipeRow(line string) bool {
	return strings.Contains(strings.TrimSpace(line), "|")
}

func isSeparatorRow(line string) bool {
	s := strings.TrimSpace(line)
	return strings.Contains(s, "|") && separatorRow.MatchString(s)
}

// splitRow splits on '|' and drops the empty cells created by a leading or
// trailing pipe. Empty cells in the middle are kept.
func splitRow(line string) []string {
	s := strings.TrimSpace(line)
	cells := strings.Split(s, "|")
	if strings.HasPrefix(s, "|") && len(cells) > 0 {
		cells = cells[1:]
	}
	if strings.HasSuffix(s, "|") && len(cells) > 0 {
		cells = cells[:len(cells)-1]
	}
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}
