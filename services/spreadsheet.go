package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/blogem/people-directory/database"
	"github.com/blogem/people-directory/models"
)

// preferredSheet is read when a workbook carries it, else the first sheet
const preferredSheet = "merged"

// droppedHeaders never make it into the records table
var droppedHeaders = map[string]bool{
	"highlightedaddress":               true,
	"status":                           true,
	strings.ToLower(database.IDColumn): true,
}

// nameKeys identify a lawyer across spreadsheets and the database
var nameKeys = []string{"LAWYERNAME", "LawyerName", "Name"}

// table is a spreadsheet reduced to its kept columns and non-blank rows
type table struct {
	Sheet   string
	Columns []string
	Rows    []models.Values
}

// readTable loads an .xlsx or .csv upload. The first row holds the headers.
func readTable(filename string, r io.Reader) (*table, error) {
	var (
		sheet string
		raw   [][]string
		err   error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		sheet = "csv"
		raw, err = readCSV(r)
	case ".xlsx", ".xlsm", "":
		sheet, raw, err = readWorkbook(r)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(filename))
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("spreadsheet has no header row")
	}

	t := &table{Sheet: sheet}
	var keep []int
	seen := map[string]bool{}
	for i, h := range raw[0] {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		key := strings.ToLower(name)
		if name == "" || droppedHeaders[key] || seen[key] {
			continue
		}
		seen[key] = true
		keep = append(keep, i)
		t.Columns = append(t.Columns, name)
	}

	for _, row := range raw[1:] {
		if isBlank(row) {
			continue
		}
		values := make(models.Values, len(keep))
		for j, idx := range keep {
			cell := ""
			if idx < len(row) {
				cell = row[idx]
			}
			col := t.Columns[j]
			if isCodeColumn(col) {
				cell = models.NormalizeCode(cell)
			}
			values[col] = models.Str(cell)
		}
		t.Rows = append(t.Rows, values)
	}
	return t, nil
}

func readWorkbook(r io.Reader) (string, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]
	for _, s := range sheets {
		if s == preferredSheet {
			sheet = s
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return sheet, rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return rows, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func isCodeColumn(name string) bool {
	return strings.EqualFold(name, models.ColumnPP) || strings.EqualFold(name, models.ColumnUC)
}

// nameKey returns the lowercased, trimmed lawyer name of a row, or ""
func nameKey(values models.Values) string {
	for _, k := range nameKeys {
		if v := values[k]; v != nil && strings.TrimSpace(*v) != "" {
			return strings.ToLower(strings.TrimSpace(*v))
		}
	}
	for col, v := range values {
		for _, k := range nameKeys {
			if strings.EqualFold(col, k) && v != nil && strings.TrimSpace(*v) != "" {
				return strings.ToLower(strings.TrimSpace(*v))
			}
		}
	}
	return ""
}

// rowLocalities collects distinct LocalityName values with their codes,
// first occurrence winning, names compared case-insensitively
func rowLocalities(rows []models.Values) []models.Locality {
	seen := map[string]bool{}
	var out []models.Locality
	for _, row := range rows {
		v := row[models.ColumnLocalityName]
		if v == nil {
			continue
		}
		name := strings.TrimSpace(*v)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, models.Locality{Name: name, PP: text(row[models.ColumnPP]), UC: text(row[models.ColumnUC])})
	}
	return out
}

func text(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
