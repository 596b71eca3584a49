package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/blogem/people-directory/metrics"
	"github.com/blogem/people-directory/models"
	"github.com/blogem/people-directory/repositories"
)

// preservedFields are the working fields whose recent edits survive a rebuild
var preservedFields = []string{"Called", "Visited", "ConfirmedVoter"}

// workingColumns are always present after a preserving rebuild
var workingColumns = []string{
	"LAWYERNAME", "PHONE", "ADDRESS", "LocalityName", "Alias", "PP", "UC",
	"Comments", "Called", "CallDate", "Visited", "VisitDate", "ConfirmedVoter",
	"LawyerForum", "ID", "new ID",
}

// ImportOptions tunes a bulk import
type ImportOptions struct {
	// PreserveSince keeps the stored rows of lawyers whose call, visit or
	// voter fields were edited at or after this time. Empty disables it.
	PreserveSince string
}

// ImportService interface defines the spreadsheet workflows
type ImportService interface {
	Import(ctx context.Context, filename string, r io.Reader, opts ImportOptions) (*models.ImportResult, error)
	AppendMissing(ctx context.Context, filename string, r io.Reader) (int, error)
	Crosscheck(ctx context.Context, filename string, r io.Reader) (*models.CrosscheckReport, error)
}

type importService struct {
	repos  *repositories.Repositories
	logger *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(repos *repositories.Repositories, logger *slog.Logger) ImportService {
	return &importService{repos: repos, logger: logger}
}

// Import replaces the records table with the spreadsheet contents in one
// transaction and refreshes the locality codes it mentions. On failure the
// previous table is left untouched.
func (s *importService) Import(ctx context.Context, filename string, r io.Reader, opts ImportOptions) (*models.ImportResult, error) {
	result, err := s.runImport(ctx, filename, r, opts)
	if err != nil {
		metrics.Imports.WithLabelValues("failed").Inc()
		s.logger.Error("import failed", "file", filename, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrImportFailure, err)
	}

	metrics.Imports.WithLabelValues("ok").Inc()
	s.logger.Info("import complete", "file", filename, "sheet", result.Sheet, "rows", result.Count, "preserved", result.Preserved)
	return result, nil
}

func (s *importService) runImport(ctx context.Context, filename string, r io.Reader, opts ImportOptions) (*models.ImportResult, error) {
	t, err := readTable(filename, r)
	if err != nil {
		return nil, err
	}
	if len(t.Rows) == 0 {
		return nil, fmt.Errorf("sheet %q has no data rows", t.Sheet)
	}

	var since string
	if strings.TrimSpace(opts.PreserveSince) != "" {
		if since, err = parseBound(opts.PreserveSince, false); err != nil {
			return nil, err
		}
	}

	result := &models.ImportResult{Sheet: t.Sheet}
	err = s.repos.WithinTx(ctx, func(tx *repositories.Repositories) error {
		columns, rows := t.Columns, t.Rows
		if since != "" {
			var preserved int
			columns, rows, preserved, err = mergePreserved(ctx, tx, t, since)
			if err != nil {
				return err
			}
			result.Preserved = preserved
		}

		if err := tx.Records.Replace(ctx, columns, rows); err != nil {
			return err
		}
		for _, loc := range rowLocalities(t.Rows) {
			if err := tx.Localities.UpsertCodes(ctx, loc); err != nil {
				return err
			}
		}

		result.Count = len(rows)
		result.Columns = columns
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// mergePreserved builds the rebuilt table: one row per distinct lawyer in
// spreadsheet order, taken from the database for lawyers whose preserved
// fields were edited since the cutoff and from the spreadsheet otherwise.
func mergePreserved(ctx context.Context, tx *repositories.Repositories, t *table, since string) ([]string, []models.Values, int, error) {
	columns := append([]string{}, t.Columns...)
	have := map[string]bool{}
	for _, c := range columns {
		have[strings.ToLower(c)] = true
	}
	for _, c := range workingColumns {
		if !have[strings.ToLower(c)] {
			have[strings.ToLower(c)] = true
			columns = append(columns, c)
		}
	}

	touched, err := tx.Audit.RowsTouched(ctx, since, preservedFields)
	if err != nil {
		return nil, nil, 0, err
	}
	touchedIDs := make(map[int64]bool, len(touched))
	for _, id := range touched {
		touchedIDs[id] = true
	}

	stored, err := tx.Records.All(ctx)
	if err != nil {
		return nil, nil, 0, err
	}
	byName := map[string]*models.Record{}
	for _, rec := range stored {
		key := nameKey(rec.Values())
		if key == "" || byName[key] != nil {
			continue
		}
		byName[key] = rec
	}

	var rows []models.Values
	preserved := 0
	seen := map[string]bool{}
	for _, row := range t.Rows {
		key := nameKey(row)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		rec := byName[key]
		if rec == nil || !touchedIDs[rec.ID] {
			rows = append(rows, row)
			continue
		}

		current := rec.Values()
		kept := models.Values{}
		for _, c := range columns {
			v, ok := current[c]
			if !ok {
				continue
			}
			s := text(v)
			if isCodeColumn(c) {
				s = models.NormalizeCode(s)
			}
			kept[c] = models.Str(s)
		}
		rows = append(rows, kept)
		preserved++
	}
	return columns, rows, preserved, nil
}

// AppendMissing adds spreadsheet rows whose lawyer is not stored yet,
// assigning fresh identifiers. It returns the number of rows added.
func (s *importService) AppendMissing(ctx context.Context, filename string, r io.Reader) (int, error) {
	t, err := readTable(filename, r)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrImportFailure, err)
	}

	added := 0
	err = s.repos.WithinTx(ctx, func(tx *repositories.Repositories) error {
		stored, err := tx.Records.All(ctx)
		if err != nil {
			return err
		}
		known := map[string]bool{}
		for _, rec := range stored {
			known[nameKey(rec.Values())] = true
		}

		for _, row := range t.Rows {
			key := nameKey(row)
			if key == "" || known[key] {
				continue
			}
			if _, err := tx.Records.Create(ctx, row); err != nil {
				return err
			}
			known[key] = true
			added++
		}
		return nil
	})
	if err != nil {
		metrics.Imports.WithLabelValues("failed").Inc()
		return 0, fmt.Errorf("%w: %v", ErrImportFailure, err)
	}

	metrics.Imports.WithLabelValues("ok").Inc()
	s.logger.Info("appended missing rows", "file", filename, "added", added)
	return added, nil
}

// Crosscheck compares spreadsheet lawyers with stored ones by name
func (s *importService) Crosscheck(ctx context.Context, filename string, r io.Reader) (*models.CrosscheckReport, error) {
	t, err := readTable(filename, r)
	if err != nil {
		return nil, err
	}
	stored, err := s.repos.Records.All(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.CrosscheckReport{MissingKeys: []string{}}

	sheetKeys := map[string]bool{}
	var sheetOrder []string
	for _, row := range t.Rows {
		key := nameKey(row)
		if key == "" {
			continue
		}
		if sheetKeys[key] {
			report.SpreadsheetDups++
			continue
		}
		sheetKeys[key] = true
		sheetOrder = append(sheetOrder, key)
	}

	dbKeys := map[string]bool{}
	for _, rec := range stored {
		key := nameKey(rec.Values())
		if key == "" {
			continue
		}
		if dbKeys[key] {
			report.DatabaseDups++
			continue
		}
		dbKeys[key] = true
	}

	for _, key := range sheetOrder {
		if !dbKeys[key] {
			report.Missing++
			report.MissingKeys = append(report.MissingKeys, key)
		}
	}
	for key := range dbKeys {
		if !sheetKeys[key] {
			report.Extra++
		}
	}

	report.Spreadsheet = len(sheetKeys)
	report.Database = len(dbKeys)
	return report, nil
}
