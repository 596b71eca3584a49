package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/blogem/people-directory/database"
	"github.com/blogem/people-directory/models"
)

// RecordRepository interface defines record database operations
type RecordRepository interface {
	Get(ctx context.Context, id int64) (*models.Record, error)
	Create(ctx context.Context, values models.Values) (*models.Record, error)
	Insert(ctx context.Context, id int64, values models.Values) error
	UpdateRaw(ctx context.Context, id int64, values models.Values) (int64, error)
	Search(ctx context.Context, query models.SearchQuery) (*models.SearchResult, error)
	Report(ctx context.Context, filter models.ReportFilter) ([]*models.Record, error)
	All(ctx context.Context) ([]*models.Record, error)
	MaxID(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
	Replace(ctx context.Context, columns []string, rows []models.Values) error
}

// recordRepository implements RecordRepository interface
type recordRepository struct {
	q      database.Querier
	schema SchemaEvolver
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(q database.Querier, schema SchemaEvolver) RecordRepository {
	return &recordRepository{q: q, schema: schema}
}

// Get returns the record with the given id. A missing id yields a record
// holding only the identifier rather than an error.
func (r *recordRepository) Get(ctx context.Context, id int64) (*models.Record, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT * FROM people WHERE rowNumber = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return models.NewRecord(id), nil
	}
	return records[0], nil
}

// Create assigns the next identifier and inserts the record
func (r *recordRepository) Create(ctx context.Context, values models.Values) (*models.Record, error) {
	max, err := r.MaxID(ctx)
	if err != nil {
		return nil, err
	}
	id := max + 1

	if err := r.Insert(ctx, id, values); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Insert writes a record under an explicit identifier, adding missing columns first
func (r *recordRepository) Insert(ctx context.Context, id int64, values models.Values) error {
	names := values.Names()
	if _, err := r.schema.EnsureColumns(ctx, names); err != nil {
		return err
	}

	cols := []string{database.QuoteIdent(database.IDColumn)}
	marks := []string{"?"}
	args := []any{id}
	for _, name := range names {
		cols = append(cols, database.QuoteIdent(name))
		marks = append(marks, "?")
		args = append(args, nullable(values[name]))
	}

	query := fmt.Sprintf("INSERT INTO people (%s) VALUES (%s)", strings.Join(cols, ", "), strings.Join(marks, ", "))
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert record %d: %w", id, err)
	}
	return nil
}

// UpdateRaw writes values to the record in one statement, adding missing
// columns first. No normalization or policy is applied. It returns the
// number of rows affected, zero for an unknown id.
func (r *recordRepository) UpdateRaw(ctx context.Context, id int64, values models.Values) (int64, error) {
	names := values.Names()
	filtered := names[:0]
	for _, n := range names {
		if n != database.IDColumn {
			filtered = append(filtered, n)
		}
	}
	if len(filtered) == 0 {
		return 0, ErrNoOpWrite
	}

	if _, err := r.schema.EnsureColumns(ctx, filtered); err != nil {
		return 0, err
	}

	sets := make([]string, 0, len(filtered))
	args := make([]any, 0, len(filtered)+1)
	for _, name := range filtered {
		sets = append(sets, database.QuoteIdent(name)+" = ?")
		args = append(args, nullable(values[name]))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE people SET %s WHERE rowNumber = ?", strings.Join(sets, ", "))
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update record %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// searchColumns maps a scope to its candidate columns
var searchColumns = map[string][]string{
	models.ScopeUC:       {"UC", "Uc"},
	models.ScopePP:       {"PP", "Pp"},
	models.ScopeLocality: {"Locality", "LocalityName"},
}

// Search returns one page of records ordered by identifier plus the total match count
func (r *recordRepository) Search(ctx context.Context, query models.SearchQuery) (*models.SearchResult, error) {
	query.Normalize()
	q := strings.TrimSpace(query.Query)

	var where string
	var args []any
	if q != "" {
		live, err := r.schema.Columns(ctx)
		if err != nil {
			return nil, err
		}

		var candidates []string
		if cols, ok := searchColumns[query.Scope]; ok {
			candidates = cols
		} else {
			candidates = live
		}

		var conds []string
		for _, c := range candidates {
			if c == database.IDColumn || !containsColumn(live, c) {
				continue
			}
			conds = append(conds, database.QuoteIdent(c)+" LIKE ?")
			args = append(args, "%"+q+"%")
		}
		if len(conds) == 0 {
			return &models.SearchResult{Items: []*models.Record{}}, nil
		}
		where = " WHERE " + strings.Join(conds, " OR ")
	}

	var total int64
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM people"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	pageArgs := append(append([]any{}, args...), *query.Limit, query.Offset)
	rows, err := r.q.QueryContext(ctx, "SELECT * FROM people"+where+" ORDER BY rowNumber LIMIT ? OFFSET ?", pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to search records: %w", err)
	}
	defer rows.Close()

	items, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	return &models.SearchResult{Total: total, Items: items}, nil
}

// Report returns records matching the activity filter, newest identifier first
func (r *recordRepository) Report(ctx context.Context, filter models.ReportFilter) ([]*models.Record, error) {
	live, err := r.schema.Columns(ctx)
	if err != nil {
		return nil, err
	}

	var conds []string
	var args []any

	addRange := func(column, from, to string) {
		if !containsColumn(live, column) {
			return
		}
		if from != "" {
			conds = append(conds, database.QuoteIdent(column)+" >= ?")
			args = append(args, from)
		}
		if to != "" {
			conds = append(conds, database.QuoteIdent(column)+" <= ?")
			args = append(args, to)
		}
	}
	addLike := func(value string, candidates []string) {
		v := strings.TrimSpace(value)
		if v == "" {
			return
		}
		var ors []string
		for _, c := range candidates {
			if containsColumn(live, c) {
				ors = append(ors, database.QuoteIdent(c)+" LIKE ?")
				args = append(args, "%"+v+"%")
			}
		}
		if len(ors) > 0 {
			conds = append(conds, "("+strings.Join(ors, " OR ")+")")
		}
	}

	addRange("CallDate", filter.CalledFrom, filter.CalledTo)
	addRange("VisitDate", filter.VisitedFrom, filter.VisitedTo)
	addLike(filter.UC, searchColumns[models.ScopeUC])
	addLike(filter.PP, searchColumns[models.ScopePP])
	addLike(filter.Locality, searchColumns[models.ScopeLocality])

	if filter.ByUser != "" || filter.ModifiedFrom != "" || filter.ModifiedTo != "" {
		auditConds := []string{"action = ?"}
		args = append(args, models.ActionUpdate)
		if filter.ByUser != "" {
			auditConds = append(auditConds, "[user] = ?")
			args = append(args, filter.ByUser)
		}
		if filter.ModifiedFrom != "" {
			auditConds = append(auditConds, "ts >= ?")
			args = append(args, filter.ModifiedFrom)
		}
		if filter.ModifiedTo != "" {
			auditConds = append(auditConds, "ts <= ?")
			args = append(args, filter.ModifiedTo)
		}
		conds = append(conds, "rowNumber IN (SELECT rowNumber FROM audit WHERE "+strings.Join(auditConds, " AND ")+")")
	}

	limit := models.ClampLimit(filter.Limit, models.DefaultReportLimit)

	query := "SELECT * FROM people"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY rowNumber DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run report: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// All returns every record ordered by identifier
func (r *recordRepository) All(ctx context.Context) ([]*models.Record, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT * FROM people ORDER BY rowNumber")
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// MaxID returns the highest identifier in use, zero for an empty table
func (r *recordRepository) MaxID(ctx context.Context) (int64, error) {
	var max int64
	if err := r.q.QueryRowContext(ctx, "SELECT IFNULL(MAX(rowNumber), 0) FROM people").Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to get max identifier: %w", err)
	}
	return max, nil
}

// Count returns the total number of records
func (r *recordRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM people").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// Replace drops the records table and recreates it with the given columns,
// inserting rows with identifiers 1..n in order. Callers run it inside a
// transaction so a failure leaves the previous table in place.
func (r *recordRepository) Replace(ctx context.Context, columns []string, rows []models.Values) error {
	defs := []string{database.QuoteIdent(database.IDColumn) + " INTEGER PRIMARY KEY"}
	for _, c := range columns {
		defs = append(defs, database.QuoteIdent(c)+" TEXT")
	}

	if _, err := r.q.ExecContext(ctx, "DROP TABLE IF EXISTS people"); err != nil {
		return fmt.Errorf("failed to drop records table: %w", err)
	}
	if _, err := r.q.ExecContext(ctx, fmt.Sprintf("CREATE TABLE people (%s)", strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("failed to create records table: %w", err)
	}
	if err := database.CreatePeopleIndexes(ctx, r.q, columns); err != nil {
		return err
	}

	for i, row := range rows {
		if err := r.Insert(ctx, int64(i+1), row); err != nil {
			return err
		}
	}
	return nil
}

// scanRecords reads SELECT * rows of the records table into records
func scanRecords(rows *sql.Rows) ([]*models.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	records := []*models.Record{}
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		rec := models.NewRecord(0)
		for i, col := range cols {
			if col == database.IDColumn {
				rec.ID = toInt64(raw[i])
				continue
			}
			rec.Set(col, toText(raw[i]))
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

func toText(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		s := string(t)
		return &s
	case string:
		return &t
	case int64:
		s := strconv.FormatInt(t, 10)
		return &s
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s
	}
	s := fmt.Sprint(v)
	return &s
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	case []byte:
		n, _ := strconv.ParseInt(string(t), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	}
	return 0
}

func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func containsColumn(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}
