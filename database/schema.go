package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PeopleTable is the records table with the dynamic column set
const PeopleTable = "people"

// IDColumn is the fixed integer identifier column of the records table
const IDColumn = "rowNumber"

// Querier is satisfied by both *sql.DB and *sql.Tx
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ColumnInfo is one row of PRAGMA table_info
type ColumnInfo struct {
	Name       string
	Type       string
	PrimaryKey bool
}

// QuoteIdent wraps an identifier in double quotes, doubling any embedded quote
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// TableColumns returns the live columns of a table in declaration order
func TableColumns(ctx context.Context, q Querier, table string) ([]ColumnInfo, error) {
	rows, err := q.QueryContext(ctx, "PRAGMA table_info("+QuoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     sql.NullString
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}
		cols = append(cols, ColumnInfo{Name: name, Type: typ.String, PrimaryKey: pk > 0})
	}

	return cols, rows.Err()
}

// CreatePeopleIndexes adds the lookup indexes for whichever code/locality columns exist
func CreatePeopleIndexes(ctx context.Context, q Querier, columns []string) error {
	indexes := map[string]string{
		"UC":           "idx_people_uc",
		"PP":           "idx_people_pp",
		"LocalityName": "idx_people_locality",
	}
	for _, col := range columns {
		name, ok := indexes[col]
		if !ok {
			continue
		}
		query := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", name, PeopleTable, QuoteIdent(col))
		if _, err := q.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index %s: %w", name, err)
		}
	}
	return nil
}

// dropHighlightedAddress rebuilds the records table without the legacy
// HighlightedAddress column, keeping every other column, type and the key.
func dropHighlightedAddress(tx *sql.Tx) error {
	ctx := context.Background()

	info, err := TableColumns(ctx, tx, PeopleTable)
	if err != nil {
		return err
	}

	var keep []ColumnInfo
	found := false
	for _, c := range info {
		if c.Name == "HighlightedAddress" {
			found = true
			continue
		}
		keep = append(keep, c)
	}
	if !found {
		return nil
	}

	defs := make([]string, 0, len(keep))
	names := make([]string, 0, len(keep))
	for _, c := range keep {
		typ := strings.TrimSpace(c.Type)
		if typ == "" {
			typ = "TEXT"
		}
		def := QuoteIdent(c.Name) + " " + typ
		if c.PrimaryKey {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
		names = append(names, QuoteIdent(c.Name))
	}
	colList := strings.Join(names, ", ")

	stmts := []string{
		fmt.Sprintf("CREATE TABLE people_new (%s)", strings.Join(defs, ", ")),
		fmt.Sprintf("INSERT INTO people_new (%s) SELECT %s FROM people", colList, colList),
		"DROP TABLE people",
		"ALTER TABLE people_new RENAME TO people",
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return err
		}
	}

	kept := make([]string, 0, len(keep))
	for _, c := range keep {
		kept = append(kept, c.Name)
	}
	return CreatePeopleIndexes(ctx, tx, kept)
}
