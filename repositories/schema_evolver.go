package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/blogem/people-directory/database"
	"github.com/blogem/people-directory/metrics"
)

// SchemaEvolver grows the records table on demand
type SchemaEvolver interface {
	Columns(ctx context.Context) ([]string, error)
	EnsureColumns(ctx context.Context, names []string) ([]string, error)
}

type schemaEvolver struct {
	q database.Querier
}

// NewSchemaEvolver creates a schema evolver for the records table
func NewSchemaEvolver(q database.Querier) SchemaEvolver {
	return &schemaEvolver{q: q}
}

// Columns returns the live column names of the records table in table order
func (s *schemaEvolver) Columns(ctx context.Context) ([]string, error) {
	info, err := database.TableColumns(ctx, s.q, database.PeopleTable)
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(info))
	for _, c := range info {
		if c.Name != "" {
			cols = append(cols, c.Name)
		}
	}
	return cols, nil
}

// EnsureColumns adds every name not yet present as a TEXT column and returns
// the names it added. SQLite compares identifiers case-insensitively, so does
// this check. Existing columns are never altered.
func (s *schemaEvolver) EnsureColumns(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	cols, err := s.Columns(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMutationFailed, err)
	}
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[strings.ToLower(c)] = true
	}

	var added []string
	for _, name := range names {
		key := strings.ToLower(name)
		if name == "" || name == database.IDColumn || have[key] {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", database.PeopleTable, database.QuoteIdent(name))
		if _, err := s.q.ExecContext(ctx, query); err != nil {
			return added, fmt.Errorf("%w: add column %q: %v", ErrSchemaMutationFailed, name, err)
		}
		have[key] = true
		added = append(added, name)
		metrics.SchemaColumnsAdded.Inc()
	}

	return added, nil
}
