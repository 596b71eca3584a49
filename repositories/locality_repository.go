package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/blogem/people-directory/database"
	"github.com/blogem/people-directory/models"
)

// Result caps for locality lookups
const (
	LocalitySearchLimit = 1000
	LocalityListLimit   = 2000
)

// LocalityRepository interface defines locality database operations
type LocalityRepository interface {
	FindByName(ctx context.Context, name string) (*models.Locality, error)
	Search(ctx context.Context, substring string) ([]models.Locality, error)
	Upsert(ctx context.Context, loc models.Locality) error
	UpsertCodes(ctx context.Context, loc models.Locality) error
	Delete(ctx context.Context, name string) (int64, error)
	Count(ctx context.Context) (int64, error)
	SeedFromRecords(ctx context.Context) (int, error)
}

type localityRepository struct {
	q database.Querier
}

// NewLocalityRepository creates a new locality repository
func NewLocalityRepository(q database.Querier) LocalityRepository {
	return &localityRepository{q: q}
}

// FindByName returns the locality stored under exactly name, or nil
func (r *localityRepository) FindByName(ctx context.Context, name string) (*models.Locality, error) {
	var loc models.Locality
	err := r.q.QueryRowContext(ctx,
		"SELECT id, name, alias, pp, uc FROM localities WHERE name = ?", name,
	).Scan(&loc.ID, &loc.Name, &loc.Alias, &loc.PP, &loc.UC)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get locality: %w", err)
	}
	return &loc, nil
}

// Search returns localities whose name contains substring, ignoring case,
// ordered by name. An empty substring lists all localities.
func (r *localityRepository) Search(ctx context.Context, substring string) ([]models.Locality, error) {
	q := strings.ToLower(strings.TrimSpace(substring))

	var rows *sql.Rows
	var err error
	if q != "" {
		rows, err = r.q.QueryContext(ctx,
			"SELECT id, name, alias, pp, uc FROM localities WHERE lower(name) LIKE ? ORDER BY name LIMIT ?",
			"%"+q+"%", LocalitySearchLimit)
	} else {
		rows, err = r.q.QueryContext(ctx,
			"SELECT id, name, alias, pp, uc FROM localities ORDER BY name LIMIT ?", LocalityListLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query localities: %w", err)
	}
	defer rows.Close()

	items := []models.Locality{}
	for rows.Next() {
		var loc models.Locality
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Alias, &loc.PP, &loc.UC); err != nil {
			return nil, fmt.Errorf("failed to scan locality: %w", err)
		}
		items = append(items, loc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating localities: %w", err)
	}
	return items, nil
}

// Upsert inserts the locality or replaces alias and codes of the existing one
func (r *localityRepository) Upsert(ctx context.Context, loc models.Locality) error {
	query := `
		INSERT INTO localities (name, alias, pp, uc) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET alias = excluded.alias, pp = excluded.pp, uc = excluded.uc
	`
	if _, err := r.q.ExecContext(ctx, query, loc.Name, loc.Alias, models.NormalizeCode(loc.PP), models.NormalizeCode(loc.UC)); err != nil {
		return fmt.Errorf("failed to upsert locality %q: %w", loc.Name, err)
	}
	return nil
}

// UpsertCodes inserts the locality or refreshes only the codes of the existing one
func (r *localityRepository) UpsertCodes(ctx context.Context, loc models.Locality) error {
	query := `
		INSERT INTO localities (name, alias, pp, uc) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET pp = excluded.pp, uc = excluded.uc
	`
	if _, err := r.q.ExecContext(ctx, query, loc.Name, loc.Alias, models.NormalizeCode(loc.PP), models.NormalizeCode(loc.UC)); err != nil {
		return fmt.Errorf("failed to upsert locality %q: %w", loc.Name, err)
	}
	return nil
}

// Delete removes the locality stored under name and returns the rows removed
func (r *localityRepository) Delete(ctx context.Context, name string) (int64, error) {
	result, err := r.q.ExecContext(ctx, "DELETE FROM localities WHERE name = ?", name)
	if err != nil {
		return 0, fmt.Errorf("failed to delete locality: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the number of localities
func (r *localityRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM localities").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count localities: %w", err)
	}
	return count, nil
}

// SeedFromRecords fills an empty localities table from the distinct
// LocalityName values found in records, first occurrence winning and names
// compared case-insensitively. It returns the number of localities inserted.
func (r *localityRepository) SeedFromRecords(ctx context.Context) (int, error) {
	count, err := r.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	info, err := database.TableColumns(ctx, r.q, database.PeopleTable)
	if err != nil {
		return 0, err
	}
	have := map[string]bool{}
	for _, c := range info {
		have[c.Name] = true
	}
	if !have[models.ColumnLocalityName] {
		return 0, nil
	}

	code := func(col string) string {
		if have[col] {
			return database.QuoteIdent(col)
		}
		return "''"
	}
	query := fmt.Sprintf("SELECT %s, %s, %s FROM people ORDER BY rowNumber",
		database.QuoteIdent(models.ColumnLocalityName), code(models.ColumnPP), code(models.ColumnUC))

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to read record localities: %w", err)
	}

	seen := map[string]bool{}
	var found []models.Locality
	for rows.Next() {
		var name, pp, uc sql.NullString
		if err := rows.Scan(&name, &pp, &uc); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan record locality: %w", err)
		}
		n := strings.TrimSpace(name.String)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		found = append(found, models.Locality{Name: n, PP: pp.String, UC: uc.String})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("error iterating record localities: %w", err)
	}
	rows.Close()

	for _, loc := range found {
		if err := r.UpsertCodes(ctx, loc); err != nil {
			return 0, err
		}
	}
	return len(found), nil
}
