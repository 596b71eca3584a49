package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/blogem/people-directory/database"
	"github.com/blogem/people-directory/models"
)

// AuditRepository handles audit log persistence. Entries are append-only.
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	RecordUpdate(ctx context.Context, actor string, id int64, changed []string, before, after string) (*models.AuditEntry, error)
	RecordComment(ctx context.Context, actor string, id int64, text string) (*models.AuditEntry, error)
	Query(ctx context.Context, from, to, action string) ([]models.AuditEntry, error)
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error)
	RowsTouched(ctx context.Context, since string, fields []string) ([]int64, error)
}

type sqliteAuditRepository struct {
	q database.Querier
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(q database.Querier) AuditRepository {
	return &sqliteAuditRepository{q: q}
}

// Append inserts a new audit log entry, stamping the current time when the
// entry carries none
func (r *sqliteAuditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	if entry.Timestamp == "" {
		entry.Timestamp = models.FormatTimestamp(time.Now())
	}

	query := `
		INSERT INTO audit (ts, [user], action, rowNumber, details, [before], [after])
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.q.ExecContext(ctx, query,
		entry.Timestamp,
		entry.User,
		entry.Action,
		entry.RowNumber,
		entry.Details,
		nullable(entry.Before),
		nullable(entry.After),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted ID: %w", err)
	}
	entry.ID = id
	return nil
}

// RecordUpdate appends an update entry with full before and after snapshots
func (r *sqliteAuditRepository) RecordUpdate(ctx context.Context, actor string, id int64, changed []string, before, after string) (*models.AuditEntry, error) {
	entry := &models.AuditEntry{
		User:      actor,
		Action:    models.ActionUpdate,
		RowNumber: id,
		Details:   strings.Join(changed, ","),
		Before:    &before,
		After:     &after,
	}
	if err := r.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RecordComment appends a comment entry holding the raw comment text
func (r *sqliteAuditRepository) RecordComment(ctx context.Context, actor string, id int64, text string) (*models.AuditEntry, error) {
	entry := &models.AuditEntry{
		User:      actor,
		Action:    models.ActionComment,
		RowNumber: id,
		Details:   text,
	}
	if err := r.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Query returns entries with from <= ts <= to, newest entry first.
// Ordering is by entry id, which breaks ties between equal timestamps in
// creation order. An empty action matches every action.
func (r *sqliteAuditRepository) Query(ctx context.Context, from, to, action string) ([]models.AuditEntry, error) {
	return r.List(ctx, models.AuditFilter{Action: action, From: from, To: to})
}

// List returns entries matching filter, newest entry first
func (r *sqliteAuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error) {
	var conds []string
	var args []any
	if filter.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.User != "" {
		conds = append(conds, "[user] = ?")
		args = append(args, filter.User)
	}
	if filter.From != "" {
		conds = append(conds, "ts >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		conds = append(conds, "ts <= ?")
		args = append(args, filter.To)
	}

	query := "SELECT id, ts, [user], action, rowNumber, details, [before], [after] FROM audit"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		var details, before, after sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.User, &e.Action, &e.RowNumber, &details, &before, &after); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Details = details.String
		if before.Valid {
			e.Before = &before.String
		}
		if after.Valid {
			e.After = &after.String
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}

// RowsTouched returns the distinct record ids whose update entries since the
// given timestamp mention any of fields in their change summary
func (r *sqliteAuditRepository) RowsTouched(ctx context.Context, since string, fields []string) ([]int64, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	likes := make([]string, 0, len(fields))
	args := []any{models.ActionUpdate, since}
	for _, f := range fields {
		likes = append(likes, "details LIKE ?")
		args = append(args, "%"+f+"%")
	}

	query := fmt.Sprintf(
		"SELECT DISTINCT rowNumber FROM audit WHERE action = ? AND ts >= ? AND (%s) ORDER BY rowNumber",
		strings.Join(likes, " OR "),
	)
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query touched rows: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan row id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
