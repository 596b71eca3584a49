package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/blogem/people-directory/metrics"
	"github.com/blogem/people-directory/models"
	"github.com/blogem/people-directory/repositories"
)

// commentTimeLayout stamps each appended comment line
const commentTimeLayout = "2006-01-02 15:04"

// RecordService interface defines the record read and write paths
type RecordService interface {
	GetRecord(ctx context.Context, id int64) (*models.Record, error)
	CreateRecord(ctx context.Context, input models.Input) (*models.Record, error)
	UpdateRecord(ctx context.Context, actor models.Actor, id int64, input models.Input) (*models.Record, error)
	AddComment(ctx context.Context, actor models.Actor, id int64, text string) (*models.Record, error)
	Search(ctx context.Context, query models.SearchQuery) (*models.SearchResult, error)
	Columns(ctx context.Context) ([]string, error)
}

// recordService implements RecordService interface
type recordService struct {
	repos  *repositories.Repositories
	logger *slog.Logger
}

// NewRecordService creates a new record service
func NewRecordService(repos *repositories.Repositories, logger *slog.Logger) RecordService {
	return &recordService{repos: repos, logger: logger}
}

// GetRecord returns the record or an identifier-only placeholder
func (s *recordService) GetRecord(ctx context.Context, id int64) (*models.Record, error) {
	return s.repos.Records.Get(ctx, id)
}

// CreateRecord stores a new record under the next identifier
func (s *recordService) CreateRecord(ctx context.Context, input models.Input) (*models.Record, error) {
	values := models.NormalizeInput(input)

	var rec *models.Record
	err := s.repos.WithinTx(ctx, func(tx *repositories.Repositories) error {
		var err error
		rec, err = tx.Records.Create(ctx, values)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	metrics.RecordWrites.WithLabelValues("create").Inc()
	s.logger.Info("record created", "id", rec.ID, "fields", len(values))
	return rec, nil
}

// UpdateRecord applies the write policy and stores the change with its audit entry.
//
// Yes/no fields are normalized, non-admins cannot set PP/UC directly, and a
// known locality name forces PP/UC from the locality table. The column check,
// before snapshot, update, after snapshot and audit append share one transaction.
func (s *recordService) UpdateRecord(ctx context.Context, actor models.Actor, id int64, input models.Input) (*models.Record, error) {
	values := models.NormalizeInput(input)

	if !actor.IsAdmin() {
		delete(values, models.ColumnPP)
		delete(values, models.ColumnUC)
	}

	var after *models.Record
	err := s.repos.WithinTx(ctx, func(tx *repositories.Repositories) error {
		if err := applyLocalityCodes(ctx, tx.Localities, values); err != nil {
			return err
		}
		if len(values) == 0 {
			return repositories.ErrNoOpWrite
		}

		names := values.Names()
		if _, err := tx.Schema.EnsureColumns(ctx, names); err != nil {
			return err
		}

		before, err := tx.Records.Get(ctx, id)
		if err != nil {
			return err
		}
		beforeSnap, err := before.Snapshot()
		if err != nil {
			return fmt.Errorf("failed to snapshot record: %w", err)
		}

		if _, err := tx.Records.UpdateRaw(ctx, id, values); err != nil {
			return err
		}

		after, err = tx.Records.Get(ctx, id)
		if err != nil {
			return err
		}
		afterSnap, err := after.Snapshot()
		if err != nil {
			return fmt.Errorf("failed to snapshot record: %w", err)
		}

		_, err = tx.Audit.RecordUpdate(ctx, actor.Username, id, names, beforeSnap, afterSnap)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update record %d: %w", id, err)
	}

	metrics.RecordWrites.WithLabelValues("update").Inc()
	metrics.AuditEntries.WithLabelValues(models.ActionUpdate).Inc()
	s.logger.Info("record updated", "id", id, "actor", actor.Username, "fields", strings.Join(values.Names(), ","))
	return after, nil
}

// applyLocalityCodes overwrites PP/UC from the locality named in the update.
// LocalityName takes precedence over Locality; the name must match exactly.
func applyLocalityCodes(ctx context.Context, localities repositories.LocalityRepository, values models.Values) error {
	key := ""
	if _, ok := values[models.ColumnLocalityName]; ok {
		key = models.ColumnLocalityName
	} else if _, ok := values[models.ColumnLocality]; ok {
		key = models.ColumnLocality
	}
	if key == "" || values[key] == nil {
		return nil
	}

	name := strings.TrimSpace(*values[key])
	if name == "" {
		return nil
	}

	loc, err := localities.FindByName(ctx, name)
	if err != nil {
		return err
	}
	if loc != nil {
		values[models.ColumnPP] = models.Str(loc.PP)
		values[models.ColumnUC] = models.Str(loc.UC)
	}
	return nil
}

// AddComment appends a stamped, attributed line to the Comments field and
// logs a comment entry. The field change itself is not snapshotted, so
// reverts do not undo comments.
func (s *recordService) AddComment(ctx context.Context, actor models.Actor, id int64, text string) (*models.Record, error) {
	c := strings.TrimSpace(text)
	if c == "" {
		return nil, ErrEmptyComment
	}

	line := c
	if actor.Username != "" {
		line = actor.Username + ": " + c
	}
	line = "[" + time.Now().UTC().Format(commentTimeLayout) + "] " + line

	var rec *models.Record
	err := s.repos.WithinTx(ctx, func(tx *repositories.Repositories) error {
		current, err := tx.Records.Get(ctx, id)
		if err != nil {
			return err
		}

		value := line
		if existing, _ := current.Get(models.ColumnComments); existing != "" {
			value = existing + "\n" + line
		}

		if _, err := tx.Records.UpdateRaw(ctx, id, models.Values{models.ColumnComments: &value}); err != nil {
			return err
		}
		if _, err := tx.Audit.RecordComment(ctx, actor.Username, id, c); err != nil {
			return err
		}

		rec, err = tx.Records.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add comment to record %d: %w", id, err)
	}

	metrics.RecordWrites.WithLabelValues("comment").Inc()
	metrics.AuditEntries.WithLabelValues(models.ActionComment).Inc()
	return rec, nil
}

// Search returns a page of records
func (s *recordService) Search(ctx context.Context, query models.SearchQuery) (*models.SearchResult, error) {
	return s.repos.Records.Search(ctx, query)
}

// Columns returns the live column list
func (s *recordService) Columns(ctx context.Context) ([]string, error) {
	return s.repos.Schema.Columns(ctx)
}
