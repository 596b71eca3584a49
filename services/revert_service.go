package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/blogem/people-directory/metrics"
	"github.com/blogem/people-directory/models"
	"github.com/blogem/people-directory/repositories"
)

// boundLayouts are the accepted forms of a revert bound, tried in order
var boundLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

const dateLayout = "2006-01-02"

// RevertService interface defines the audit replay operation
type RevertService interface {
	Revert(ctx context.Context, from, to string) (int, error)
}

type revertService struct {
	repos  *repositories.Repositories
	logger *slog.Logger
}

// NewRevertService creates a new revert service
func NewRevertService(repos *repositories.Repositories, logger *slog.Logger) RevertService {
	return &revertService{repos: repos, logger: logger}
}

// Revert restores records from the before snapshots of every update entry in
// [from, to], walking newest entry first. Entries are not deduplicated, so a
// record changed several times in the window ends at the before state of its
// oldest entry. Unusable snapshots are skipped. The writes are not audited.
// It returns the number of entries replayed.
func (s *revertService) Revert(ctx context.Context, from, to string) (int, error) {
	fromTS, err := parseBound(from, false)
	if err != nil {
		return 0, err
	}
	toTS, err := parseBound(to, true)
	if err != nil {
		return 0, err
	}
	if fromTS > toTS {
		return 0, fmt.Errorf("%w: from %s is after to %s", ErrInvalidRange, fromTS, toTS)
	}

	restored, skipped := 0, 0
	err = s.repos.WithinTx(ctx, func(tx *repositories.Repositories) error {
		entries, err := tx.Audit.Query(ctx, fromTS, toTS, models.ActionUpdate)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			if entry.Before == nil {
				skipped++
				continue
			}
			snap, err := models.ParseSnapshot(*entry.Before)
			if err != nil {
				s.logger.Warn("skipping audit entry with unusable snapshot", "audit_id", entry.ID, "error", err)
				skipped++
				continue
			}

			values := snap.Values()
			delete(values, models.IDField)
			if _, err := tx.Records.UpdateRaw(ctx, entry.RowNumber, values); err != nil {
				if errors.Is(err, repositories.ErrNoOpWrite) {
					skipped++
					continue
				}
				return err
			}
			restored++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to revert %s..%s: %w", fromTS, toTS, err)
	}

	metrics.RevertRestorations.Add(float64(restored))
	metrics.RevertSkipped.Add(float64(skipped))
	s.logger.Info("revert applied", "from", fromTS, "to", toTS, "restored", restored, "skipped", skipped)
	return restored, nil
}

// parseBound converts a user supplied bound to the audit timestamp layout.
// A bare date used as the upper bound covers the whole day.
func parseBound(value string, upper bool) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", fmt.Errorf("%w: missing bound", ErrInvalidRange)
	}

	if t, err := time.Parse(dateLayout, v); err == nil {
		if upper {
			t = t.Add(24*time.Hour - time.Millisecond)
		}
		return models.FormatTimestamp(t), nil
	}

	for _, layout := range boundLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return models.FormatTimestamp(t), nil
		}
	}
	return "", fmt.Errorf("%w: cannot parse %q", ErrInvalidRange, value)
}
