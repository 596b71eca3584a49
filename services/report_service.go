package services

import (
	"context"
	"time"

	"github.com/blogem/people-directory/models"
	"github.com/blogem/people-directory/repositories"
)

// ReportService interface defines the activity report
type ReportService interface {
	Report(ctx context.Context, filter models.ReportFilter) ([]*models.Record, error)
	SessionReport(ctx context.Context, actor models.Actor, since time.Time, filter models.ReportFilter) ([]*models.Record, error)
}

type reportService struct {
	records repositories.RecordRepository
}

// NewReportService creates a new report service
func NewReportService(records repositories.RecordRepository) ReportService {
	return &reportService{records: records}
}

// Report returns records matching filter, newest identifier first
func (s *reportService) Report(ctx context.Context, filter models.ReportFilter) ([]*models.Record, error) {
	return s.records.Report(ctx, filter)
}

// SessionReport narrows filter to records modified since the caller signed
// in, by the caller unless filter already names a user. Anonymous callers
// have no session activity.
func (s *reportService) SessionReport(ctx context.Context, actor models.Actor, since time.Time, filter models.ReportFilter) ([]*models.Record, error) {
	if actor.Username == "" {
		return []*models.Record{}, nil
	}
	if filter.ByUser == "" {
		filter.ByUser = actor.Username
	}
	filter.ModifiedFrom = models.FormatTimestamp(since)
	return s.records.Report(ctx, filter)
}
