package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/blogem/people-directory/models"
	"github.com/blogem/people-directory/repositories"
)

// LocalityService interface defines the locality reference table operations
type LocalityService interface {
	Search(ctx context.Context, substring string) ([]models.Locality, error)
	Find(ctx context.Context, name string) (*models.Locality, error)
	Upsert(ctx context.Context, form *models.LocalityForm) (*models.Locality, error)
	Delete(ctx context.Context, name string) (int64, error)
	SeedIfEmpty(ctx context.Context) (int, error)
}

type localityService struct {
	repos  *repositories.Repositories
	logger *slog.Logger
}

// NewLocalityService creates a new locality service
func NewLocalityService(repos *repositories.Repositories, logger *slog.Logger) LocalityService {
	return &localityService{repos: repos, logger: logger}
}

// Search returns localities whose name contains substring, ignoring case
func (s *localityService) Search(ctx context.Context, substring string) ([]models.Locality, error) {
	return s.repos.Localities.Search(ctx, strings.TrimSpace(substring))
}

// Find returns the locality stored under exactly name, or nil
func (s *localityService) Find(ctx context.Context, name string) (*models.Locality, error) {
	return s.repos.Localities.FindByName(ctx, strings.TrimSpace(name))
}

// Upsert creates or replaces a locality keyed by its trimmed name
func (s *localityService) Upsert(ctx context.Context, form *models.LocalityForm) (*models.Locality, error) {
	if errs := form.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, ", "))
	}

	loc := form.ToLocality()
	if err := s.repos.Localities.Upsert(ctx, loc); err != nil {
		return nil, err
	}

	stored, err := s.repos.Localities.FindByName(ctx, loc.Name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("locality saved", "name", loc.Name, "pp", loc.PP, "uc", loc.UC)
	return stored, nil
}

// Delete removes a locality and returns how many rows went away
func (s *localityService) Delete(ctx context.Context, name string) (int64, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return 0, fmt.Errorf("%w: name required", ErrValidation)
	}
	return s.repos.Localities.Delete(ctx, n)
}

// SeedIfEmpty fills an empty locality table from the records
func (s *localityService) SeedIfEmpty(ctx context.Context) (int, error) {
	var seeded int
	err := s.repos.WithinTx(ctx, func(tx *repositories.Repositories) error {
		var err error
		seeded, err = tx.Localities.SeedFromRecords(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to seed localities: %w", err)
	}
	if seeded > 0 {
		s.logger.Info("seeded localities from records", "count", seeded)
	}
	return seeded, nil
}
