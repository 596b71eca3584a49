package services

import (
	"log/slog"

	"github.com/blogem/people-directory/repositories"
)

// Services holds all service instances
type Services struct {
	Records    RecordService
	Revert     RevertService
	Localities LocalityService
	Users      UserService
	Imports    ImportService
	Reports    ReportService
}

// NewServices creates and initializes all service instances
func NewServices(repos *repositories.Repositories, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	return &Services{
		Records:    NewRecordService(repos, logger),
		Revert:     NewRevertService(repos, logger),
		Localities: NewLocalityService(repos, logger),
		Users:      NewUserService(repos, logger),
		Imports:    NewImportService(repos, logger),
		Reports:    NewReportService(repos.Records),
	}
}
