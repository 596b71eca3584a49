package controllers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/blogem/people-directory/authenticator"
	"github.com/blogem/people-directory/httpx"
	"github.com/blogem/people-directory/repositories"
	"github.com/blogem/people-directory/services"
)

// maxUploadBytes bounds spreadsheet uploads
const maxUploadBytes = 64 << 20

// Controllers holds all controller instances
type Controllers struct {
	Auth       *AuthController
	Records    *RecordController
	Admin      *AdminController
	Localities *LocalityController
	Reports    *ReportController
	Debug      *DebugController
}

// NewControllers creates and initializes all controller instances.
// sso may be nil when single sign-on is not configured.
func NewControllers(services *services.Services, sso authenticator.Provider, db *sql.DB, dbPath string, logger *slog.Logger) *Controllers {
	return &Controllers{
		Auth:       NewAuthController(services, sso, logger),
		Records:    NewRecordController(services),
		Admin:      NewAdminController(services),
		Localities: NewLocalityController(services),
		Reports:    NewReportController(services),
		Debug:      NewDebugController(db, dbPath),
	}
}

// writeServiceError maps service and repository errors to HTTP responses
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repositories.ErrNoOpWrite):
		httpx.WriteError(w, http.StatusBadRequest, "no_fields", "no fields to write", nil)
	case errors.Is(err, services.ErrEmptyComment):
		httpx.WriteError(w, http.StatusBadRequest, "missing_comment", "missing comment", nil)
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrPasswordRequired),
		errors.Is(err, services.ErrInvalidRange),
		errors.Is(err, services.ErrImportFailure):
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
	case errors.Is(err, services.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "not found", nil)
	case errors.Is(err, services.ErrUsernameTaken):
		httpx.WriteError(w, http.StatusConflict, "username_taken", err.Error(), nil)
	case errors.Is(err, services.ErrLastAdmin):
		httpx.WriteError(w, http.StatusConflict, "last_admin", err.Error(), nil)
	case errors.Is(err, repositories.ErrSchemaMutationFailed):
		httpx.WriteError(w, http.StatusInternalServerError, "schema_mutation_failed", "could not add column", nil)
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

// pathID parses the {id} URL parameter
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// queryInt reads an integer query parameter, def when absent or malformed
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

// queryLimit reads the limit query parameter, nil when absent or malformed
func queryLimit(r *http.Request) *int {
	v, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return nil
	}
	return &v
}

type okResponse struct {
	OK bool `json:"ok"`
}

type listResponse[T any] struct {
	Total int `json:"total"`
	Items []T `json:"items"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Total: len(items), Items: items}
}
