package controllers

import (
	"database/sql"
	"net/http"

	"github.com/blogem/people-directory/database"
	"github.com/blogem/people-directory/httpx"
)

// DebugController serves storage diagnostics
type DebugController struct {
	db     *sql.DB
	dbPath string
}

// NewDebugController creates a new debug controller
func NewDebugController(db *sql.DB, dbPath string) *DebugController {
	return &DebugController{db: db, dbPath: dbPath}
}

// DB handles GET /api/_debug/db
func (c *DebugController) DB(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, database.Stat(r.Context(), c.db, c.dbPath))
}

// Tables handles GET /api/_debug/tables
func (c *DebugController) Tables(w http.ResponseWriter, r *http.Request) {
	tables, err := database.Tables(r.Context(), c.db)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]database.TableStat{"tables": tables})
}
