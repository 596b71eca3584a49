package controllers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/blogem/people-directory/httpx"
	"github.com/blogem/people-directory/models"
	"github.com/blogem/people-directory/services"
)

// AdminController handles admin-only requests
type AdminController struct {
	services *services.Services
}

// NewAdminController creates a new admin controller
func NewAdminController(services *services.Services) *AdminController {
	return &AdminController{services: services}
}

// Users handles GET /api/admin/users
func (c *AdminController) Users(w http.ResponseWriter, r *http.Request) {
	users, err := c.services.Users.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]models.User{"users": users})
}

// SaveUser handles POST /api/admin/user
func (c *AdminController) SaveUser(w http.ResponseWriter, r *http.Request) {
	var form models.UserForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}

	user, err := c.services.Users.Save(r.Context(), &form)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /api/admin/user/{username}
func (c *AdminController) DeleteUser(w http.ResponseWriter, r *http.Request) {
	username, err := url.PathUnescape(chi.URLParam(r, "username"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid username", nil)
		return
	}

	if err := c.services.Users.Delete(r.Context(), username); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

// Revert handles POST /api/admin/revert
func (c *AdminController) Revert(w http.ResponseWriter, r *http.Request) {
	var body struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil || body.From == "" || body.To == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "from/to required", nil)
		return
	}

	reverted, err := c.services.Revert.Revert(r.Context(), body.From, body.To)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"reverted": reverted})
}

type importResponse struct {
	OK bool `json:"ok"`
	*models.ImportResult
}

// Import handles POST /api/admin/import (multipart field "file", optional "preserveSince")
func (c *AdminController) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", `provide the spreadsheet in multipart field "file"`, nil)
		return
	}
	defer file.Close()

	opts := services.ImportOptions{PreserveSince: r.FormValue("preserveSince")}
	result, err := c.services.Imports.Import(r.Context(), header.Filename, file, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, importResponse{OK: true, ImportResult: result})
}

// SaveLocality handles POST /api/admin/locality
func (c *AdminController) SaveLocality(w http.ResponseWriter, r *http.Request) {
	var form models.LocalityForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}

	loc, err := c.services.Localities.Upsert(r.Context(), &form)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, loc)
}

// DeleteLocality handles DELETE /api/admin/locality/{name}
func (c *AdminController) DeleteLocality(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid name", nil)
		return
	}

	deleted, err := c.services.Localities.Delete(r.Context(), name)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			httpx.WriteError(w, http.StatusBadRequest, "bad_request", "name required", nil)
			return
		}
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": deleted})
}
