package controllers

import (
	"net/http"

	"github.com/blogem/people-directory/httpx"
	"github.com/blogem/people-directory/models"
	"github.com/blogem/people-directory/services"
	"github.com/blogem/people-directory/userctx"
)

// RecordController handles directory record requests
type RecordController struct {
	services *services.Services
}

// NewRecordController creates a new record controller
func NewRecordController(services *services.Services) *RecordController {
	return &RecordController{services: services}
}

// Columns handles GET /api/columns
func (c *RecordController) Columns(w http.ResponseWriter, r *http.Request) {
	cols, err := c.services.Records.Columns(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]string{"columns": cols})
}

// Search handles GET /api/search?q&by&limit&offset
func (c *RecordController) Search(w http.ResponseWriter, r *http.Request) {
	query := models.SearchQuery{
		Query:  r.URL.Query().Get("q"),
		Scope:  r.URL.Query().Get("by"),
		Limit:  queryLimit(r),
		Offset: queryInt(r, "offset", 0),
	}

	result, err := c.services.Records.Search(r.Context(), query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

// Get handles GET /api/row/{id}
func (c *RecordController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid id", nil)
		return
	}

	rec, err := c.services.Records.GetRecord(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

// Create handles POST /api/row
func (c *RecordController) Create(w http.ResponseWriter, r *http.Request) {
	var input models.Input
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}

	rec, err := c.services.Records.CreateRecord(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rec)
}

// Update handles POST /api/row/{id}
func (c *RecordController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid id", nil)
		return
	}

	var input models.Input
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}

	rec, err := c.services.Records.UpdateRecord(r.Context(), userctx.GetActor(r.Context()), id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

// Comment handles POST /api/row/{id}/comment
func (c *RecordController) Comment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid id", nil)
		return
	}

	var body struct {
		Comment string `json:"comment"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}

	rec, err := c.services.Records.AddComment(r.Context(), userctx.GetActor(r.Context()), id, body.Comment)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}
