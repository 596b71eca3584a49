package controllers

import (
	"net/http"

	"github.com/blogem/people-directory/httpx"
	"github.com/blogem/people-directory/models"
	"github.com/blogem/people-directory/services"
)

// LocalityController handles locality lookups
type LocalityController struct {
	services *services.Services
}

// NewLocalityController creates a new locality controller
func NewLocalityController(services *services.Services) *LocalityController {
	return &LocalityController{services: services}
}

// Search handles GET /api/localities?q
func (c *LocalityController) Search(w http.ResponseWriter, r *http.Request) {
	items, err := c.services.Localities.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if items == nil {
		items = []models.Locality{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]models.Locality{"items": items})
}
