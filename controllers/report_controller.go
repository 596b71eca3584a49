package controllers

import (
	"net/http"

	"github.com/blogem/people-directory/httpx"
	"github.com/blogem/people-directory/models"
	"github.com/blogem/people-directory/services"
	"github.com/blogem/people-directory/userctx"
)

// ReportController handles the activity report
type ReportController struct {
	services *services.Services
}

// NewReportController creates a new report controller
func NewReportController(services *services.Services) *ReportController {
	return &ReportController{services: services}
}

// Index handles GET /api/reports
func (c *ReportController) Index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ReportFilter{
		CalledFrom:   q.Get("calledFrom"),
		CalledTo:     q.Get("calledTo"),
		VisitedFrom:  q.Get("visitedFrom"),
		VisitedTo:    q.Get("visitedTo"),
		UC:           q.Get("uc"),
		PP:           q.Get("pp"),
		Locality:     q.Get("locality"),
		ByUser:       q.Get("byUser"),
		ModifiedFrom: q.Get("modifiedFrom"),
		ModifiedTo:   q.Get("modifiedTo"),
		Limit:        queryLimit(r),
	}

	var (
		items []*models.Record
		err   error
	)
	if q.Get("session") == "current" {
		ctx := r.Context()
		items, err = c.services.Reports.SessionReport(ctx, userctx.GetActor(ctx), userctx.GetSessionStart(ctx), filter)
	} else {
		items, err = c.services.Reports.Report(r.Context(), filter)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newList(items))
}
