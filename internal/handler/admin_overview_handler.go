package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veduka/examhall-backend/internal/repository"
	"github.com/veduka/examhall-backend/internal/response"
	"github.com/veduka/examhall-backend/internal/service"
)

// AdminOverviewHandler serves the admin dashboard aggregates.
type AdminOverviewHandler struct {
	dashboardService *service.DashboardService
}

// NewAdminOverviewHandler creates a new AdminOverviewHandler.
func NewAdminOverviewHandler(dashboardService *service.DashboardService) *AdminOverviewHandler {
	return &AdminOverviewHandler{dashboardService: dashboardService}
}

// Overview godoc
// GET /api/v1/admin/overview
// Platform-wide counts plus average score and pass rate.
func (h *AdminOverviewHandler) Overview(c *gin.Context) {
	overview, err := h.dashboardService.Overview(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, overview)
}

// ListResults godoc
// GET /api/v1/admin/results
// Every result joined with student and exam details, newest first.
func (h *AdminOverviewHandler) ListResults(c *gin.Context) {
	rows, err := h.dashboardService.ListAllResults(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if rows == nil {
		rows = []repository.AdminResultRow{}
	}
	response.Success(c, http.StatusOK, gin.H{"results": rows})
}
