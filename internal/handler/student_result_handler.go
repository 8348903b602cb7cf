package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veduka/examhall-backend/internal/middleware"
	"github.com/veduka/examhall-backend/internal/model"
	"github.com/veduka/examhall-backend/internal/response"
	"github.com/veduka/examhall-backend/internal/service"
)

// StudentResultHandler handles the student results pages.
type StudentResultHandler struct {
	resultService *service.ResultService
}

// NewStudentResultHandler creates a new StudentResultHandler.
func NewStudentResultHandler(resultService *service.ResultService) *StudentResultHandler {
	return &StudentResultHandler{resultService: resultService}
}

// ListResults godoc
// GET /api/v1/student/results
// Returns the caller's result history, newest first.
func (h *StudentResultHandler) ListResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	results, err := h.resultService.ListResults(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if results == nil {
		results = []model.StudentResultEntry{}
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// Summary godoc
// GET /api/v1/student/results/summary
// Returns exams taken, exams passed and the average score.
func (h *StudentResultHandler) Summary(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	summary, err := h.resultService.Summary(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, summary)
}

// Review godoc
// GET /api/v1/student/results/:result_id/review
// Returns per-question feedback for one of the caller's results. Reviews of
// another student's result 404 rather than 403 so result ids are not probeable.
func (h *StudentResultHandler) Review(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	resultID, err := uuid.Parse(c.Param("result_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	review, err := h.resultService.Review(c.Request.Context(), claims.UserID, resultID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrResultNotFound), errors.Is(err, service.ErrNotResultOwner):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, review)
}
