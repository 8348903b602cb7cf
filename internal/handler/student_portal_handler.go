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
	"github.com/veduka/examhall-backend/internal/validator"
)

// StudentPortalHandler handles student-facing exam taking endpoints.
type StudentPortalHandler struct {
	attemptService *service.AttemptService
	proctorService *service.ProctorService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(attemptService *service.AttemptService, proctorService *service.ProctorService) *StudentPortalHandler {
	return &StudentPortalHandler{
		attemptService: attemptService,
		proctorService: proctorService,
	}
}

// GetCatalog godoc
// GET /api/v1/student/exams
// Returns all exams overlaid with the caller's attempt status.
func (h *StudentPortalHandler) GetCatalog(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	catalog, err := h.attemptService.ListCatalog(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": catalog})
}

// StartOrResume godoc
// POST /api/v1/student/exams/:exam_id/attempt
// Starts the caller's attempt on first call, resumes it on every later call.
// Safe to hammer from multiple tabs; exactly one attempt ever exists.
func (h *StudentPortalHandler) StartOrResume(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	view, err := h.attemptService.StartOrResume(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrExamClosed):
			response.Fail(c, http.StatusConflict, response.ErrExamClosed)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, view)
}

// SaveProgress godoc
// PUT /api/v1/student/exams/:exam_id/attempt/progress
// Autosaves the full answer map and the violation counter. Saves after the
// deadline, or with no attempt on record, are acknowledged without writing;
// the response status tells the client the session is over.
func (h *StudentPortalHandler) SaveProgress(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.attemptService.SaveProgress(c.Request.Context(), claims.UserID, examID, req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// Submit godoc
// POST /api/v1/student/exams/:exam_id/attempt/submit
// Finalizes the attempt and returns the grading record. Retrying a submit
// returns the same result.
func (h *StudentPortalHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), claims.UserID, examID, req)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ReportEvent godoc
// POST /api/v1/student/exams/:exam_id/attempt/events
// Records a proctoring flag against the caller's attempt.
func (h *StudentPortalHandler) ReportEvent(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReportEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ack, err := h.proctorService.Report(c.Request.Context(), claims.UserID, examID, req)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, ack)
}
