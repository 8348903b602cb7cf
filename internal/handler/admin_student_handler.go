package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/veduka/examhall-backend/internal/model"
	"github.com/veduka/examhall-backend/internal/response"
	"github.com/veduka/examhall-backend/internal/service"
	"github.com/veduka/examhall-backend/internal/validator"
)

// AdminStudentHandler handles admin-side student account management.
type AdminStudentHandler struct {
	studentService *service.StudentService
}

// NewAdminStudentHandler creates a new AdminStudentHandler.
func NewAdminStudentHandler(studentService *service.StudentService) *AdminStudentHandler {
	return &AdminStudentHandler{studentService: studentService}
}

// ListStudents godoc
// GET /api/v1/admin/students
func (h *AdminStudentHandler) ListStudents(c *gin.Context) {
	students, err := h.studentService.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if students == nil {
		students = []model.User{}
	}
	response.Success(c, http.StatusOK, gin.H{"students": students})
}

// CreateStudent godoc
// POST /api/v1/admin/students
func (h *AdminStudentHandler) CreateStudent(c *gin.Context) {
	var req model.CreateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			response.Fail(c, http.StatusConflict, response.ErrEmailTaken)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, student)
}

// UpdateStudent godoc
// PUT /api/v1/admin/students/:student_id
func (h *AdminStudentHandler) UpdateStudent(c *gin.Context) {
	studentID, err := strconv.Atoi(c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.Update(c.Request.Context(), studentID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStudentNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrEmailTaken):
			response.Fail(c, http.StatusConflict, response.ErrEmailTaken)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, student)
}

// DeleteStudent godoc
// DELETE /api/v1/admin/students/:student_id
// Fails with DEPENDENCY_EXISTS when the student has any exam history.
func (h *AdminStudentHandler) DeleteStudent(c *gin.Context) {
	studentID, err := strconv.Atoi(c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.studentService.Delete(c.Request.Context(), studentID); err != nil {
		switch {
		case errors.Is(err, service.ErrStudentNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrStudentHasAttempts):
			response.Fail(c, http.StatusConflict, response.ErrDependencyExists)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "deleted"})
}
