package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veduka/examhall-backend/internal/middleware"
	"github.com/veduka/examhall-backend/internal/model"
	"github.com/veduka/examhall-backend/internal/response"
	"github.com/veduka/examhall-backend/internal/service"
	"github.com/veduka/examhall-backend/internal/validator"
)

// AuthHandler handles signup, login and logout.
type AuthHandler struct {
	authService *service.AuthService
	users       service.UserStore
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, users service.UserStore) *AuthHandler {
	return &AuthHandler{authService: authService, users: users}
}

// Signup godoc
// POST /api/v1/auth/signup
// Registers a new student account and returns a logged-in session.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req model.SignupRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	login, err := h.authService.Signup(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			response.Fail(c, http.StatusConflict, response.ErrEmailTaken)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, login)
}

// Login godoc
// POST /api/v1/auth/login
// Authenticates a student or admin by email and password.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	login, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, login)
}

// Logout godoc
// POST /api/v1/auth/logout
// Invalidates the caller's active session.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims.UserID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "logged_out"})
}

// Me godoc
// GET /api/v1/auth/me
// Returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, user)
}
