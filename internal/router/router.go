package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/veduka/examhall-backend/internal/config"
	"github.com/veduka/examhall-backend/internal/handler"
	"github.com/veduka/examhall-backend/internal/middleware"
	"github.com/veduka/examhall-backend/internal/response"
	"github.com/veduka/examhall-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	StudentResult *handler.StudentResultHandler
	AdminExam     *handler.AdminExamHandler
	AdminStudent  *handler.AdminStudentHandler
	AdminOverview *handler.AdminOverviewHandler
	WS            *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID middleware globally so every response carries metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/signup", handlers.Auth.Signup)
		auth.POST("/login", handlers.Auth.Login)

		auth.POST("/logout", middleware.RequireJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(authService))
	{
		studentAPI.GET("/exams", handlers.StudentPortal.GetCatalog)
		studentAPI.POST("/exams/:exam_id/attempt", handlers.StudentPortal.StartOrResume)
		studentAPI.PUT("/exams/:exam_id/attempt/progress", handlers.StudentPortal.SaveProgress)
		studentAPI.POST("/exams/:exam_id/attempt/submit", handlers.StudentPortal.Submit)
		studentAPI.POST("/exams/:exam_id/attempt/events", handlers.StudentPortal.ReportEvent)

		studentAPI.GET("/results", handlers.StudentResult.ListResults)
		studentAPI.GET("/results/summary", handlers.StudentResult.Summary)
		studentAPI.GET("/results/:result_id/review", handlers.StudentResult.Review)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/exams/:exam_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/exams", handlers.AdminExam.ListExams)
		adminAPI.POST("/exams", handlers.AdminExam.CreateExam)
		adminAPI.GET("/exams/:exam_id", handlers.AdminExam.GetExam)
		adminAPI.DELETE("/exams/:exam_id", handlers.AdminExam.DeleteExam)
		adminAPI.GET("/exams/:exam_id/questions", handlers.AdminExam.ListQuestions)
		adminAPI.POST("/exams/:exam_id/questions", handlers.AdminExam.AddQuestion)

		adminAPI.GET("/students", handlers.AdminStudent.ListStudents)
		adminAPI.POST("/students", handlers.AdminStudent.CreateStudent)
		adminAPI.PUT("/students/:student_id", handlers.AdminStudent.UpdateStudent)
		adminAPI.DELETE("/students/:student_id", handlers.AdminStudent.DeleteStudent)

		adminAPI.GET("/overview", handlers.AdminOverview.Overview)
		adminAPI.GET("/results", handlers.AdminOverview.ListResults)
	}

	return router
}
