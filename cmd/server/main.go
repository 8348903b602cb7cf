package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/veduka/examhall-backend/internal/clock"
	"github.com/veduka/examhall-backend/internal/config"
	"github.com/veduka/examhall-backend/internal/database"
	"github.com/veduka/examhall-backend/internal/handler"
	"github.com/veduka/examhall-backend/internal/locker"
	"github.com/veduka/examhall-backend/internal/logger"
	"github.com/veduka/examhall-backend/internal/repository"
	"github.com/veduka/examhall-backend/internal/router"
	"github.com/veduka/examhall-backend/internal/service"
	"github.com/veduka/examhall-backend/internal/validator"
	"github.com/veduka/examhall-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExamHall Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	sysClock := clock.System()
	startLock := locker.NewRedisLocker(rdb, cfg.StartLockTTL)
	questionCache := service.NewCachedQuestionSource(questionRepo, rdb)

	authService := service.NewAuthService(cfg, rdb, userRepo)
	attemptService := service.NewAttemptService(attemptRepo, examRepo, questionCache, resultRepo, startLock, sysClock)
	proctorService := service.NewProctorService(rdb, attemptRepo, sysClock)
	resultService := service.NewResultService(resultRepo, attemptRepo, questionCache, examRepo)
	examService := service.NewExamService(examRepo, questionRepo, attemptRepo, questionCache)
	studentService := service.NewStudentService(userRepo, attemptRepo, authService)
	dashboardService := service.NewDashboardService(dashboardRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService, userRepo),
		StudentPortal: handler.NewStudentPortalHandler(attemptService, proctorService),
		StudentResult: handler.NewStudentResultHandler(resultService),
		AdminExam:     handler.NewAdminExamHandler(examService),
		AdminStudent:  handler.NewAdminStudentHandler(studentService),
		AdminOverview: handler.NewAdminOverviewHandler(dashboardService),
		WS:            handler.NewWSHandler(attemptService, proctorService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	proctorWorker := worker.NewProctorWorker(pool, rdb, log)
	expiryWorker := worker.NewExpiryWorker(attemptService, cfg.ExpirySweepInterval, log)

	go proctorWorker.Start(workerCtx)
	go expiryWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
