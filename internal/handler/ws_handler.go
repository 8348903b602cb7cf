package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/veduka/examhall-backend/internal/middleware"
	"github.com/veduka/examhall-backend/internal/model"
	"github.com/veduka/examhall-backend/internal/service"
	ws "github.com/veduka/examhall-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live attempt: autosave, violation reports and submit
// over one connection. Every action lands in the same lifecycle service as
// the REST endpoints, so a client mixing both transports stays consistent.
type WSHandler struct {
	attemptService *service.AttemptService
	proctorService *service.ProctorService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, proctorService *service.ProctorService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		proctorService: proctorService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// Upgrades to WebSocket for real-time autosave and submission.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	studentID := claims.UserID

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, wsLog, studentID, examID, &msg)
		case ws.ActionViolation:
			h.handleViolation(conn, wsLog, studentID, examID, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, studentID, examID, &msg)
		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) handleAutosave(conn *websocket.Conn, wsLog zerolog.Logger, studentID int, examID uuid.UUID, msg *ws.RequestPayload) {
	view, err := h.attemptService.SaveProgress(context.Background(), studentID, examID, model.SaveProgressRequest{
		Answers:    msg.Answers,
		Violations: msg.Violations,
	})
	if err != nil {
		wsLog.Error().Err(err).Msg("Autosave failed")
		ws.WriteError(conn, "save failed")
		return
	}

	if view.Status != model.AttemptStatusActive {
		_ = ws.WriteTyped(conn, ws.ClosedResponse{Event: ws.EventClosed, Status: string(view.Status)})
		return
	}
	_ = ws.WriteTyped(conn, ws.SavedResponse{
		Event:            ws.EventSaved,
		Status:           "saved",
		RemainingSeconds: view.RemainingSeconds,
		Violations:       view.Violations,
	})
}

func (h *WSHandler) handleViolation(conn *websocket.Conn, wsLog zerolog.Logger, studentID int, examID uuid.UUID, msg *ws.RequestPayload) {
	if msg.EventType == "" {
		ws.WriteError(conn, "event_type is required")
		return
	}

	ack, err := h.proctorService.Report(context.Background(), studentID, examID, model.ReportEventRequest{
		EventType:  msg.EventType,
		Payload:    msg.Payload,
		Violations: msg.Violations,
	})
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			ws.WriteError(conn, "no attempt for this exam")
			return
		}
		wsLog.Error().Err(err).Msg("Violation report failed")
		ws.WriteError(conn, "report failed")
		return
	}

	if ack.Status != model.AttemptStatusActive {
		_ = ws.WriteTyped(conn, ws.ClosedResponse{Event: ws.EventClosed, Status: string(ack.Status)})
		return
	}
	_ = ws.WriteTyped(conn, ws.SavedResponse{
		Event:            ws.EventSaved,
		Status:           "recorded",
		RemainingSeconds: ack.RemainingSeconds,
		Violations:       ack.Violations,
	})
}

func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, studentID int, examID uuid.UUID, msg *ws.RequestPayload) {
	result, err := h.attemptService.Submit(context.Background(), studentID, examID, model.SaveProgressRequest{
		Answers:    msg.Answers,
		Violations: msg.Violations,
		Reason:     msg.Reason,
	})
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			ws.WriteError(conn, "no attempt for this exam")
			return
		}
		wsLog.Error().Err(err).Msg("Submit failed")
		ws.WriteError(conn, "submit failed")
		return
	}

	wsLog.Info().
		Int("score", result.Score).
		Int("correct", result.CorrectAnswers).
		Int("total", result.TotalQuestions).
		Str("status", string(result.Status)).
		Msg("Attempt finalized")

	_ = ws.WriteTyped(conn, ws.GradedResponse{
		Event:  ws.EventGraded,
		Status: string(result.Status),
		Score:  result.Score,
	})
}
