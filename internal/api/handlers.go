package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pre-triage-server/internal/domain"
	"github.com/pre-triage-server/internal/service"
)

// turnRequest is the JSON body of POST /triage/turn.
type turnRequest struct {
	SessionID   string          `json:"session_id"`
	Locale      string          `json:"locale"`
	UserMessage string          `json:"user_message"`
	Answer      *turnAnswer     `json:"answer"`
	Profile     *domain.Profile `json:"profile"`
}

type turnAnswer struct {
	Canonical string `json:"canonical" binding:"required"`
	Value     string `json:"value" binding:"required"`
}

func (s *Server) handleTurn(c *gin.Context) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.NewErrorEnvelope("", 0,
			domain.NewTriageError(domain.CodeEmptyInput, "invalid request body: "+err.Error(), true)))
		return
	}

	envelope := s.orchestrator.HandleTurn(c.Request.Context(), toServiceRequest(req))
	c.JSON(statusFor(envelope), envelope)
}

func toServiceRequest(req turnRequest) service.TurnRequest {
	out := service.TurnRequest{
		SessionID:   req.SessionID,
		Locale:      req.Locale,
		UserMessage: req.UserMessage,
		Profile:     req.Profile,
	}
	if req.Answer != nil {
		out.Answer = &service.TurnAnswer{
			Canonical: req.Answer.Canonical,
			Value:     req.Answer.Value,
		}
	}
	return out
}

// statusFor maps envelopes to HTTP status codes. Engine-level errors on a
// well-formed request travel inside a 200 ERROR envelope so clients parse
// one shape; only an unknown session is a transport-level 404, and 400 is
// reserved for bodies that fail to bind.
func statusFor(envelope domain.Envelope) int {
	if envelope.Type == domain.EnvelopeError && envelope.Error != nil {
		if envelope.Error.Code == domain.CodeSessionNotFound {
			return http.StatusNotFound
		}
	}
	return http.StatusOK
}

func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if err := s.store.Health(c.Request.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		s.log.WithError(err).Warn("Session store health check failed")
	}
	c.JSON(code, gin.H{
		"status":            status,
		"timestamp":         time.Now().UTC(),
		"reference_version": s.rt.Version,
	})
}

func (s *Server) handleReferenceStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.rt.Stats())
}

func (s *Server) handleSessionEvents(c *gin.Context) {
	sessionID := c.Param("id")
	events, err := s.events.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"events":     events,
	})
}
