package api

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/pre-triage-server/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     sameOrigin,
}

// sameOrigin admits non-browser clients (no Origin header) and browser
// clients whose Origin host matches the request host. The Origin header
// carries a scheme, so it has to be parsed before comparing.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// handleStream runs a triage conversation over one websocket: each client
// message is a turn request, each server message an envelope. The socket
// closes after a terminal envelope.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		var req turnRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.WithError(err).Debug("Websocket read failed")
			}
			return
		}

		envelope := s.orchestrator.HandleTurn(c.Request.Context(), toServiceRequest(req))
		if err := conn.WriteJSON(envelope); err != nil {
			s.log.WithError(err).Debug("Websocket write failed")
			return
		}

		// Follow-up turns reuse the session the engine assigned.
		if terminal(envelope) {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(envelope.Type))
			_ = conn.WriteMessage(websocket.CloseMessage, msg)
			return
		}
	}
}

func terminal(envelope domain.Envelope) bool {
	switch envelope.Type {
	case domain.EnvelopeResult, domain.EnvelopeEmergency:
		return true
	}
	return false
}
