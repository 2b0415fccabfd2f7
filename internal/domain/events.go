package domain

import "time"

// Event types recorded in the append-only session event log.
const (
	EventSessionCreated      = "SESSION_CREATED"
	EventUserMessage         = "USER_MESSAGE"
	EventAnswerReceived      = "ANSWER_RECEIVED"
	EventCanonicalsExtracted = "CANONICALS_EXTRACTED"
	EventEmergencyTriggered  = "EMERGENCY_TRIGGERED"
	EventSpecialtyScored     = "SPECIALTY_SCORED"
	EventCandidatesGenerated = "CANDIDATES_GENERATED"
	EventQuestionEmitted     = "QUESTION_EMITTED"
	EventEnvelopeResult      = "ENVELOPE_RESULT"
	EventEnvelopeQuestion    = "ENVELOPE_QUESTION"
	EventEnvelopeEmergency   = "ENVELOPE_EMERGENCY"
	EventEnvelopeError       = "ENVELOPE_ERROR"
)

// Event is one observability record for a session turn.
type Event struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	TurnIndex int            `json:"turn_index"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
