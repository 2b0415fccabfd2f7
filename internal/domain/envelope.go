package domain

import "time"

// Envelope is the single response shape for every turn. Exactly one of the
// payload pointers is set, matched by Type.
type Envelope struct {
	Type      EnvelopeType `json:"type"`
	SessionID string       `json:"session_id"`
	TurnIndex int          `json:"turn_index"`
	Timestamp time.Time    `json:"timestamp"`

	Question  *QuestionPayload  `json:"question,omitempty"`
	Result    *ResultPayload    `json:"result,omitempty"`
	Emergency *EmergencyPayload `json:"emergency,omitempty"`
	Error     *ErrorPayload     `json:"error,omitempty"`
}

// QuestionPayload asks one discriminative follow-up.
type QuestionPayload struct {
	Canonical  string     `json:"canonical"`
	Text       string     `json:"text"`
	AnswerType AnswerType `json:"answer_type"`
	Choices    []string   `json:"choices,omitempty"`
	AskedCount int        `json:"asked_count"`
}

// RankedCondition is one of the top possible conditions shown in a RESULT.
// It is informational, never a diagnosis.
type RankedCondition struct {
	Label string  `json:"label"`
	Score float64 `json:"score_0_1"`
}

// ResultPayload is the terminal routing recommendation.
type ResultPayload struct {
	SpecialtyID          string            `json:"specialty_id"`
	SpecialtyName        string            `json:"specialty_name"`
	Ranking              []RankedSpecialty `json:"ranking"`
	Conditions           []RankedCondition `json:"possible_conditions,omitempty"`
	Confidence           float64           `json:"confidence_0_1"`
	ConfidenceLabel      string            `json:"confidence_label"`
	ConfidenceExplain    string            `json:"confidence_explanation"`
	Risk                 RiskAssessment    `json:"risk"`
	Urgency              Urgency           `json:"urgency"`
	StopReason           string            `json:"stop_reason"`
	LowConfidence        bool              `json:"low_confidence"`
	SymptomSummary       []string          `json:"symptom_summary"`
	SafetyNotes          []string          `json:"safety_notes"`
	Disclaimer           string            `json:"disclaimer"`
}

// EmergencyPayload short-circuits the turn with a fixed directive.
type EmergencyPayload struct {
	Message     string   `json:"message"`
	MatchedRule string   `json:"matched_rule"`
	Reasons     []string `json:"reasons,omitempty"`
	Disclaimer  string   `json:"disclaimer"`
}

// ErrorPayload carries the typed error taxonomy.
type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// RiskAssessment is the explainable risk stratification of a RESULT.
type RiskAssessment struct {
	Level   RiskLevel `json:"level"`
	Score   float64   `json:"score_0_1"`
	Factors []string  `json:"factors"`
	Advice  string    `json:"advice"`
}

// Disclaimer is attached verbatim to every RESULT and EMERGENCY envelope.
const Disclaimer = "Bu uygulama tanı koymaz; bilgilendirme ve yönlendirme amaçlıdır."

// NewErrorEnvelope wraps a TriageError for a session turn.
func NewErrorEnvelope(sessionID string, turnIndex int, te *TriageError) Envelope {
	return Envelope{
		Type:      EnvelopeError,
		SessionID: sessionID,
		TurnIndex: turnIndex,
		Timestamp: time.Now().UTC(),
		Error: &ErrorPayload{
			Code:      te.Code,
			Message:   te.Message,
			Retryable: te.Retryable,
		},
	}
}
