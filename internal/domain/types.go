package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// EnvelopeType discriminates the four envelope kinds a turn can produce.
type EnvelopeType string

const (
	EnvelopeQuestion  EnvelopeType = "QUESTION"
	EnvelopeResult    EnvelopeType = "RESULT"
	EnvelopeEmergency EnvelopeType = "EMERGENCY"
	EnvelopeError     EnvelopeType = "ERROR"
)

// RiskLevel is the stratified risk band for a RESULT.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Urgency tells the user how quickly to seek care.
type Urgency string

const (
	UrgencyEmergency   Urgency = "EMERGENCY"
	UrgencyERNow       Urgency = "ER_NOW"
	UrgencySameDay     Urgency = "SAME_DAY"
	UrgencyWithin3Days Urgency = "WITHIN_3_DAYS"
	UrgencyRoutine     Urgency = "ROUTINE"
)

// AnswerType describes how a follow-up question expects to be answered.
type AnswerType string

const (
	AnswerYesNo       AnswerType = "yes_no"
	AnswerNumber      AnswerType = "number"
	AnswerMultiChoice AnswerType = "multi_choice"
	AnswerFreeText    AnswerType = "free_text"
)

// Stop reasons emitted by the stop controller.
const (
	StopMaxQuestions       = "MAX_QUESTIONS_REACHED"
	StopHighConfidence     = "HIGH_CONFIDENCE_SINGLE_DISEASE"
	StopClearWinner        = "CLEAR_SPECIALTY_WINNER"
	StopNoMoreQuestions    = "NO_MORE_DISCRIMINATIVE_QUESTIONS"
	StopEmergencyDetected  = "EMERGENCY_DETECTED"
)

// StringSet is a set of canonical symptom keys that marshals as a sorted
// JSON array so persisted state and envelopes stay byte-deterministic.
type StringSet map[string]struct{}

func NewStringSet(items ...string) StringSet {
	s := make(StringSet, len(items))
	for _, it := range items {
		s.Add(it)
	}
	return s
}

func (s StringSet) Add(key string) {
	s[key] = struct{}{}
}

func (s StringSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

func (s StringSet) Remove(key string) {
	delete(s, key)
}

// Sorted returns the members in lexicographic order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Intersects reports whether the two sets share any member.
func (s StringSet) Intersects(other StringSet) bool {
	for k := range s {
		if other.Has(k) {
			return true
		}
	}
	return false
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *StringSet) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = NewStringSet(items...)
	return nil
}

// SpecialtyScore is the cumulative rule-based score for one specialty.
// Positive components only ever grow; negatives accumulate separately.
type SpecialtyScore struct {
	Score             float64   `json:"score"`
	PhraseScore       float64   `json:"phrase_score"`
	KeywordScore      float64   `json:"keyword_score"`
	NegativePenalties float64   `json:"negative_penalties"`
	MatchedCanonicals StringSet `json:"matched_canonicals"`
}

// Clone returns a deep copy so a turn can score without mutating prior state.
func (s SpecialtyScore) Clone() SpecialtyScore {
	out := s
	out.MatchedCanonicals = NewStringSet(s.MatchedCanonicals.Sorted()...)
	return out
}

// DiseaseCandidate is one row of the weighted-Jaccard ranking.
// Matched and Missing hold reference-symptom keys, sorted.
type DiseaseCandidate struct {
	DiseaseLabel string   `json:"disease_label"`
	Score        float64  `json:"score_0_1"`
	Matched      []string `json:"matched_symptoms"`
	Missing      []string `json:"missing_symptoms"`
}

// FinalScore is the merged specialty score (rules + disease prior).
type FinalScore struct {
	FinalScore   float64 `json:"final_score"`
	RulesScore   float64 `json:"rules_score"`
	PriorScore   float64 `json:"prior_score"`
	KeywordScore float64 `json:"keyword_score"`
	DisplayName  string  `json:"display_name"`
}

// RankedSpecialty is a FinalScore with its id, in ranking order.
type RankedSpecialty struct {
	ID string `json:"id"`
	FinalScore
}

// Profile carries optional user attributes used by safety and risk rules.
type Profile struct {
	Age      *int  `json:"age,omitempty"`
	Pregnant *bool `json:"pregnant,omitempty"`
}

// Session is the per-session triage state. The scoring maps and symptom
// sets grow monotonically across turns; DiseaseCandidates and FinalScores
// are rebuilt every turn and persisted only for observability.
type Session struct {
	ID        string `json:"id"`
	Locale    string `json:"locale"`
	TurnIndex int    `json:"turn_index"`

	RawText string            `json:"input_text"`
	Answers map[string]string `json:"answers"`

	Known  StringSet `json:"known_symptoms"`
	Denied StringSet `json:"denied_symptoms"`
	Asked  StringSet `json:"asked_canonicals"`

	SpecialtyScores map[string]SpecialtyScore `json:"specialty_scores"`

	DiseaseCandidates []DiseaseCandidate    `json:"disease_candidates,omitempty"`
	FinalScores       map[string]FinalScore `json:"final_scores,omitempty"`

	Confidence   float64   `json:"confidence_0_1"`
	RiskLevel    RiskLevel `json:"risk_level,omitempty"`
	StopReason   string    `json:"stop_reason,omitempty"`
	EnvelopeType string    `json:"envelope_type,omitempty"`
	IsComplete   bool      `json:"is_complete"`

	DurationDays *int     `json:"duration_days,omitempty"`
	Profile      *Profile `json:"profile,omitempty"`

	Meta map[string]any `json:"meta,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession initializes the maps and sets so callers never nil-check them.
func NewSession(id, locale string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:              id,
		Locale:          locale,
		Answers:         map[string]string{},
		Known:           StringSet{},
		Denied:          StringSet{},
		Asked:           StringSet{},
		SpecialtyScores: map[string]SpecialtyScore{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Clone deep-copies the session so a turn can be retried from pristine state
// after an optimistic-concurrency conflict.
func (s *Session) Clone() *Session {
	out := *s
	out.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	out.Known = NewStringSet(s.Known.Sorted()...)
	out.Denied = NewStringSet(s.Denied.Sorted()...)
	out.Asked = NewStringSet(s.Asked.Sorted()...)
	out.SpecialtyScores = make(map[string]SpecialtyScore, len(s.SpecialtyScores))
	for k, v := range s.SpecialtyScores {
		out.SpecialtyScores[k] = v.Clone()
	}
	out.DiseaseCandidates = append([]DiseaseCandidate(nil), s.DiseaseCandidates...)
	out.FinalScores = make(map[string]FinalScore, len(s.FinalScores))
	for k, v := range s.FinalScores {
		out.FinalScores[k] = v
	}
	if s.Meta != nil {
		out.Meta = make(map[string]any, len(s.Meta))
		for k, v := range s.Meta {
			out.Meta[k] = v
		}
	}
	if s.DurationDays != nil {
		d := *s.DurationDays
		out.DurationDays = &d
	}
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	return &out
}
