package reference

import "regexp"

// SynonymVariant is one (variant phrase, canonical) pair of the synonym
// index, kept in longest-first order for deterministic longest-match.
type SynonymVariant struct {
	Phrase    string
	Canonical string
}

// SpecialtyMapping routes a disease label to a specialty.
type SpecialtyMapping struct {
	DiseaseLabel string  `json:"disease_label"`
	SpecialtyID  string  `json:"specialty_id"`
	DisplayName  string  `json:"display_name"`
	Confidence   float64 `json:"confidence"`
}

// Specialty is one entry of the specialty keyword corpus.
type Specialty struct {
	ID               string                        `json:"id"`
	DisplayName      string                        `json:"display_name"`
	Keywords         []string                      `json:"keywords"`
	NegativeKeywords []string                      `json:"negative_keywords"`
	AnswerBoosts     map[string]map[string]float64 `json:"answer_boosts,omitempty"`
}

// ScoringPoints are the specialty scoring constants from the corpus.
type ScoringPoints struct {
	KeywordPoints   float64 `json:"keyword_points"`
	PhrasePoints    float64 `json:"phrase_points"`
	NegativePenalty float64 `json:"negative_penalty"`
}

// Question is one entry of the follow-up question bank.
type Question struct {
	Canonical        string   `json:"canonical"`
	Text             string   `json:"text"`
	TextEN           string   `json:"text_en,omitempty"`
	AnswerType       string   `json:"answer_type"`
	Choices          []string `json:"choices,omitempty"`
	ChoicesEN        []string `json:"choices_en,omitempty"`
	PriorityWhenKnown []string `json:"priority_when_known,omitempty"`
	SkipIfDenied     []string `json:"skip_if_denied,omitempty"`
}

// HardTrigger fires EMERGENCY unconditionally on keyword or regex hit.
type HardTrigger struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Keywords []string `json:"keywords"`
	Regex    string   `json:"regex,omitempty"`

	compiled *regexp.Regexp
}

// Compile builds the case-insensitive pattern for the trigger's regex.
// No-op when the trigger is keyword-only.
func (t *HardTrigger) Compile() error {
	if t.Regex == "" {
		return nil
	}
	re, err := regexp.Compile("(?i)" + t.Regex)
	if err != nil {
		return err
	}
	t.compiled = re
	return nil
}

// SoftTrigger needs an amplifying condition (high-risk age) to escalate.
type SoftTrigger struct {
	ID                string   `json:"id"`
	Label             string   `json:"label"`
	Keywords          []string `json:"keywords"`
	FollowUpQuestions []string `json:"follow_up_questions,omitempty"`
}

// AgeRisk holds the two high-risk age intervals.
type AgeRisk struct {
	Min  int `json:"min"`
	Max  int `json:"max"`
	Min2 int `json:"min2"`
	Max2 int `json:"max2"`
}

// EmergencyRules is the safety-guard rule file.
type EmergencyRules struct {
	HardTriggers []HardTrigger `json:"hard_triggers"`
	SoftTriggers []SoftTrigger `json:"soft_triggers"`
	AgeRisk      AgeRisk       `json:"age_risk"`
	Instructions []string      `json:"instructions"`
}

// RiskBand lists the canonicals that push a session into a risk band.
type RiskBand struct {
	CanonicalsAny         []string `json:"canonicals_any"`
	SameDayRequired       bool     `json:"same_day_required,omitempty"`
	SameDayIfTrue         *bool    `json:"same_day_if_true,omitempty"`
	MinConfidenceFallback float64  `json:"min_confidence_fallback,omitempty"`
}

// RiskRules is the risk stratification rule file.
type RiskRules struct {
	High   RiskBand `json:"high"`
	Medium RiskBand `json:"medium"`
}

// StopRules holds the stop-controller thresholds.
type StopRules struct {
	MaxQuestions              int     `json:"max_questions"`
	HighConfidenceDiseaseScore float64 `json:"high_confidence_disease_score"`
	MinSpecialtyScoreGap      float64 `json:"min_specialty_score_gap"`
}

// Effectiveness is historical per-question performance data.
type Effectiveness struct {
	Canonical     string  `json:"canonical"`
	AskedCount    int     `json:"asked_count"`
	Effectiveness float64 `json:"effectiveness_0_1"`
	Balance       float64 `json:"balance_0_1"`
}
