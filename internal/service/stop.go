package service

import "github.com/pre-triage-server/internal/reference"

// StopDecision is the stop controller's verdict for a turn.
type StopDecision struct {
	Stop          bool
	Reason        string
	LowConfidence bool
}

// StopController decides QUESTION vs RESULT. Rules are evaluated in strict
// priority order: question budget, disease confidence, specialty gap,
// question availability.
type StopController struct {
	rules reference.StopRules
}

func NewStopController(rules reference.StopRules) *StopController {
	return &StopController{rules: rules}
}

func (c *StopController) Evaluate(
	turnIndex int,
	topDiseaseScore float64,
	specialtyGap float64,
	noQuestionAvailable bool,
) StopDecision {
	if turnIndex >= c.rules.MaxQuestions {
		return StopDecision{Stop: true, Reason: "MAX_QUESTIONS_REACHED", LowConfidence: true}
	}
	if topDiseaseScore >= c.rules.HighConfidenceDiseaseScore {
		return StopDecision{Stop: true, Reason: "HIGH_CONFIDENCE_SINGLE_DISEASE"}
	}
	if specialtyGap >= c.rules.MinSpecialtyScoreGap {
		return StopDecision{Stop: true, Reason: "CLEAR_SPECIALTY_WINNER"}
	}
	if noQuestionAvailable {
		return StopDecision{Stop: true, Reason: "NO_MORE_DISCRIMINATIVE_QUESTIONS"}
	}
	return StopDecision{}
}
