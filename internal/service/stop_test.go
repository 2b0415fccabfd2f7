package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pre-triage-server/internal/reference"
)

func defaultStopRules() reference.StopRules {
	return reference.StopRules{
		MaxQuestions:               6,
		HighConfidenceDiseaseScore: 0.45,
		MinSpecialtyScoreGap:       2.0,
	}
}

func TestStop_MaxQuestions(t *testing.T) {
	c := NewStopController(defaultStopRules())

	d := c.Evaluate(6, 0.1, 0.5, false)
	assert.True(t, d.Stop)
	assert.Equal(t, "MAX_QUESTIONS_REACHED", d.Reason)
	assert.True(t, d.LowConfidence)
}

func TestStop_BudgetWinsOverOtherRules(t *testing.T) {
	c := NewStopController(defaultStopRules())

	d := c.Evaluate(7, 0.9, 10.0, true)
	assert.Equal(t, "MAX_QUESTIONS_REACHED", d.Reason)
}

func TestStop_HighConfidenceDisease(t *testing.T) {
	c := NewStopController(defaultStopRules())

	d := c.Evaluate(2, 0.45, 0.5, false)
	assert.True(t, d.Stop)
	assert.Equal(t, "HIGH_CONFIDENCE_SINGLE_DISEASE", d.Reason)
	assert.False(t, d.LowConfidence)
}

func TestStop_ClearSpecialtyWinner(t *testing.T) {
	c := NewStopController(defaultStopRules())

	d := c.Evaluate(2, 0.1, 2.0, false)
	assert.True(t, d.Stop)
	assert.Equal(t, "CLEAR_SPECIALTY_WINNER", d.Reason)
}

func TestStop_NoQuestionsLeft(t *testing.T) {
	c := NewStopController(defaultStopRules())

	d := c.Evaluate(2, 0.1, 0.5, true)
	assert.True(t, d.Stop)
	assert.Equal(t, "NO_MORE_DISCRIMINATIVE_QUESTIONS", d.Reason)
}

func TestStop_Continue(t *testing.T) {
	c := NewStopController(defaultStopRules())

	d := c.Evaluate(2, 0.1, 0.5, false)
	assert.False(t, d.Stop)
	assert.Empty(t, d.Reason)
}
