package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pre-triage-server/internal/domain"
)

func TestComputeConfidence(t *testing.T) {
	assert.InDelta(t, 0.0, ComputeConfidence(nil), 1e-9)

	single := []domain.DiseaseCandidate{{Score: 0.6}}
	// 0.75*0.6 + 0.6*0.6
	assert.InDelta(t, 0.81, ComputeConfidence(single), 1e-9)

	pair := []domain.DiseaseCandidate{{Score: 0.6}, {Score: 0.5}}
	// 0.75*0.6 + 0.6*0.1
	assert.InDelta(t, 0.51, ComputeConfidence(pair), 1e-9)

	capped := []domain.DiseaseCandidate{{Score: 1.0}, {Score: 0.0}}
	assert.InDelta(t, 1.0, ComputeConfidence(capped), 1e-9)
}

func TestConfidenceLabel(t *testing.T) {
	assert.Equal(t, "Yüksek", ConfidenceLabel(0.7))
	assert.Equal(t, "Orta", ConfidenceLabel(0.45))
	assert.Equal(t, "Orta", ConfidenceLabel(0.69))
	assert.Equal(t, "Düşük", ConfidenceLabel(0.44))
}

func TestConfidenceExplanation(t *testing.T) {
	for _, label := range []string{"Yüksek", "Orta", "Düşük"} {
		assert.NotEmpty(t, ConfidenceExplanation(label))
	}
	assert.Equal(t, ConfidenceExplanation("Düşük"), ConfidenceExplanation("unknown"))
}
