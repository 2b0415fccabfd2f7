package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pre-triage-server/internal/domain"
)

func TestScorer_PhraseTier(t *testing.T) {
	rt := loadTestRuntime(t, nil)
	s := NewSpecialtyScorer(rt, testEngineConfig())

	scores := s.Score("başım ağrıyor", nil, nil)

	neuro := scores["neurology"]
	assert.InDelta(t, 5.0, neuro.Score, 1e-9)
	assert.InDelta(t, 5.0, neuro.PhraseScore, 1e-9)
	assert.True(t, neuro.MatchedCanonicals.Has("baş ağrısı"))
	assert.InDelta(t, 0.0, scores["urology_internal"].Score, 1e-9)
}

func TestScorer_NoDoubleCountAcrossTurns(t *testing.T) {
	rt := loadTestRuntime(t, nil)
	s := NewSpecialtyScorer(rt, testEngineConfig())

	first := s.Score("başım ağrıyor", nil, nil)
	// Re-mentioning the same canonical in a later turn adds nothing.
	second := s.Score("başım ağrıyor", nil, first)

	assert.InDelta(t, first["neurology"].Score, second["neurology"].Score, 1e-9)
	assert.InDelta(t, first["neurology"].PhraseScore, second["neurology"].PhraseScore, 1e-9)
}

func TestScorer_NegativePenalty(t *testing.T) {
	rt := loadTestRuntime(t, nil)
	s := NewSpecialtyScorer(rt, testEngineConfig())

	scores := s.Score("idrarda yanma oluyor", nil, nil)

	assert.InDelta(t, 5.0, scores["urology_internal"].Score, 1e-9)
	// "idrarda yanma" is a negative keyword for neurology.
	assert.InDelta(t, -4.0, scores["neurology"].Score, 1e-9)
	assert.InDelta(t, -4.0, scores["neurology"].NegativePenalties, 1e-9)
}

func TestScorer_AnswerBoostDefaults(t *testing.T) {
	rt := loadTestRuntime(t, nil)
	s := NewSpecialtyScorer(rt, testEngineConfig())

	yes := s.Score("", map[string]string{"ateş": "yes"}, nil)
	assert.InDelta(t, 3.0*0.7, yes["internal_gi"].Score, 1e-9)

	no := s.Score("", map[string]string{"ateş": "no"}, nil)
	assert.InDelta(t, -3.0*0.3, no["internal_gi"].Score, 1e-9)
}

func TestScorer_CorpusPointsOverrideConfig(t *testing.T) {
	rt := loadTestRuntime(t, nil)
	cfg := testEngineConfig()
	cfg.PhrasePoints = 99 // corpus scoring block wins
	s := NewSpecialtyScorer(rt, cfg)

	scores := s.Score("başım ağrıyor", nil, nil)
	assert.InDelta(t, 5.0, scores["neurology"].Score, 1e-9)
}

func TestScorer_PriorNotMutated(t *testing.T) {
	rt := loadTestRuntime(t, nil)
	s := NewSpecialtyScorer(rt, testEngineConfig())

	prior := map[string]domain.SpecialtyScore{
		"neurology": {Score: 5, PhraseScore: 5, MatchedCanonicals: domain.StringSet{}},
	}
	_ = s.Score("idrarda yanma", nil, prior)

	require.Contains(t, prior, "neurology")
	assert.InDelta(t, 5.0, prior["neurology"].Score, 1e-9)
	assert.Empty(t, prior["neurology"].MatchedCanonicals)
}
