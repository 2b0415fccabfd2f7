package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pre-triage-server/internal/domain"
)

func headacheCandidates() []domain.DiseaseCandidate {
	return []domain.DiseaseCandidate{
		{DiseaseLabel: "Migraine", Score: 0.44, Matched: []string{"headache"}, Missing: []string{"nausea"}},
		{DiseaseLabel: "Tension headache", Score: 0.44, Matched: []string{"headache"}, Missing: []string{"fever"}},
	}
}

func set(items ...string) domain.StringSet {
	s := domain.StringSet{}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

func TestSelect_PicksDiscriminativeQuestion(t *testing.T) {
	rt := loadTestRuntime(t, nil)
	sel := NewQuestionSelector(rt)

	q := sel.Select(headacheCandidates(), set("baş ağrısı"), set(), set("baş ağrısı"), "tr")
	require.NotNil(t, q)
	// headache is known, nausea has no canonical; fever discriminates
	// perfectly (carried by exactly half the pool).
	assert.Equal(t, "ateş", q.Canonical)
	assert.Equal(t, "Ateşiniz var mı?", q.Text)
	assert.Equal(t, domain.AnswerType("yes_no"), q.AnswerType)
}

func TestSelect_EnglishLocale(t *testing.T) {
	rt := loadTestRuntime(t, nil)
	sel := NewQuestionSelector(rt)

	q := sel.Select(headacheCandidates(), set("baş ağrısı"), set(), set("baş ağrısı"), "en-US")
	require.NotNil(t, q)
	assert.Equal(t, "Do you have a fever?", q.Text)
}

func TestSelect_NeedsTwoCandidates(t *testing.T) {
	rt := loadTestRuntime(t, nil)
	sel := NewQuestionSelector(rt)

	assert.Nil(t, sel.Select(nil, set(), set(), set(), "tr"))
	assert.Nil(t, sel.Select(headacheCandidates()[:1], set(), set(), set(), "tr"))
}

func TestSelect_SkipsAskedAndDenied(t *testing.T) {
	rt := loadTestRuntime(t, nil)
	sel := NewQuestionSelector(rt)

	asked := sel.Select(headacheCandidates(), set("baş ağrısı"), set(), set("baş ağrısı", "ateş"), "tr")
	assert.Nil(t, asked, "every remaining symptom is known, null-mapped or already asked")

	denied := sel.Select(headacheCandidates(), set("baş ağrısı"), set("ateş"), set("baş ağrısı"), "tr")
	assert.Nil(t, denied)
}

func TestSelect_EffectivenessWeighting(t *testing.T) {
	override := map[string]string{
		"question_effectiveness.json": `{
			"question_effectiveness": [
				{"canonical": "ateş", "effectiveness_0_1": 0.9, "balance_0_1": 0.8, "asked_count": 50}
			]
		}`,
	}
	rt := loadTestRuntime(t, override)
	sel := NewQuestionSelector(rt)

	q := sel.Select(headacheCandidates(), set("baş ağrısı"), set(), set("baş ağrısı"), "tr")
	require.NotNil(t, q)
	assert.Equal(t, "ateş", q.Canonical)
	// disc=1.0: 0.55*2.0 + 0.35*0.9 + 0.10*0.8
	assert.InDelta(t, 1.495, q.Score, 1e-9)
}

func TestSelect_CoveragePenalty(t *testing.T) {
	override := map[string]string{
		"question_effectiveness.json": `{
			"question_effectiveness": [
				{"canonical": "ateş", "effectiveness_0_1": 0.2, "balance_0_1": 0.5, "asked_count": 120}
			]
		}`,
	}
	rt := loadTestRuntime(t, override)
	sel := NewQuestionSelector(rt)

	q := sel.Select(headacheCandidates(), set("baş ağrısı"), set(), set("baş ağrısı"), "tr")
	require.NotNil(t, q)
	// 0.55*2.0 + 0.35*0.2 + 0.10*0.5 - 0.10 penalty
	assert.InDelta(t, 1.12, q.Score, 1e-9)
}

func TestSelect_PriorityBoost(t *testing.T) {
	override := map[string]string{
		"question_bank_tr.json": `{
			"questions": [
				{"canonical": "ateş", "text": "Ateşiniz var mı?", "answer_type": "yes_no",
				 "priority_when_known": ["baş ağrısı"]},
				{"canonical": "idrarda yanma", "text": "İdrar yaparken yanma oluyor mu?", "answer_type": "yes_no"}
			]
		}`,
	}
	rt := loadTestRuntime(t, override)
	sel := NewQuestionSelector(rt)

	q := sel.Select(headacheCandidates(), set("baş ağrısı"), set(), set("baş ağrısı"), "tr")
	require.NotNil(t, q)
	assert.Equal(t, "ateş", q.Canonical)
	assert.InDelta(t, 1.0+0.35, q.Score, 1e-9)
}

func TestSelect_SkipIfDenied(t *testing.T) {
	override := map[string]string{
		"question_bank_tr.json": `{
			"questions": [
				{"canonical": "ateş", "text": "Ateşiniz var mı?", "answer_type": "yes_no",
				 "skip_if_denied": ["idrarda yanma"]}
			]
		}`,
	}
	rt := loadTestRuntime(t, override)
	sel := NewQuestionSelector(rt)

	q := sel.Select(headacheCandidates(), set("baş ağrısı"), set("idrarda yanma"), set("baş ağrısı"), "tr")
	assert.Nil(t, q, "fever question is skipped when its prerequisite was denied")
}
