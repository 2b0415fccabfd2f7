package service

import (
	"sort"

	"github.com/pre-triage-server/internal/domain"
	"github.com/pre-triage-server/internal/reference"
)

// priorPoints awards rank-based points to the specialty each disease
// candidate maps to. Rank 1 is the strongest prior.
var priorPoints = map[int]float64{1: 4, 2: 3, 3: 2, 4: 1, 5: 1}

// unmappedConfidence is applied when a disease has no specialty mapping
// and routes to the fallback.
const unmappedConfidence = 0.5

// Merger fuses the rule-based specialty scores with the disease-candidate
// prior into the final ranking.
type Merger struct {
	rt *reference.Runtime
}

func NewMerger(rt *reference.Runtime) *Merger {
	return &Merger{rt: rt}
}

// Priors converts the ranked disease candidates into per-specialty prior
// points weighted by mapping confidence.
func (m *Merger) Priors(candidates []domain.DiseaseCandidate) map[string]float64 {
	priors := map[string]float64{}
	for rank, candidate := range candidates {
		points, ok := priorPoints[rank+1]
		if !ok {
			continue
		}
		specialtyID := m.rt.FallbackSpecialtyID
		confidence := unmappedConfidence
		if mapping, mapped := m.rt.DiseaseToSpecialty[candidate.DiseaseLabel]; mapped {
			specialtyID = mapping.SpecialtyID
			confidence = mapping.Confidence
		}
		priors[specialtyID] += points * confidence
	}
	return priors
}

// Merge combines rules and priors over the union of specialty ids:
// final_score = rules_score + prior_score.
func (m *Merger) Merge(
	rules map[string]domain.SpecialtyScore,
	candidates []domain.DiseaseCandidate,
) map[string]domain.FinalScore {
	priors := m.Priors(candidates)

	ids := map[string]struct{}{}
	for sid := range rules {
		ids[sid] = struct{}{}
	}
	for sid := range priors {
		ids[sid] = struct{}{}
	}

	final := make(map[string]domain.FinalScore, len(ids))
	for sid := range ids {
		rule := rules[sid]
		prior := priors[sid]
		final[sid] = domain.FinalScore{
			FinalScore:   rule.Score + prior,
			RulesScore:   rule.Score,
			PriorScore:   prior,
			KeywordScore: rule.KeywordScore,
			DisplayName:  m.displayName(sid),
		}
	}
	return final
}

// Rank orders the merged scores by the strict total order
// (-final_score, -keyword_score, specialty_id). When every final score is
// zero or below, the fallback specialty is returned alone at score zero.
func (m *Merger) Rank(final map[string]domain.FinalScore) []domain.RankedSpecialty {
	ranked := make([]domain.RankedSpecialty, 0, len(final))
	for sid, fs := range final {
		ranked = append(ranked, domain.RankedSpecialty{ID: sid, FinalScore: fs})
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.FinalScore.FinalScore != b.FinalScore.FinalScore {
			return a.FinalScore.FinalScore > b.FinalScore.FinalScore
		}
		if a.KeywordScore != b.KeywordScore {
			return a.KeywordScore > b.KeywordScore
		}
		return a.ID < b.ID
	})

	if len(ranked) == 0 || ranked[0].FinalScore.FinalScore <= 0 {
		return []domain.RankedSpecialty{{
			ID: m.rt.FallbackSpecialtyID,
			FinalScore: domain.FinalScore{
				DisplayName: m.rt.FallbackSpecialtyName,
			},
		}}
	}
	return ranked
}

// SpecialtyGap returns top1 minus top2 of the final scores, or top1 when
// only one specialty scored.
func (m *Merger) SpecialtyGap(ranked []domain.RankedSpecialty) float64 {
	if len(ranked) == 0 {
		return 0
	}
	if len(ranked) == 1 {
		return ranked[0].FinalScore.FinalScore
	}
	return ranked[0].FinalScore.FinalScore - ranked[1].FinalScore.FinalScore
}

func (m *Merger) displayName(specialtyID string) string {
	if spec, ok := m.rt.SpecialtyByID[specialtyID]; ok && spec.DisplayName != "" {
		return spec.DisplayName
	}
	labels := make([]string, 0, len(m.rt.DiseaseToSpecialty))
	for label := range m.rt.DiseaseToSpecialty {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		mapping := m.rt.DiseaseToSpecialty[label]
		if mapping.SpecialtyID == specialtyID && mapping.DisplayName != "" {
			return mapping.DisplayName
		}
	}
	if specialtyID == m.rt.FallbackSpecialtyID && m.rt.FallbackSpecialtyName != "" {
		return m.rt.FallbackSpecialtyName
	}
	return specialtyID
}
