package service

import (
	"sort"
	"strings"

	"github.com/pre-triage-server/internal/domain"
	"github.com/pre-triage-server/internal/reference"
)

// CandidateGenerator scores user canonicals against the disease-symptom
// matrix with a weighted Jaccard similarity.
type CandidateGenerator struct {
	rt           *reference.Runtime
	topK         int
	minScore     float64
	severityStep float64
}

func NewCandidateGenerator(rt *reference.Runtime, cfg *domain.EngineConfig) *CandidateGenerator {
	return &CandidateGenerator{
		rt:           rt,
		topK:         cfg.CandidateTopK,
		minScore:     cfg.CandidateMinScore,
		severityStep: cfg.SeverityWeightStep,
	}
}

// Generate ranks diseases by weighted Jaccard over the reference symptom
// space. Output is sorted by descending score with ascending disease label
// as the tie-break, truncated to top_k.
func (g *CandidateGenerator) Generate(canonicals []string) []domain.DiseaseCandidate {
	if len(canonicals) == 0 {
		return nil
	}

	userRefs := g.toReferenceSpace(canonicals)
	if len(userRefs) == 0 {
		return nil
	}

	var results []domain.DiseaseCandidate
	for disease, symptoms := range g.rt.DiseaseSymptoms {
		diseaseSet := make(map[string]struct{}, len(symptoms))
		for _, s := range symptoms {
			diseaseSet[s] = struct{}{}
		}

		var numerator, denominator float64
		var matched, missing []string
		for s := range userRefs {
			w := g.rt.SeverityWeight(s, g.severityStep)
			denominator += w
			if _, ok := diseaseSet[s]; ok {
				numerator += w
				matched = append(matched, s)
			}
		}
		for s := range diseaseSet {
			if _, ok := userRefs[s]; !ok {
				denominator += g.rt.SeverityWeight(s, g.severityStep)
				missing = append(missing, s)
			}
		}
		if denominator == 0 {
			continue
		}

		score := numerator / denominator
		if score < g.minScore {
			continue
		}
		sort.Strings(matched)
		sort.Strings(missing)
		results = append(results, domain.DiseaseCandidate{
			DiseaseLabel: disease,
			Score:        score,
			Matched:      matched,
			Missing:      missing,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DiseaseLabel < results[j].DiseaseLabel
	})
	if len(results) > g.topK {
		results = results[:g.topK]
	}
	return results
}

// toReferenceSpace translates canonicals to reference symptoms via the
// inverse index. Canonicals without an index entry fall back to a direct
// snake_case match against the matrix keys; that fallback keeps sparse
// mappings usable but can mask corpus gaps, so the loader warns about them.
func (g *CandidateGenerator) toReferenceSpace(canonicals []string) map[string]struct{} {
	refs := map[string]struct{}{}
	for _, c := range canonicals {
		if mapped, ok := g.rt.CanonicalToReference[c]; ok {
			for _, r := range mapped {
				refs[r] = struct{}{}
			}
			continue
		}
		direct := strings.ReplaceAll(c, " ", "_")
		if g.rt.KnownReferenceSymptom(direct) {
			refs[direct] = struct{}{}
		}
	}
	return refs
}
