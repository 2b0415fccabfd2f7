package service

import (
	"sort"
	"strings"

	"github.com/pre-triage-server/internal/domain"
	"github.com/pre-triage-server/internal/reference"
	"github.com/pre-triage-server/internal/turkish"
)

// SpecialtyScorer accumulates rule-based evidence per specialty. The
// NO_DOUBLE_COUNT_SAME_CANONICAL policy is enforced through the persisted
// matched_canonicals set: a canonical credits a specialty at most once per
// session, no matter how often it is re-mentioned.
type SpecialtyScorer struct {
	rt *reference.Runtime

	keywordPoints   float64
	phrasePoints    float64
	negativePenalty float64
}

func NewSpecialtyScorer(rt *reference.Runtime, cfg *domain.EngineConfig) *SpecialtyScorer {
	s := &SpecialtyScorer{
		rt:              rt,
		keywordPoints:   cfg.KeywordPoints,
		phrasePoints:    cfg.PhrasePoints,
		negativePenalty: cfg.NegativePenalty,
	}
	// Corpus scoring block wins over config defaults when present.
	if rt.Scoring.KeywordPoints != 0 {
		s.keywordPoints = rt.Scoring.KeywordPoints
	}
	if rt.Scoring.PhrasePoints != 0 {
		s.phrasePoints = rt.Scoring.PhrasePoints
	}
	if rt.Scoring.NegativePenalty != 0 {
		s.negativePenalty = rt.Scoring.NegativePenalty
	}
	return s
}

// Score evaluates the new evidence of one turn (fresh text plus the newly
// received answers) on top of the prior cumulative scores. The prior map is
// not mutated.
func (s *SpecialtyScorer) Score(
	text string,
	answers map[string]string,
	prior map[string]domain.SpecialtyScore,
) map[string]domain.SpecialtyScore {
	normalized := turkish.Normalize(text)

	// Phrase tier: synonym variants present in the text, longest first.
	// The first matching variant per canonical is its representative.
	var phraseOrder []string
	phraseRep := map[string]string{}
	locked := map[string]struct{}{}
	for _, variant := range s.rt.SynonymIndex {
		if !strings.Contains(normalized, variant.Phrase) {
			continue
		}
		if _, seen := phraseRep[variant.Canonical]; !seen {
			phraseRep[variant.Canonical] = variant.Phrase
			phraseOrder = append(phraseOrder, variant.Canonical)
		}
		locked[variant.Canonical] = struct{}{}
	}

	// Keyword tier: canonical literals present but not phrase-locked.
	var keywordCanonicals []string
	for _, c := range sortedKeys(s.rt.CanonicalSet) {
		if _, isLocked := locked[c]; isLocked {
			continue
		}
		if strings.Contains(normalized, c) {
			keywordCanonicals = append(keywordCanonicals, c)
			locked[c] = struct{}{}
		}
	}

	scores := make(map[string]domain.SpecialtyScore, len(s.rt.Specialties))
	for i := range s.rt.Specialties {
		spec := &s.rt.Specialties[i]
		if spec.ID == "" {
			continue
		}

		score := domain.SpecialtyScore{MatchedCanonicals: domain.StringSet{}}
		if prev, ok := prior[spec.ID]; ok {
			score = prev.Clone()
		}

		keywordSet := map[string]struct{}{}
		for _, kw := range spec.Keywords {
			keywordSet[turkish.Lower(kw)] = struct{}{}
		}

		for _, canonical := range phraseOrder {
			if score.MatchedCanonicals.Has(canonical) {
				continue
			}
			_, canonicalHit := keywordSet[canonical]
			_, phraseHit := keywordSet[phraseRep[canonical]]
			if canonicalHit || phraseHit {
				score.Score += s.phrasePoints
				score.PhraseScore += s.phrasePoints
				score.MatchedCanonicals.Add(canonical)
			}
		}

		for _, canonical := range keywordCanonicals {
			if score.MatchedCanonicals.Has(canonical) {
				continue
			}
			if _, ok := keywordSet[canonical]; ok {
				score.Score += s.keywordPoints
				score.KeywordScore += s.keywordPoints
				score.MatchedCanonicals.Add(canonical)
			}
		}

		// Specialty keyword literals present in raw text that no synonym
		// covered. Multi-word literals count as phrases.
		for _, kw := range spec.Keywords {
			literal := turkish.Lower(kw)
			if literal == "" || score.MatchedCanonicals.Has(literal) {
				continue
			}
			if !strings.Contains(normalized, literal) {
				continue
			}
			if strings.Contains(literal, " ") {
				score.Score += s.phrasePoints
				score.PhraseScore += s.phrasePoints
			} else {
				score.Score += s.keywordPoints
				score.KeywordScore += s.keywordPoints
			}
			score.MatchedCanonicals.Add(literal)
		}

		for _, neg := range spec.NegativeKeywords {
			literal := turkish.Lower(neg)
			if literal != "" && strings.Contains(normalized, literal) {
				score.Score += s.negativePenalty
				score.NegativePenalties += s.negativePenalty
			}
		}

		s.applyAnswerBoosts(spec, answers, &score)

		scores[spec.ID] = score
	}

	// Carry forward prior entries for specialties no longer in the corpus.
	for sid, prev := range prior {
		if _, ok := scores[sid]; !ok {
			scores[sid] = prev.Clone()
		}
	}

	return scores
}

// applyAnswerBoosts folds structured answers in. Explicit answer_boosts on
// the specialty win; otherwise a yes on a keyword canonical earns 0.7 of a
// keyword hit and a no costs 0.3 of one.
func (s *SpecialtyScorer) applyAnswerBoosts(
	spec *reference.Specialty,
	answers map[string]string,
	score *domain.SpecialtyScore,
) {
	if len(answers) == 0 {
		return
	}

	if len(spec.AnswerBoosts) > 0 {
		for canonical, rule := range spec.AnswerBoosts {
			key := turkish.Normalize(canonical)
			value, answered := answers[key]
			if !answered {
				continue
			}
			if delta, ok := rule[strings.ToLower(strings.TrimSpace(value))]; ok {
				score.Score += delta
			}
		}
		return
	}

	for _, kw := range spec.Keywords {
		key := turkish.Normalize(kw)
		value, answered := answers[key]
		if !answered {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "yes":
			score.Score += s.keywordPoints * 0.7
		case "no":
			score.Score -= s.keywordPoints * 0.3
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
