package service

import (
	"sort"
	"strings"

	"github.com/pre-triage-server/internal/domain"
	"github.com/pre-triage-server/internal/reference"
)

// SelectedQuestion is the selector's pick for the next turn.
type SelectedQuestion struct {
	Canonical  string
	Text       string
	AnswerType domain.AnswerType
	Choices    []string
	Score      float64
}

// QuestionSelector picks the most discriminative unasked question from the
// bank, using candidate overlap, skip rules, priority boosts and optional
// historical effectiveness data.
type QuestionSelector struct {
	rt *reference.Runtime
}

func NewQuestionSelector(rt *reference.Runtime) *QuestionSelector {
	return &QuestionSelector{rt: rt}
}

// Select returns nil when fewer than two candidates remain (nothing to
// discriminate) or no bank question survives the filters. Ties break on
// ascending canonical for determinism.
func (s *QuestionSelector) Select(
	candidates []domain.DiseaseCandidate,
	known, denied, asked domain.StringSet,
	locale string,
) *SelectedQuestion {
	if len(candidates) < 2 {
		return nil
	}

	// Count per reference symptom how many candidates carry it.
	counts := map[string]int{}
	for _, candidate := range candidates {
		for _, sym := range candidate.Matched {
			counts[sym]++
		}
		for _, sym := range candidate.Missing {
			counts[sym]++
		}
	}
	poolSize := float64(len(candidates))

	best := map[string]float64{}
	for _, sym := range sortedCountKeys(counts) {
		canonical, ok := s.rt.ReferenceToCanonical[sym]
		if !ok {
			continue
		}
		if known.Has(canonical) || denied.Has(canonical) || asked.Has(canonical) {
			continue
		}
		question, inBank := s.rt.QuestionsByCanonical[canonical]
		if !inBank {
			continue
		}
		if skipDenied(question, denied) {
			continue
		}

		disc := 1.0 - abs(float64(counts[sym])/poolSize-0.5)
		score := s.weightByEffectiveness(canonical, disc)
		if boostApplies(question, known) {
			score += 0.35
		}

		if prev, seen := best[canonical]; !seen || score > prev {
			best[canonical] = score
		}
	}

	if len(best) == 0 {
		return nil
	}

	canonicals := make([]string, 0, len(best))
	for c := range best {
		canonicals = append(canonicals, c)
	}
	sort.Slice(canonicals, func(i, j int) bool {
		if best[canonicals[i]] != best[canonicals[j]] {
			return best[canonicals[i]] > best[canonicals[j]]
		}
		return canonicals[i] < canonicals[j]
	})

	winner := canonicals[0]
	question := s.rt.QuestionsByCanonical[winner]
	text, choices := localizedQuestion(question, locale)
	return &SelectedQuestion{
		Canonical:  winner,
		Text:       text,
		AnswerType: domain.AnswerType(question.AnswerType),
		Choices:    choices,
		Score:      best[winner],
	}
}

// weightByEffectiveness blends historical data in when available:
// 0.55*(2*disc) + 0.35*effectiveness + 0.10*balance - coverage penalty.
// Without an effectiveness row the raw discrimination score stands alone.
func (s *QuestionSelector) weightByEffectiveness(canonical string, disc float64) float64 {
	row, ok := s.rt.Effectiveness[canonical]
	if !ok {
		return disc
	}
	coveragePenalty := 0.0
	if row.AskedCount >= 80 && row.Effectiveness < 0.35 {
		coveragePenalty = 0.10
	}
	return 0.55*(2*disc) + 0.35*row.Effectiveness + 0.10*row.Balance - coveragePenalty
}

func skipDenied(q *reference.Question, denied domain.StringSet) bool {
	for _, prereq := range q.SkipIfDenied {
		if denied.Has(prereq) {
			return true
		}
	}
	return false
}

func boostApplies(q *reference.Question, known domain.StringSet) bool {
	for _, token := range q.PriorityWhenKnown {
		if known.Has(token) {
			return true
		}
	}
	return false
}

func localizedQuestion(q *reference.Question, locale string) (string, []string) {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(locale)), "en") {
		if q.TextEN != "" {
			choices := q.ChoicesEN
			if len(choices) == 0 {
				choices = q.Choices
			}
			return q.TextEN, choices
		}
	}
	return q.Text, q.Choices
}

func sortedCountKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
