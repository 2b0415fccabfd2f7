package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pre-triage-server/internal/domain"
	"github.com/pre-triage-server/internal/reference"
)

// Fixed safety notes attached to every RESULT.
var baseSafetyNotes = []string{
	"Belirtileriniz kötüleşirse veya yeni belirtiler eklenirse vakit kaybetmeden bir sağlık kuruluşuna başvurun.",
	"Bu değerlendirme bir hekim muayenesinin yerini tutmaz.",
}

// Amendment appended when the recommended specialty is neurology or
// cardiology: sudden-onset symptoms in those domains warrant 112.
const neuroCardiacNote = "Ani başlayan şiddetli belirtilerde (konuşma bozukluğu, yüz felci, şiddetli göğüs ağrısı) 112'yi arayın."

// Condition labels whose presence at the top forces same-day urgency.
var sameDayConditionHints = []string{"heart attack", "paralysis", "brain hemorrhage"}

// EnvelopeBuilder assembles the four envelope kinds with a stable shape.
type EnvelopeBuilder struct {
	rt *reference.Runtime
}

func NewEnvelopeBuilder(rt *reference.Runtime) *EnvelopeBuilder {
	return &EnvelopeBuilder{rt: rt}
}

func (b *EnvelopeBuilder) Question(session *domain.Session, q *SelectedQuestion) domain.Envelope {
	return domain.Envelope{
		Type:      domain.EnvelopeQuestion,
		SessionID: session.ID,
		TurnIndex: session.TurnIndex,
		Timestamp: time.Now().UTC(),
		Question: &domain.QuestionPayload{
			Canonical:  q.Canonical,
			Text:       q.Text,
			AnswerType: q.AnswerType,
			Choices:    q.Choices,
			AskedCount: len(session.Asked),
		},
	}
}

func (b *EnvelopeBuilder) Emergency(session *domain.Session, result SafetyResult) domain.Envelope {
	return domain.Envelope{
		Type:      domain.EnvelopeEmergency,
		SessionID: session.ID,
		TurnIndex: session.TurnIndex,
		Timestamp: time.Now().UTC(),
		Emergency: &domain.EmergencyPayload{
			Message:     result.Reason,
			MatchedRule: result.RuleID,
			Reasons:     result.Instructions,
			Disclaimer:  domain.Disclaimer,
		},
	}
}

// Result builds the terminal envelope: recommended specialty, ranking,
// top-3 conditions, confidence block, risk block, urgency ladder, summary
// lines and safety notes.
func (b *EnvelopeBuilder) Result(
	session *domain.Session,
	ranked []domain.RankedSpecialty,
	candidates []domain.DiseaseCandidate,
	risk domain.RiskAssessment,
	decision StopDecision,
) domain.Envelope {
	top := ranked[0]

	conditions := make([]domain.RankedCondition, 0, 3)
	for i, c := range candidates {
		if i == 3 {
			break
		}
		conditions = append(conditions, domain.RankedCondition{Label: c.DiseaseLabel, Score: c.Score})
	}

	label := ConfidenceLabel(session.Confidence)
	rankingCap := ranked
	if len(rankingCap) > 3 {
		rankingCap = rankingCap[:3]
	}

	return domain.Envelope{
		Type:      domain.EnvelopeResult,
		SessionID: session.ID,
		TurnIndex: session.TurnIndex,
		Timestamp: time.Now().UTC(),
		Result: &domain.ResultPayload{
			SpecialtyID:       top.ID,
			SpecialtyName:     top.DisplayName,
			Ranking:           rankingCap,
			Conditions:        conditions,
			Confidence:        session.Confidence,
			ConfidenceLabel:   label,
			ConfidenceExplain: ConfidenceExplanation(label),
			Risk:              risk,
			Urgency:           b.urgency(conditions, risk.Level),
			StopReason:        decision.Reason,
			LowConfidence:     decision.LowConfidence,
			SymptomSummary:    summaryLines(session),
			SafetyNotes:       b.safetyNotes(top.ID),
			Disclaimer:        domain.Disclaimer,
		},
	}
}

// urgency ladder: same-day for the critical condition families or HIGH
// risk, three days for MEDIUM, routine otherwise.
func (b *EnvelopeBuilder) urgency(conditions []domain.RankedCondition, risk domain.RiskLevel) domain.Urgency {
	if len(conditions) > 0 {
		topLabel := strings.ToLower(conditions[0].Label)
		for _, hint := range sameDayConditionHints {
			if strings.Contains(topLabel, hint) {
				return domain.UrgencySameDay
			}
		}
	}
	switch risk {
	case domain.RiskHigh:
		return domain.UrgencySameDay
	case domain.RiskMedium:
		return domain.UrgencyWithin3Days
	default:
		return domain.UrgencyRoutine
	}
}

func (b *EnvelopeBuilder) safetyNotes(topSpecialtyID string) []string {
	notes := append([]string(nil), baseSafetyNotes...)
	if topSpecialtyID == "neurology" || topSpecialtyID == "cardiology" {
		notes = append(notes, neuroCardiacNote)
	}
	return notes
}

// summaryLines emits one line per known symptom and one per structured
// answer, both in canonical-sorted order for byte-stable output.
func summaryLines(session *domain.Session) []string {
	lines := make([]string, 0, len(session.Known)+len(session.Answers))
	for _, canonical := range session.Known.Sorted() {
		lines = append(lines, fmt.Sprintf("Belirti: %s", canonical))
	}
	answered := make([]string, 0, len(session.Answers))
	for canonical := range session.Answers {
		answered = append(answered, canonical)
	}
	sort.Strings(answered)
	for _, canonical := range answered {
		lines = append(lines, fmt.Sprintf("Yanıt: %s → %s", canonical, session.Answers[canonical]))
	}
	return lines
}
