package service

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pre-triage-server/internal/domain"
	"github.com/pre-triage-server/internal/reference"
	"github.com/pre-triage-server/internal/turkish"
)

// SafetyResult is the guard's verdict for a turn.
type SafetyResult struct {
	Emergency    bool
	RuleID       string
	Reason       string
	Instructions []string
	// MissingInfo carries the soft triggers' follow-up questions when a
	// high-risk age escalated them.
	MissingInfo []string
}

// SafetyGuard evaluates hard emergency rules and age-amplified soft
// triggers. Matching is raw substring on lowercased text, deliberately
// ignoring the extractor's negation window: a mentioned emergency phrase
// escalates even when negated.
type SafetyGuard struct {
	rt  *reference.Runtime
	log *logrus.Logger
}

func NewSafetyGuard(rt *reference.Runtime, log *logrus.Logger) *SafetyGuard {
	return &SafetyGuard{rt: rt, log: log}
}

// Check runs the ordered rule scan: hard keywords, hard regexes, then soft
// triggers amplified by a high-risk age. First hit wins.
func (g *SafetyGuard) Check(text string, profile *domain.Profile) SafetyResult {
	lowered := turkish.Lower(text)

	for _, trigger := range g.rt.Emergency.HardTriggers {
		for _, kw := range trigger.Keywords {
			if kw == "" {
				continue
			}
			if containsSubstring(lowered, turkish.Lower(kw)) {
				g.log.WithFields(logrus.Fields{
					"trigger_id": trigger.ID,
					"kind":       "hard_keyword",
				}).Warn("Emergency trigger fired")
				return g.emergency(trigger.ID, trigger.Label, nil)
			}
		}
	}

	for _, trigger := range g.rt.Emergency.HardTriggers {
		re := trigger.CompiledRegex()
		if re == nil {
			continue
		}
		if re.MatchString(lowered) {
			g.log.WithFields(logrus.Fields{
				"trigger_id": trigger.ID,
				"kind":       "hard_regex",
			}).Warn("Emergency trigger fired")
			return g.emergency(trigger.ID, trigger.Label, nil)
		}
	}

	if g.isHighRiskAge(profile) {
		var missing []string
		matchedID, matchedLabel := "", ""
		for _, trigger := range g.rt.Emergency.SoftTriggers {
			for _, kw := range trigger.Keywords {
				if kw != "" && containsSubstring(lowered, turkish.Lower(kw)) {
					if matchedID == "" {
						matchedID = trigger.ID
						matchedLabel = trigger.Label
					}
					missing = append(missing, trigger.FollowUpQuestions...)
					break
				}
			}
		}
		if matchedID != "" {
			g.log.WithFields(logrus.Fields{
				"trigger_id": matchedID,
				"kind":       "soft_age_escalation",
				"age":        *profile.Age,
			}).Warn("Emergency trigger fired")
			result := g.emergency(matchedID,
				fmt.Sprintf("Riskli yaş grubu (%d) + %s. Temkinli yaklaşım: acil değerlendirme önerilir.", *profile.Age, matchedLabel),
				missing)
			return result
		}
	}

	return SafetyResult{}
}

func (g *SafetyGuard) emergency(ruleID, label string, missing []string) SafetyResult {
	return SafetyResult{
		Emergency:    true,
		RuleID:       ruleID,
		Reason:       fmt.Sprintf("Acil durum tespit edildi: %s", label),
		Instructions: append([]string(nil), g.rt.Emergency.Instructions...),
		MissingInfo:  missing,
	}
}

func (g *SafetyGuard) isHighRiskAge(profile *domain.Profile) bool {
	if profile == nil || profile.Age == nil {
		return false
	}
	age := *profile.Age
	r := g.rt.Emergency.AgeRisk
	inFirst := age >= r.Min && age <= r.Max && r.Max > 0
	inSecond := age >= r.Min2 && age <= r.Max2 && r.Max2 > 0
	return inFirst || inSecond
}

func containsSubstring(text, needle string) bool {
	return needle != "" && strings.Contains(text, needle)
}
