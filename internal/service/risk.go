package service

import (
	"github.com/pre-triage-server/internal/domain"
	"github.com/pre-triage-server/internal/reference"
	"github.com/pre-triage-server/internal/turkish"
)

// RiskStratifier derives the LOW/MEDIUM/HIGH band for a RESULT from the
// extracted canonicals, confidence, symptom duration and profile. All rule
// tokens are compared ASCII-folded so corpus spelling variants line up.
type RiskStratifier struct {
	rt *reference.Runtime
}

func NewRiskStratifier(rt *reference.Runtime) *RiskStratifier {
	return &RiskStratifier{rt: rt}
}

// Assess accumulates the rule points, clamps to [0,1] and maps to bands at
// 0.70 and 0.40. Factors are deduplicated and capped at four lines.
func (r *RiskStratifier) Assess(
	canonicals []string,
	confidence float64,
	sameDayActive bool,
	durationDays *int,
	profile *domain.Profile,
) domain.RiskAssessment {
	var score float64
	var factors []string

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	if confidence < 0.35 {
		score += 0.25
		factors = append(factors, "Belirsizlik yuksek (dusuk confidence)")
	}

	high := r.rt.Risk.High
	medium := r.rt.Risk.Medium
	sameDayIfTrue := medium.SameDayIfTrue == nil || *medium.SameDayIfTrue
	if sameDayActive && sameDayIfTrue {
		score += 0.35
		factors = append(factors, "Same-day kontrol onerisi aktif")
	}

	if durationDays != nil {
		switch {
		case *durationDays >= 14:
			score += 0.30
			factors = append(factors, "Semptom suresi 2 haftayi gecti")
		case *durationDays >= 7:
			score += 0.20
			factors = append(factors, "Semptom suresi 1 haftayi gecti")
		case *durationDays <= 2:
			score -= 0.05
			factors = append(factors, "Semptom suresi kisa (<=2 gun)")
		}
	}

	if profile != nil {
		if profile.Age != nil {
			switch {
			case *profile.Age <= 2:
				score += 0.25
				factors = append(factors, "Cok kucuk yas (<=2)")
			case *profile.Age >= 65:
				score += 0.20
				factors = append(factors, "Ileri yas (>=65)")
			}
		}
		if profile.Pregnant != nil && *profile.Pregnant {
			score += 0.20
			factors = append(factors, "Gebelik durumu (ek dikkat)")
		}
	}

	highHit := anyTokenMatch(canonicals, high.CanonicalsAny)
	mediumHit := anyTokenMatch(canonicals, medium.CanonicalsAny)

	// same_day_required withholds the HIGH bonus unless a same-day rule is
	// active; with the same-day engine off the symptom hit alone is not
	// enough evidence for the big bump.
	if highHit && (!high.SameDayRequired || sameDayActive) {
		score += 0.55
		factors = append(factors, "Yuksek risk sinyali iceren belirti(ler)")
	}
	if mediumHit {
		score += 0.25
		factors = append(factors, "Orta risk sinyali iceren belirti(ler)")
	}

	minConfidenceFallback := high.MinConfidenceFallback
	if minConfidenceFallback == 0 {
		minConfidenceFallback = 0.25
	}
	if confidence <= minConfidenceFallback && (highHit || mediumHit) {
		score += 0.20
		factors = append(factors, "Dusuk confidence + riskli belirti kombinasyonu")
	}

	if durationDays != nil && *durationDays <= 2 {
		factors = append(factors, "2 gunden kisa sureli semptom")
	}
	if !sameDayActive {
		factors = append(factors, "Same-day zorunlulugu saptanmadi")
	}
	factors = append(factors, "Acil belirti saptanmadi")

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	level := domain.RiskLow
	switch {
	case score >= 0.70:
		level = domain.RiskHigh
	case score >= 0.40:
		level = domain.RiskMedium
	}

	return domain.RiskAssessment{
		Level:   level,
		Score:   score,
		Factors: dedupeCap(factors, 4),
		Advice:  riskAdvice(level),
	}
}

func riskAdvice(level domain.RiskLevel) string {
	switch level {
	case domain.RiskHigh:
		return "Bugun bir saglik kurulusuna basvurmaniz onerilir. Semptomlar artarsa beklemeyin."
	case domain.RiskMedium:
		return "Bugun veya en kisa surede kontrol planlamak uygun olabilir. Semptomlar artarsa bugun basvurun."
	default:
		return "Semptomlar artarsa, yeni sikayet eklenirse veya 48 saat icinde duzelmezse kontrol onerilir."
	}
}

func anyTokenMatch(canonicals, ruleTokens []string) bool {
	if len(canonicals) == 0 || len(ruleTokens) == 0 {
		return false
	}
	rules := map[string]struct{}{}
	for _, t := range ruleTokens {
		if n := turkish.NormalizeToken(t); n != "" {
			rules[n] = struct{}{}
		}
	}
	for _, c := range canonicals {
		if n := turkish.NormalizeToken(c); n != "" {
			if _, ok := rules[n]; ok {
				return true
			}
		}
	}
	return false
}

func dedupeCap(items []string, limit int) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, limit)
	for _, item := range items {
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}
