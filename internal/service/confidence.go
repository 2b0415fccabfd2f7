package service

import "github.com/pre-triage-server/internal/domain"

// ComputeConfidence derives the turn confidence from the top two disease
// scores: min(1, 0.75*top1 + 0.6*max(0, top1-top2)).
func ComputeConfidence(candidates []domain.DiseaseCandidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	top1 := candidates[0].Score
	top2 := 0.0
	if len(candidates) > 1 {
		top2 = candidates[1].Score
	}
	gap := top1 - top2
	if gap < 0 {
		gap = 0
	}
	conf := 0.75*top1 + 0.6*gap
	if conf > 1 {
		conf = 1
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}

// ConfidenceLabel maps the numeric confidence onto the Turkish label bands.
func ConfidenceLabel(confidence float64) string {
	switch {
	case confidence >= 0.7:
		return "Yüksek"
	case confidence >= 0.45:
		return "Orta"
	default:
		return "Düşük"
	}
}

// ConfidenceExplanation returns the one-line user-facing explanation for
// a confidence label.
func ConfidenceExplanation(label string) string {
	switch label {
	case "Yüksek":
		return "Olası durumlar arasında net bir ayrım var ve önerilen branş belirgin."
	case "Orta":
		return "Birden fazla olasılık var. Doktora giderken özeti göstermen iyi olur."
	default:
		return "Belirsizlik yüksek. Semptomlar değişirse değerlendirmeyi yenile."
	}
}
