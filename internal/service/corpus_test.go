package service

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/pre-triage-server/internal/domain"
	"github.com/pre-triage-server/internal/reference"
)

// Engine defaults used across the pipeline tests.
func testEngineConfig() *domain.EngineConfig {
	return &domain.EngineConfig{
		KeywordPoints:        3,
		PhrasePoints:         5,
		NegativePenalty:      -4,
		CandidateTopK:        5,
		CandidateMinScore:    0.05,
		SeverityWeightStep:   0.25,
		MaxQuestions:         6,
		HighConfidenceScore:  0.45,
		MinSpecialtyScoreGap: 2.0,
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func writeCorpusFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// loadTestRuntime writes a small urology/neurology corpus and loads it.
// overrides replaces whole files by name before loading.
func loadTestRuntime(t *testing.T, overrides map[string]string) *reference.Runtime {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		reference.FileSynonyms: `{
			"version": "svc-test-1",
			"synonyms": [
				{"canonical": "baş ağrısı", "variants": ["başım ağrıyor", "kafam ağrıyor"]},
				{"canonical": "idrarda yanma", "variants": ["idrar yaparken yanıyor", "idrar yaparken yanma"]},
				{"canonical": "sık idrara çıkma", "variants": ["çok sık idrara çıkıyorum", "sık sık idrara çıkma"]},
				{"canonical": "ateş", "variants": ["ateşim var", "ateşim çıktı"]},
				{"canonical": "baş dönmesi", "variants": ["başım dönüyor"]}
			]
		}`,
		reference.FileDiseaseSymptoms: `{
			"Urinary tract infection": ["burning_micturition", "frequent_urination", "fever"],
			"Migraine": ["headache", "nausea"],
			"Tension headache": ["headache", "fever"]
		}`,
		reference.FileSymptomSeverity: `{
			"burning_micturition": 4,
			"frequent_urination": 3,
			"headache": 3,
			"fever": 5,
			"nausea": 5
		}`,
		reference.FileReferenceToCanonical: `{
			"burning_micturition": "idrarda yanma",
			"frequent_urination": "sık idrara çıkma",
			"headache": "baş ağrısı",
			"fever": "ateş",
			"nausea": null
		}`,
		reference.FileDiseaseToSpecialty: `{
			"fallback_specialty_id": "internal_gi",
			"fallback_display_name": "Dahiliye",
			"map": [
				{"disease_label": "Urinary tract infection", "specialty_id": "urology_internal", "display_name": "Üroloji", "confidence": 0.9},
				{"disease_label": "Migraine", "specialty_id": "neurology", "display_name": "Nöroloji", "confidence": 0.85},
				{"disease_label": "Tension headache", "specialty_id": "neurology", "display_name": "Nöroloji", "confidence": 0.8}
			]
		}`,
		reference.FileSpecialtyKeywords: `{
			"scoring": {"keyword_points": 3, "phrase_points": 5, "negative_penalty": -4},
			"specialties": [
				{"id": "urology_internal", "display_name": "Üroloji", "keywords": ["idrarda yanma", "sık idrara çıkma"], "negative_keywords": []},
				{"id": "neurology", "display_name": "Nöroloji", "keywords": ["baş ağrısı", "baş dönmesi"], "negative_keywords": ["idrarda yanma"]},
				{"id": "internal_gi", "display_name": "Dahiliye", "keywords": ["ateş"], "negative_keywords": []}
			]
		}`,
		reference.FileQuestionBank: `{
			"questions": [
				{"canonical": "ateş", "text": "Ateşiniz var mı?", "answer_type": "yes_no"},
				{"canonical": "baş ağrısı", "text": "Başınız ağrıyor mu?", "answer_type": "yes_no"},
				{"canonical": "idrarda yanma", "text": "İdrar yaparken yanma oluyor mu?", "answer_type": "yes_no"},
				{"canonical": "sık idrara çıkma", "text": "Sık idrara çıkıyor musunuz?", "answer_type": "yes_no"}
			]
		}`,
		reference.FileQuestionBankEN: `{
			"questions": [
				{"canonical": "ateş", "text": "Do you have a fever?"}
			]
		}`,
		reference.FileEmergencyRules: `{
			"hard_triggers": [
				{"id": "cardiac", "label": "Kalp krizi şüphesi", "keywords": ["göğsümde baskı", "göğüs ağrısı"], "regex": "nefes(im)?\\s+(dar|daralıyor)"}
			],
			"soft_triggers": [
				{"id": "high_fever", "label": "Yüksek ateş", "keywords": ["çok yüksek ateş"], "follow_up_questions": ["Ateşiniz kaç derece?"]}
			],
			"age_risk": {"min": 0, "max": 5, "min2": 66, "max2": 120},
			"instructions": ["Hemen 112'yi arayın.", "Hastaneye kendiniz gitmeye çalışmayın."]
		}`,
		reference.FileRiskRules: `{
			"high": {"canonicals_any": ["gogus_agrisi"], "same_day_required": false, "min_confidence_fallback": 0.25},
			"medium": {"canonicals_any": ["ates"], "same_day_if_true": true}
		}`,
		reference.FileStopRules: `{
			"max_questions": 6,
			"high_confidence_disease_score": 0.45,
			"min_specialty_score_gap": 2.0
		}`,
	}
	for name, content := range overrides {
		files[name] = content
	}
	for name, content := range files {
		writeCorpusFile(t, dir, name, content)
	}

	rt, err := reference.Load(dir, quietLogger())
	require.NoError(t, err)
	return rt
}
