// Package reference loads the static triage corpora and builds the
// inverse indices the pipeline stages query. The resulting Runtime is
// immutable after load and safe for unsynchronized concurrent reads.
package reference

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/pre-triage-server/internal/turkish"
)

// File names under the reference data directory.
const (
	FileSynonyms             = "synonyms_tr.json"
	FileDiseaseSymptoms      = "disease_symptoms.json"
	FileSymptomSeverity      = "symptom_severity.json"
	FileReferenceToCanonical = "reference_to_canonical.json"
	FileDiseaseToSpecialty   = "disease_to_specialty.json"
	FileSpecialtyKeywords    = "specialty_keywords_tr.json"
	FileQuestionBank         = "question_bank_tr.json"
	FileQuestionBankEN       = "question_bank_en.json"
	FileEmergencyRules       = "emergency_rules.json"
	FileRiskRules            = "risk_rules.json"
	FileStopRules            = "stop_rules.json"
	FileEffectiveness        = "question_effectiveness.json"
)

// Runtime holds every corpus plus the derived indices. Built once at
// startup and shared read-only across requests.
type Runtime struct {
	Version string

	// Synonym index sorted by descending phrase length then lexicographic,
	// so the longest match always wins deterministically.
	SynonymIndex []SynonymVariant
	CanonicalSet map[string]struct{}

	DiseaseSymptoms map[string][]string
	SeverityWeights map[string]int

	ReferenceToCanonical map[string]string
	CanonicalToReference map[string][]string

	DiseaseToSpecialty    map[string]SpecialtyMapping
	FallbackSpecialtyID   string
	FallbackSpecialtyName string

	Specialties   []Specialty
	SpecialtyByID map[string]*Specialty
	Scoring       ScoringPoints

	QuestionsByCanonical map[string]*Question

	Emergency     EmergencyRules
	Risk          RiskRules
	Stop          StopRules
	Effectiveness map[string]Effectiveness
}

type synonymsFile struct {
	Version  string `json:"version"`
	Synonyms []struct {
		Canonical string   `json:"canonical"`
		Variants  []string `json:"variants"`
	} `json:"synonyms"`
}

type diseaseToSpecialtyFile struct {
	FallbackSpecialtyID   string             `json:"fallback_specialty_id"`
	FallbackDisplayName   string             `json:"fallback_display_name"`
	Map                   []SpecialtyMapping `json:"map"`
}

type specialtyKeywordsFile struct {
	Specialties []Specialty   `json:"specialties"`
	Scoring     ScoringPoints `json:"scoring"`
}

type questionBankFile struct {
	Questions []Question `json:"questions"`
}

type effectivenessFile struct {
	QuestionEffectiveness []Effectiveness `json:"question_effectiveness"`
}

// Load reads all corpus files from dir and builds the derived indices.
// A missing required file is fatal; only the English question bank and the
// effectiveness table are optional and degrade to empty with a log line.
func Load(dir string, log *logrus.Logger) (*Runtime, error) {
	rt := &Runtime{
		CanonicalSet:         map[string]struct{}{},
		SeverityWeights:      map[string]int{},
		ReferenceToCanonical: map[string]string{},
		CanonicalToReference: map[string][]string{},
		DiseaseToSpecialty:   map[string]SpecialtyMapping{},
		SpecialtyByID:        map[string]*Specialty{},
		QuestionsByCanonical: map[string]*Question{},
		Effectiveness:        map[string]Effectiveness{},
	}

	var syn synonymsFile
	if err := readJSON(filepath.Join(dir, FileSynonyms), &syn); err != nil {
		return nil, fmt.Errorf("loading synonyms: %w", err)
	}
	rt.Version = syn.Version
	rt.buildSynonymIndex(syn)

	if err := readJSON(filepath.Join(dir, FileDiseaseSymptoms), &rt.DiseaseSymptoms); err != nil {
		return nil, fmt.Errorf("loading disease symptom matrix: %w", err)
	}
	if err := readJSON(filepath.Join(dir, FileSymptomSeverity), &rt.SeverityWeights); err != nil {
		return nil, fmt.Errorf("loading symptom severity weights: %w", err)
	}

	var refToCanonical map[string]*string
	if err := readJSON(filepath.Join(dir, FileReferenceToCanonical), &refToCanonical); err != nil {
		return nil, fmt.Errorf("loading reference-to-canonical map: %w", err)
	}
	rt.buildSymptomBridges(refToCanonical)

	var d2s diseaseToSpecialtyFile
	if err := readJSON(filepath.Join(dir, FileDiseaseToSpecialty), &d2s); err != nil {
		return nil, fmt.Errorf("loading disease-to-specialty map: %w", err)
	}
	rt.FallbackSpecialtyID = d2s.FallbackSpecialtyID
	rt.FallbackSpecialtyName = d2s.FallbackDisplayName
	if rt.FallbackSpecialtyID == "" {
		return nil, fmt.Errorf("disease-to-specialty map has no fallback_specialty_id")
	}
	for _, entry := range d2s.Map {
		if entry.DiseaseLabel == "" {
			continue
		}
		if _, dup := rt.DiseaseToSpecialty[entry.DiseaseLabel]; !dup {
			rt.DiseaseToSpecialty[entry.DiseaseLabel] = entry
		}
	}

	var sk specialtyKeywordsFile
	if err := readJSON(filepath.Join(dir, FileSpecialtyKeywords), &sk); err != nil {
		return nil, fmt.Errorf("loading specialty keywords: %w", err)
	}
	rt.Specialties = sk.Specialties
	rt.Scoring = sk.Scoring
	for i := range rt.Specialties {
		s := &rt.Specialties[i]
		if s.ID != "" {
			rt.SpecialtyByID[s.ID] = s
		}
	}

	var bank questionBankFile
	if err := readJSON(filepath.Join(dir, FileQuestionBank), &bank); err != nil {
		return nil, fmt.Errorf("loading question bank: %w", err)
	}
	for i := range bank.Questions {
		q := &bank.Questions[i]
		c := turkish.Normalize(q.Canonical)
		if c == "" {
			continue
		}
		q.Canonical = c
		if q.AnswerType == "" {
			q.AnswerType = "yes_no"
		}
		rt.QuestionsByCanonical[c] = q
	}

	var bankEN questionBankFile
	if err := readJSON(filepath.Join(dir, FileQuestionBankEN), &bankEN); err != nil {
		log.Info("English question bank not available, Turkish only")
	} else {
		for _, q := range bankEN.Questions {
			c := turkish.Normalize(q.Canonical)
			if existing, ok := rt.QuestionsByCanonical[c]; ok {
				if q.Text != "" {
					existing.TextEN = q.Text
				}
				if len(q.Choices) > 0 {
					existing.ChoicesEN = q.Choices
				}
			}
		}
	}

	if err := readJSON(filepath.Join(dir, FileEmergencyRules), &rt.Emergency); err != nil {
		return nil, fmt.Errorf("loading emergency rules: %w", err)
	}
	rt.compileEmergencyRegexes(log)

	if err := readJSON(filepath.Join(dir, FileRiskRules), &rt.Risk); err != nil {
		return nil, fmt.Errorf("loading risk rules: %w", err)
	}

	if err := readJSON(filepath.Join(dir, FileStopRules), &rt.Stop); err != nil {
		return nil, fmt.Errorf("loading stop rules: %w", err)
	}
	if rt.Stop.MaxQuestions <= 0 {
		rt.Stop.MaxQuestions = 6
	}
	if rt.Stop.HighConfidenceDiseaseScore <= 0 {
		rt.Stop.HighConfidenceDiseaseScore = 0.45
	}
	if rt.Stop.MinSpecialtyScoreGap <= 0 {
		rt.Stop.MinSpecialtyScoreGap = 2.0
	}

	var eff effectivenessFile
	if err := readJSON(filepath.Join(dir, FileEffectiveness), &eff); err != nil {
		log.Info("Question effectiveness data not available, using discrimination only")
	} else {
		for _, row := range eff.QuestionEffectiveness {
			c := turkish.Normalize(row.Canonical)
			if c != "" {
				rt.Effectiveness[c] = row
			}
		}
	}

	rt.validate(log)

	log.WithFields(logrus.Fields{
		"version":     rt.Version,
		"synonyms":    len(rt.SynonymIndex),
		"canonicals":  len(rt.CanonicalSet),
		"diseases":    len(rt.DiseaseSymptoms),
		"specialties": len(rt.Specialties),
		"questions":   len(rt.QuestionsByCanonical),
	}).Info("Reference corpus loaded")

	return rt, nil
}

func (rt *Runtime) buildSynonymIndex(syn synonymsFile) {
	seen := map[string]struct{}{}
	for _, entry := range syn.Synonyms {
		canonical := turkish.Normalize(entry.Canonical)
		if canonical == "" {
			continue
		}
		rt.CanonicalSet[canonical] = struct{}{}
		phrases := append([]string{canonical}, entry.Variants...)
		for _, v := range phrases {
			phrase := turkish.Normalize(v)
			if phrase == "" {
				continue
			}
			key := canonical + "|" + phrase
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			rt.SynonymIndex = append(rt.SynonymIndex, SynonymVariant{Phrase: phrase, Canonical: canonical})
		}
	}
	sort.Slice(rt.SynonymIndex, func(i, j int) bool {
		a, b := rt.SynonymIndex[i], rt.SynonymIndex[j]
		// Longest-first by character count; byte length would misorder mixed
		// ASCII/Turkish phrases.
		la, lb := utf8.RuneCountInString(a.Phrase), utf8.RuneCountInString(b.Phrase)
		if la != lb {
			return la > lb
		}
		if a.Phrase != b.Phrase {
			return a.Phrase < b.Phrase
		}
		return a.Canonical < b.Canonical
	})
}

func (rt *Runtime) buildSymptomBridges(refToCanonical map[string]*string) {
	for ref, canonical := range refToCanonical {
		if canonical == nil {
			continue
		}
		c := turkish.Normalize(*canonical)
		if c == "" {
			continue
		}
		rt.ReferenceToCanonical[ref] = c
		rt.CanonicalToReference[c] = append(rt.CanonicalToReference[c], ref)
	}
	for c := range rt.CanonicalToReference {
		sort.Strings(rt.CanonicalToReference[c])
	}
}

func (rt *Runtime) compileEmergencyRegexes(log *logrus.Logger) {
	for i := range rt.Emergency.HardTriggers {
		trigger := &rt.Emergency.HardTriggers[i]
		if err := trigger.Compile(); err != nil {
			log.WithFields(logrus.Fields{
				"trigger_id": trigger.ID,
				"error":      err,
			}).Warn("Skipping malformed emergency regex")
		}
	}
}

// validate warns on corpus inconsistencies that degrade quality but do not
// prevent serving: unmapped diseases route to the fallback specialty.
func (rt *Runtime) validate(log *logrus.Logger) {
	unmapped := 0
	for disease := range rt.DiseaseSymptoms {
		if _, ok := rt.DiseaseToSpecialty[disease]; !ok {
			unmapped++
		}
	}
	if unmapped > 0 {
		log.WithFields(logrus.Fields{
			"unmapped":  unmapped,
			"fallback":  rt.FallbackSpecialtyID,
		}).Warn("Diseases without a specialty mapping route to the fallback")
	}
}

// CompiledRegex returns the pre-compiled pattern for a hard trigger, nil
// when the trigger has no regex or it failed to compile.
func (t *HardTrigger) CompiledRegex() *regexp.Regexp {
	return t.compiled
}

// SeverityWeight returns 1.0 + severity*step when the reference symptom has
// a known severity, else 1.0.
func (rt *Runtime) SeverityWeight(symptom string, step float64) float64 {
	if sev, ok := rt.SeverityWeights[symptom]; ok {
		return 1.0 + float64(sev)*step
	}
	return 1.0
}

// KnownReferenceSymptom reports whether the key exists anywhere in the
// disease-symptom matrix or severity table. Used by the candidate
// generator's direct-match fallback for unmapped canonicals.
func (rt *Runtime) KnownReferenceSymptom(key string) bool {
	if _, ok := rt.SeverityWeights[key]; ok {
		return true
	}
	for _, symptoms := range rt.DiseaseSymptoms {
		for _, s := range symptoms {
			if s == key {
				return true
			}
		}
	}
	return false
}

// Stats summarizes corpus sizes for the admin surface.
func (rt *Runtime) Stats() map[string]any {
	return map[string]any{
		"version":           rt.Version,
		"synonym_variants":  len(rt.SynonymIndex),
		"canonical_symptoms": len(rt.CanonicalSet),
		"diseases":          len(rt.DiseaseSymptoms),
		"specialties":       len(rt.Specialties),
		"questions":         len(rt.QuestionsByCanonical),
		"hard_triggers":     len(rt.Emergency.HardTriggers),
		"soft_triggers":     len(rt.Emergency.SoftTriggers),
		"effectiveness_rows": len(rt.Effectiveness),
	}
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}
