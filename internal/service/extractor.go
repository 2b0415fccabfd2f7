// Package service implements the deterministic triage pipeline: canonical
// extraction, safety guard, disease candidates, specialty scoring, final
// merge, risk stratification, question selection and the turn orchestrator.
package service

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pre-triage-server/internal/reference"
	"github.com/pre-triage-server/internal/turkish"
)

// negationTokens rejects a symptom match when one of these appears in the
// window immediately before the matched phrase ("ateş yok", "hayır ağrım").
var negationTokens = []string{"yok", "değil", "hayır", "olmuyor", "olmadı", "değilim"}

// negationWindow is the number of characters scanned before a match start.
const negationWindow = 18

// Extractor maps normalized free text plus structured answers onto the
// canonical symptom vocabulary.
type Extractor struct {
	rt *reference.Runtime
}

func NewExtractor(rt *reference.Runtime) *Extractor {
	return &Extractor{rt: rt}
}

// Extract returns the lexicographically sorted set of canonicals found in
// the text or contributed by answer keys. Deterministic: the synonym index
// is walked in its longest-first order, one hit per canonical.
func (e *Extractor) Extract(text string, answers map[string]string) []string {
	normalized := turkish.Normalize(text)

	found := map[string]struct{}{}
	for _, variant := range e.rt.SynonymIndex {
		if _, done := found[variant.Canonical]; done {
			continue
		}
		// Any non-negated occurrence is enough to accept the canonical.
		for idx := turkish.IndexWord(normalized, variant.Phrase); idx >= 0; idx = turkish.IndexWordFrom(normalized, variant.Phrase, idx+1) {
			if !isNegated(normalized, idx) {
				found[variant.Canonical] = struct{}{}
				break
			}
		}
	}

	// Answer keys act as canonicals when they exist in the vocabulary.
	for key := range answers {
		k := turkish.Normalize(key)
		if k == "" {
			continue
		}
		if _, ok := e.rt.CanonicalSet[k]; ok {
			found[k] = struct{}{}
		}
	}

	out := make([]string, 0, len(found))
	for c := range found {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// isNegated scans the window before the match start for a whole-word
// negation token. The window counts characters, not bytes, so multi-byte
// Turkish letters do not shrink it.
func isNegated(text string, start int) bool {
	prefix := text[:start]
	left := len(prefix)
	for i := 0; i < negationWindow && left > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(prefix[:left])
		left -= size
	}
	window := prefix[left:]
	for _, token := range negationTokens {
		if turkish.ContainsWord(strings.TrimSpace(window), token) {
			return true
		}
	}
	return false
}
