package enrich

import (
	"sort"
	"strings"
	"unicode"

	"github.com/abhisek/assessgen/internal/catalog"
)

// SuggestBloomsLevel matches the words of text against the tier verbs,
// highest level first, and returns def when nothing matches. Inflected
// forms count ("designing", "applies", "analysed"); derived nouns such as
// "designer" do not.
func SuggestBloomsLevel(tiers []catalog.BloomTier, def int, text string) int {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		words[w] = true
	}

	sorted := make([]catalog.BloomTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Level > sorted[j].Level })

	for _, tier := range sorted {
		for _, kw := range tier.Keywords {
			if matchesVerb(words, strings.ToLower(kw)) {
				return tier.Level
			}
		}
	}
	return def
}

// inflections are the endings accepted after a verb stem.
var inflections = []string{"", "e", "s", "es", "ed", "d", "ing", "ies", "ied"}

func matchesVerb(words map[string]bool, verb string) bool {
	if words[verb] {
		return true
	}
	stem := verbStem(verb)
	for w := range words {
		rest, ok := strings.CutPrefix(w, stem)
		if !ok {
			continue
		}
		for _, suffix := range inflections {
			if rest == suffix {
				return true
			}
		}
	}
	return false
}

// verbStem drops a final "e" or "y" so "solve" and "apply" meet "solving"
// and "applies".
func verbStem(verb string) string {
	if len(verb) > 3 && (strings.HasSuffix(verb, "e") || strings.HasSuffix(verb, "y")) {
		return verb[:len(verb)-1]
	}
	return verb
}
