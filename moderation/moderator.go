// Package moderation censors forbidden words in message content
// before fanout. Matching runs on a normalized view of the text so
// spacing, punctuation, and common leet substitutions do not defeat
// the word list.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

// textMapping links each normalized rune back to its original index
// so matched spans censor the original text, not the normalized one.
type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton from the normalized
// word list.
func NewModerator(words []string, replacement rune) (Moderator, error) {
	patterns := make([][]rune, len(words))
	for i, word := range words {
		patterns[i] = normalize([]rune(word)).normalized
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: m, replacement: replacement}, nil
}

// Censor replaces every rune of each matched word with the
// replacement character, preserving the surrounding text untouched.
func (m *Moderator) Censor(original string) string {
	origRunes := []rune(original)
	mapping := normalize(origRunes)
	if len(mapping.normalized) == 0 {
		return original
	}

	spans := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original
	}

	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(mapping.origIdx) {
			continue
		}
		for i := mapping.origIdx[start]; i <= mapping.origIdx[end-1]; i++ {
			origRunes[i] = m.replacement
		}
	}
	return string(origRunes)
}

// normalize lowercases, undoes leet substitutions, and strips noise
// runes, recording where each kept rune came from.
func normalize(input []rune) textMapping {
	mapping := textMapping{
		normalized: make([]rune, 0, len(input)),
		origIdx:    make([]int, 0, len(input)),
	}
	for i, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		mapping.normalized = append(mapping.normalized, unicode.ToLower(clean))
		mapping.origIdx = append(mapping.origIdx, i)
	}
	return mapping
}

// simplifyRune maps common leet speak characters back to their
// standard alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
