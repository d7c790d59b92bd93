// Package textutil holds the pure string analysis primitives shared by the
// grounding, curiosity, and sequence components: normalization, OCR token
// extraction, Levenshtein edit distance, and Jaccard set similarity. All
// functions are side-effect free and cheap at OCR-scale input.
package textutil

import "strings"

// Token length bounds for OCR word extraction. Single characters are almost
// always recognition noise, and anything past 32 runes is prose rather than a
// UI label.
const (
	minTokenLen = 2
	maxTokenLen = 32
)

// Normalize lowercases s and collapses all internal whitespace runs to a
// single space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Tokenize extracts the candidate UI tokens from a list of OCR block texts:
// each full block text, its tab-delimited sub-fields, and its individual
// whitespace-separated words, length-filtered. The result preserves first
// occurrence order and contains no duplicates.
func Tokenize(blockTexts []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(tok string) {
		tok = strings.TrimSpace(tok)
		n := len([]rune(tok))
		if n < minTokenLen || n > maxTokenLen {
			return
		}
		if _, dup := seen[tok]; dup {
			return
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}

	for _, text := range blockTexts {
		add(text)
		for _, field := range strings.Split(text, "\t") {
			add(field)
		}
		for _, word := range strings.Fields(text) {
			add(word)
		}
	}
	return out
}

// Levenshtein returns the edit distance between a and b, computed over runes
// with the classic two-row dynamic program.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// LevenshteinSimilarity maps edit distance into [0,1]: 1.0 for identical
// strings, 0.0 for maximally different ones. Two empty strings are identical.
func LevenshteinSimilarity(a, b string) float64 {
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(Levenshtein(a, b))/float64(longest)
}

// Jaccard returns |a ∩ b| / |a ∪ b| for two string sets. Two empty sets are
// considered identical (1.0).
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

// SetOf builds a set from a slice of strings, skipping empties.
func SetOf(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
