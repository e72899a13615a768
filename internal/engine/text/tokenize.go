// internal/engine/text/tokenize.go
package text

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	MinTokenLength = 3
	MaxTokenLength = 19

	// DescriptionWordLimit bounds how much of a description feeds vocabulary tables.
	DescriptionWordLimit = 200
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Fold lowercases s and strips diacritics ("Café" -> "cafe").
func Fold(s string) string {
	// transform chains carry state, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Tokenize splits s into lowercase alphanumeric tokens of length 3-19,
// dropping stop words when ignoreStopWords is set.
func Tokenize(s string, ignoreStopWords bool) []string {
	raw := tokenPattern.FindAllString(Fold(s), -1)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len(tok) < MinTokenLength || len(tok) > MaxTokenLength {
			continue
		}
		if ignoreStopWords && IsStopWord(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Bigrams joins adjacent tokens with a single space.
func Bigrams(tokens []string) []string {
	if len(tokens) < 2 {
		return nil
	}
	out := make([]string, 0, len(tokens)-1)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

// FirstWords returns at most n whitespace-separated words of s.
func FirstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// DescriptionText is the stripped short and long description, truncated to
// DescriptionWordLimit words.
func DescriptionText(short, long string) string {
	return FirstWords(StripHTML(short)+" "+StripHTML(long), DescriptionWordLimit)
}
