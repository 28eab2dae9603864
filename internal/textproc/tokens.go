// Package textproc holds the tokenizer and stopword lists shared by
// retrieval, summarisation and answer comparison.
package textproc

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// wordPattern matches letters plus combining marks so Devanagari vowel signs
// and viramas stay inside their word.
var wordPattern = regexp.MustCompile(`[\p{L}\p{M}]+(?:['’][\p{L}\p{M}]+)*`)

// Words returns the lower-cased NFC words of text in order.
func Words(text string) []string {
	return wordPattern.FindAllString(norm.NFC.String(strings.ToLower(text)), -1)
}

// Tokens returns the lower-cased words of text with stopwords removed.
func Tokens(text string) []string {
	raw := Words(text)
	out := raw[:0]
	for _, t := range raw {
		if IsStopword(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TokenSet returns the distinct non-stopword tokens of text.
func TokenSet(text string) map[string]struct{} {
	tokens := Tokens(text)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// IsStopword reports whether w is an English, Hindi or French stopword.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

var stopwords = buildStopwords(
	// en
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now", "what", "which", "who", "how", "do", "does", "you", "any", "are", "there",
	// hi
	"का", "की", "के", "है", "हैं", "में", "से", "को", "और", "पर", "यह", "इस", "वह", "उस", "एक", "भी", "था", "थी", "थे", "हो", "क्या", "गई", "गया", "गए", "ने", "तो", "ही", "या", "कि", "जो", "कर", "किया", "लिए",
	// fr
	"le", "la", "les", "un", "une", "des", "du", "de", "et", "ou", "est", "sont", "ce", "cette", "ces", "dans", "sur", "pour", "par", "avec", "qui", "que", "quel", "quelle", "quels", "quelles", "au", "aux", "il", "elle", "en", "se", "sa", "son", "ses", "pas", "ne", "plus", "l", "d", "qu", "faites",
)

func buildStopwords(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
