// Package textproc turns raw instance text into tokens for vectorizers.
package textproc

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Options control tokenization.
type Options struct {
	Lowercase    bool                // case-fold tokens
	StripAccents bool                // remove combining marks after NFD decomposition
	MinTokenLen  int                 // shorter tokens are dropped; 0 means 2
	StopWords    map[string]struct{} // tokens dropped after folding
	NGramMin     int                 // smallest n-gram; 0 means 1
	NGramMax     int                 // largest n-gram; 0 means NGramMin
}

// Tokenizer splits text into word n-grams. A Tokenizer is safe for
// concurrent use.
type Tokenizer struct {
	opts Options
}

// NewTokenizer returns a tokenizer with opts, filling zero values with
// defaults.
func NewTokenizer(opts Options) *Tokenizer {
	if opts.MinTokenLen <= 0 {
		opts.MinTokenLen = 2
	}
	if opts.NGramMin <= 0 {
		opts.NGramMin = 1
	}
	if opts.NGramMax < opts.NGramMin {
		opts.NGramMax = opts.NGramMin
	}
	return &Tokenizer{opts: opts}
}

// Normalize applies NFKC, optional accent stripping and case folding.
func (t *Tokenizer) Normalize(text string) string {
	text = norm.NFKC.String(text)
	if t.opts.StripAccents {
		// Transformers carry state, so build one per call
		stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
		if out, _, err := transform.String(stripper, text); err == nil {
			text = out
		}
	}
	if t.opts.Lowercase {
		// cases.Caser is stateful as well
		caser := cases.Fold()
		text = caser.String(text)
	}
	return text
}

// Words splits normalized text into word tokens: runs of letters, digits
// and underscores at least MinTokenLen runes long, minus stop words.
func (t *Tokenizer) Words(text string) []string {
	text = t.Normalize(text)
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	words := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) < t.opts.MinTokenLen {
			continue
		}
		if _, stop := t.opts.StopWords[f]; stop {
			continue
		}
		words = append(words, f)
	}
	return words
}

// Tokens returns the word n-grams of text, joined by single spaces.
func (t *Tokenizer) Tokens(text string) []string {
	words := t.Words(text)
	if t.opts.NGramMin == 1 && t.opts.NGramMax == 1 {
		return words
	}

	var out []string
	for n := t.opts.NGramMin; n <= t.opts.NGramMax; n++ {
		for i := 0; i+n <= len(words); i++ {
			out = append(out, strings.Join(words[i:i+n], " "))
		}
	}
	return out
}

// EnglishStopWords is a small stop list for the "english" stop_words option.
var EnglishStopWords = StopWordSet(
	"a", "about", "above", "after", "again", "against", "all", "am", "an", "and", "any", "are", "as", "at",
	"be", "because", "been", "before", "being", "below", "between", "both", "but", "by",
	"can", "could", "did", "do", "does", "doing", "down", "during", "each", "few", "for", "from", "further",
	"had", "has", "have", "having", "he", "her", "here", "hers", "herself", "him", "himself", "his", "how",
	"if", "in", "into", "is", "it", "its", "itself", "me", "more", "most", "my", "myself",
	"no", "nor", "not", "of", "off", "on", "once", "only", "or", "other", "our", "ours", "ourselves", "out", "over", "own",
	"same", "she", "should", "so", "some", "such", "than", "that", "the", "their", "theirs", "them", "themselves",
	"then", "there", "these", "they", "this", "those", "through", "to", "too", "under", "until", "up",
	"very", "was", "we", "were", "what", "when", "where", "which", "while", "who", "whom", "why", "will", "with",
	"would", "you", "your", "yours", "yourself", "yourselves",
)

// StopWordSet builds a stop word set from words.
func StopWordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
