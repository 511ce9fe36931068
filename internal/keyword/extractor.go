// Package keyword turns free text into sets of content-bearing terms.
package keyword

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Mode records how a Set was produced.
type Mode int

const (
	// ModeTokenized means the tokenizer succeeded and function words were removed.
	ModeTokenized Mode = iota
	// ModeFallback means the tokenizer failed and the raw text was split on whitespace.
	ModeFallback
)

func (m Mode) String() string {
	if m == ModeFallback {
		return "fallback"
	}
	return "tokenized"
}

// Set is a distinct list of terms in first-seen order.
type Set struct {
	Terms []string
	Mode  Mode
}

// Len returns the number of distinct terms.
func (s Set) Len() int { return len(s.Terms) }

// Contains reports whether term is in the set.
func (s Set) Contains(term string) bool {
	for _, t := range s.Terms {
		if t == term {
			return true
		}
	}
	return false
}

// Extractor produces keyword sets using a Tokenizer.
type Extractor struct {
	tokenizer Tokenizer
}

// NewExtractor returns an Extractor. A nil tokenizer selects RuleTokenizer.
func NewExtractor(t Tokenizer) *Extractor {
	if t == nil {
		t = NewRuleTokenizer()
	}
	return &Extractor{tokenizer: t}
}

// Extract returns the keyword set for text. It never fails: a tokenizer error
// degrades to a whitespace split reported as ModeFallback.
func (e *Extractor) Extract(text string) Set {
	if strings.TrimSpace(text) == "" {
		return Set{Mode: ModeTokenized}
	}

	// Normalizing first would replace invalid bytes with U+FFFD.
	if !utf8.ValidString(text) {
		return Set{Terms: distinct(strings.Fields(text)), Mode: ModeFallback}
	}

	normalized := strings.ToLower(norm.NFKC.String(text))
	tokens, err := e.tokenizer.Tokenize(normalized)
	if err != nil {
		return Set{Terms: distinct(strings.Fields(text)), Mode: ModeFallback}
	}

	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		switch tok.POS {
		case Josa, Eomi, Punctuation, Space:
			continue
		case Verb, Adjective:
			if tok.Stem != "" {
				terms = append(terms, tok.Stem)
				continue
			}
		}
		if t := strings.TrimSpace(tok.Text); t != "" {
			terms = append(terms, t)
		}
	}
	return Set{Terms: distinct(terms), Mode: ModeTokenized}
}

func distinct(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
