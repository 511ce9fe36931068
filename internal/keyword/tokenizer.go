package keyword

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// POS is a coarse part-of-speech tag.
type POS int

const (
	Noun POS = iota
	Verb
	Adjective
	Josa // particle
	Eomi // inflectional ending
	Punctuation
	Space
	Foreign
	Number
)

func (p POS) String() string {
	switch p {
	case Noun:
		return "noun"
	case Verb:
		return "verb"
	case Adjective:
		return "adjective"
	case Josa:
		return "josa"
	case Eomi:
		return "eomi"
	case Punctuation:
		return "punctuation"
	case Space:
		return "space"
	case Foreign:
		return "foreign"
	case Number:
		return "number"
	}
	return "unknown"
}

// Token is one morpheme-level unit. Stem is the dictionary form for predicates.
type Token struct {
	Text string
	POS  POS
	Stem string
}

// Tokenizer splits text into tagged tokens.
type Tokenizer interface {
	Tokenize(text string) ([]Token, error)
}

// ErrInvalidText is returned for input that is not valid UTF-8.
var ErrInvalidText = errors.New("text is not valid UTF-8")

// Particles, longest first so that compound forms win.
var josaSuffixes = []string{
	"에서는", "으로는", "에게서", "으로서", "으로써", "이라는",
	"에서", "으로", "에게", "까지", "부터", "보다", "처럼", "라는", "이나", "에는", "와의", "과의",
	"은", "는", "이", "가", "을", "를", "의", "에", "도", "와", "과", "로", "만",
}

var josaWords = func() map[string]struct{} {
	m := make(map[string]struct{}, len(josaSuffixes))
	for _, s := range josaSuffixes {
		m[s] = struct{}{}
	}
	return m
}()

type predicateEnding struct {
	suffix string
	base   string
	pos    POS
}

// Predicate endings and the dictionary ending that replaces them.
var predicateEndings = []predicateEnding{
	{"했습니다", "하다", Verb}, {"합니다", "하다", Verb}, {"했으며", "하다", Verb},
	{"했다", "하다", Verb}, {"한다", "하다", Verb}, {"하는", "하다", Verb}, {"했던", "하다", Verb},
	{"하며", "하다", Verb}, {"하고", "하다", Verb}, {"해서", "하다", Verb}, {"하여", "하다", Verb},
	{"하다", "하다", Verb},
	{"됐습니다", "되다", Verb}, {"됩니다", "되다", Verb},
	{"됐다", "되다", Verb}, {"된다", "되다", Verb}, {"되는", "되다", Verb}, {"됐던", "되다", Verb},
	{"되며", "되다", Verb}, {"되고", "되다", Verb}, {"되어", "되다", Verb}, {"되다", "되다", Verb},
	{"있었다", "있다", Adjective}, {"있는", "있다", Adjective}, {"있다", "있다", Adjective},
	{"없었다", "없다", Adjective}, {"없는", "없다", Adjective}, {"없다", "없다", Adjective},
}

type runeClass int

const (
	classSpace runeClass = iota
	classPunct
	classHangul
	classLetter
	classDigit
)

func classify(r rune) runeClass {
	switch {
	case unicode.IsSpace(r):
		return classSpace
	case unicode.Is(unicode.Hangul, r):
		return classHangul
	case unicode.IsLetter(r):
		return classLetter
	case unicode.IsDigit(r):
		return classDigit
	}
	return classPunct
}

// RuleTokenizer is a dictionary-free tokenizer for mixed Korean/Latin news text.
// It segments on script boundaries, peels particles off nouns and folds
// 하다/되다/있다/없다 predicate forms to their dictionary stem.
type RuleTokenizer struct{}

// NewRuleTokenizer returns the default tokenizer.
func NewRuleTokenizer() *RuleTokenizer {
	return &RuleTokenizer{}
}

// Tokenize implements Tokenizer.
func (RuleTokenizer) Tokenize(text string) ([]Token, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidText
	}

	var tokens []Token
	var run strings.Builder
	current := runeClass(-1)

	flush := func() {
		if run.Len() == 0 {
			return
		}
		tokens = append(tokens, tagRun(run.String(), current)...)
		run.Reset()
	}

	for _, r := range text {
		c := classify(r)
		if c != current {
			flush()
			current = c
		}
		run.WriteRune(r)
	}
	flush()

	return tokens, nil
}

func tagRun(s string, c runeClass) []Token {
	switch c {
	case classSpace:
		return []Token{{Text: s, POS: Space}}
	case classPunct:
		return []Token{{Text: s, POS: Punctuation}}
	case classDigit:
		return []Token{{Text: s, POS: Number}}
	case classLetter:
		return []Token{{Text: s, POS: Foreign}}
	}
	return tagHangul(s)
}

func tagHangul(word string) []Token {
	if _, ok := josaWords[word]; ok {
		return []Token{{Text: word, POS: Josa}}
	}

	for _, e := range predicateEndings {
		if !strings.HasSuffix(word, e.suffix) {
			continue
		}
		prefix := strings.TrimSuffix(word, e.suffix)
		if prefix == "" && e.suffix != e.base {
			// a bare inflected auxiliary carries no topic
			return []Token{{Text: word, POS: Eomi}}
		}
		return []Token{{Text: word, POS: e.pos, Stem: prefix + e.base}}
	}

	for _, j := range josaSuffixes {
		if !strings.HasSuffix(word, j) {
			continue
		}
		stem := strings.TrimSuffix(word, j)
		if utf8.RuneCountInString(stem) < 2 {
			continue
		}
		return []Token{{Text: stem, POS: Noun}, {Text: j, POS: Josa}}
	}

	return []Token{{Text: word, POS: Noun}}
}
