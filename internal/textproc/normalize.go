// Package textproc turns raw review text into a canonical token sequence.
//
// Normalization runs in a fixed order: HTML tags are stripped, entities are
// decoded, everything but ASCII letters becomes a space, the text is
// lowercased and split, stopwords are dropped and each remaining token is
// reduced to its dictionary base form. The output is a fixed point:
// normalizing already-normalized text returns it unchanged.
package textproc

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"golang.org/x/net/html"
)

// Version identifies the normalization rules. Change it whenever the output
// for some input changes so cached normalizations are invalidated.
const Version = "textproc/v1"

// maxLemmaHops bounds how far a lemma chain (laid -> lay -> lie) is followed
const maxLemmaHops = 4

var tagPattern = regexp.MustCompile(`<.*?>`)

// Lemmatizer reduces a lowercase word to its base form
type Lemmatizer interface {
	Lemma(word string) string
}

// Normalizer cleans, filters and lemmatizes text. It holds only immutable
// state and is safe for concurrent use.
type Normalizer struct {
	lemmatizer Lemmatizer
}

// NewNormalizer creates a normalizer around the given lemmatizer.
// A nil lemmatizer leaves tokens as they are.
func NewNormalizer(l Lemmatizer) *Normalizer {
	return &Normalizer{lemmatizer: l}
}

var (
	defaultNormalizer *Normalizer
	defaultErr        error
	defaultOnce       sync.Once
)

// Default returns the process-wide normalizer backed by the English golem
// dictionary. The dictionary is loaded on first use only.
func Default() (*Normalizer, error) {
	defaultOnce.Do(func() {
		l, err := golem.New(en.New())
		if err != nil {
			defaultErr = fmt.Errorf("load english lemmatizer: %w", err)
			return
		}
		defaultNormalizer = NewNormalizer(l)
	})
	return defaultNormalizer, defaultErr
}

// Normalize returns the space-joined canonical tokens of text
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.Tokens(text), " ")
}

// NormalizeAll normalizes each text, preserving order
func (n *Normalizer) NormalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = n.Normalize(t)
	}
	return out
}

// Tokens returns the canonical tokens of text
func (n *Normalizer) Tokens(text string) []string {
	if text == "" {
		return nil
	}

	cleaned := Clean(text)
	fields := strings.Fields(cleaned)

	tokens := fields[:0]
	for _, tok := range fields {
		if IsStopword(tok) {
			continue
		}
		tokens = append(tokens, n.lemma(tok))
	}
	return tokens
}

// Clean strips tags and entities, replaces non-letters with spaces and lowercases
func Clean(text string) string {
	text = tagPattern.ReplaceAllString(text, "")
	text = html.UnescapeString(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// lemma resolves tok to its base form. A candidate is accepted only if it is
// plain lowercase ASCII, not a stopword and maps to itself; otherwise the
// token is kept unchanged so output stays stable under re-normalization.
func (n *Normalizer) lemma(tok string) string {
	if n.lemmatizer == nil {
		return tok
	}

	cur := tok
	for i := 0; i < maxLemmaHops; i++ {
		next := n.lemmatizer.Lemma(cur)
		if next == cur {
			break
		}
		cur = next
	}

	if cur == tok {
		return tok
	}
	if !isLowerAlpha(cur) || IsStopword(cur) || n.lemmatizer.Lemma(cur) != cur {
		return tok
	}
	return cur
}

func isLowerAlpha(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}
