// Package vectorize learns a TF-IDF vocabulary from a corpus of normalized
// text and turns documents into fixed-length sparse feature vectors.
package vectorize

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// DefaultMaxFeatures bounds the vocabulary for small corpora
const DefaultMaxFeatures = 5000

// defaultMinTokenLen drops one-letter tokens, like the two-character word
// pattern the corpus was historically tokenized with
const defaultMinTokenLen = 2

var (
	// ErrNotFitted is returned by Transform before Fit
	ErrNotFitted = errors.New("vectorizer is not fitted")

	// ErrEmptyVocabulary is returned when the fit corpus yields no terms
	ErrEmptyVocabulary = errors.New("empty vocabulary: corpus contains no usable terms")
)

// TfidfVectorizer weights each term by its in-document count scaled by the
// smoothed inverse document frequency, then L2-normalizes each row.
// After Fit it is read-only and safe for concurrent Transform calls.
type TfidfVectorizer struct {
	maxFeatures int
	minTokenLen int

	vocabulary []string       // Sorted terms; position is the feature index
	index      map[string]int // term -> feature index
	idf        []float64
}

// NewTfidfVectorizer creates a vectorizer keeping at most maxFeatures terms.
// maxFeatures <= 0 selects DefaultMaxFeatures.
func NewTfidfVectorizer(maxFeatures int) *TfidfVectorizer {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &TfidfVectorizer{
		maxFeatures: maxFeatures,
		minTokenLen: defaultMinTokenLen,
	}
}

// MaxFeatures returns the vocabulary bound
func (tv *TfidfVectorizer) MaxFeatures() int {
	return tv.maxFeatures
}

// IsFitted reports whether a vocabulary has been learned
func (tv *TfidfVectorizer) IsFitted() bool {
	return tv.index != nil
}

// VocabSize returns the learned vocabulary size (the feature dimension)
func (tv *TfidfVectorizer) VocabSize() int {
	return len(tv.vocabulary)
}

// Vocabulary returns a copy of the learned terms in feature order
func (tv *TfidfVectorizer) Vocabulary() []string {
	out := make([]string, len(tv.vocabulary))
	copy(out, tv.vocabulary)
	return out
}

// IDF returns the learned weight of term and whether it is in the vocabulary
func (tv *TfidfVectorizer) IDF(term string) (float64, bool) {
	idx, ok := tv.index[term]
	if !ok {
		return 0, false
	}
	return tv.idf[idx], true
}

// Fit learns the vocabulary and IDF weights. Any previous state is replaced.
func (tv *TfidfVectorizer) Fit(corpus []string) error {
	termFreq := make(map[string]int)
	docFreq := make(map[string]int)

	for _, doc := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range tv.analyze(doc) {
			termFreq[tok]++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				docFreq[tok]++
			}
		}
	}

	if len(termFreq) == 0 {
		return ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(termFreq))
	for term := range termFreq {
		terms = append(terms, term)
	}

	// Top-K by corpus frequency, ties alphabetical
	sort.Slice(terms, func(i, j int) bool {
		fi, fj := termFreq[terms[i]], termFreq[terms[j]]
		if fi != fj {
			return fi > fj
		}
		return terms[i] < terms[j]
	})
	if len(terms) > tv.maxFeatures {
		terms = terms[:tv.maxFeatures]
	}
	sort.Strings(terms)

	nDocs := float64(len(corpus))
	tv.vocabulary = terms
	tv.index = make(map[string]int, len(terms))
	tv.idf = make([]float64, len(terms))
	for i, term := range terms {
		tv.index[term] = i
		tv.idf[i] = math.Log((1+nDocs)/(1+float64(docFreq[term]))) + 1
	}

	return nil
}

// FitTransform fits on corpus and returns its feature vectors
func (tv *TfidfVectorizer) FitTransform(corpus []string) ([]SparseVector, error) {
	if err := tv.Fit(corpus); err != nil {
		return nil, err
	}
	return tv.TransformAll(corpus)
}

// Transform converts one document. Terms outside the vocabulary are ignored.
func (tv *TfidfVectorizer) Transform(text string) (SparseVector, error) {
	if !tv.IsFitted() {
		return SparseVector{}, ErrNotFitted
	}

	counts := make(map[int]float64)
	for _, tok := range tv.analyze(text) {
		if idx, ok := tv.index[tok]; ok {
			counts[idx]++
		}
	}

	sv := NewSparseVector(len(tv.vocabulary))
	if len(counts) == 0 {
		return sv, nil
	}

	sv.Indices = make([]int, 0, len(counts))
	for idx := range counts {
		sv.Indices = append(sv.Indices, idx)
	}
	sort.Ints(sv.Indices)

	sv.Values = make([]float64, len(sv.Indices))
	for i, idx := range sv.Indices {
		sv.Values[i] = counts[idx] * tv.idf[idx]
	}

	if norm := sv.L2Norm(); norm > 0 {
		for i := range sv.Values {
			sv.Values[i] /= norm
		}
	}
	return sv, nil
}

// TransformAll converts documents in order
func (tv *TfidfVectorizer) TransformAll(texts []string) ([]SparseVector, error) {
	if !tv.IsFitted() {
		return nil, ErrNotFitted
	}
	out := make([]SparseVector, len(texts))
	for i, t := range texts {
		sv, err := tv.Transform(t)
		if err != nil {
			return nil, err
		}
		out[i] = sv
	}
	return out, nil
}

func (tv *TfidfVectorizer) analyze(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= tv.minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// vectorizerState is the gob form of a fitted vectorizer
type vectorizerState struct {
	MaxFeatures int
	MinTokenLen int
	Vocabulary  []string
	IDF         []float64
}

// MarshalBinary encodes the fitted state
func (tv *TfidfVectorizer) MarshalBinary() ([]byte, error) {
	if !tv.IsFitted() {
		return nil, ErrNotFitted
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(vectorizerState{
		MaxFeatures: tv.maxFeatures,
		MinTokenLen: tv.minTokenLen,
		Vocabulary:  tv.vocabulary,
		IDF:         tv.idf,
	})
	if err != nil {
		return nil, fmt.Errorf("encode vectorizer: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores state written by MarshalBinary
func (tv *TfidfVectorizer) UnmarshalBinary(data []byte) error {
	var st vectorizerState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return fmt.Errorf("decode vectorizer: %w", err)
	}
	if len(st.Vocabulary) == 0 || len(st.Vocabulary) != len(st.IDF) {
		return fmt.Errorf("decode vectorizer: vocabulary/idf size mismatch (%d/%d)", len(st.Vocabulary), len(st.IDF))
	}

	tv.maxFeatures = st.MaxFeatures
	tv.minTokenLen = st.MinTokenLen
	tv.vocabulary = st.Vocabulary
	tv.idf = st.IDF
	tv.index = make(map[string]int, len(st.Vocabulary))
	for i, term := range st.Vocabulary {
		tv.index[term] = i
	}
	return nil
}
