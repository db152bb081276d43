package classify

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ppiankov/revsent/internal/model"
	"github.com/ppiankov/revsent/internal/vectorize"
)

// NaiveBayes is a multinomial naive Bayes model over (fractional) term
// weights with additive smoothing.
type NaiveBayes struct {
	base
	opts Options

	logPrior       [model.NumClasses]float64
	featureLogProb [model.NumClasses][]float64
}

// NewNaiveBayes creates an untrained multinomial naive Bayes model
func NewNaiveBayes(opts Options) *NaiveBayes {
	return &NaiveBayes{
		base: base{kind: model.KindNaiveBayes},
		opts: opts.withDefaults(model.KindNaiveBayes),
	}
}

// Train accumulates per-class feature mass and converts it to log probabilities
func (m *NaiveBayes) Train(features []vectorize.SparseVector, labels []model.Sentiment) error {
	dim, err := validateTrainingData(features, labels)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var classCount [model.NumClasses]int
	var mass [model.NumClasses][]float64
	for c := range mass {
		mass[c] = make([]float64, dim)
	}

	for i, x := range features {
		c := labels[i]
		classCount[c]++
		x.AddScaledTo(mass[c], 1)
	}

	n := float64(len(features))
	for c := 0; c < model.NumClasses; c++ {
		if classCount[c] == 0 {
			m.logPrior[c] = math.Inf(-1)
		} else {
			m.logPrior[c] = math.Log(float64(classCount[c]) / n)
		}

		smoothed := mass[c]
		floats.AddConst(m.opts.Alpha, smoothed)
		total := floats.Sum(smoothed)
		for j := range smoothed {
			smoothed[j] = math.Log(smoothed[j] / total)
		}
		m.featureLogProb[c] = smoothed
	}

	m.markTrained(dim)
	return nil
}

func (m *NaiveBayes) jointLogLikelihood(x vectorize.SparseVector) [model.NumClasses]float64 {
	var jll [model.NumClasses]float64
	for c := 0; c < model.NumClasses; c++ {
		jll[c] = m.logPrior[c] + x.Dot(m.featureLogProb[c])
	}
	return jll
}

// Predict returns the class with the highest posterior; ties go to negative
func (m *NaiveBayes) Predict(x vectorize.SparseVector) (model.Sentiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkPredict(x); err != nil {
		return model.Negative, err
	}
	jll := m.jointLogLikelihood(x)
	if jll[model.Positive] > jll[model.Negative] {
		return model.Positive, nil
	}
	return model.Negative, nil
}

// Probability returns P(positive | x)
func (m *NaiveBayes) Probability(x vectorize.SparseVector) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkPredict(x); err != nil {
		return 0, err
	}
	jll := m.jointLogLikelihood(x)
	return math.Exp(jll[model.Positive] - floats.LogSumExp(jll[:])), nil
}

// Evaluate scores the model on a labeled set
func (m *NaiveBayes) Evaluate(features []vectorize.SparseVector, labels []model.Sentiment) (*model.EvaluationReport, error) {
	return evaluate(m, features, labels)
}

type naiveBayesState struct {
	Opts           Options
	Dim            int
	LogPrior       [model.NumClasses]float64
	FeatureLogProb [model.NumClasses][]float64
}

// MarshalBinary encodes the fitted probabilities
func (m *NaiveBayes) MarshalBinary() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.trained {
		return nil, ErrNotTrained
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(naiveBayesState{
		Opts:           m.opts,
		Dim:            m.dim,
		LogPrior:       m.logPrior,
		FeatureLogProb: m.featureLogProb,
	})
	if err != nil {
		return nil, fmt.Errorf("encode naive bayes: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores the probabilities and marks the model trained
func (m *NaiveBayes) UnmarshalBinary(data []byte) error {
	var st naiveBayesState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return fmt.Errorf("decode naive bayes: %w", err)
	}
	for c := range st.FeatureLogProb {
		if st.Dim <= 0 || len(st.FeatureLogProb[c]) != st.Dim {
			return fmt.Errorf("decode naive bayes: class %d has %d features for dimension %d", c, len(st.FeatureLogProb[c]), st.Dim)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.kind = model.KindNaiveBayes
	m.opts = st.Opts
	m.logPrior = st.LogPrior
	m.featureLogProb = st.FeatureLogProb
	m.trained = true
	m.dim = st.Dim
	return nil
}
