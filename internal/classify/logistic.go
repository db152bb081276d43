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

// LogisticRegression is an L2-regularized linear model fitted by full-batch
// gradient descent on the mean log loss. Training is deterministic.
type LogisticRegression struct {
	base
	opts    Options
	weights []float64
	bias    float64
}

// NewLogisticRegression creates an untrained logistic regression model
func NewLogisticRegression(opts Options) *LogisticRegression {
	return &LogisticRegression{
		base: base{kind: model.KindLogisticRegression},
		opts: opts.withDefaults(model.KindLogisticRegression),
	}
}

// Train fits the weights in place
func (m *LogisticRegression) Train(features []vectorize.SparseVector, labels []model.Sentiment) error {
	dim, err := validateTrainingData(features, labels)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := float64(len(features))
	w := make([]float64, dim)
	grad := make([]float64, dim)
	var b float64

	for epoch := 0; epoch < m.opts.Epochs; epoch++ {
		for i := range grad {
			grad[i] = 0
		}
		var gradB float64

		for i, x := range features {
			p := sigmoid(x.Dot(w) + b)
			residual := p - float64(labels[i])
			x.AddScaledTo(grad, residual/n)
			gradB += residual / n
		}

		floats.AddScaled(grad, m.opts.L2, w)
		floats.AddScaled(w, -m.opts.LearningRate, grad)
		b -= m.opts.LearningRate * gradB
	}

	m.weights = w
	m.bias = b
	m.markTrained(dim)
	return nil
}

// Predict labels one vector: positive when the decision value is above zero
func (m *LogisticRegression) Predict(x vectorize.SparseVector) (model.Sentiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkPredict(x); err != nil {
		return model.Negative, err
	}
	if x.Dot(m.weights)+m.bias > 0 {
		return model.Positive, nil
	}
	return model.Negative, nil
}

// Probability returns P(positive | x)
func (m *LogisticRegression) Probability(x vectorize.SparseVector) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkPredict(x); err != nil {
		return 0, err
	}
	return sigmoid(x.Dot(m.weights) + m.bias), nil
}

// Evaluate scores the model on a labeled set
func (m *LogisticRegression) Evaluate(features []vectorize.SparseVector, labels []model.Sentiment) (*model.EvaluationReport, error) {
	return evaluate(m, features, labels)
}

type linearState struct {
	Opts    Options
	Dim     int
	Weights []float64
	Bias    float64
}

// MarshalBinary encodes the fitted weights
func (m *LogisticRegression) MarshalBinary() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.trained {
		return nil, ErrNotTrained
	}
	return encodeLinear(linearState{Opts: m.opts, Dim: m.dim, Weights: m.weights, Bias: m.bias})
}

// UnmarshalBinary restores weights and marks the model trained
func (m *LogisticRegression) UnmarshalBinary(data []byte) error {
	st, err := decodeLinear(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.kind = model.KindLogisticRegression
	m.opts = st.Opts
	m.weights = st.Weights
	m.bias = st.Bias
	m.trained = true
	m.dim = st.Dim
	return nil
}

func encodeLinear(st linearState) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, fmt.Errorf("encode linear model: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeLinear(data []byte) (linearState, error) {
	var st linearState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return st, fmt.Errorf("decode linear model: %w", err)
	}
	if st.Dim <= 0 || len(st.Weights) != st.Dim {
		return st, fmt.Errorf("decode linear model: %d weights for dimension %d", len(st.Weights), st.Dim)
	}
	return st, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
