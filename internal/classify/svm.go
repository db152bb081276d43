package classify

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/ppiankov/revsent/internal/model"
	"github.com/ppiankov/revsent/internal/vectorize"
)

// minWeightScale triggers folding the lazy scale back into the weights
const minWeightScale = 1e-9

// LinearSVM is a linear support-vector classifier trained by stochastic
// gradient descent on the L2-regularized hinge loss. Samples are visited in
// a seeded random order each epoch, so training is reproducible.
type LinearSVM struct {
	base
	opts    Options
	weights []float64
	bias    float64
}

// NewLinearSVM creates an untrained linear SVM
func NewLinearSVM(opts Options) *LinearSVM {
	return &LinearSVM{
		base: base{kind: model.KindSVM},
		opts: opts.withDefaults(model.KindSVM),
	}
}

// Train fits the separating hyperplane in place
func (m *LinearSVM) Train(features []vectorize.SparseVector, labels []model.Sentiment) error {
	dim, err := validateTrainingData(features, labels)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rng := rand.New(rand.NewSource(m.opts.Seed))
	order := make([]int, len(features))
	for i := range order {
		order[i] = i
	}

	// w = scale * v keeps the per-step decay O(1) on sparse inputs
	v := make([]float64, dim)
	scale := 1.0
	var b float64
	t := 0

	for epoch := 0; epoch < m.opts.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		for _, i := range order {
			t++
			eta := m.opts.LearningRate / (1 + m.opts.LearningRate*m.opts.L2*float64(t))
			x := features[i]
			y := 1.0
			if labels[i] == model.Negative {
				y = -1.0
			}

			margin := y * (scale*x.Dot(v) + b)

			scale *= 1 - eta*m.opts.L2
			if margin < 1 {
				x.AddScaledTo(v, eta*y/scale)
				b += eta * y
			}

			if scale < minWeightScale {
				floats.Scale(scale, v)
				scale = 1
			}
		}
	}

	floats.Scale(scale, v)
	m.weights = v
	m.bias = b
	m.markTrained(dim)
	return nil
}

// Predict returns the side of the hyperplane x falls on
func (m *LinearSVM) Predict(x vectorize.SparseVector) (model.Sentiment, error) {
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

// Evaluate scores the model on a labeled set
func (m *LinearSVM) Evaluate(features []vectorize.SparseVector, labels []model.Sentiment) (*model.EvaluationReport, error) {
	return evaluate(m, features, labels)
}

// MarshalBinary encodes the hyperplane
func (m *LinearSVM) MarshalBinary() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.trained {
		return nil, ErrNotTrained
	}
	return encodeLinear(linearState{Opts: m.opts, Dim: m.dim, Weights: m.weights, Bias: m.bias})
}

// UnmarshalBinary restores the hyperplane and marks the model trained
func (m *LinearSVM) UnmarshalBinary(data []byte) error {
	st, err := decodeLinear(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.kind = model.KindSVM
	m.opts = st.Opts
	m.weights = st.Weights
	m.bias = st.Bias
	m.trained = true
	m.dim = st.Dim
	return nil
}
