// Package classify implements the interchangeable sentiment classifiers.
//
// Every model family satisfies the same Classifier contract: Train fits
// parameters in place, Predict labels one feature vector and Evaluate scores
// a held-out set. Families are selected by model.ModelKind through New.
//
// # Thread Safety
//
// Training takes an exclusive lock and prediction a shared one, so a trained
// classifier may serve concurrent Predict calls.
package classify

import (
	"encoding"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ppiankov/revsent/internal/model"
	"github.com/ppiankov/revsent/internal/vectorize"
)

var (
	// ErrNotTrained is returned by Predict and Evaluate before Train
	ErrNotTrained = errors.New("classifier is not trained")

	// ErrInvalidTrainingData is returned for empty or mismatched training input
	ErrInvalidTrainingData = errors.New("invalid training data")

	// ErrDimensionMismatch is returned when a vector does not match the trained dimension
	ErrDimensionMismatch = errors.New("feature dimension mismatch")
)

// Classifier is the capability set shared by all model families
type Classifier interface {
	Kind() model.ModelKind
	Train(features []vectorize.SparseVector, labels []model.Sentiment) error
	Predict(feature vectorize.SparseVector) (model.Sentiment, error)
	Evaluate(features []vectorize.SparseVector, labels []model.Sentiment) (*model.EvaluationReport, error)
	IsTrained() bool

	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// Options tunes the model families. Zero fields take the defaults below.
type Options struct {
	Seed int64 // RNG seed for shuffling and bootstrap sampling

	// Linear models
	Epochs       int
	LearningRate float64
	L2           float64

	// Naive Bayes smoothing
	Alpha float64

	// Random forest
	Trees    int
	MaxDepth int
	MinLeaf  int
}

// DefaultSeed matches the seed used for the train/test split
const DefaultSeed = 42

func (o Options) withDefaults(kind model.ModelKind) Options {
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	switch kind {
	case model.KindLogisticRegression:
		if o.Epochs <= 0 {
			o.Epochs = 100
		}
		if o.LearningRate <= 0 {
			o.LearningRate = 1.0
		}
		if o.L2 <= 0 {
			o.L2 = 1e-4
		}
	case model.KindSVM:
		if o.Epochs <= 0 {
			o.Epochs = 20
		}
		if o.LearningRate <= 0 {
			o.LearningRate = 0.5
		}
		if o.L2 <= 0 {
			o.L2 = 1e-4
		}
	case model.KindNaiveBayes:
		if o.Alpha <= 0 {
			o.Alpha = 1.0
		}
	case model.KindRandomForest:
		if o.Trees <= 0 {
			o.Trees = 100
		}
		if o.MaxDepth <= 0 {
			o.MaxDepth = 32
		}
		if o.MinLeaf <= 0 {
			o.MinLeaf = 1
		}
	}
	return o
}

// New creates an untrained classifier of the given kind
func New(kind model.ModelKind, opts Options) (Classifier, error) {
	opts = opts.withDefaults(kind)

	switch kind {
	case model.KindLogisticRegression:
		return NewLogisticRegression(opts), nil
	case model.KindNaiveBayes:
		return NewNaiveBayes(opts), nil
	case model.KindSVM:
		return NewLinearSVM(opts), nil
	case model.KindRandomForest:
		return NewRandomForest(opts), nil
	default:
		return nil, fmt.Errorf("unknown model type: %q", kind)
	}
}

// base carries the trained flag and the train/predict lock
type base struct {
	kind          model.ModelKind
	trained       bool
	dim           int
	lastTrainedAt time.Time
	mu            sync.RWMutex
}

func (b *base) Kind() model.ModelKind {
	return b.kind
}

// IsTrained returns whether the model has been trained or loaded
func (b *base) IsTrained() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.trained
}

// LastTrainedAt returns when Train last completed
func (b *base) LastTrainedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastTrainedAt
}

// markTrained must be called with mu held for writing
func (b *base) markTrained(dim int) {
	b.trained = true
	b.dim = dim
	b.lastTrainedAt = time.Now()
}

// checkPredict must be called with mu held for reading
func (b *base) checkPredict(x vectorize.SparseVector) error {
	if !b.trained {
		return ErrNotTrained
	}
	if x.Dim != b.dim {
		return fmt.Errorf("%w: got %d, model has %d", ErrDimensionMismatch, x.Dim, b.dim)
	}
	return nil
}

// validateTrainingData checks shapes and returns the shared feature dimension
func validateTrainingData(features []vectorize.SparseVector, labels []model.Sentiment) (int, error) {
	if len(features) == 0 {
		return 0, fmt.Errorf("%w: no samples", ErrInvalidTrainingData)
	}
	if len(features) != len(labels) {
		return 0, fmt.Errorf("%w: %d feature rows but %d labels", ErrInvalidTrainingData, len(features), len(labels))
	}
	dim := features[0].Dim
	if dim <= 0 {
		return 0, fmt.Errorf("%w: zero feature dimension", ErrInvalidTrainingData)
	}
	for i, x := range features {
		if x.Dim != dim {
			return 0, fmt.Errorf("%w: row %d has dimension %d, expected %d", ErrInvalidTrainingData, i, x.Dim, dim)
		}
		if !labels[i].Valid() {
			return 0, fmt.Errorf("%w: row %d has label %d", ErrInvalidTrainingData, i, labels[i])
		}
	}
	return dim, nil
}

// predictor is the part of Classifier that evaluate needs
type predictor interface {
	IsTrained() bool
	Predict(vectorize.SparseVector) (model.Sentiment, error)
}

func evaluate(c predictor, features []vectorize.SparseVector, labels []model.Sentiment) (*model.EvaluationReport, error) {
	if !c.IsTrained() {
		return nil, ErrNotTrained
	}
	if len(features) != len(labels) {
		return nil, fmt.Errorf("%w: %d feature rows but %d labels", ErrInvalidTrainingData, len(features), len(labels))
	}

	preds := make([]model.Sentiment, len(features))
	for i, x := range features {
		p, err := c.Predict(x)
		if err != nil {
			return nil, fmt.Errorf("predict row %d: %w", i, err)
		}
		preds[i] = p
	}

	report := Score(labels, preds)
	return &report, nil
}
