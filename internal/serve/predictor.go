// Package serve applies a persisted model to individual reviews.
package serve

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ppiankov/revsent/internal/artifact"
	"github.com/ppiankov/revsent/internal/cache"
	"github.com/ppiankov/revsent/internal/model"
	"github.com/ppiankov/revsent/internal/textproc"
)

// ErrModelUnavailable is returned when no usable artifact could be loaded
var ErrModelUnavailable = errors.New("sentiment model unavailable")

// Options configures a Predictor
type Options struct {
	// CacheTTL bounds how long a prediction is memoized. Zero disables the memo.
	CacheTTL time.Duration

	// CacheDir adds a disk layer under the memo so predictions survive
	// restarts. Ignored when CacheTTL is zero.
	CacheDir string

	// Normalizer overrides the default dictionary-backed normalizer
	Normalizer *textproc.Normalizer
}

// Prediction is the outcome for one text
type Prediction struct {
	Sentiment  model.Sentiment
	Normalized string
	Cached     bool
}

// Predictor is safe for concurrent use
type Predictor struct {
	artifact   *artifact.Artifact
	normalizer *textproc.Normalizer
	memo       cache.Cache
	ttl        time.Duration
}

// Load reads the artifact at path. Missing or corrupt files are reported as
// ErrModelUnavailable wrapping the underlying artifact error.
func Load(path string, opts Options) (*Predictor, error) {
	a, err := artifact.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	return New(a, opts)
}

// New wraps an already loaded artifact
func New(a *artifact.Artifact, opts Options) (*Predictor, error) {
	if a == nil || a.Vectorizer == nil || a.Classifier == nil || !a.Classifier.IsTrained() {
		return nil, ErrModelUnavailable
	}

	n := opts.Normalizer
	if n == nil {
		var err error
		if n, err = textproc.Default(); err != nil {
			return nil, err
		}
	}

	p := &Predictor{artifact: a, normalizer: n, ttl: opts.CacheTTL}
	switch {
	case opts.CacheTTL <= 0:
	case opts.CacheDir != "":
		p.memo = cache.NewMemoryOverDisk(opts.CacheTTL, filepath.Join(opts.CacheDir, "predictions"), opts.CacheTTL)
	default:
		p.memo = cache.NewMemoryCache(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return p, nil
}

// Metadata returns the loaded artifact's metadata
func (p *Predictor) Metadata() artifact.Metadata {
	return p.artifact.Meta
}

// Predict returns the sentiment of text
func (p *Predictor) Predict(ctx context.Context, text string) (model.Sentiment, error) {
	pred, err := p.Explain(ctx, text)
	if err != nil {
		return model.Negative, err
	}
	return pred.Sentiment, nil
}

// Explain is Predict plus the normalized text and whether the memo answered
func (p *Predictor) Explain(ctx context.Context, text string) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}

	key := cache.PredictionKey(p.artifact.Meta.Checksum, text)
	if p.memo != nil {
		if v, ok := p.memo.Get(key); ok && len(v) > 0 {
			return Prediction{
				Sentiment:  model.Sentiment(v[0]),
				Normalized: string(v[1:]),
				Cached:     true,
			}, nil
		}
	}

	normalized := p.normalizer.Normalize(text)
	x, err := p.artifact.Vectorizer.Transform(normalized)
	if err != nil {
		return Prediction{}, fmt.Errorf("vectorize: %w", err)
	}
	s, err := p.artifact.Classifier.Predict(x)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}

	if p.memo != nil {
		_ = p.memo.Set(key, append([]byte{byte(s)}, normalized...), p.ttl)
	}
	return Prediction{Sentiment: s, Normalized: normalized}, nil
}
