// Package pipeline drives a training run from the raw corpus to a persisted
// artifact.
//
// A run moves through Loading, Labeling, Normalizing, Vectorizing, Training,
// Evaluating and Persisting in that order. Any failure stops the run in the
// Failed stage and is returned as a *StageError naming the step. Nothing is
// written to the output directory before Persisting.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ppiankov/revsent/internal/artifact"
	"github.com/ppiankov/revsent/internal/cache"
	"github.com/ppiankov/revsent/internal/classify"
	"github.com/ppiankov/revsent/internal/corpus"
	"github.com/ppiankov/revsent/internal/label"
	"github.com/ppiankov/revsent/internal/logging"
	"github.com/ppiankov/revsent/internal/model"
	"github.com/ppiankov/revsent/internal/report"
	"github.com/ppiankov/revsent/internal/textproc"
	"github.com/ppiankov/revsent/internal/vectorize"
)

// ErrNoLabeledRecords is returned when every record had a neutral rating
var ErrNoLabeledRecords = errors.New("no labeled records after dropping neutral ratings")

// Result describes a completed training run
type Result struct {
	RunID          string
	Summary        model.TrainingSummary
	Version        int
	ArtifactPath   string
	CurrentPath    string
	ReportPath     string
	JSONReportPath string
	LoadStats      corpus.LoadStats
}

// Trainer runs the training stages for one configuration
type Trainer struct {
	cfg        *model.Config
	normalizer *textproc.Normalizer
	batches    *cache.BatchStore
	store      *artifact.Store
	clfOpts    classify.Options
	baseLog    zerolog.Logger
	log        zerolog.Logger // baseLog with run fields
	progress   rate.Sometimes

	mu    sync.Mutex
	stage Stage
	stats corpus.LoadStats
}

// Option customizes a Trainer
type Option func(*Trainer)

// WithNormalizer replaces the default dictionary-backed normalizer
func WithNormalizer(n *textproc.Normalizer) Option {
	return func(t *Trainer) { t.normalizer = n }
}

// WithClassifierOptions sets model hyperparameters. The seed from the
// configuration is used when opts.Seed is zero.
func WithClassifierOptions(opts classify.Options) Option {
	return func(t *Trainer) { t.clfOpts = opts }
}

// WithLogger replaces the global logger
func WithLogger(l zerolog.Logger) Option {
	return func(t *Trainer) { t.baseLog = l }
}

// NewTrainer validates cfg and prepares a trainer
func NewTrainer(cfg *model.Config, opts ...Option) (*Trainer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", model.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Trainer{
		cfg:      cfg,
		store:    artifact.NewStore(cfg.Output.Dir),
		baseLog:  logging.Logger(),
		progress: rate.Sometimes{Interval: time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.baseLog

	if t.normalizer == nil {
		n, err := textproc.Default()
		if err != nil {
			return nil, err
		}
		t.normalizer = n
	}
	if cfg.Cache.Dir != "" {
		t.batches = cache.NewBatchStore(cache.NewDiskCache(cfg.Cache.Dir, 0), textproc.Version)
	}
	if t.clfOpts.Seed == 0 {
		t.clfOpts.Seed = cfg.Train.Seed
	}
	return t, nil
}

// Stage returns the current stage
func (t *Trainer) Stage() Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stage
}

// LoadStats returns what the Loading stage read
func (t *Trainer) LoadStats() corpus.LoadStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

func (t *Trainer) enter(ctx context.Context, s Stage) error {
	t.mu.Lock()
	t.stage = s
	t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return t.fail(s, err)
	}
	t.log.Debug().Str("stage", s.String()).Msg("stage started")
	return nil
}

func (t *Trainer) fail(s Stage, err error) error {
	t.mu.Lock()
	t.stage = StageFailed
	t.mu.Unlock()

	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: s, Err: err}
}

// dataset is the split, vectorized corpus shared by Run and Compare
type dataset struct {
	vec        *vectorize.TfidfVectorizer
	trainX     []vectorize.SparseVector
	trainY     []model.Sentiment
	testX      []vectorize.SparseVector
	testY      []model.Sentiment
	negatives  int
	positives  int
	dropped    int
	normalized int
}

// Run executes every stage and persists the trained model
func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	kind, err := t.cfg.ModelKind()
	if err != nil {
		return nil, t.fail(StageIdle, err)
	}

	runID := uuid.NewString()
	t.log = t.baseLog.With().Str("run_id", runID).Str("model", kind.String()).Logger()

	ds, err := t.prepare(ctx)
	if err != nil {
		return nil, err
	}

	if err := t.enter(ctx, StageTraining); err != nil {
		return nil, err
	}
	clf, err := classify.New(kind, t.clfOpts)
	if err != nil {
		return nil, t.fail(StageTraining, err)
	}
	t.log.Info().Int("samples", len(ds.trainX)).Int("features", ds.vec.VocabSize()).Msg("training")
	start := time.Now()
	if err := clf.Train(ds.trainX, ds.trainY); err != nil {
		return nil, t.fail(StageTraining, err)
	}
	trainingTime := time.Since(start)
	t.log.Info().Dur("elapsed", trainingTime).Msg("training completed")

	if err := t.enter(ctx, StageEvaluating); err != nil {
		return nil, err
	}
	evaluation, err := clf.Evaluate(ds.testX, ds.testY)
	if err != nil {
		return nil, t.fail(StageEvaluating, err)
	}
	t.log.Info().Float64("accuracy", evaluation.Accuracy).Int("test_samples", len(ds.testX)).Msg("evaluated")

	summary := model.TrainingSummary{
		RunID:          runID,
		Kind:           kind,
		TrainSamples:   len(ds.trainX),
		TestSamples:    len(ds.testX),
		MaxFeatures:    t.cfg.Train.MaxFeatures,
		VocabularySize: ds.vec.VocabSize(),
		TrainingTime:   trainingTime,
		Report:         *evaluation,
	}

	if err := t.enter(ctx, StagePersisting); err != nil {
		return nil, err
	}
	res, err := t.persist(ds.vec, clf, summary, start.Add(trainingTime))
	if err != nil {
		return nil, t.fail(StagePersisting, err)
	}
	res.LoadStats = t.LoadStats()

	t.mu.Lock()
	t.stage = StageDone
	t.mu.Unlock()
	return res, nil
}

func (t *Trainer) persist(vec *vectorize.TfidfVectorizer, clf classify.Classifier, s model.TrainingSummary, trainedAt time.Time) (*Result, error) {
	meta := artifact.Metadata{
		RunID:              s.RunID,
		Kind:               s.Kind,
		LabelPolicy:        label.PolicyVersion,
		TrainedAt:          trainedAt.UTC(),
		TrainSamples:       s.TrainSamples,
		TestSamples:        s.TestSamples,
		MaxFeatures:        s.MaxFeatures,
		VocabularySize:     s.VocabularySize,
		TrainingDurationMS: s.TrainingTime.Milliseconds(),
	}

	// Everything written so far is removed if a later write fails, so a
	// failed run leaves no partial artifact behind.
	var written []string
	abort := func(err error) (*Result, error) {
		for _, p := range written {
			if rmErr := os.Remove(p); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				t.log.Warn().Err(rmErr).Str("path", p).Msg("remove partial output")
			}
		}
		return nil, err
	}

	path, version, err := t.store.PersistVersioned(s.Kind, vec, clf, meta)
	if err != nil {
		return nil, fmt.Errorf("persist versioned artifact: %w", err)
	}
	written = append(written, path)

	meta.Version = version
	current, err := t.store.PublishCurrent(vec, clf, meta)
	if err != nil {
		return abort(fmt.Errorf("publish current artifact: %w", err))
	}
	written = append(written, current)

	textPath := t.store.SidecarPath(s.Kind, version, report.TextSuffix)
	if err := report.WriteFile(textPath, func(w io.Writer) error { return report.WriteText(w, s) }); err != nil {
		return abort(err)
	}
	written = append(written, textPath)

	jsonPath := t.store.SidecarPath(s.Kind, version, report.JSONSuffix)
	if err := report.WriteFile(jsonPath, func(w io.Writer) error { return report.WriteJSON(w, s) }); err != nil {
		return abort(err)
	}

	t.log.Info().Str("artifact", path).Str("current", current).Int("version", version).Msg("model saved")

	return &Result{
		RunID:          s.RunID,
		Summary:        s,
		Version:        version,
		ArtifactPath:   path,
		CurrentPath:    current,
		ReportPath:     textPath,
		JSONReportPath: jsonPath,
	}, nil
}

// prepare runs Loading through Vectorizing
func (t *Trainer) prepare(ctx context.Context) (*dataset, error) {
	if err := t.enter(ctx, StageLoading); err != nil {
		return nil, err
	}
	loader := corpus.NewLoader(corpus.OptionsFromConfig(t.cfg.Corpus))
	loader.OnChunk(func(chunk, rows int) {
		t.progress.Do(func() {
			t.log.Info().Int("chunk", chunk).Int("rows", rows).Msg("loading corpus")
		})
	})
	raw, err := loader.LoadFile(ctx, t.cfg.Corpus.Path)
	t.mu.Lock()
	t.stats = loader.Stats()
	t.mu.Unlock()
	if err != nil {
		return nil, t.fail(StageLoading, err)
	}
	t.log.Info().Int("rows", len(raw)).Int("chunks", loader.Stats().ChunksRead).Msg("corpus loaded")

	if err := t.enter(ctx, StageLabeling); err != nil {
		return nil, err
	}
	labeled := label.Apply(raw)
	dropped := len(raw) - len(labeled)
	if len(labeled) == 0 {
		return nil, t.fail(StageLabeling, ErrNoLabeledRecords)
	}
	neg, pos := label.Counts(labeled)
	t.log.Info().Int("negative", neg).Int("positive", pos).Int("neutral_dropped", dropped).Msg("labels derived")

	if err := t.enter(ctx, StageNormalizing); err != nil {
		return nil, err
	}
	processed, err := t.normalize(ctx, labeled)
	if err != nil {
		return nil, t.fail(StageNormalizing, err)
	}

	if err := t.enter(ctx, StageVectorizing); err != nil {
		return nil, err
	}
	ds, err := t.vectorize(processed)
	if err != nil {
		return nil, t.fail(StageVectorizing, err)
	}
	ds.negatives, ds.positives, ds.dropped, ds.normalized = neg, pos, dropped, len(processed)
	return ds, nil
}

// normalize processes records in chunk-sized batches, consulting the batch
// cache when one is configured
func (t *Trainer) normalize(ctx context.Context, records []model.LabeledRecord) ([]model.ProcessedRecord, error) {
	batchSize := t.cfg.Corpus.ChunkSize
	if batchSize <= 0 {
		batchSize = corpus.DefaultChunkSize
	}

	out := make([]model.ProcessedRecord, 0, len(records))
	hits := 0
	for start := 0; start < len(records); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+batchSize, len(records))

		texts := make([]string, end-start)
		for i, r := range records[start:end] {
			texts[i] = r.Text
		}

		normalized, ok := t.cachedBatch(texts)
		if ok {
			hits++
		} else {
			normalized = t.normalizer.NormalizeAll(texts)
			t.storeBatch(texts, normalized)
		}

		for i, r := range records[start:end] {
			out = append(out, model.ProcessedRecord{LabeledRecord: r, NormalizedText: normalized[i]})
		}

		t.progress.Do(func() {
			t.log.Info().Int("processed", len(out)).Int("total", len(records)).Msg("normalizing")
		})
	}

	if t.batches != nil {
		t.log.Debug().Int("cache_hits", hits).Msg("normalization cache")
	}
	return out, nil
}

func (t *Trainer) cachedBatch(texts []string) ([]string, bool) {
	if t.batches == nil {
		return nil, false
	}
	return t.batches.Get(texts)
}

func (t *Trainer) storeBatch(texts, normalized []string) {
	if t.batches == nil {
		return
	}
	if err := t.batches.Put(texts, normalized); err != nil {
		t.log.Warn().Err(err).Msg("normalization cache write failed")
	}
}

// vectorize splits the processed corpus and fits the vectorizer on the training part
func (t *Trainer) vectorize(processed []model.ProcessedRecord) (*dataset, error) {
	labels := make([]model.Sentiment, len(processed))
	for i, p := range processed {
		labels[i] = p.Sentiment
	}

	trainIdx, testIdx, err := stratifiedSplit(labels, t.cfg.Train.TestFraction, t.cfg.Train.Seed)
	if err != nil {
		return nil, err
	}

	pick := func(idx []int) ([]string, []model.Sentiment) {
		texts := make([]string, len(idx))
		ys := make([]model.Sentiment, len(idx))
		for i, j := range idx {
			texts[i] = processed[j].NormalizedText
			ys[i] = labels[j]
		}
		return texts, ys
	}
	trainTexts, trainY := pick(trainIdx)
	testTexts, testY := pick(testIdx)

	vec := vectorize.NewTfidfVectorizer(t.cfg.Train.MaxFeatures)
	trainX, err := vec.FitTransform(trainTexts)
	if err != nil {
		return nil, err
	}
	testX, err := vec.TransformAll(testTexts)
	if err != nil {
		return nil, err
	}
	t.log.Info().Int("train", len(trainX)).Int("test", len(testX)).Int("vocabulary", vec.VocabSize()).Msg("features extracted")

	return &dataset{
		vec:    vec,
		trainX: trainX,
		trainY: trainY,
		testX:  testX,
		testY:  testY,
	}, nil
}
