package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/revsent/internal/classify"
	"github.com/ppiankov/revsent/internal/model"
	"github.com/ppiankov/revsent/internal/report"
	"github.com/ppiankov/revsent/internal/vectorize"
	"github.com/ppiankov/revsent/internal/worker"
)

// CompareResult holds one summary per model kind, in AllModelKinds order
type CompareResult struct {
	RunID      string
	Summaries  []model.TrainingSummary
	Best       model.ModelKind
	ReportPath string
}

// trainJob trains and evaluates one model kind. The feature matrices are
// shared between jobs and only read.
type trainJob struct {
	kind   model.ModelKind
	opts   classify.Options
	trainX []vectorize.SparseVector
	trainY []model.Sentiment
	testX  []vectorize.SparseVector
	testY  []model.Sentiment
}

type trainOutcome struct {
	kind         model.ModelKind
	report       *model.EvaluationReport
	trainingTime time.Duration
	err          error
}

func (j *trainJob) Execute(ctx context.Context) trainOutcome {
	out := trainOutcome{kind: j.kind}

	clf, err := classify.New(j.kind, j.opts)
	if err != nil {
		out.err = err
		return out
	}
	start := time.Now()
	if err := clf.Train(j.trainX, j.trainY); err != nil {
		out.err = fmt.Errorf("train %s: %w", j.kind, err)
		return out
	}
	out.trainingTime = time.Since(start)

	if err := ctx.Err(); err != nil {
		out.err = err
		return out
	}
	out.report, out.err = clf.Evaluate(j.testX, j.testY)
	if out.err != nil {
		out.err = fmt.Errorf("evaluate %s: %w", j.kind, out.err)
	}
	return out
}

// Compare trains every model kind on the same split concurrently and writes
// model_comparison.txt. No artifacts are persisted.
func (t *Trainer) Compare(ctx context.Context) (*CompareResult, error) {
	runID := uuid.NewString()
	t.log = t.baseLog.With().Str("run_id", runID).Str("mode", "compare").Logger()

	ds, err := t.prepare(ctx)
	if err != nil {
		return nil, err
	}

	if err := t.enter(ctx, StageTraining); err != nil {
		return nil, err
	}
	kinds := model.AllModelKinds()
	jobs := make([]worker.Job[trainOutcome], len(kinds))
	for i, kind := range kinds {
		jobs[i] = &trainJob{
			kind:   kind,
			opts:   t.clfOpts,
			trainX: ds.trainX,
			trainY: ds.trainY,
			testX:  ds.testX,
			testY:  ds.testY,
		}
	}
	t.log.Info().Int("models", len(jobs)).Int("samples", len(ds.trainX)).Msg("training all model kinds")

	outcomes, err := worker.Run(ctx, min(len(jobs), runtime.NumCPU()), jobs)
	if err != nil {
		return nil, t.fail(StageTraining, err)
	}

	if err := t.enter(ctx, StageEvaluating); err != nil {
		return nil, err
	}
	var errs []error
	summaries := make([]model.TrainingSummary, 0, len(outcomes))
	for _, o := range outcomes {
		if o.err != nil {
			errs = append(errs, o.err)
			continue
		}
		t.log.Info().Str("model", o.kind.String()).Float64("accuracy", o.report.Accuracy).Dur("elapsed", o.trainingTime).Msg("model evaluated")
		summaries = append(summaries, model.TrainingSummary{
			RunID:          runID,
			Kind:           o.kind,
			TrainSamples:   len(ds.trainX),
			TestSamples:    len(ds.testX),
			MaxFeatures:    t.cfg.Train.MaxFeatures,
			VocabularySize: ds.vec.VocabSize(),
			TrainingTime:   o.trainingTime,
			Report:         *o.report,
		})
	}
	if len(errs) > 0 {
		return nil, t.fail(StageTraining, errors.Join(errs...))
	}

	if err := t.enter(ctx, StagePersisting); err != nil {
		return nil, err
	}
	path := filepath.Join(t.cfg.Output.Dir, report.ComparisonFilename)
	if err := report.WriteFile(path, func(w io.Writer) error { return report.WriteComparison(w, summaries) }); err != nil {
		return nil, t.fail(StagePersisting, err)
	}

	best, _ := report.Best(summaries)
	t.log.Info().Str("best", best.Kind.String()).Float64("accuracy", best.Report.Accuracy).Str("report", path).Msg("comparison written")

	t.mu.Lock()
	t.stage = StageDone
	t.mu.Unlock()

	return &CompareResult{
		RunID:      runID,
		Summaries:  summaries,
		Best:       best.Kind,
		ReportPath: path,
	}, nil
}
