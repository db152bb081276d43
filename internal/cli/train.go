package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ppiankov/revsent/internal/pipeline"
	"github.com/ppiankov/revsent/internal/report"
)

// trainingFlags maps command flags to configuration keys
var trainingFlags = map[string]string{
	"data":          "corpus.path",
	"header":        "corpus.has_header",
	"rating-column": "corpus.rating_column",
	"text-column":   "corpus.text_column",
	"batch-size":    "corpus.chunk_size",
	"max-samples":   "corpus.max_samples",
	"max-features":  "train.max_features",
	"test-fraction": "train.test_fraction",
	"seed":          "train.seed",
	"output-dir":    "output.dir",
	"cache-dir":     "cache.dir",
	"model":         "train.model",
}

// addTrainingFlags registers the corpus, vectorizer and output flags
func addTrainingFlags(fs *pflag.FlagSet) {
	fs.String("data", "", "path to the training CSV (rating,title,text)")
	fs.Bool("header", false, "CSV has a header row; use --rating-column and --text-column")
	fs.String("rating-column", "Rating", "rating column name (with --header)")
	fs.String("text-column", "Text", "text column name (with --header)")
	fs.Int("batch-size", 100_000, "rows per chunk when loading and normalizing")
	fs.Int("max-samples", 2_000_000, "maximum rows to load (0 = unlimited)")
	fs.Int("max-features", 20_000, "TF-IDF vocabulary size")
	fs.Float64("test-fraction", 0.2, "held-out fraction for evaluation")
	fs.Int64("seed", 42, "seed for the split and the model")
	fs.String("output-dir", "models", "directory for models and reports")
	fs.String("cache-dir", "", "directory for the normalization cache (empty = disabled)")
}

// bindTrainingFlags binds the flags of cmd that were registered by addTrainingFlags.
// Binding happens at run time because train and compare share keys.
func bindTrainingFlags(cmd *cobra.Command, v *viper.Viper) error {
	for name, key := range trainingFlags {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a sentiment model on a review corpus",
	Long: `Train loads the corpus in chunks, derives labels from ratings, normalizes
the text, fits a TF-IDF vectorizer and trains the selected model on a
stratified 80/20 split.

Outputs in --output-dir:
  {model}_v{N}.gob.gz              versioned artifact
  best_sentiment_model.gob.gz      artifact used by 'revsent predict'
  {model}_v{N}_evaluation.txt      human-readable evaluation
  {model}_v{N}_evaluation.json     machine-readable evaluation

Example:
  revsent train --data data/train.csv
  revsent train --data data/train.csv --model naive_bayes --max-samples 500000`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	addTrainingFlags(trainCmd.Flags())
	trainCmd.Flags().String("model", "logistic_regression", "model type: logistic_regression, naive_bayes, svm, random_forest")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runTrain(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	if err := bindTrainingFlags(cmd, v); err != nil {
		return err
	}
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Corpus: %s\n", cfg.Corpus.Path)
		fmt.Fprintf(os.Stderr, "Model: %s\n", cfg.Train.Model)
		fmt.Fprintf(os.Stderr, "Max samples: %d, chunk size: %d, max features: %d\n",
			cfg.Corpus.MaxSamples, cfg.Corpus.ChunkSize, cfg.Train.MaxFeatures)
		fmt.Fprintln(os.Stderr)
	}

	trainer, err := pipeline.NewTrainer(cfg)
	if err != nil {
		return err
	}

	res, err := trainer.Run(ctx)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	s := res.Summary
	fmt.Fprintln(os.Stderr, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(os.Stderr, "  Model: %s (v%d)\n", s.Kind, res.Version)
	fmt.Fprintln(os.Stderr, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(os.Stderr, "  Training samples: %d\n", s.TrainSamples)
	fmt.Fprintf(os.Stderr, "  Testing samples:  %d\n", s.TestSamples)
	fmt.Fprintf(os.Stderr, "  Training time:    %.2f seconds\n", s.TrainingTime.Seconds())
	fmt.Fprintf(os.Stderr, "  Accuracy:         %.4f\n", s.Report.Accuracy)
	fmt.Fprintln(os.Stderr)
	fmt.Fprint(os.Stderr, report.ClassificationReport(s.Report))
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "✓ Wrote model: %s\n", res.ArtifactPath)
	fmt.Fprintf(os.Stderr, "✓ Wrote model: %s\n", res.CurrentPath)
	fmt.Fprintf(os.Stderr, "✓ Wrote evaluation: %s\n", res.ReportPath)
	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote evaluation: %s\n", res.JSONReportPath)
	}
	return nil
}
