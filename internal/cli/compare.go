package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/revsent/internal/pipeline"
)

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Train and evaluate every model type on the same split",
	Long: `Compare prepares the corpus once, then trains logistic_regression,
naive_bayes, svm and random_forest concurrently on the same features and
writes model_comparison.txt to --output-dir. No model artifacts are saved.

Example:
  revsent compare --data data/train.csv --max-samples 200000`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	addTrainingFlags(compareCmd.Flags())
}

func runCompare(cmd *cobra.Command, args []string) error {
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

	trainer, err := pipeline.NewTrainer(cfg)
	if err != nil {
		return err
	}
	res, err := trainer.Compare(ctx)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	fmt.Fprintln(os.Stderr, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(os.Stderr, "  Model Comparison")
	fmt.Fprintln(os.Stderr, "═══════════════════════════════════════════════════════════")
	for _, s := range res.Summaries {
		marker := " "
		if s.Kind == res.Best {
			marker = "★"
		}
		fmt.Fprintf(os.Stderr, "  %s %-20s accuracy %.4f  (%.2fs)\n", marker, s.Kind, s.Report.Accuracy, s.TrainingTime.Seconds())
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "✓ Wrote comparison: %s\n", res.ReportPath)
	return nil
}
