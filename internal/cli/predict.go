package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/revsent/internal/artifact"
	"github.com/ppiankov/revsent/internal/serve"
)

var (
	predictModelPath string
	predictExplain   bool
)

// predictCmd represents the predict command
var predictCmd = &cobra.Command{
	Use:   "predict [text...]",
	Short: "Classify reviews with a trained model",
	Long: `Predict loads a trained model artifact and prints one sentiment per input.

Each argument is one review. With no arguments, reviews are read from stdin,
one per line. Output is tab-separated: sentiment, then the input text.

Example:
  revsent predict "This product is absolutely wonderful."
  cat reviews.txt | revsent predict --model-path models/svm_v3.gob.gz`,
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().StringVar(&predictModelPath, "model-path", "", "model artifact (default: {output.dir}/"+artifact.CurrentFilename+")")
	predictCmd.Flags().BoolVar(&predictExplain, "explain", false, "also print the normalized text")
}

func runPredict(cmd *cobra.Command, args []string) error {
	path := predictModelPath
	if path == "" {
		path = filepath.Join(viper.GetString("output.dir"), artifact.CurrentFilename)
	}

	p, err := serve.Load(path, serve.Options{
		CacheTTL: viper.GetDuration("cache.prediction_ttl"),
		CacheDir: viper.GetString("cache.dir"),
	})
	if err != nil {
		return err
	}

	if viper.GetBool("output.verbose") {
		meta := p.Metadata()
		fmt.Fprintf(os.Stderr, "✓ Loaded %s v%d (run %s, vocabulary %d)\n", meta.Kind, meta.Version, meta.RunID, meta.VocabularySize)
	}

	ctx, cancel := signalContext()
	defer cancel()

	out := bufio.NewWriter(cmd.OutOrStdout())
	defer func() { _ = out.Flush() }()

	classify := func(text string) error {
		pred, err := p.Explain(ctx, text)
		if err != nil {
			return err
		}
		if predictExplain {
			_, err = fmt.Fprintf(out, "%s\t%s\t%s\n", pred.Sentiment, text, pred.Normalized)
		} else {
			_, err = fmt.Fprintf(out, "%s\t%s\n", pred.Sentiment, text)
		}
		return err
	}

	if len(args) > 0 {
		for _, text := range args {
			if err := classify(text); err != nil {
				return err
			}
		}
		return nil
	}
	return eachLine(cmd.InOrStdin(), classify)
}

// eachLine calls fn for every non-blank line of r
func eachLine(r io.Reader, fn func(string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
