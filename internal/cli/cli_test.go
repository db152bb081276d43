package cli

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/revsent/internal/model"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	configureViper(v)
	return v
}

func TestLoadConfigRequiresCorpusPath(t *testing.T) {
	_, err := loadConfig(newTestViper())
	if !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("REVSENT_CORPUS_PATH", "data/train.csv")
	t.Setenv("REVSENT_TRAIN_MODEL", "svm")
	t.Setenv("REVSENT_CORPUS_MAX_SAMPLES", "5000")
	t.Setenv("REVSENT_CACHE_PREDICTION_TTL", "5m")

	cfg, err := loadConfig(newTestViper())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Corpus.Path != "data/train.csv" {
		t.Errorf("corpus.path = %q", cfg.Corpus.Path)
	}
	if cfg.Train.Model != "svm" {
		t.Errorf("train.model = %q", cfg.Train.Model)
	}
	if cfg.Corpus.MaxSamples != 5000 {
		t.Errorf("corpus.max_samples = %d", cfg.Corpus.MaxSamples)
	}
	if cfg.Cache.PredictionTTL != 5*time.Minute {
		t.Errorf("cache.prediction_ttl = %v", cfg.Cache.PredictionTTL)
	}
	// Untouched keys keep their defaults
	if cfg.Corpus.ChunkSize != 100_000 || cfg.Train.MaxFeatures != 20_000 || cfg.Train.Seed != 42 {
		t.Errorf("defaults lost: %+v %+v", cfg.Corpus, cfg.Train)
	}
}

func TestLoadConfigRejectsUnknownModel(t *testing.T) {
	t.Setenv("REVSENT_CORPUS_PATH", "data/train.csv")
	t.Setenv("REVSENT_TRAIN_MODEL", "perceptron")

	if _, err := loadConfig(newTestViper()); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBindTrainingFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "train"}
	addTrainingFlags(cmd.Flags())
	cmd.Flags().String("model", "logistic_regression", "")

	err := cmd.ParseFlags([]string{
		"--data", "reviews.csv",
		"--model", "naive_bayes",
		"--max-samples", "150",
		"--batch-size", "100",
		"--output-dir", "out",
	})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	v := newTestViper()
	if err := bindTrainingFlags(cmd, v); err != nil {
		t.Fatalf("bindTrainingFlags: %v", err)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Corpus.Path != "reviews.csv" || cfg.Train.Model != "naive_bayes" {
		t.Errorf("unexpected corpus/model: %q %q", cfg.Corpus.Path, cfg.Train.Model)
	}
	if cfg.Corpus.MaxSamples != 150 || cfg.Corpus.ChunkSize != 100 {
		t.Errorf("unexpected sizes: %+v", cfg.Corpus)
	}
	if cfg.Output.Dir != "out" {
		t.Errorf("output.dir = %q", cfg.Output.Dir)
	}
	if cfg.Train.TestFraction != 0.2 {
		t.Errorf("test_fraction = %v", cfg.Train.TestFraction)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("REVSENT_CORPUS_PATH", "env.csv")

	cmd := &cobra.Command{Use: "compare"}
	addTrainingFlags(cmd.Flags())
	if err := cmd.ParseFlags([]string{"--data", "flag.csv"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	v := newTestViper()
	if err := bindTrainingFlags(cmd, v); err != nil {
		t.Fatalf("bindTrainingFlags: %v", err)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Corpus.Path != "flag.csv" {
		t.Errorf("corpus.path = %q, want flag.csv", cfg.Corpus.Path)
	}
}

func TestEachLine(t *testing.T) {
	var got []string
	in := strings.NewReader("great product\n\n   \n  terrible  \nok\n")
	err := eachLine(in, func(s string) error {
		got = append(got, s)
		return nil
	})
	if err != nil {
		t.Fatalf("eachLine: %v", err)
	}
	want := []string{"great product", "terrible", "ok"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEachLineStopsOnError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := eachLine(strings.NewReader("a\nb\nc\n"), func(string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("err=%v calls=%d", err, calls)
	}
}

func TestEnvKeys(t *testing.T) {
	got := envKeys([]string{"train.model", "cache.prediction_ttl", "corpus.path"})
	want := []envKey{
		{name: "cache.prediction_ttl", env: "REVSENT_CACHE_PREDICTION_TTL"},
		{name: "corpus.path", env: "REVSENT_CORPUS_PATH"},
		{name: "train.model", env: "REVSENT_TRAIN_MODEL"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d keys, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("key %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDefaultConfigYAMLRoundTrip(t *testing.T) {
	def := model.DefaultConfig()
	def.Corpus.Path = "data/train.csv"
	data, err := yaml.Marshal(def)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "prediction_ttl: 10m0s") {
		t.Errorf("expected duration written as 10m0s, got:\n%s", data)
	}

	v := newTestViper()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(string(data))); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Cache.PredictionTTL != 10*time.Minute {
		t.Errorf("prediction_ttl = %v, want 10m", cfg.Cache.PredictionTTL)
	}
}
