package model

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultConfig_RequiresCorpusPath(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "Path") {
		t.Errorf("expected error to mention Path, got %q", err.Error())
	}

	cfg.Corpus.Path = "reviews.csv"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestConfig_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown model", func(c *Config) { c.Train.Model = "perceptron" }},
		{"zero chunk size", func(c *Config) { c.Corpus.ChunkSize = 0 }},
		{"negative max samples", func(c *Config) { c.Corpus.MaxSamples = -1 }},
		{"zero max features", func(c *Config) { c.Train.MaxFeatures = 0 }},
		{"test fraction one", func(c *Config) { c.Train.TestFraction = 1 }},
		{"empty output dir", func(c *Config) { c.Output.Dir = "" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"header without text column", func(c *Config) {
			c.Corpus.HasHeader = true
			c.Corpus.TextColumn = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Corpus.Path = "reviews.csv"
			tt.mutate(cfg)

			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestParseModelKind(t *testing.T) {
	tests := []struct {
		in   string
		want ModelKind
	}{
		{"logistic_regression", KindLogisticRegression},
		{"LR", KindLogisticRegression},
		{"naive_bayes", KindNaiveBayes},
		{" svm ", KindSVM},
		{"random_forest", KindRandomForest},
	}
	for _, tt := range tests {
		got, err := ParseModelKind(tt.in)
		if err != nil {
			t.Errorf("ParseModelKind(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseModelKind(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseModelKind("bert"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestSentiment_String(t *testing.T) {
	if Negative.String() != "negative" || Positive.String() != "positive" {
		t.Errorf("unexpected labels: %s %s", Negative, Positive)
	}
	if Sentiment(7).Valid() {
		t.Error("expected 7 to be invalid")
	}
}

func TestEvaluationReport_Total(t *testing.T) {
	r := EvaluationReport{Confusion: [NumClasses][NumClasses]int{{3, 1}, {2, 4}}}
	if r.Total() != 10 {
		t.Errorf("expected 10, got %d", r.Total())
	}
}
