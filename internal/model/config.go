package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is returned when configuration fails validation
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all settings recognized by the training driver and the predictor
type Config struct {
	Corpus CorpusConfig `yaml:"corpus" mapstructure:"corpus"`
	Train  TrainConfig  `yaml:"train" mapstructure:"train"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// CorpusConfig describes where the training corpus lives and how it is laid out
type CorpusConfig struct {
	Path         string `yaml:"path" mapstructure:"path" validate:"required"`
	HasHeader    bool   `yaml:"has_header" mapstructure:"has_header"`          // Named columns instead of rating,title,text
	RatingColumn string `yaml:"rating_column" mapstructure:"rating_column"`    // Only used with HasHeader
	TextColumn   string `yaml:"text_column" mapstructure:"text_column"`        // Only used with HasHeader
	ChunkSize    int    `yaml:"chunk_size" mapstructure:"chunk_size" validate:"gt=0"`
	MaxSamples   int    `yaml:"max_samples" mapstructure:"max_samples" validate:"gte=0"` // 0 = unlimited
}

// TrainConfig selects the model and vectorizer bounds
type TrainConfig struct {
	Model        string  `yaml:"model" mapstructure:"model" validate:"required,oneof=logistic_regression naive_bayes svm random_forest"`
	MaxFeatures  int     `yaml:"max_features" mapstructure:"max_features" validate:"gt=0"`
	TestFraction float64 `yaml:"test_fraction" mapstructure:"test_fraction" validate:"gt=0,lt=1"`
	Seed         int64   `yaml:"seed" mapstructure:"seed"`
}

// OutputConfig controls where artifacts and reports are written
type OutputConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir" validate:"required"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// CacheConfig controls the normalized-batch disk cache and the prediction memo
type CacheConfig struct {
	Dir           string        `yaml:"dir" mapstructure:"dir"` // Empty disables the disk cache
	PredictionTTL time.Duration `yaml:"prediction_ttl" mapstructure:"prediction_ttl"`
}

// LogConfig configures the structured logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=console json"`
}

// DefaultConfig returns the configuration used for large-scale training runs
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			RatingColumn: "Rating",
			TextColumn:   "Text",
			ChunkSize:    100_000,
			MaxSamples:   2_000_000,
		},
		Train: TrainConfig{
			Model:        string(KindLogisticRegression),
			MaxFeatures:  20_000,
			TestFraction: 0.2,
			Seed:         42,
		},
		Output: OutputConfig{
			Dir: "models",
		},
		Cache: CacheConfig{
			PredictionTTL: 10 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// ModelKind returns the parsed model kind
func (c *Config) ModelKind() (ModelKind, error) {
	return ParseModelKind(c.Train.Model)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks the configuration against its struct constraints
func (c *Config) Validate() error {
	var msgs []string

	if err := getValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		for _, fe := range verrs {
			if fe.Param() != "" {
				msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Namespace(), fe.Tag()))
			}
		}
	}

	if c.Corpus.HasHeader && (c.Corpus.RatingColumn == "" || c.Corpus.TextColumn == "") {
		msgs = append(msgs, "Config.Corpus: rating_column and text_column are required with has_header")
	}

	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}
