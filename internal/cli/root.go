package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/revsent/internal/logging"
	"github.com/ppiankov/revsent/internal/model"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile   string
	verbose   bool
	logFormat string
	logLevel  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "revsent",
	Short: "revsent - review sentiment training and prediction",
	Long: `revsent trains binary sentiment classifiers on large product-review corpora
and applies them to individual reviews.

Ratings of 1-2 stars are negative, 4-5 stars positive, 3 stars are dropped.
Text is normalized, vectorized with TF-IDF and fed to one of four model
families: logistic_regression, naive_bayes, svm, random_forest.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logging.Config{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		})
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("revsent %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.revsent/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	configureViper(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".revsent"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// configureViper registers defaults and REVSENT_* environment lookup, so
// REVSENT_CORPUS_PATH overrides corpus.path
func configureViper(v *viper.Viper) {
	d := model.DefaultConfig()

	v.SetDefault("corpus.path", d.Corpus.Path)
	v.SetDefault("corpus.has_header", d.Corpus.HasHeader)
	v.SetDefault("corpus.rating_column", d.Corpus.RatingColumn)
	v.SetDefault("corpus.text_column", d.Corpus.TextColumn)
	v.SetDefault("corpus.chunk_size", d.Corpus.ChunkSize)
	v.SetDefault("corpus.max_samples", d.Corpus.MaxSamples)
	v.SetDefault("train.model", d.Train.Model)
	v.SetDefault("train.max_features", d.Train.MaxFeatures)
	v.SetDefault("train.test_fraction", d.Train.TestFraction)
	v.SetDefault("train.seed", d.Train.Seed)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.verbose", d.Output.Verbose)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.prediction_ttl", d.Cache.PredictionTTL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetEnvPrefix("REVSENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// loadConfig resolves flags > env > file > defaults into a validated config
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
