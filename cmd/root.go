package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/hh-matcher/internal/matching"
	"github.com/spigell/hh-matcher/internal/ranking"
	"github.com/spigell/hh-matcher/internal/similarity"
)

const (
	app       = "hh-matcher"
	envPrefix = "HH_MATCHER"
)

type Config struct {
	Weights     matching.Weights `mapstructure:"weights"`
	Ranking     RankingConfig    `mapstructure:"ranking"`
	Vocabulary  VocabularyConfig `mapstructure:"vocabulary"`
	Data        DataConfig       `mapstructure:"data"`
	ExcludeFile string           `mapstructure:"exclude-file"`
	Exclude     ExcludeConfig    `mapstructure:"exclude"`
	Similarity  SimilarityConfig `mapstructure:"similarity"`
}

type RankingConfig struct {
	// Workers bounds concurrent pair scorings. Zero means GOMAXPROCS.
	Workers         int     `mapstructure:"workers" validate:"gte=0"`
	MinJobScore     float64 `mapstructure:"min-job-score" validate:"gte=0,lte=100"`
	MinProfileScore float64 `mapstructure:"min-profile-score" validate:"gte=0,lte=100"`
}

type VocabularyConfig struct {
	// File replaces the embedded synonym table when set.
	File string `mapstructure:"file"`
}

type DataConfig struct {
	Profiles string `mapstructure:"profiles" validate:"required"`
	Jobs     string `mapstructure:"jobs" validate:"required"`
}

type ExcludeConfig struct {
	Employers []string `mapstructure:"employers" validate:"dive,required"`
}

type SimilarityConfig struct {
	Backend     string        `mapstructure:"backend" validate:"oneof=gemini remote none"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxInFlight int64         `mapstructure:"max-in-flight" validate:"gte=0"`
	Cache       CacheConfig   `mapstructure:"cache"`
	Gemini      GeminiConfig  `mapstructure:"gemini"`
	Remote      RemoteConfig  `mapstructure:"remote"`
}

type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl" validate:"gte=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup-interval" validate:"gte=0"`
	// RedisURL enables a shared second-level cache, e.g. redis://localhost:6379/0.
	RedisURL string `mapstructure:"redis-url" validate:"omitempty,url"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries" validate:"gte=0"`
}

type RemoteConfig struct {
	URL       string  `mapstructure:"url" validate:"omitempty,url"`
	TokenFile string  `mapstructure:"token-file"`
	RateLimit float64 `mapstructure:"rate-limit" validate:"gte=0"`
	Burst     int     `mapstructure:"burst" validate:"gte=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hh-matcher scores how well candidate profiles match job postings and ranks them",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hh-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults()
}

func setDefaults() {
	w := matching.DefaultWeights()
	viper.SetDefault("weights.semantic", w.Semantic)
	viper.SetDefault("weights.required-skills", w.RequiredSkills)
	viper.SetDefault("weights.preferred-skills", w.PreferredSkills)
	viper.SetDefault("weights.languages", w.Languages)
	viper.SetDefault("weights.experience", w.Experience)

	viper.SetDefault("ranking.workers", 0)
	viper.SetDefault("ranking.min-job-score", ranking.DefaultMinJobScore)
	viper.SetDefault("ranking.min-profile-score", ranking.DefaultMinProfileScore)

	viper.SetDefault("vocabulary.file", "")
	viper.SetDefault("data.profiles", "profiles.yaml")
	viper.SetDefault("data.jobs", "jobs.yaml")
	viper.SetDefault("exclude-file", "")
	viper.SetDefault("exclude.employers", []string{})

	viper.SetDefault("similarity.backend", "none")
	viper.SetDefault("similarity.timeout", similarity.DefaultTimeout)
	viper.SetDefault("similarity.max-in-flight", similarity.DefaultMaxInFlight)
	viper.SetDefault("similarity.cache.ttl", similarity.DefaultCacheTTL)
	viper.SetDefault("similarity.cache.cleanup-interval", similarity.DefaultCleanupInterval)
	viper.SetDefault("similarity.cache.redis-url", "")
	viper.SetDefault("similarity.gemini.api-key-file", "")
	viper.SetDefault("similarity.gemini.model", "")
	viper.SetDefault("similarity.gemini.max-retries", 0)
	viper.SetDefault("similarity.remote.url", "")
	viper.SetDefault("similarity.remote.token-file", "")
	viper.SetDefault("similarity.remote.rate-limit", 0)
	viper.SetDefault("similarity.remote.burst", 0)
}

func initConfig() {
	// The version command needs no configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	// A missing .env is fine; a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Defaults and environment are enough when no config file exists.
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		cfg := sl.Current().Interface().(SimilarityConfig)
		if cfg.Backend == "remote" && strings.TrimSpace(cfg.Remote.URL) == "" {
			sl.ReportError(cfg.Remote.URL, "Remote.URL", "URL", "required_for_remote", "")
		}
	}, SimilarityConfig{})
	return v
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("empty configuration")
	}

	config.Similarity.Backend = strings.ToLower(strings.TrimSpace(config.Similarity.Backend))

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if err := config.Weights.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
