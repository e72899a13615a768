// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	apperrors "listing-grader/internal/common/errors"
	"listing-grader/internal/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// base config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// environment overlay, optional
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	// ENGINE_TOP_N overrides engine.top_n
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setViperDefaults(v)
	return v
}

// setViperDefaults covers booleans whose zero value is not the default, and
// registers engine keys so AutomaticEnv can see them without a config file.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("engine.ignore_stop_words", true)
	v.SetDefault("engine.top_n", 0)
	v.SetDefault("engine.top_percent", 0)
	v.SetDefault("engine.max_passes", 0)
	v.SetDefault("engine.convergence_threshold", 0)
	v.SetDefault("engine.support_ratio", 0)
	v.SetDefault("engine.parallelism", 0)
	v.SetDefault("corpus.source", SourceFile)
	v.SetDefault("corpus.path", "")
	v.SetDefault("metrics.enabled", true)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env found from the working directory upwards.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills credentials that are commonly only set in the environment.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
	if cfg.Notifications.SNS.TopicARN == "" {
		if val := os.Getenv("GRADING_SNS_TOPIC_ARN"); val != "" {
			cfg.Notifications.SNS.TopicARN = val
		}
	}
	if cfg.Notifications.AWS.Region == "" {
		if val := os.Getenv("AWS_REGION"); val != "" {
			cfg.Notifications.AWS.Region = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "listing-grader"
	}

	// Camunda defaults
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	// Engine defaults
	if cfg.Engine.TopN == 0 && cfg.Engine.TopPercent == 0 {
		cfg.Engine.TopN = 20
	}
	if cfg.Engine.MaxPasses == 0 {
		cfg.Engine.MaxPasses = 5
	}
	if cfg.Engine.ConvergenceThreshold == 0 {
		cfg.Engine.ConvergenceThreshold = 0.95
	}
	if cfg.Engine.SupportRatio == 0 {
		cfg.Engine.SupportRatio = 0.15
	}
	if cfg.Engine.Parallelism == 0 {
		cfg.Engine.Parallelism = runtime.NumCPU()
	}
	if cfg.Engine.Fallback.Weights.Total() == 0 {
		cfg.Engine.Fallback.Weights = models.DefaultWeights()
	}
	if cfg.Engine.Fallback.Thresholds == (models.Thresholds{}) {
		cfg.Engine.Fallback.Thresholds = models.DefaultThresholds()
	}

	// Corpus and artifact defaults
	if cfg.Corpus.Source == "" {
		cfg.Corpus.Source = SourceFile
	}
	if cfg.Corpus.Table == "" {
		cfg.Corpus.Table = "listings"
	}
	if cfg.Corpus.BestSellersTable == "" {
		cfg.Corpus.BestSellersTable = "best_sellers"
	}
	if cfg.Corpus.Index == "" {
		cfg.Corpus.Index = "listings"
	}
	if cfg.Corpus.PageSize == 0 {
		cfg.Corpus.PageSize = 500
	}
	if len(cfg.Artifacts.Sinks) == 0 {
		cfg.Artifacts.Sinks = []string{SinkFile}
	}
	if cfg.Artifacts.OutputDir == "" {
		cfg.Artifacts.OutputDir = "./output"
	}
	if cfg.Artifacts.RedisPrefix == "" {
		cfg.Artifacts.RedisPrefix = "grading"
	}
	if cfg.Artifacts.ESIndex == "" {
		cfg.Artifacts.ESIndex = "grading-artifacts"
	}
	if cfg.Artifacts.PGTable == "" {
		cfg.Artifacts.PGTable = "grading_artifacts"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics.ListenAddress == "" {
		cfg.Metrics.ListenAddress = ":9090"
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig checks engine bounds and that every referenced backend is configured.
func validateConfig(cfg *Config) error {
	e := cfg.Engine
	switch {
	case e.TopN != 0 && e.TopPercent != 0:
		return apperrors.NewConfigError("engine.top_n and engine.top_percent are mutually exclusive")
	case e.TopN < 0:
		return apperrors.NewConfigError("engine.top_n must be positive")
	case e.TopPercent < 0 || e.TopPercent > 100:
		return apperrors.NewConfigError("engine.top_percent must be in (0, 100]")
	case e.MaxPasses < 1 || e.MaxPasses > 20:
		return apperrors.NewConfigError("engine.max_passes must be between 1 and 20")
	case e.ConvergenceThreshold <= 0 || e.ConvergenceThreshold > 1:
		return apperrors.NewConfigError("engine.convergence_threshold must be in (0, 1]")
	case e.SupportRatio <= 0 || e.SupportRatio > 1:
		return apperrors.NewConfigError("engine.support_ratio must be in (0, 1]")
	}

	switch cfg.Corpus.Source {
	case SourceFile:
	case SourcePostgres:
		if err := requirePostgres(cfg); err != nil {
			return err
		}
	case SourceElasticsearch:
		if cfg.Database.Elasticsearch.GetURL() == "" {
			return apperrors.NewConfigError("database.elasticsearch.addresses or url is required for the elasticsearch corpus")
		}
	default:
		return apperrors.NewConfigError(fmt.Sprintf("unknown corpus.source %q", cfg.Corpus.Source))
	}

	for _, sink := range cfg.Artifacts.Sinks {
		switch sink {
		case SinkFile:
		case SinkRedis:
			if cfg.Database.Redis.Address == "" {
				return apperrors.NewConfigError("database.redis.address is required for the redis sink")
			}
		case SinkElasticsearch:
			if cfg.Database.Elasticsearch.GetURL() == "" {
				return apperrors.NewConfigError("database.elasticsearch.addresses or url is required for the elasticsearch sink")
			}
		case SinkPostgres:
			if err := requirePostgres(cfg); err != nil {
				return err
			}
		default:
			return apperrors.NewConfigError(fmt.Sprintf("unknown artifact sink %q", sink))
		}
	}

	if cfg.Notifications.Enabled && cfg.Notifications.SNS.TopicARN == "" && cfg.Notifications.SES.FromEmail == "" {
		return apperrors.NewConfigError("notifications need notifications.sns.topic_arn or notifications.ses.from_email")
	}
	return nil
}

func requirePostgres(cfg *Config) error {
	p := cfg.Database.Postgres
	if p.Host == "" {
		return apperrors.NewConfigError("database.postgres.host is required")
	}
	if p.Database == "" {
		return apperrors.NewConfigError("database.postgres.database is required")
	}
	if p.User == "" {
		return apperrors.NewConfigError("database.postgres.user is required")
	}
	return nil
}

// RequireCamunda is checked by processes that connect to the broker.
func (c *Config) RequireCamunda() error {
	if c.Camunda.BrokerAddress == "" {
		return apperrors.NewConfigError("camunda.broker_address is required")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
