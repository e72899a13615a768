// internal/common/config/config.go
package config

import (
	"fmt"

	"listing-grader/internal/models"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Engine        EngineConfig            `mapstructure:"engine"`
	Corpus        CorpusConfig            `mapstructure:"corpus"`
	Artifacts     ArtifactsConfig         `mapstructure:"artifacts"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Metrics       MetricsConfig           `mapstructure:"metrics"`
	Tracing       TracingConfig           `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Engine Configuration ---

// EngineConfig tunes exemplar selection and the convergence loop. TopN and
// TopPercent are mutually exclusive; zero means unset.
type EngineConfig struct {
	TopN                 int                 `mapstructure:"top_n"`
	TopPercent           float64             `mapstructure:"top_percent"`
	MaxPasses            int                 `mapstructure:"max_passes"`
	ConvergenceThreshold float64             `mapstructure:"convergence_threshold"`
	SupportRatio         float64             `mapstructure:"support_ratio"`
	IgnoreStopWords      bool                `mapstructure:"ignore_stop_words"`
	Parallelism          int                 `mapstructure:"parallelism"`
	PassSnapshots        bool                `mapstructure:"pass_snapshots"`
	Fallback             models.StaticConfig `mapstructure:"fallback"`
}

// Corpus sources.
const (
	SourceFile          = "file"
	SourcePostgres      = "postgres"
	SourceElasticsearch = "elasticsearch"
)

type CorpusConfig struct {
	Source           string `mapstructure:"source"`
	Path             string `mapstructure:"path"`
	BestSellersPath  string `mapstructure:"best_sellers_path"`
	Table            string `mapstructure:"table"`
	BestSellersTable string `mapstructure:"best_sellers_table"`
	Index            string `mapstructure:"index"`
	BestSellersIndex string `mapstructure:"best_sellers_index"`
	PageSize         int    `mapstructure:"page_size"`
	ValidateSchema   bool   `mapstructure:"validate_schema"`
}

// Artifact sinks.
const (
	SinkFile          = "file"
	SinkRedis         = "redis"
	SinkElasticsearch = "elasticsearch"
	SinkPostgres      = "postgres"
)

type ArtifactsConfig struct {
	Sinks       []string `mapstructure:"sinks"`
	OutputDir   string   `mapstructure:"output_dir"`
	RedisPrefix string   `mapstructure:"redis_prefix"`
	RedisTTL    int      `mapstructure:"redis_ttl"` // seconds, 0 keeps keys forever
	ESIndex     string   `mapstructure:"es_index"`
	PGTable     string   `mapstructure:"pg_table"`
}

// HasSink reports whether name is among the configured sinks.
func (a ArtifactsConfig) HasSink(name string) bool {
	for _, s := range a.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// NotificationConfig holds settings for the publication notifier.
type NotificationConfig struct {
	Enabled bool `mapstructure:"enabled"`
	AWS     struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SNS struct {
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	SES struct {
		FromEmail string   `mapstructure:"from_email"`
		ToEmails  []string `mapstructure:"to_emails"`
	} `mapstructure:"ses"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ListenAddress string `mapstructure:"listen_address"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}
