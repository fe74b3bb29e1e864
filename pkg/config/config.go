// Package config loads and validates docindex configuration from YAML files
// with environment-variable overrides. It provides typed structs for the
// indexer run and for every optional sink (Kafka, Redis, PostgreSQL).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/docindex/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Indexer  IndexerConfig  `yaml:"indexer"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Notify   NotifyConfig   `yaml:"notify"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// IndexerConfig describes one indexing run: where the rendered HTML lives,
// where the artifacts go, and how many workers each phase may use.
type IndexerConfig struct {
	HTMLDir        string `yaml:"htmlDir"`
	SearchDir      string `yaml:"searchDir"`
	FragmentsDir   string `yaml:"fragmentsDir"`
	PrivateDir     string `yaml:"privateDir"`
	StopWordsPath  string `yaml:"stopWordsPath"`
	TriePath       string `yaml:"triePath"`
	TrieScriptPath string `yaml:"trieScriptPath"`
	Workers        int    `yaml:"workers"`
}

// Resolve fills every unset output path from HTMLDir.
func (c *IndexerConfig) Resolve() {
	if c.SearchDir == "" {
		c.SearchDir = filepath.Join(c.HTMLDir, "assets", "js", "search")
	}
	if c.FragmentsDir == "" {
		c.FragmentsDir = filepath.Join(c.SearchDir, "fragments")
	}
	if c.TriePath == "" {
		c.TriePath = filepath.Join(c.HTMLDir, "dumped.trie")
	}
	if c.TrieScriptPath == "" {
		c.TrieScriptPath = filepath.Join(c.HTMLDir, "assets", "js", "trie_index.js")
	}
}

// Validate reports missing required settings.
func (c IndexerConfig) Validate() error {
	if c.HTMLDir == "" {
		return apperrors.New(apperrors.ErrInvalidInput, apperrors.ExitUsage, "indexer.htmlDir is required")
	}
	if c.StopWordsPath == "" {
		return apperrors.New(apperrors.ErrInvalidInput, apperrors.ExitUsage, "indexer.stopWordsPath is required")
	}
	if c.Workers < 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "indexer.workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls Prometheus export. A non-empty TextfilePath writes
// the registry in text exposition format after the run; a non-zero Port
// serves /metrics while the run is in progress.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfilePath"`
	Port         int    `yaml:"port"`
}

// NotifyConfig selects the sinks that receive the run summary.
type NotifyConfig struct {
	Sinks        []string      `yaml:"sinks"`
	MaxAttempts  int           `yaml:"maxAttempts"`
	InitialDelay time.Duration `yaml:"initialDelay"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Enabled reports whether the named sink is configured.
func (n NotifyConfig) Enabled(sink string) bool {
	for _, s := range n.Sinks {
		if strings.EqualFold(strings.TrimSpace(s), sink) {
			return true
		}
	}
	return false
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete string `yaml:"indexComplete"`
}

// RedisConfig holds Redis connection parameters and the keys touched when a
// run completes.
type RedisConfig struct {
	Addr              string `yaml:"addr"`
	Password          string `yaml:"password"`
	DB                int    `yaml:"db"`
	PoolSize          int    `yaml:"poolSize"`
	Channel           string `yaml:"channel"`
	InvalidatePattern string `yaml:"invalidatePattern"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Notify: NotifyConfig{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			Timeout:      10 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topics: KafkaTopics{
				IndexComplete: "index.complete",
			},
		},
		Redis: RedisConfig{
			Addr:              "localhost:6379",
			PoolSize:          4,
			Channel:           "docindex:runs",
			InvalidatePattern: "docsearch:*",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "docindex",
			User:            "docindex",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
	}
}

// applyEnvOverrides reads DOCINDEX_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOCINDEX_HTML_DIR"); v != "" {
		cfg.Indexer.HTMLDir = v
	}
	if v := os.Getenv("DOCINDEX_SEARCH_DIR"); v != "" {
		cfg.Indexer.SearchDir = v
	}
	if v := os.Getenv("DOCINDEX_FRAGMENTS_DIR"); v != "" {
		cfg.Indexer.FragmentsDir = v
	}
	if v := os.Getenv("DOCINDEX_PRIVATE_DIR"); v != "" {
		cfg.Indexer.PrivateDir = v
	}
	if v := os.Getenv("DOCINDEX_STOP_WORDS"); v != "" {
		cfg.Indexer.StopWordsPath = v
	}
	if v := os.Getenv("DOCINDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Workers = n
		}
	}
	if v := os.Getenv("DOCINDEX_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DOCINDEX_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("DOCINDEX_METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.TextfilePath = v
	}
	if v := os.Getenv("DOCINDEX_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if v := os.Getenv("DOCINDEX_NOTIFY_SINKS"); v != "" {
		cfg.Notify.Sinks = strings.Split(v, ",")
	}
	if v := os.Getenv("DOCINDEX_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DOCINDEX_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DOCINDEX_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DOCINDEX_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("DOCINDEX_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
}
