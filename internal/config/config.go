// Package config defines the typed application configuration and its viper
// wiring. Defaults live in SetDefaults so the config file only needs to name
// what it overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the root of the application configuration tree.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Inference InferenceConfig `mapstructure:"inference" yaml:"inference"`
	Memory    MemoryConfig    `mapstructure:"memory" yaml:"memory"`
	Agent     AgentConfig     `mapstructure:"agent" yaml:"agent"`
	Idle      IdleConfig      `mapstructure:"idle" yaml:"idle"`
	Sequence  SequenceConfig  `mapstructure:"sequence" yaml:"sequence"`
}

// LoggerConfig holds all configuration for the zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// InferenceConfig selects and tunes the embedding / generation backend.
type InferenceConfig struct {
	Provider       string        `mapstructure:"provider" yaml:"provider"`
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	GenerateModel  string        `mapstructure:"generate_model" yaml:"generate_model"`
	EmbedModel     string        `mapstructure:"embed_model" yaml:"embed_model"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	MaxRetryWindow time.Duration `mapstructure:"max_retry_window" yaml:"max_retry_window"`
}

// MemoryConfig selects and tunes the vector memory backend.
type MemoryConfig struct {
	Backend        string        `mapstructure:"backend" yaml:"backend"` // "qdrant" or "pgvector"
	Collection     string        `mapstructure:"collection" yaml:"collection"`
	VectorSize     int           `mapstructure:"vector_size" yaml:"vector_size"`
	QdrantURL      string        `mapstructure:"qdrant_url" yaml:"qdrant_url"`
	PostgresDSN    string        `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	EmbedCacheTTL  time.Duration `mapstructure:"embed_cache_ttl" yaml:"embed_cache_ttl"`
}

// AgentConfig carries the decision thresholds and retrieval parameters.
// ExecuteConfidence and KnownStepConfidence are deliberately independent
// knobs; they gate different judgments and have never shared a value.
type AgentConfig struct {
	ExecuteConfidence   float64 `mapstructure:"execute_confidence" yaml:"execute_confidence"`
	KnownStepConfidence float64 `mapstructure:"known_step_confidence" yaml:"known_step_confidence"`
	RecallTopK          int     `mapstructure:"recall_top_k" yaml:"recall_top_k"`
	ContextScanTopK     int     `mapstructure:"context_scan_top_k" yaml:"context_scan_top_k"`
	FuzzyMatchThreshold float64 `mapstructure:"fuzzy_match_threshold" yaml:"fuzzy_match_threshold"`
}

// IdleConfig tunes the idle curiosity loop.
type IdleConfig struct {
	Enabled        bool          `mapstructure:"enabled" yaml:"enabled"`
	Threshold      time.Duration `mapstructure:"threshold" yaml:"threshold"`
	Cooldown       time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
	Policy         string        `mapstructure:"policy" yaml:"policy"` // "ocr" or "vision"
	QuestionMemory time.Duration `mapstructure:"question_memory" yaml:"question_memory"`
}

// SequenceConfig tunes the sequence executor and the smart wait primitives.
type SequenceConfig struct {
	StepDelay        time.Duration `mapstructure:"step_delay" yaml:"step_delay"`
	UnchangedJaccard float64       `mapstructure:"unchanged_jaccard" yaml:"unchanged_jaccard"`
	WaitPollInterval time.Duration `mapstructure:"wait_poll_interval" yaml:"wait_poll_interval"`
	WaitTimeout      time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
}

// NewDefaultConfig returns a Config populated with defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults installs every default value on the given viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "glimpse")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Inference --
	v.SetDefault("inference.provider", "ollama")
	v.SetDefault("inference.base_url", "http://localhost:11434")
	v.SetDefault("inference.generate_model", "llama3.1")
	v.SetDefault("inference.embed_model", "nomic-embed-text")
	v.SetDefault("inference.request_timeout", "60s")
	v.SetDefault("inference.max_retry_window", "2m")

	// -- Memory --
	v.SetDefault("memory.backend", "qdrant")
	v.SetDefault("memory.collection", "glimpse_memory")
	v.SetDefault("memory.vector_size", 768)
	v.SetDefault("memory.qdrant_url", "http://localhost:6333")
	v.SetDefault("memory.postgres_dsn", "")
	v.SetDefault("memory.request_timeout", "15s")
	v.SetDefault("memory.embed_cache_ttl", "10m")

	// -- Agent --
	v.SetDefault("agent.execute_confidence", 0.88)
	v.SetDefault("agent.known_step_confidence", 0.85)
	v.SetDefault("agent.recall_top_k", 5)
	v.SetDefault("agent.context_scan_top_k", 25)
	v.SetDefault("agent.fuzzy_match_threshold", 0.82)

	// -- Idle curiosity --
	v.SetDefault("idle.enabled", true)
	v.SetDefault("idle.threshold", "45s")
	v.SetDefault("idle.cooldown", "5m")
	v.SetDefault("idle.policy", "ocr")
	v.SetDefault("idle.question_memory", "24h")

	// -- Sequences --
	v.SetDefault("sequence.step_delay", "2s")
	v.SetDefault("sequence.unchanged_jaccard", 0.95)
	v.SetDefault("sequence.wait_poll_interval", "500ms")
	v.SetDefault("sequence.wait_timeout", "30s")
}

// Load reads configuration from the given file (or the default search path
// when empty), layered over defaults and GLIMPSE_* environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".glimpse"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("GLIMPSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env cover it.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
