// Package config loads application configuration from config.yaml and
// CELLAR_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Sources   SourcesConfig   `yaml:"sources" mapstructure:"sources"`
	Match     MatchConfig     `yaml:"match" mapstructure:"match"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Schedule  ScheduleConfig  `yaml:"schedule" mapstructure:"schedule"`
	Critic    CriticConfig    `yaml:"critic" mapstructure:"critic"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// SourcesConfig configures the outbound scraping session.
type SourcesConfig struct {
	VivinoBaseURL       string  `yaml:"vivino_base_url" mapstructure:"vivino_base_url"`
	WineSearcherBaseURL string  `yaml:"winesearcher_base_url" mapstructure:"winesearcher_base_url"`
	UserAgent           string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs         int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond   float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxRetries          int     `yaml:"max_retries" mapstructure:"max_retries"`
	BreakerThreshold    int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs    int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// MatchConfig holds the confidence cut-offs.
type MatchConfig struct {
	ReviewThreshold     float64 `yaml:"review_threshold" mapstructure:"review_threshold"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
}

// ReconcileConfig configures overwrite protection and staleness windows.
type ReconcileConfig struct {
	PreserveManual     bool `yaml:"preserve_manual" mapstructure:"preserve_manual"`
	PreserveConfirmed  bool `yaml:"preserve_confirmed" mapstructure:"preserve_confirmed"`
	ValuationStaleDays int  `yaml:"valuation_stale_days" mapstructure:"valuation_stale_days"`
	CriticStaleDays    int  `yaml:"critic_stale_days" mapstructure:"critic_stale_days"`
}

// BatchConfig configures the batch runner.
type BatchConfig struct {
	DelaySecs float64 `yaml:"delay_secs" mapstructure:"delay_secs"`
}

// ScheduleConfig configures the weekly refresh jobs.
type ScheduleConfig struct {
	Enabled          bool   `yaml:"enabled" mapstructure:"enabled"`
	ValuationsSpec   string `yaml:"valuations_spec" mapstructure:"valuations_spec"`
	CriticScoresSpec string `yaml:"critic_scores_spec" mapstructure:"critic_scores_spec"`
}

// CriticConfig configures the critic taxonomy.
type CriticConfig struct {
	AliasesFile string `yaml:"aliases_file" mapstructure:"aliases_file"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CELLAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("sources.vivino_base_url", "https://www.vivino.com")
	v.SetDefault("sources.winesearcher_base_url", "https://www.wine-searcher.com")
	v.SetDefault("sources.user_agent", "")
	v.SetDefault("sources.timeout_secs", 30)
	v.SetDefault("sources.requests_per_second", 1.0)
	v.SetDefault("sources.max_retries", 3)
	v.SetDefault("sources.breaker_threshold", 5)
	v.SetDefault("sources.breaker_reset_secs", 60)
	v.SetDefault("match.review_threshold", 0.60)
	v.SetDefault("match.confidence_threshold", 0.85)
	v.SetDefault("reconcile.preserve_manual", false)
	v.SetDefault("reconcile.preserve_confirmed", false)
	v.SetDefault("reconcile.valuation_stale_days", 7)
	v.SetDefault("reconcile.critic_stale_days", 30)
	v.SetDefault("batch.delay_secs", 5)
	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.valuations_spec", "@weekly")
	v.SetDefault("schedule.critic_scores_spec", "@weekly")
	v.SetDefault("critic.aliases_file", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration required by the given command mode:
// "serve", "batch", "fetch", "migrate" or "export".
func (c *Config) Validate(mode string) error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	switch mode {
	case "serve", "batch", "fetch", "migrate", "export":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		add("store.driver must be postgres or sqlite, got %q", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" {
		add("store.database_url is required")
	}
	if c.Store.MaxConns < 0 || c.Store.MinConns < 0 || (c.Store.MaxConns > 0 && c.Store.MinConns > c.Store.MaxConns) {
		add("store.min_conns must be between 0 and store.max_conns")
	}

	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		add("server.port must be > 0 and <= 65535")
	}

	if mode != "migrate" && mode != "export" {
		if c.Sources.TimeoutSecs <= 0 {
			add("sources.timeout_secs must be > 0")
		}
		if c.Sources.RequestsPerSecond < 0 {
			add("sources.requests_per_second must be >= 0")
		}
		if c.Sources.MaxRetries < 0 || c.Sources.MaxRetries > 10 {
			add("sources.max_retries must be between 0 and 10")
		}
		if c.Batch.DelaySecs < 0 {
			add("batch.delay_secs must be >= 0")
		}
	}

	m := c.Match
	if m.ReviewThreshold < 0 || m.ReviewThreshold > 1 || m.ConfidenceThreshold < 0 || m.ConfidenceThreshold > 1 {
		add("match thresholds must be between 0 and 1")
	} else if m.ReviewThreshold > m.ConfidenceThreshold {
		add("match.review_threshold must not exceed match.confidence_threshold")
	}

	if c.Reconcile.ValuationStaleDays <= 0 {
		add("reconcile.valuation_stale_days must be > 0")
	}
	if c.Reconcile.CriticStaleDays <= 0 {
		add("reconcile.critic_stale_days must be > 0")
	}

	if mode == "serve" && c.Schedule.Enabled {
		if c.Schedule.ValuationsSpec == "" || c.Schedule.CriticScoresSpec == "" {
			add("schedule specs are required when schedule.enabled is true")
		}
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
