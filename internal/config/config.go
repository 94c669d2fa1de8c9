package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Rules      RulesConfig      `yaml:"rules" mapstructure:"rules"`
	Responder  ResponderConfig  `yaml:"responder" mapstructure:"responder"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Auth       AuthConfig       `yaml:"auth" mapstructure:"auth"`
	Kafka      KafkaConfig      `yaml:"kafka" mapstructure:"kafka"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Followup   FollowupConfig   `yaml:"followup" mapstructure:"followup"`
	Temporal   TemporalConfig   `yaml:"temporal" mapstructure:"temporal"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Alert      AlertConfig      `yaml:"alert" mapstructure:"alert"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// RulesConfig points at the optional YAML rules file that overrides the
// built-in intent patterns and scoring buckets.
type RulesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ResponderConfig configures autoresponse composition and delivery.
type ResponderConfig struct {
	From          string  `yaml:"from" mapstructure:"from"`
	ReplyTo       string  `yaml:"reply_to" mapstructure:"reply_to"`
	CalendarLink  string  `yaml:"calendar_link" mapstructure:"calendar_link"`
	Signature     string  `yaml:"signature" mapstructure:"signature"`
	DryRun        bool    `yaml:"dry_run" mapstructure:"dry_run"`
	Endpoint      string  `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey        string  `yaml:"api_key" mapstructure:"api_key"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	MaxAttempts   int     `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// BatchConfig configures batch qualification.
type BatchConfig struct {
	MaxConcurrentLeads int `yaml:"max_concurrent_leads" mapstructure:"max_concurrent_leads"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// AuthConfig configures bearer token auth on the HTTP API. An empty secret
// disables auth.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	Issuer    string `yaml:"issuer" mapstructure:"issuer"`
}

// KafkaConfig configures reply event publishing. No brokers disables it.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// RedisConfig configures the processed-reply guard. An empty addr falls back
// to the store.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// FollowupConfig selects and tunes the follow-up scheduler.
type FollowupConfig struct {
	Backend          string `yaml:"backend" mapstructure:"backend"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	BatchSize        int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// TemporalConfig holds Temporal connection settings for the temporal backend.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port" mapstructure:"host_port"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	TaskQueue string `yaml:"task_queue" mapstructure:"task_queue"`
}

// NotionConfig holds Notion API credentials and the lead database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// AlertConfig configures new-lead alerts. An empty WebhookURL disables them.
type AlertConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, the config file, and the environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "outreach.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent_leads", 8)
	v.SetDefault("responder.from", "outreach@example.com")
	v.SetDefault("responder.calendar_link", "https://calendly.com/outreach/strategy-call")
	v.SetDefault("responder.signature", "The Outreach Team")
	v.SetDefault("responder.dry_run", true)
	v.SetDefault("responder.rate_per_second", 2.0)
	v.SetDefault("responder.max_attempts", 3)
	v.SetDefault("kafka.topic", "outreach.replies")
	v.SetDefault("redis.ttl_hours", 24*30)
	v.SetDefault("followup.backend", "store")
	v.SetDefault("followup.poll_interval_secs", 60)
	v.SetDefault("followup.batch_size", 100)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "outreach-followups")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")

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

// Validate checks the settings a command mode depends on. Modes: "local"
// (classify/qualify without side effects), "process", "serve", "followup".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "local":
	case "process", "serve", "followup":
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "serve" && c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}
	if mode == "followup" {
		switch c.Followup.Backend {
		case "store", "temporal":
		default:
			errs = append(errs, "followup.backend must be store or temporal")
		}
		if c.Followup.PollIntervalSecs <= 0 {
			errs = append(errs, "followup.poll_interval_secs must be > 0")
		}
	}

	if c.Batch.MaxConcurrentLeads < 1 || c.Batch.MaxConcurrentLeads > 64 {
		errs = append(errs, "batch.max_concurrent_leads must be between 1 and 64")
	}
	if c.Responder.RatePerSecond < 0 {
		errs = append(errs, "responder.rate_per_second must be >= 0")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, "kafka.topic is required when kafka.brokers is set")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
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
