package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jwalitptl/discharge-api/internal/repository/sqlstore"
	"github.com/jwalitptl/discharge-api/internal/service/summary"
	"github.com/jwalitptl/discharge-api/pkg/storage"
	"github.com/jwalitptl/discharge-api/pkg/textgen"
)

const EnvPrefix = "DISCHARGE"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Data       DataConfig       `mapstructure:"data"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Generation GenerationConfig `mapstructure:"generation"`
	Drafts     DraftsConfig     `mapstructure:"drafts"`
	Export     ExportConfig     `mapstructure:"export"`
	Events     EventsConfig     `mapstructure:"events"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

type DataConfig struct {
	PatientsFile string `mapstructure:"patients_file"`
}

type LedgerConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type GenerationConfig struct {
	Backend              string        `mapstructure:"backend"`
	Endpoint             string        `mapstructure:"endpoint"`
	Model                string        `mapstructure:"model"`
	APIKey               string        `mapstructure:"api_key"`
	Timeout              time.Duration `mapstructure:"timeout"`
	MaxRetries           uint64        `mapstructure:"max_retries"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `mapstructure:"retry_max_interval"`
	BreakerFailures      uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout       time.Duration `mapstructure:"breaker_timeout"`
	BriefLength          int           `mapstructure:"brief_length"`
	DetailedLength       int           `mapstructure:"detailed_length"`
}

type DraftsConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type ExportConfig struct {
	Backend  string `mapstructure:"backend"`
	Dir      string `mapstructure:"dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

type EventsConfig struct {
	RedisURL string `mapstructure:"redis_url"`
	Channel  string `mapstructure:"channel"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	AllowedMethods []string      `mapstructure:"allowed_methods"`
	AllowedHeaders []string      `mapstructure:"allowed_headers"`
	MaxAge         time.Duration `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("data.patients_file", "data/patients.csv")

	v.SetDefault("ledger.driver", sqlstore.DriverSQLite)
	v.SetDefault("ledger.dsn", "summaries.db")
	v.SetDefault("ledger.max_open_conns", 10)
	v.SetDefault("ledger.max_idle_conns", 5)
	v.SetDefault("ledger.conn_max_lifetime", time.Hour)

	v.SetDefault("generation.backend", textgen.BackendHuggingFace)
	v.SetDefault("generation.endpoint", "")
	v.SetDefault("generation.model", textgen.DefaultHuggingFaceModel)
	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.timeout", 30*time.Second)
	v.SetDefault("generation.max_retries", 2)
	v.SetDefault("generation.retry_initial_interval", 500*time.Millisecond)
	v.SetDefault("generation.retry_max_interval", 5*time.Second)
	v.SetDefault("generation.breaker_failures", 5)
	v.SetDefault("generation.breaker_timeout", 30*time.Second)
	v.SetDefault("generation.brief_length", summary.DefaultBriefLength)
	v.SetDefault("generation.detailed_length", summary.DefaultDetailedLength)

	v.SetDefault("drafts.ttl", summary.DefaultDraftTTL)

	v.SetDefault("export.backend", storage.BackendFS)
	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.bucket", "")
	v.SetDefault("export.prefix", "")
	v.SetDefault("export.region", "")
	v.SetDefault("export.endpoint", "")

	v.SetDefault("events.redis_url", "")
	v.SetDefault("events.channel", summary.DefaultEventChannel)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rps", 10)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"})
	v.SetDefault("cors.max_age", 12*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "discharge")
}

// LoadConfig reads defaults, then the config file, then DISCHARGE_* env vars.
// An empty path searches for config.yml in . and ./config and tolerates its
// absence. A .env file in the working directory is loaded first if present.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Data.PatientsFile == "" {
		errs = append(errs, errors.New("data.patients_file is required"))
	}

	switch c.Ledger.Driver {
	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown ledger.driver %q", c.Ledger.Driver))
	}
	if c.Ledger.DSN == "" {
		errs = append(errs, errors.New("ledger.dsn is required"))
	}

	switch c.Generation.Backend {
	case textgen.BackendHuggingFace, textgen.BackendEcho:
	case textgen.BackendGemini:
		if c.Generation.APIKey == "" {
			errs = append(errs, errors.New("generation.api_key is required for the gemini backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown generation.backend %q", c.Generation.Backend))
	}
	if c.Generation.Timeout <= 0 {
		errs = append(errs, errors.New("generation.timeout must be positive"))
	}
	if err := c.LengthHints().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("generation: %w", err))
	}

	switch c.Export.Backend {
	case storage.BackendFS:
		if c.Export.Dir == "" {
			errs = append(errs, errors.New("export.dir is required for the fs backend"))
		}
	case storage.BackendS3:
		if c.Export.Bucket == "" {
			errs = append(errs, errors.New("export.bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown export.backend %q", c.Export.Backend))
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("rate_limit.rps and rate_limit.burst must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) LengthHints() summary.LengthHints {
	return summary.LengthHints{Brief: c.Generation.BriefLength, Detailed: c.Generation.DetailedLength}
}

func (c *Config) ServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
