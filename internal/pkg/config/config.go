package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Zones     ZonesConfig     `mapstructure:"zones"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	TaskQueue string `mapstructure:"task_queue"`
	Cron      string `mapstructure:"cron"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PublisherConfig configures the boundary broadcaster.
type PublisherConfig struct {
	Channel        string  `mapstructure:"channel"`
	Rate           float64 `mapstructure:"rate"` // Hz
	FrameID        string  `mapstructure:"frame_id"`
	TickMS         int     `mapstructure:"tick_ms"`
	Encoding       string  `mapstructure:"encoding"` // json | proto
	JetStream      bool    `mapstructure:"jetstream"`
	CommandSubject string  `mapstructure:"command_subject"`
}

// ZonesConfig holds zone presentation and seeding options.
type ZonesConfig struct {
	Height   float64 `mapstructure:"height"`
	Color    string  `mapstructure:"color"`
	SeedFile string  `mapstructure:"seed_file"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "navfence")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "navfence")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.task_queue", "navfence-checkpoint")
	v.SetDefault("temporal.cron", "*/5 * * * *")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("publisher.channel", "nav/safety_bounds")
	v.SetDefault("publisher.rate", 1.0)
	v.SetDefault("publisher.frame_id", "map")
	v.SetDefault("publisher.tick_ms", 50)
	v.SetDefault("publisher.encoding", "json")
	v.SetDefault("publisher.jetstream", false)
	v.SetDefault("publisher.command_subject", "nav/cmd/zones")
	v.SetDefault("zones.height", 2.0)
	v.SetDefault("zones.color", "#ff000080")
	v.SetDefault("zones.seed_file", "")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: NAVFENCE_PUBLISHER_RATE → publisher.rate
	v.SetEnvPrefix("NAVFENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Publisher.Channel == "" {
		errs = append(errs, "publisher.channel is required")
	}
	if !(c.Publisher.Rate > 0) || math.IsInf(c.Publisher.Rate, 1) {
		errs = append(errs, fmt.Sprintf("publisher.rate must be a positive number of Hz, got %v", c.Publisher.Rate))
	}
	if c.Publisher.FrameID == "" {
		errs = append(errs, "publisher.frame_id is required")
	}
	if c.Publisher.TickMS <= 0 {
		errs = append(errs, "publisher.tick_ms must be positive")
	} else if maxRate := 1000 / float64(c.Publisher.TickMS); c.Publisher.Rate > maxRate {
		errs = append(errs, fmt.Sprintf("publisher.rate %v Hz exceeds %v Hz, the most a %d ms tick can deliver",
			c.Publisher.Rate, maxRate, c.Publisher.TickMS))
	}
	switch c.Publisher.Encoding {
	case "json", "proto":
	default:
		errs = append(errs, fmt.Sprintf("publisher.encoding must be json or proto, got %q", c.Publisher.Encoding))
	}
	if c.Zones.Height < 0 {
		errs = append(errs, "zones.height must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
