package config_test

import (
	"strings"
	"testing"

	"github.com/samirrijal/navfence/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("navfence-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Publisher.Channel != "nav/safety_bounds" {
		t.Errorf("expected default channel nav/safety_bounds, got %s", cfg.Publisher.Channel)
	}
	if cfg.Publisher.Rate != 1.0 {
		t.Errorf("expected default rate 1.0, got %v", cfg.Publisher.Rate)
	}
	if cfg.Telemetry.ServiceName != "navfence-test" {
		t.Errorf("expected service name navfence-test, got %s", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("NAVFENCE_PUBLISHER_RATE", "2.5")
	t.Setenv("NAVFENCE_PUBLISHER_CHANNEL", "nav/bounds_test")

	cfg, err := config.Load("navfence-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Publisher.Rate != 2.5 {
		t.Errorf("expected rate 2.5, got %v", cfg.Publisher.Rate)
	}
	if cfg.Publisher.Channel != "nav/bounds_test" {
		t.Errorf("expected channel override, got %s", cfg.Publisher.Channel)
	}
}

func TestLoad_NonPositiveRateIsFatal(t *testing.T) {
	for _, rate := range []string{"0", "-1"} {
		t.Run(rate, func(t *testing.T) {
			t.Setenv("NAVFENCE_PUBLISHER_RATE", rate)
			_, err := config.Load("navfence-test")
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), "publisher.rate") {
				t.Errorf("error should name publisher.rate: %v", err)
			}
		})
	}
}

func validConfig() config.Config {
	return config.Config{
		Server:   config.ServerConfig{Port: 8080, ReadTimeout: 10, WriteTimeout: 10},
		Database: config.DatabaseConfig{Enabled: true, Host: "localhost", Port: 5432, User: "navfence", DBName: "navfence"},
		NATS:     config.NATSConfig{URL: "nats://localhost:4222"},
		Valkey:   config.ValkeyConfig{Addr: "localhost:6379"},
		Publisher: config.PublisherConfig{
			Channel: "nav/safety_bounds", Rate: 1, FrameID: "map", TickMS: 50, Encoding: "json",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{"valid", func(c *config.Config) {}, ""},
		{"bad port", func(c *config.Config) { c.Server.Port = 0 }, "server.port"},
		{"no channel", func(c *config.Config) { c.Publisher.Channel = "" }, "publisher.channel"},
		{"zero rate", func(c *config.Config) { c.Publisher.Rate = 0 }, "publisher.rate"},
		{"rate at tick limit", func(c *config.Config) { c.Publisher.Rate = 20 }, ""},
		{"rate above tick limit", func(c *config.Config) { c.Publisher.Rate = 100 }, "publisher.rate"},
		{"bad encoding", func(c *config.Config) { c.Publisher.Encoding = "xml" }, "publisher.encoding"},
		{"db disabled skips db checks", func(c *config.Config) {
			c.Database = config.DatabaseConfig{Enabled: false}
		}, ""},
		{"db enabled needs host", func(c *config.Config) { c.Database.Host = "" }, "database.host"},
		{"negative height", func(c *config.Config) { c.Zones.Height = -1 }, "zones.height"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	d := config.DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 5433, DBName: "db", SSLMode: "disable"}
	want := "postgres://u:p@h:5433/db?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
