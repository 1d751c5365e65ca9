package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.HealthPort != 8081 {
		t.Errorf("Expected default health port 8081, got %d", cfg.Server.HealthPort)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("Expected default max open conns 25, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.Logging.Level)
	}
	if cfg.Audit.RetentionDays != 90 {
		t.Errorf("Expected default retention 90 days, got %d", cfg.Audit.RetentionDays)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FUELX_SERVER_PORT", "9090")
	t.Setenv("FUELX_LOG_LEVEL", "debug")
	t.Setenv("FUELX_METRICS_ENABLED", "false")
	t.Setenv("FUELX_SERVER_READ_TIMEOUT", "5s")
	t.Setenv("FUELX_AUDIT_RETENTION_DAYS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected debug level, got %s", cfg.Logging.Level)
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics disabled")
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Expected 5s read timeout, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Audit.RetentionDays != 30 {
		t.Errorf("Expected 30 day retention, got %d", cfg.Audit.RetentionDays)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid defaults", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "port collision", mutate: func(c *Config) { c.Server.HealthPort = c.Server.Port }, wantErr: true},
		{name: "empty database url", mutate: func(c *Config) { c.Database.URL = "" }, wantErr: true},
		{name: "idle exceeds open", mutate: func(c *Config) { c.Database.MaxIdleConns = 100 }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: true},
		{name: "zero retention", mutate: func(c *Config) { c.Audit.RetentionDays = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}
