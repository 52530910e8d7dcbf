package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("BACKEND_TIMEOUT", "")
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CSRF_KEY", "")

	cfg := Load()
	if cfg.BackendURL != "http://localhost:5000" {
		t.Errorf("BackendURL = %q", cfg.BackendURL)
	}
	if cfg.BackendTimeout != 0 {
		t.Errorf("BackendTimeout = %v, want no timeout", cfg.BackendTimeout)
	}
	if cfg.Port != "3000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.AuditEnabled() {
		t.Error("audit should be disabled without DATABASE_URL")
	}
	if len(cfg.CSRFKey) != 32 {
		t.Errorf("derived CSRF key has %d bytes, want 32", len(cfg.CSRFKey))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://escola.example/")
	t.Setenv("BACKEND_TIMEOUT", "15s")
	t.Setenv("CSRF_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("DATABASE_URL", "postgres://localhost/relatorio")

	cfg := Load()
	if cfg.BackendTimeout != 15*time.Second {
		t.Errorf("BackendTimeout = %v", cfg.BackendTimeout)
	}
	if string(cfg.CSRFKey) != "0123456789abcdef0123456789abcdef" {
		t.Errorf("CSRFKey = %q", cfg.CSRFKey)
	}
	if !cfg.AuditEnabled() {
		t.Error("audit should be enabled with DATABASE_URL")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "backend url not a url", mutate: func(c *Config) { c.BackendURL = "not a url" }, wantErr: true},
		{name: "port not numeric", mutate: func(c *Config) { c.Port = "http" }, wantErr: true},
		{name: "empty secret", mutate: func(c *Config) { c.SessionSecret = "" }, wantErr: true},
		{name: "short csrf key", mutate: func(c *Config) { c.CSRFKey = []byte("short") }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				BackendURL:    "http://localhost:5000",
				Port:          "3000",
				SessionSecret: "secret",
				CSRFKey:       make([]byte, 32),
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
