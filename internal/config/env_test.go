package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"RATE_LIMIT_WINDOW_MS", "DISPATCH_WORKERS", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()
	if cfg.RateLimitWindow != time.Minute {
		t.Errorf("RateLimitWindow = %s; want 1m", cfg.RateLimitWindow)
	}
	if cfg.DispatchWorkers != 4 {
		t.Errorf("DispatchWorkers = %d; want 4", cfg.DispatchWorkers)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("CORSAllowedOrigins = %v; want [*]", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "5")
	t.Setenv("DISPATCH_WORKERS", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg := LoadConfig()
	if cfg.Port != "9090" {
		t.Errorf("Port = %q; want 9090", cfg.Port)
	}
	if cfg.RateLimitMax != 5 {
		t.Errorf("RateLimitMax = %d; want 5", cfg.RateLimitMax)
	}
	if cfg.DispatchWorkers != 4 {
		t.Errorf("DispatchWorkers = %d; want default 4 for invalid value", cfg.DispatchWorkers)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StorageDriver:   StorageMemory,
			AIProvider:      ProviderGemini,
			JWTSecret:       "s3cret",
			RateLimitMax:    10,
			RateLimitWindow: time.Second,
			DispatchWorkers: 1,
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Validate() = %v; want nil", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"postgres without url", func(c *Config) { c.StorageDriver = StoragePostgres }},
		{"unknown storage", func(c *Config) { c.StorageDriver = "mysql" }},
		{"unknown provider", func(c *Config) { c.AIProvider = "llama" }},
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }},
		{"zero rate limit", func(c *Config) { c.RateLimitMax = 0 }},
		{"zero workers", func(c *Config) { c.DispatchWorkers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil; want error")
			}
		})
	}
}

func TestConfig_ArchiveEnabled(t *testing.T) {
	cfg := &Config{BucketName: "transcripts"}
	if cfg.ArchiveEnabled() {
		t.Error("ArchiveEnabled = true without credentials")
	}
	cfg.AwsAccessKey, cfg.AwsSecretKey = "ak", "sk"
	if !cfg.ArchiveEnabled() {
		t.Error("ArchiveEnabled = false with bucket and credentials")
	}
}
