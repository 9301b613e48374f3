// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package config

import (
	"strings"
	"testing"
	"time"
)

var configEnvVars = []string{
	"APP_HOST", "PORT", "APP_ENV",
	"STORE_DRIVER", "DATABASE_URL",
	"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB",
	"JWT_SECRET", "RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW", "TRUST_PROXY",
	"VALKEY_HOST", "VALKEY_PORT", "VALKEY_PASSWORD",
	"UPLOAD_DIR", "MAX_UPLOAD_MB",
	"S3_ENDPOINT", "S3_REGION", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_BUCKET", "S3_PUBLIC_URL",
	"CORS_ORIGIN",
}

// clearEnv sets every variable Load reads to "", which envOrDefault treats
// the same as unset. t.Setenv restores the previous values afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
	}
}

// TestLoad_Defaults verifies that Load returns sensible development defaults
// when no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	check := func(field, got, want string) {
		t.Helper()
		if got != want {
			t.Errorf("%s = %q, want %q", field, got, want)
		}
	}

	check("Host", cfg.Host, "0.0.0.0")
	check("Port", cfg.Port, "5000")
	check("Env", cfg.Env, "development")
	check("StoreDriver", cfg.StoreDriver, DriverPostgres)
	check("DBUser", cfg.DBUser, "inkpost")
	check("JWTSecret", cfg.JWTSecret, devJWTSecret)
	check("UploadDir", cfg.UploadDir, "uploads")
	check("CORSOrigin", cfg.CORSOrigin, "*")

	if cfg.RateLimitMax != 100 {
		t.Errorf("RateLimitMax = %d, want 100", cfg.RateLimitMax)
	}
	if cfg.RateLimitWindow != 15*time.Minute {
		t.Errorf("RateLimitWindow = %v, want 15m", cfg.RateLimitWindow)
	}
	if cfg.MaxUploadBytes() != 10<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes(), 10<<20)
	}
	if cfg.TrustProxy {
		t.Error("TrustProxy should default to false")
	}
	if cfg.UseValkey() {
		t.Error("UseValkey should be false without VALKEY_HOST")
	}
	if cfg.UseS3() {
		t.Error("UseS3 should be false without S3 credentials")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "testing")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("RATE_LIMIT_MAX", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("TRUST_PROXY", "true")
	t.Setenv("VALKEY_HOST", "cache")
	t.Setenv("S3_ENDPOINT", "https://s3.example.com")
	t.Setenv("S3_ACCESS_KEY", "ak")
	t.Setenv("S3_SECRET_KEY", "sk")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:9090" {
		t.Errorf("Addr = %q, want %q", cfg.Addr(), "0.0.0.0:9090")
	}
	if cfg.StoreDriver != DriverMemory {
		t.Errorf("StoreDriver = %q, want %q", cfg.StoreDriver, DriverMemory)
	}
	if cfg.JWTSecret != "s3cret" {
		t.Errorf("JWTSecret = %q, want %q", cfg.JWTSecret, "s3cret")
	}
	if cfg.RateLimitMax != 5 || cfg.RateLimitWindow != 30*time.Second {
		t.Errorf("rate limit = %d/%v, want 5/30s", cfg.RateLimitMax, cfg.RateLimitWindow)
	}
	if !cfg.TrustProxy {
		t.Error("TrustProxy should be enabled")
	}
	if !cfg.UseValkey() || !cfg.UseS3() {
		t.Error("expected Valkey and S3 to be enabled")
	}
	if cfg.IsDev() {
		t.Error("IsDev should be false for testing env")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad rate limit", map[string]string{"RATE_LIMIT_MAX": "many"}, "RATE_LIMIT_MAX"},
		{"zero rate limit", map[string]string{"RATE_LIMIT_MAX": "0"}, "RATE_LIMIT_MAX"},
		{"bad trust proxy", map[string]string{"TRUST_PROXY": "maybe"}, "TRUST_PROXY"},
		{"bad window", map[string]string{"RATE_LIMIT_WINDOW": "soon"}, "RATE_LIMIT_WINDOW"},
		{"bad driver", map[string]string{"STORE_DRIVER": "mongo"}, "STORE_DRIVER"},
		{"production without secret", map[string]string{"APP_ENV": "production", "POSTGRES_PASSWORD": "pw"}, "JWT_SECRET"},
		{"production default password", map[string]string{"APP_ENV": "production", "JWT_SECRET": "x"}, "POSTGRES_PASSWORD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ProductionWithDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "prod-secret")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/blog")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.DSN() != "postgres://u:p@db:5432/blog" {
		t.Errorf("DSN = %q, want DATABASE_URL", cfg.DSN())
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "1", DBName: "n"}
	want := "postgres://u:p@h:1/n?sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
