package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MINIO_ACCESS_KEY_ID", "test-access")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "test-secret")
	t.Setenv("AUTH_PRIVATE_KEY_PEM", "fake-private-pem")
	t.Setenv("AUTH_PUBLIC_KEY_PEM", "fake-public-pem")
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("PORTFOLIO_BASE_URL", "https://folio.example")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL", "30m")
	t.Setenv("UPLOADS_MAX_PER_DAY", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.API.Port != 9090 {
		t.Fatalf("API_PORT not applied, got %d", cfg.API.Port)
	}
	if cfg.API.PortfolioBase != "https://folio.example" {
		t.Fatalf("PORTFOLIO_BASE_URL not applied, got %q", cfg.API.PortfolioBase)
	}
	if cfg.Auth.AccessTokenTTL != 30*time.Minute {
		t.Fatalf("AUTH_ACCESS_TOKEN_TTL not applied, got %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Uploads.MaxPerDay != 7 {
		t.Fatalf("UPLOADS_MAX_PER_DAY not applied, got %d", cfg.Uploads.MaxPerDay)
	}

	// Untouched values keep their defaults.
	if cfg.Database.Port != 5432 {
		t.Fatalf("default database port lost, got %d", cfg.Database.Port)
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Fatalf("default redis addr lost, got %q", cfg.Redis.Addr())
	}
	if cfg.MinIO.Bucket != "openpersona" {
		t.Fatalf("default bucket lost, got %q", cfg.MinIO.Bucket)
	}
}

func TestLoad_MissingSecretsFail(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTH_PRIVATE_KEY_PEM", "")

	if _, err := Load(); err == nil {
		t.Fatal("missing private key must fail validation")
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 5433, Name: "folio", User: "app", Password: "pw", SSLMode: "disable",
	}
	want := "host=db port=5433 user=app password=pw dbname=folio sslmode=disable"
	if got := d.DSN(); got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}
}
