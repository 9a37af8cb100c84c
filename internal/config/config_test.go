package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "svyaz.toml")
	body := `
mongo_uri = "mongodb://localhost:27017"
jwt_secret = "file-secret"
port = "6001"
rate_limit_rpm = 25
`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("MONGODB_URI", "")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("PORT", "")
	t.Setenv("UPLOAD_DIR", "")
	t.Setenv("RATE_LIMIT_RPM", "")
	t.Setenv("DEVELOPMENT", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MongoURI != "mongodb://localhost:27017" {
		t.Fatalf("unexpected mongo uri: %s", cfg.MongoURI)
	}
	// env wins over file
	if cfg.JWTSecret != "env-secret" {
		t.Fatalf("expected env override for jwt secret, got %s", cfg.JWTSecret)
	}
	if cfg.Port != "6001" {
		t.Fatalf("unexpected port: %s", cfg.Port)
	}
	if cfg.RateLimitRPM != 25 {
		t.Fatalf("unexpected rate limit: %d", cfg.RateLimitRPM)
	}
	// default survives when neither file nor env set it
	if cfg.UploadDir != "uploads" {
		t.Fatalf("unexpected upload dir: %s", cfg.UploadDir)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error when mongo_uri is missing")
	}

	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error when jwt_secret is missing")
	}

	t.Setenv("JWT_SECRET", "s")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed with required fields set: %v", err)
	}
	if cfg.Port != "5001" {
		t.Fatalf("unexpected default port: %s", cfg.Port)
	}
}
