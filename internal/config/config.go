// Package config loads server configuration from an optional TOML file,
// then applies environment variable overrides on top.
package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds everything the server needs at startup.
type Config struct {
	MongoURI     string `toml:"mongo_uri"`
	JWTSecret    string `toml:"jwt_secret"`
	Port         string `toml:"port"`
	UploadDir    string `toml:"upload_dir"`
	RateLimitRPM int    `toml:"rate_limit_rpm"`
	Development  bool   `toml:"development"`
}

// Default returns a config populated with defaults for optional fields.
// MongoURI and JWTSecret have no defaults and must come from the file or env.
func Default() *Config {
	return &Config{
		Port:         "5001",
		UploadDir:    "uploads",
		RateLimitRPM: 10,
	}
}

// Load reads the TOML file at path (skipped when path is empty or the file
// does not exist) and then overrides fields from the environment:
// MONGODB_URI, JWT_SECRET, PORT, UPLOAD_DIR, RATE_LIMIT_RPM, DEVELOPMENT.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, err
			}
		}
	}

	if v := os.Getenv("MONGODB_URI"); v != "" {
		cfg.MongoURI = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("RATE_LIMIT_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitRPM = n
		}
	}
	if v := os.Getenv("DEVELOPMENT"); v != "" {
		cfg.Development = v == "true" || v == "1"
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.MongoURI == "" {
		return errors.New("config: mongo_uri (MONGODB_URI) must be set")
	}
	if c.JWTSecret == "" {
		return errors.New("config: jwt_secret (JWT_SECRET) must be set")
	}
	return nil
}
