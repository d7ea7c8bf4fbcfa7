package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Log      LogConfig
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	// URL selects the store: postgres://, mysql:// or a SQLite path/file: URI.
	URL string `env:"DATABASE_URL, default=file:app.db"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL, default=info"`
	Pretty bool   `env:"LOG_PRETTY, default=false"`
}

// Load reads the given dotenv files (default ".env") and then the process
// environment. Variables already set in the environment take precedence.
// Missing dotenv files are not an error.
func Load(ctx context.Context, files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load dotenv: %w", err)
	}
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	return &cfg, nil
}

// String returns a string representation of the config (credentials are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, Log: %s}", redact(c.Database.URL), c.Log.Level)
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "*** (masked) ***"
	}
	return u.Redacted()
}
