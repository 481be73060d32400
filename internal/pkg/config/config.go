package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	APIBaseURL  string `env:"API_BASE_URL,  default=http://localhost:8000"`
	SessionFile string `env:"SESSION_FILE"`
	Env         string `env:"ENV,           default=development"`
	LogLevel    string `env:"LOG_LEVEL,     default=info"`
}

// Load reads configuration from environment variables using go-envconfig.
// When SESSION_FILE is unset the session record lands in the user's config
// directory, the fixed location every process on the machine shares.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}

	if cfg.SessionFile == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		cfg.SessionFile = filepath.Join(base, "unimex-eventos", "session.json")
	}
	return &cfg
}
