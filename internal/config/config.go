package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	_ "github.com/joho/godotenv/autoload"
)

type (
	// Config holds every process-level setting; values come from the
	// environment (optionally seeded from a .env file).
	Config struct {
		Port           int      `env:"PORT" envDefault:"8080"`
		MongoURI       string   `env:"MONGO_URI"`
		JWTSecret      string   `env:"JWT_SECRET"`
		AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

		Storage StorageConfig `envPrefix:"STORAGE_"`
	}

	// StorageConfig points at the S3-compatible object store that holds
	// uploaded collection images.
	StorageConfig struct {
		Endpoint  string `env:"ENDPOINT" envDefault:"localhost:9000"`
		AccessKey string `env:"ACCESS_KEY"`
		SecretKey string `env:"SECRET_KEY"`
		Bucket    string `env:"BUCKET" envDefault:"shelftrack"`
		UseSSL    bool   `env:"USE_SSL" envDefault:"true"`
		Folder    string `env:"FOLDER" envDefault:"collections"`
	}
)

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}
	return cfg, nil
}
