package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for the API server.
type Config struct {
	Port      string
	Env       string
	Debug     bool
	JWTSecret string
	DBPath    string

	// Optional moderator account seeded at startup so report review is
	// reachable without manual database edits.
	ModeratorUsername string
	ModeratorPassword string
}

// Load reads configuration from the environment, with a .env file as a
// development convenience.
func Load() *Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		Debug:             os.Getenv("DEBUG") == "true",
		JWTSecret:         getEnv("JWT_SECRET", "cointrade-secret-key"),
		DBPath:            getEnv("DB_PATH", "cointrade.db"),
		ModeratorUsername: os.Getenv("MODERATOR_USERNAME"),
		ModeratorPassword: os.Getenv("MODERATOR_PASSWORD"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
