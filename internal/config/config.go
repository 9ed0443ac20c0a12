package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config is read once at startup from the environment, with .env as a
// development convenience.
type Config struct {
	MongoURI      string
	MongoDatabase string

	RabbitURL      string
	RabbitExchange string

	ListenAddr string

	// Sessions in_progress longer than this are swept to incomplete.
	StaleAfter time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}

	cfg := &Config{
		MongoURI:       os.Getenv("MONGO_URI"),
		MongoDatabase:  getEnv("MONGO_DATABASE", "askthesage"),
		RabbitURL:      os.Getenv("RABBITMQ_URI"),
		RabbitExchange: os.Getenv("RABBITMQ_EXCHANGE"),
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		StaleAfter:     24 * time.Hour,
	}

	if raw := os.Getenv("STALE_SESSION_AFTER"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("Invalid STALE_SESSION_AFTER %q: %v", raw, err)
		}
		cfg.StaleAfter = d
	}

	if cfg.MongoURI == "" {
		log.Fatal("MONGO_URI is required")
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
