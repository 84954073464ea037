// Package config reads process configuration from the environment, with
// an optional .env file for development.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr       string
	WordlistPath   string // empty means the embedded list
	LogLevel       string
	AllowedOrigins []string
}

func Load() Config {
	// A missing .env is fine; real deployments set the environment.
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		WordlistPath: os.Getenv("WORDLIST_PATH"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
