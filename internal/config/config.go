// Package config reads server configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string // listen address
	PromptsPath string // topic/word CSV
	LogLevel    string // debug | info | warn | error

	// Defaults for the process-wide game settings until a client updates
	// them.
	DefaultImposters    int
	DefaultVoteInterval int // seconds
}

func Load() Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	return Config{
		Addr:                getenv("SPYFALL_ADDR", ":8080"),
		PromptsPath:         getenv("SPYFALL_PROMPTS", "prompts.csv"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		DefaultImposters:    getenvInt("DEFAULT_IMPOSTERS", 1),
		DefaultVoteInterval: getenvInt("DEFAULT_VOTE_INTERVAL", 300),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
