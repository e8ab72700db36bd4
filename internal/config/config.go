package config

import (
	"fmt"
	"log"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string `env:"HTTP_ADDRESS" envDefault:":8080"`

	// Inference backend.
	LLMModel   string `env:"LLM_MODEL" envDefault:"gemma3:latest"`
	OllamaHost string `env:"OLLAMA_HOST"`

	// Transcription gateway.
	TranscriptionModel string `env:"TRANSCRIPTION_MODEL" envDefault:"turbo"`
	TranscribeURL      string `env:"TRANSCRIBE_URL" envDefault:"ws://localhost:9090/v1/listen"`
	TranscribeAPIKey   string `env:"TRANSCRIBE_API_KEY"`

	StaticDir string `env:"STATIC_DIR" envDefault:"./www"`
}

// Load reads .env (best effort) and the environment, applying defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
