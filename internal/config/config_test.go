package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, "gemma3:latest", cfg.LLMModel)
	require.Equal(t, "turbo", cfg.TranscriptionModel)
	require.Equal(t, "ws://localhost:9090/v1/listen", cfg.TranscribeURL)
	require.Equal(t, "./www", cfg.StaticDir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", ":9999")
	t.Setenv("LLM_MODEL", "llama3.2:1b")
	t.Setenv("TRANSCRIPTION_MODEL", "small")
	t.Setenv("TRANSCRIBE_URL", "ws://stt:7000/v1/listen")
	t.Setenv("TRANSCRIBE_API_KEY", "secret")
	t.Setenv("OLLAMA_HOST", "http://ollama:11434")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.HTTPAddress)
	require.Equal(t, "llama3.2:1b", cfg.LLMModel)
	require.Equal(t, "small", cfg.TranscriptionModel)
	require.Equal(t, "ws://stt:7000/v1/listen", cfg.TranscribeURL)
	require.Equal(t, "secret", cfg.TranscribeAPIKey)
	require.Equal(t, "http://ollama:11434", cfg.OllamaHost)
}
