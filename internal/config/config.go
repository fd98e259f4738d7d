package config

import (
	"os"
	"strconv"

	"attest/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	LLM      LLMConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// LLMConfig holds settings for the LLM boundary. Endpoint and model are a
// fatal startup condition when absent: no evaluation can run without them.
type LLMConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int
	Temperature  float64
	TimeoutMS    int
	SystemPrompt string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

const defaultSystemPrompt = "You are a compliance assessment analyst. " +
	"Evaluate the supplied vendor evidence against each question and respond with valid JSON only: " +
	`an array with one object per question, each object containing "Answer" (Yes/No/N/A), ` +
	`"Answer_Quality" (Adequate/Inadequate/Needs_Review), "Answer_Source", "Summary" and "Reference".`

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	llmConfig, err := loadLLMConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load LLM configuration")
	}
	config.LLM = *llmConfig

	config.Server = *loadServerConfig()

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}
	return &DatabaseConfig{URL: url}, nil
}

func loadLLMConfig() (*LLMConfig, error) {
	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.ConfigInvalid("LLM_API_KEY is required")
	}

	model := os.Getenv("LLM_MODEL")
	if model == "" {
		return nil, errors.ConfigInvalid("LLM_MODEL is required")
	}

	return &LLMConfig{
		APIKey:       apiKey,
		BaseURL:      getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		Model:        model,
		MaxTokens:    getEnvIntOrDefault("MAX_TOKENS", 8192),
		Temperature:  getEnvFloatOrDefault("TEMPERATURE", 0),
		TimeoutMS:    getEnvIntOrDefault("LLM_TIMEOUT_MS", 180000),
		SystemPrompt: getEnvOrDefault("SYSTEM_PROMPT", defaultSystemPrompt),
	}, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port: getEnvOrDefault("PORT", "8080"),
	}
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" {
		return errors.ConfigInvalid("database URL is required")
	}
	if config.LLM.APIKey == "" {
		return errors.ConfigInvalid("LLM API key is required")
	}
	if config.LLM.BaseURL == "" || config.LLM.Model == "" {
		return errors.ConfigInvalid("LLM endpoint and model are required")
	}
	if config.LLM.MaxTokens <= 0 {
		return errors.ConfigInvalid("MAX_TOKENS must be positive")
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloatOrDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
