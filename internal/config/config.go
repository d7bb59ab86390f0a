package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	HTTPPort    string
	LogLevel    string
	CorpusPath  string // empty means the corpus compiled into the binary

	AIProvider string
	AIAPIKey   string
	AIModel    string

	ChatRatePerMinute  int
	CORSAllowedOrigins []string
}

// LoadConfig reads .env (if present) and then the environment. A missing .env
// is not an error.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	cfg := Config{
		DatabaseURL:        getEnv("DATABASE_URL", "bible_companion.db"),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		LogLevel:           strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
		CorpusPath:         getEnv("CORPUS_PATH", ""),
		AIProvider:         getEnv("AI_PROVIDER", ""),
		AIAPIKey:           getEnv("AI_API_KEY", ""),
		AIModel:            getEnv("AI_MODEL", ""),
		ChatRatePerMinute:  getEnvAsInt("CHAT_RATE_PER_MINUTE", 20),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"https://*", "http://*"}),
	}

	// A bundled Groq key selects Groq unless a provider was chosen explicitly.
	if groqKey := getEnv("GROQ_API_KEY", ""); groqKey != "" {
		if cfg.AIProvider == "" {
			cfg.AIProvider = "groq"
		}
		if cfg.AIProvider == "groq" && cfg.AIAPIKey == "" {
			cfg.AIAPIKey = groqKey
		}
	}
	if cfg.AIProvider == "" {
		cfg.AIProvider = "openai"
	}
	return cfg
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
