package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	AI       AIConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
}

// AIConfig holds configuration for the AI orchestration core.
//
// The heuristic tuning values (date window, candidate caps, overlap
// thresholds) have no derivation beyond observed recall/precision; they are
// surfaced here so deployments can override them without a rebuild.
type AIConfig struct {
	APIKey      string
	BaseURL     string
	Models      []string // preference-ordered model cascade
	Temperature float32
	Timeout     time.Duration // per-attempt transport timeout

	Cooldown     time.Duration // rate-limited model sits out this long
	RetryBackoff time.Duration // first same-model retry delay

	CachePath string        // sqlite file for the AI response cache
	CacheTTL  time.Duration // entries never served past this age

	DateWindow    time.Duration // candidate date-proximity buffer
	MatchCap      int           // max candidates sent to the model per scan
	ShortMatchCap int           // tighter cap for image-bearing scans
}

// DefaultModels is the preference-ordered model cascade: best quality first,
// cheaper and older generations as quota fallbacks.
var DefaultModels = []string{
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-1.5-flash",
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		AI: AIConfig{
			APIKey:        getEnv("GEMINI_API_KEY", ""),
			BaseURL:       getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Models:        getEnvAsList("GEMINI_MODELS", DefaultModels),
			Temperature:   getEnvAsFloat32("GEMINI_TEMPERATURE", 0.2),
			Timeout:       getEnvAsDuration("GEMINI_TIMEOUT", 45*time.Second),
			Cooldown:      getEnvAsDuration("AI_MODEL_COOLDOWN", 60*time.Second),
			RetryBackoff:  getEnvAsDuration("AI_RETRY_BACKOFF", 2*time.Second),
			CachePath:     getEnv("AI_CACHE_PATH", "./foundly-ai-cache.db"),
			CacheTTL:      getEnvAsDuration("AI_CACHE_TTL", 24*time.Hour),
			DateWindow:    getEnvAsDuration("MATCH_DATE_WINDOW", 48*time.Hour),
			MatchCap:      getEnvAsInt("MATCH_CANDIDATE_CAP", 30),
			ShortMatchCap: getEnvAsInt("MATCH_CANDIDATE_CAP_VISION", 6),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError(ErrInvalidInput, "DB_URL is required", nil)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError(ErrInvalidInput, "HTTP_ADDR is required", nil)
	}
	if len(c.AI.Models) == 0 {
		return NewAppError(ErrInvalidInput, "GEMINI_MODELS must name at least one model", nil)
	}
	return nil
}
