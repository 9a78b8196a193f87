package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultJWTSecret is only acceptable outside production.
const DefaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	MongoURI            string
	PostgresURI         string
	RedisURI            string
	JWTSecret           string
	TokenTTL            time.Duration
	Port                string
	Environment         string   // ENV: production, development, etc.
	AllowedOrigins      []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	AllowedHost         string   // production host check; empty disables it
	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	LLM  LLMConfig  `toml:"llm"`
	Chat ChatConfig `toml:"chat"`
}

// LLMConfig selects and authenticates the hosted model behind the companion chat.
type LLMConfig struct {
	Provider       string `toml:"provider"` // gemini, vertex, openai
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`

	GeminiAPIKey string `toml:"gemini_api_key"`

	OpenAIAPIKey  string `toml:"openai_api_key"`
	OpenAIBaseURL string `toml:"openai_base_url"`

	VertexProject  string `toml:"vertex_project"`
	VertexLocation string `toml:"vertex_location"`
	// Service account credentials for Vertex: either the full JSON document or
	// the client email / private key pair.
	ServiceAccountJSON string `toml:"service_account_json"`
	ClientEmail        string `toml:"client_email"`
	PrivateKey         string `toml:"private_key"`
}

type ChatConfig struct {
	HistoryLimit  int `toml:"history_limit"`
	RatePerMinute int `toml:"rate_per_minute"`
	RateBurst     int `toml:"rate_burst"`
}

// Timeout returns the per-request deadline for model calls.
func (l LLMConfig) Timeout() time.Duration {
	if l.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// Load builds the configuration from defaults, an optional TOML file (CONFIG_FILE)
// and environment variables, in increasing order of precedence. A CONFIG_FILE
// that is set but cannot be read is an error.
func Load() (*Config, error) {
	file := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, file); err != nil {
			return nil, fmt.Errorf("config file %q: %w", path, err)
		}
	}

	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:5173"), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" && !containsOrigin(allowedOrigins, u) {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}

	tokenTTL, err := time.ParseDuration(getEnv("TOKEN_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	provider := strings.ToLower(getEnv("LLM_PROVIDER", orDefault(file.LLM.Provider, "gemini")))

	cfg := &Config{
		MongoURI:            getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/safeharbor")),
		PostgresURI:         getEnv("POSTGRES_URI", "postgres://localhost:5432/safeharbor?sslmode=disable"),
		RedisURI:            getEnv("REDIS_URI", "redis://localhost:6379/0"),
		JWTSecret:           getEnv("JWT_SECRET", DefaultJWTSecret),
		TokenTTL:            tokenTTL,
		Environment:         env,
		Port:                getEnv("PORT", "8080"),
		AllowedOrigins:      allowedOrigins,
		AllowedHost:         getEnv("ALLOWED_HOST", ""),
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		LLM: LLMConfig{
			Provider:           provider,
			Model:              getEnv("LLM_MODEL", file.LLM.Model),
			TimeoutSeconds:     getEnvInt("LLM_TIMEOUT_SECONDS", file.LLM.TimeoutSeconds),
			GeminiAPIKey:       getEnv("GEMINI_API_KEY", file.LLM.GeminiAPIKey),
			OpenAIAPIKey:       getEnv("OPENAI_API_KEY", file.LLM.OpenAIAPIKey),
			OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", file.LLM.OpenAIBaseURL),
			VertexProject:      getEnv("VERTEX_PROJECT", file.LLM.VertexProject),
			VertexLocation:     getEnv("VERTEX_LOCATION", orDefault(file.LLM.VertexLocation, "us-central1")),
			ServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", file.LLM.ServiceAccountJSON),
			ClientEmail:        getEnv("GOOGLE_CLIENT_EMAIL", file.LLM.ClientEmail),
			PrivateKey:         getEnv("GOOGLE_PRIVATE_KEY", file.LLM.PrivateKey),
		},
		Chat: ChatConfig{
			HistoryLimit:  getEnvInt("CHAT_HISTORY_LIMIT", orDefaultInt(file.Chat.HistoryLimit, 6)),
			RatePerMinute: getEnvInt("CHAT_RATE_PER_MINUTE", orDefaultInt(file.Chat.RatePerMinute, 12)),
			RateBurst:     getEnvInt("CHAT_RATE_BURST", orDefaultInt(file.Chat.RateBurst, 4)),
		},
	}
	return cfg, nil
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// Validate rejects settings that are unsafe in production.
func (c *Config) Validate() error {
	if c.IsProduction() && (c.JWTSecret == DefaultJWTSecret || len(c.JWTSecret) < 32) {
		return fmt.Errorf("JWT_SECRET must be set to at least 32 characters in production")
	}
	if c.Chat.HistoryLimit <= 0 {
		return fmt.Errorf("CHAT_HISTORY_LIMIT must be positive")
	}
	return nil
}

// CloudinaryEnabled reports whether all upload credentials are present.
func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
