// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// NATS settings (recent-queries log)
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Badger document cache
	DocCacheDir      string
	DocCacheInMemory bool

	// JWT settings (management API)
	JWTSecret     string
	JWTExpiration time.Duration

	// LLM settings
	LLMProvider     string
	GroqAPIKey      string
	GeminiAPIKey    string
	AnthropicAPIKey string
	LLMModel        string
	LLMTimeout      time.Duration

	// Speech collaborator (Sarvam-compatible)
	SpeechAPIKey  string
	SpeechBaseURL string
	SpeechTimeout time.Duration
	DefaultVoice  string

	// Retrieval collaborator
	AssistantAPIKey  string
	AssistantBaseURL string
	AssistantName    string
	AssistantTimeout time.Duration

	// Pipeline settings
	ReasoningLanguage string
	DefaultLanguage   string
	HistoryLimit      int
	ConfidenceEnabled bool

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Badger
		DocCacheDir:      getEnv("DOC_CACHE_DIR", "data/doccache"),
		DocCacheInMemory: getBoolEnv("DOC_CACHE_IN_MEMORY", false),

		// JWT
		JWTSecret:     getEnv("JWT_SECRET", "development-secret-change-in-production"),
		JWTExpiration: getDurationEnv("JWT_EXPIRATION", 15*time.Minute),

		// LLM
		LLMProvider:     getEnv("LLM_PROVIDER", "groq"),
		GroqAPIKey:      getEnv("GROQ_API_KEY", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		LLMModel:        getEnv("LLM_MODEL", ""),
		LLMTimeout:      getDurationEnv("LLM_TIMEOUT", 60*time.Second),

		// Speech
		SpeechAPIKey:  getEnv("SPEECH_API_KEY", ""),
		SpeechBaseURL: getEnv("SPEECH_BASE_URL", "https://api.sarvam.ai"),
		SpeechTimeout: getDurationEnv("SPEECH_TIMEOUT", 30*time.Second),
		DefaultVoice:  getEnv("DEFAULT_VOICE", "meera"),

		// Retrieval
		AssistantAPIKey:  getEnv("ASSISTANT_API_KEY", ""),
		AssistantBaseURL: getEnv("ASSISTANT_BASE_URL", ""),
		AssistantName:    getEnv("ASSISTANT_NAME", "finmate-assistant"),
		AssistantTimeout: getDurationEnv("ASSISTANT_TIMEOUT", 20*time.Second),

		// Pipeline
		ReasoningLanguage: getEnv("REASONING_LANGUAGE", "en-IN"),
		DefaultLanguage:   getEnv("DEFAULT_LANGUAGE", "en-IN"),
		HistoryLimit:      getIntEnv("HISTORY_LIMIT", 50),
		ConfidenceEnabled: getBoolEnv("CONFIDENCE_ENABLED", true),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
