package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Duplicate-appointment window modes accepted by PARCHI_DUPLICATE_WINDOW.
const (
	DuplicateWindowCalendarDay = "calendar_day"
	DuplicateWindowExact       = "exact"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string
	DatabaseURL   string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	GeminiAPIKey      string
	GeminiVisionModel string
	GeminiParserModel string

	FallbackLLMAPIKey  string
	FallbackLLMBaseURL string
	FallbackLLMModel   string

	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppGraphVersion  string
	WhatsAppTemplate      string
	WhatsAppHeaderImageID string
	WhatsAppTimeout       time.Duration
	NotifyRetryMax        int
	NotifyRetryBaseDelay  time.Duration
	NotifyDuplicates      bool

	Workers         int
	DuplicateWindow string
	ClinicTimezone  string
	CountryCode     string

	MaxUploadBytes  int64
	ExtractTimeout  time.Duration
	ParseTimeout    time.Duration
	RegistryTimeout time.Duration
	ExtractCacheTTL time.Duration

	UploadRateLimit  int
	UploadRateWindow time.Duration

	CORSAllowedOrigins string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		GeminiAPIKey:      getEnv("GOOGLE_API_KEY", ""),
		GeminiVisionModel: getEnv("GEMINI_VISION_MODEL", "gemini-2.0-flash"),
		GeminiParserModel: getEnv("GEMINI_PARSER_MODEL", "gemini-2.0-flash"),

		FallbackLLMAPIKey:  getEnv("FALLBACK_LLM_API_KEY", ""),
		FallbackLLMBaseURL: getEnv("FALLBACK_LLM_BASE_URL", ""),
		FallbackLLMModel:   getEnv("FALLBACK_LLM_MODEL", "gpt-4o-mini"),

		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppGraphVersion:  getEnv("WHATSAPP_GRAPH_API_VERSION", "v19.0"),
		WhatsAppTemplate:      getEnv("WHATSAPP_TEMPLATE_NAME", "appointment_confirmed"),
		WhatsAppHeaderImageID: getEnv("WHATSAPP_HEADER_IMAGE_ID", "1997514164526776"),
		WhatsAppTimeout:       getEnvAsDuration("WHATSAPP_TIMEOUT", 30*time.Second),
		NotifyRetryMax:        getEnvAsInt("PARCHI_NOTIFY_RETRY_MAX", 1),
		NotifyRetryBaseDelay:  getEnvAsDuration("PARCHI_NOTIFY_RETRY_BASE_DELAY", 500*time.Millisecond),
		NotifyDuplicates:      getEnvAsBool("PARCHI_NOTIFY_DUPLICATES", false),

		Workers:         clampInt(getEnvAsInt("PARCHI_WORKERS", 4), 1, 8),
		DuplicateWindow: duplicateWindow(getEnv("PARCHI_DUPLICATE_WINDOW", DuplicateWindowCalendarDay)),
		ClinicTimezone:  getEnv("CLINIC_TIMEZONE", "Asia/Kolkata"),
		CountryCode:     getEnv("PARCHI_COUNTRY_CODE", "91"),

		MaxUploadBytes:  getEnvAsInt64("PARCHI_MAX_UPLOAD_BYTES", 8<<20),
		ExtractTimeout:  getEnvAsDuration("PARCHI_EXTRACT_TIMEOUT", 60*time.Second),
		ParseTimeout:    getEnvAsDuration("PARCHI_PARSE_TIMEOUT", 30*time.Second),
		RegistryTimeout: getEnvAsDuration("PARCHI_REGISTRY_TIMEOUT", 10*time.Second),
		ExtractCacheTTL: getEnvAsDuration("PARCHI_EXTRACT_CACHE_TTL", 15*time.Minute),

		UploadRateLimit:  getEnvAsInt("PARCHI_UPLOAD_RATE_LIMIT", 10),
		UploadRateWindow: getEnvAsDuration("PARCHI_UPLOAD_RATE_WINDOW", time.Minute),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func duplicateWindow(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case DuplicateWindowExact:
		return DuplicateWindowExact
	default:
		return DuplicateWindowCalendarDay
	}
}
