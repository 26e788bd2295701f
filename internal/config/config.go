package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration. It is built once in main and
// injected into handlers and services; business logic never reads the
// environment directly.
type Config struct {
	Port string

	// Shared secrets
	WebhookSecret  string // "apikey" header on the gateway webhook
	InternalSecret string // "X-Internal-Secret" for trusted automation callers

	// OpenAI-compatible LLM endpoint
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	LLMTimeout    time.Duration

	// Evolution API gateway
	EvolutionBaseURL  string
	EvolutionAPIKey   string
	EvolutionInstance string

	// Twilio gateway (alternative provider)
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioWhatsAppFrom string

	// "evolution" (default) or "twilio"
	GatewayProvider string

	// CORS
	AllowedOrigins []string
	PrimaryOrigin  string

	// Storage
	UseMemoryStore bool
	DBUser         string
	DBPass         string
	DBName         string
	DBHost         string

	// Phone normalization
	DefaultCountryCode string

	// AI reply throttle, messages per minute per phone
	ReplyRatePerMinute float64
	ReplyBurst         int
}

// Load reads the environment (optionally from a .env file) and returns the
// populated Config. Missing AI or gateway credentials are warnings, not
// errors: the affected features degrade instead of blocking startup.
func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		if err = godotenv.Load("environments/.env.development"); err != nil {
			log.Println("⚠️  No .env file found - using environment variables")
		}
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		WebhookSecret:  os.Getenv("WEBHOOK_SECRET"),
		InternalSecret: os.Getenv("INTERNAL_SECRET"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		LLMTimeout:    getEnvDuration("LLM_TIMEOUT", 25*time.Second),

		EvolutionBaseURL:  os.Getenv("EVOLUTION_BASE_URL"),
		EvolutionAPIKey:   os.Getenv("EVOLUTION_API_KEY"),
		EvolutionInstance: getEnv("EVOLUTION_INSTANCE", "default"),

		TwilioAccountSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppFrom: os.Getenv("TWILIO_WHATSAPP_FROM"),

		GatewayProvider: getEnv("GATEWAY_PROVIDER", "evolution"),

		AllowedOrigins: splitOrigins(getEnv("ALLOWED_ORIGINS",
			"https://appvidasmart.com,https://www.appvidasmart.com,http://localhost:5173,http://localhost:3000")),
		PrimaryOrigin: getEnv("PRIMARY_ORIGIN", "https://appvidasmart.com"),

		UseMemoryStore: os.Getenv("USE_MEMORY_STORE") == "true",
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPass:         os.Getenv("DB_PASS"),
		DBName:         getEnv("DB_NAME", "vidacoach"),
		DBHost:         getEnv("DB_HOST", "localhost"),

		DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "55"),

		ReplyRatePerMinute: 6,
		ReplyBurst:         3,
	}

	if cfg.WebhookSecret == "" {
		log.Println("⚠️  WEBHOOK_SECRET not set - webhook will reject all gateway calls")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("⚠️  OPENAI_API_KEY not set - AI replies disabled")
	}
	if cfg.GatewayProvider == "twilio" {
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioWhatsAppFrom == "" {
			log.Println("⚠️  Twilio credentials incomplete - outbound messages disabled")
		}
	} else if cfg.EvolutionBaseURL == "" {
		log.Println("⚠️  EVOLUTION_BASE_URL not set - outbound messages disabled")
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
