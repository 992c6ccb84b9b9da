package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	// Server
	Port string
	Host string
	Env  string

	// Public base URL used to build CSV download links.
	BaseURL string

	// MongoDB
	MongoURI     string
	DatabaseName string
	MongoTimeout int

	// JWT
	JWTSecret     string
	JWTExpiration int // hours

	// SMTP (email channel is unconfigured when FromEmail is empty)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string

	// WhatsApp messaging API
	WhatsAppAPIURL string
	WhatsAppToken  string

	// Webhook fallbacks for the delivery channels
	EmailWebhookURL    string
	WhatsAppWebhookURL string

	// Reports
	ReportsDir      string
	DefaultTimeZone string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debugf("no .env file loaded: %v", err)
	}

	return &Config{
		Port:         getEnv("PORT", "8080"),
		Host:         getEnv("HOST", "0.0.0.0"),
		Env:          getEnv("ENV", "development"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DatabaseName: getEnv("DATABASE_NAME", "restocheck"),
		MongoTimeout: getEnvAsInt("MONGO_TIMEOUT", 10),

		JWTSecret:     getEnv("JWT_SECRET", "change-me"),
		JWTExpiration: getEnvAsInt("JWT_EXPIRATION", 24),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromEmail:    getEnv("FROM_EMAIL", ""),

		WhatsAppAPIURL: getEnv("WHATSAPP_API_URL", ""),
		WhatsAppToken:  getEnv("WHATSAPP_TOKEN", ""),

		EmailWebhookURL:    getEnv("EMAIL_WEBHOOK_URL", ""),
		WhatsAppWebhookURL: getEnv("WHATSAPP_WEBHOOK_URL", ""),

		ReportsDir:      getEnv("REPORTS_DIR", "./uploads/reports"),
		DefaultTimeZone: getEnv("DEFAULT_TIMEZONE", "UTC"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
