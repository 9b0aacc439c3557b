package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress string

	// AuthMode selects how requests are authenticated: "firebase" verifies
	// Firebase ID tokens, "local" uses the built-in account service with
	// HMAC JWTs.
	AuthMode      string
	JWTSecret     string
	JWTExpiration time.Duration

	MongoURI string
	MongoDB  string

	FirebaseProjectID       string
	FirebaseCredentialsFile string

	SendGridAPIKey string
	SenderEmail    string

	LLMBaseURL     string
	LLMModel       string
	LLMTemperature float64

	EWGBaseURL string

	// ReminderInterval is how often the reminder worker evaluates routine
	// times. Must divide a minute or the exact-minute match can be skipped.
	ReminderInterval time.Duration
}

func Load() *Config {
	// Missing .env is fine; system environment still applies.
	_ = godotenv.Load()

	return &Config{
		ServerAddress:           getEnv("SERVER_ADDRESS", ":8080"),
		AuthMode:                getEnv("AUTH_MODE", "firebase"),
		JWTSecret:               getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiration:           24 * time.Hour,
		MongoURI:                getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:                 getEnv("MONGODB_DATABASE", "porespective"),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_PATH", "./serviceAccountKey.json"),
		SendGridAPIKey:          getEnv("SENDGRID_API_KEY", ""),
		SenderEmail:             getEnv("SENDER_EMAIL", ""),
		LLMBaseURL:              getEnv("LLM_BASE_URL", "http://127.0.0.1:11500"),
		LLMModel:                getEnv("LLM_MODEL", "llama3.2"),
		LLMTemperature:          getEnvFloat("LLM_TEMPERATURE", 0.0),
		EWGBaseURL:              getEnv("EWG_BASE_URL", "https://www.ewg.org"),
		ReminderInterval:        getEnvDuration("REMINDER_INTERVAL", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
