// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	// DB
	DBHost     string
	DBPort     string
	DBUser     string
	DBPass     string
	DBName     string
	DBSSLMode  string
	DBTimeZone string

	// Redis (optional realtime relay)
	RedisURL string

	// Auth
	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration

	// Image host: "imgbb" or "r2"
	ImageHost      string
	ImgBBAPIKey    string
	ImgBBUploadURL string

	// R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2BucketName      string
	R2PublicURL       string

	// Push
	FirebaseCredentialsJSON string
	NotificationIconURL     string

	// CORS
	AllowedOrigins string

	// Seed
	AdminEmail    string
	AdminPassword string
	CatalogFile   string
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName, c.DBSSLMode, c.DBTimeZone,
	)
}

func Load() *Config {
	loadDotEnv()

	return &Config{
		ServerPort: getEnv("PORT", "8085"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPass:     getEnv("DB_PASS", "postgres"),
		DBName:     getEnv("DB_NAME", "biblioteca_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBTimeZone: getEnv("DB_TIMEZONE", "America/Sao_Paulo"),

		RedisURL: os.Getenv("REDIS_URL"),

		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		JWTIssuer:      getEnv("JWT_ISSUER", "biblioteca-mistica"),
		AccessTokenTTL: getDuration("ACCESS_TOKEN_TTL", 30*24*time.Hour),

		ImageHost:      getEnv("IMAGE_HOST", "imgbb"),
		ImgBBAPIKey:    os.Getenv("IMGBB_API_KEY"),
		ImgBBUploadURL: getEnv("IMGBB_UPLOAD_URL", "https://api.imgbb.com/1/upload"),

		// R2 Configuration
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),

		FirebaseCredentialsJSON: os.Getenv("FIREBASE_CREDENTIALS_JSON"),
		NotificationIconURL:     getEnv("NOTIFICATION_ICON_URL", "/icon-192.png"),

		// CORS Configuration
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		CatalogFile:   os.Getenv("CATALOG_FILE"),
	}
}

// ClientConfig configures the command-line client.
type ClientConfig struct {
	APIURL         string
	StateDir       string
	ChatWebhookURL string
	RedisURL       string
	RequestTimeout time.Duration
}

func LoadClient() *ClientConfig {
	loadDotEnv()

	stateDir := os.Getenv("BIBLIOTECA_STATE_DIR")
	if stateDir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			stateDir = filepath.Join(dir, "biblioteca")
		} else {
			stateDir = ".biblioteca"
		}
	}

	return &ClientConfig{
		APIURL:         getEnv("BIBLIOTECA_API", "http://localhost:8085"),
		StateDir:       stateDir,
		ChatWebhookURL: os.Getenv("CHAT_WEBHOOK_URL"),
		RedisURL:       os.Getenv("BIBLIOTECA_REDIS_URL"),
		RequestTimeout: getDuration("BIBLIOTECA_TIMEOUT", 30*time.Second),
	}
}

func loadDotEnv() {
	if os.Getenv("ENV") != "production" {
		_ = godotenv.Load() // optional .env for local
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("⚠️ Invalid %s=%q, using %s", key, value, fallback)
	return fallback
}
