package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "biblioteca_test")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ACCESS_TOKEN_TTL", "2h")
	t.Setenv("IMAGE_HOST", "r2")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")

	cfg := Load()
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, "biblioteca_test", cfg.DBName)
	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, "r2", cfg.ImageHost)
	assert.Equal(t, "redis://localhost:6379/1", cfg.RedisURL)
	assert.Contains(t, cfg.DSN(), "host=db.internal")
	assert.Contains(t, cfg.DSN(), "dbname=biblioteca_test")
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ACCESS_TOKEN_TTL", "not-a-duration")
	t.Setenv("IMAGE_HOST", "")

	cfg := Load()
	assert.Equal(t, "8085", cfg.ServerPort)
	assert.Equal(t, 30*24*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, "imgbb", cfg.ImageHost)
	assert.Equal(t, "https://api.imgbb.com/1/upload", cfg.ImgBBUploadURL)
}

func TestLoadClientOverrides(t *testing.T) {
	t.Setenv("BIBLIOTECA_API", "https://api.example.org")
	t.Setenv("BIBLIOTECA_STATE_DIR", "/tmp/biblioteca-state")
	t.Setenv("CHAT_WEBHOOK_URL", "https://hooks.example.org/chat")
	t.Setenv("BIBLIOTECA_TIMEOUT", "45")

	cfg := LoadClient()
	assert.Equal(t, "https://api.example.org", cfg.APIURL)
	assert.Equal(t, "/tmp/biblioteca-state", cfg.StateDir)
	assert.Equal(t, "https://hooks.example.org/chat", cfg.ChatWebhookURL)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
}
