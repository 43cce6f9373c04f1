package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.AppPort)
	assert.Equal(t, time.Hour, cfg.Tokens.AccessTTL)
	assert.Equal(t, 14*24*time.Hour, cfg.Tokens.RefreshTTL)
	assert.Equal(t, 24*time.Hour, cfg.Tokens.EmailTTL)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Equal(t, "ffmpeg", cfg.Transcode.FFmpegPath)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("VIDVAULT_PORT", "9090")
	t.Setenv("VIDVAULT_LOG_LEVEL", "debug")
	t.Setenv("VIDVAULT_S3_BUCKET", "videos")
	t.Setenv("VIDVAULT_S3_PUBLIC_BASE_URL", "https://cdn.example.com/")
	t.Setenv("VIDVAULT_TOKENS_ACCESS_SECRET", "a")
	t.Setenv("VIDVAULT_TOKENS_REFRESH_TTL", "48h")
	t.Setenv("VIDVAULT_TRANSCODE_TIMEOUT", "90s")
	t.Setenv("VIDVAULT_RATELIMIT_BURST", "2")

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.AppPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "videos", cfg.ObjectStore.Bucket)
	assert.Equal(t, "https://cdn.example.com", cfg.ObjectStore.BaseURL())
	assert.Equal(t, "a", cfg.Tokens.AccessSecret)
	assert.Equal(t, 48*time.Hour, cfg.Tokens.RefreshTTL)
	assert.Equal(t, 90*time.Second, cfg.Transcode.Timeout)
	assert.Equal(t, 2, cfg.RateLimit.Burst)
}

func TestLoadFromFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vidvault.yaml")
	contents := []byte("port: 7000\ns3:\n  bucket: from-file\n  region: eu-west-1\nmail:\n  host: smtp.example.com\n")
	require.NoError(t, os.WriteFile(path, contents, 0o600))

	t.Setenv("VIDVAULT_S3_BUCKET", "from-env")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.AppPort)
	assert.Equal(t, "from-env", cfg.ObjectStore.Bucket)
	assert.Equal(t, "eu-west-1", cfg.ObjectStore.Region)
	assert.Equal(t, "smtp.example.com", cfg.Mail.Host)
	assert.Equal(t, "https://from-env.s3.eu-west-1.amazonaws.com", cfg.ObjectStore.BaseURL())
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.ObjectStore.Bucket = "videos"
	cfg.Tokens.AccessSecret = "a"
	cfg.Tokens.RefreshSecret = "b"
	cfg.Tokens.EmailSecret = "c"
	require.NoError(t, cfg.Validate())

	dup := cfg
	dup.Tokens.EmailSecret = "a"
	assert.Error(t, dup.Validate())

	noBucket := cfg
	noBucket.ObjectStore.Bucket = ""
	assert.Error(t, noBucket.Validate())

	missing := cfg
	missing.Tokens.RefreshSecret = ""
	assert.Error(t, missing.Validate())
}
