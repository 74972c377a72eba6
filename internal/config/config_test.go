package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "NGN", cfg.Paystack.Currency)
	assert.Equal(t, 10.0, cfg.Paystack.PlatformPercent)
	assert.Equal(t, 90, cfg.Paystack.ProducerSharePct)
	assert.Equal(t, "https://api.paystack.co", cfg.Paystack.BaseURL)
	assert.Equal(t, time.Hour, cfg.Paystack.DownloadURLExpiry)
	assert.Equal(t, 3, cfg.Upload.MaxConcurrentChunks)
	assert.Equal(t, int64(70*1024*1024), cfg.Upload.FullTrackMaxBytes)
	assert.Equal(t, "content", cfg.MinIO.Buckets.Content)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	p := writeConfig(t, `
server:
  port: "9090"
paystack:
  secret_key: "from-file"
  producer_share: 80
  provision_lock_ttl: 30s
minio:
  public_base_url: "https://project.supabase.co/"
`)
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_env")
	t.Setenv("SUPABASE_JWT_SECRET", "jwt_env")

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 80, cfg.Paystack.ProducerSharePct)
	assert.Equal(t, 30*time.Second, cfg.Paystack.ProvisionLockTTL)
	assert.Equal(t, "sk_env", cfg.Paystack.SecretKey)
	assert.Equal(t, "jwt_env", cfg.Auth.JWTSecret)
	assert.Equal(t, "https://project.supabase.co", cfg.MinIO.PublicBaseURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
