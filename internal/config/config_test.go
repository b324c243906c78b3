package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	yml := `
server:
  port: 9090
database:
  driver: sqlite
  dsn: "file::memory:"
auth:
  issuer: https://idp.example.com
  client_id: test-client
  redirect_url: http://localhost:9090/api/callback
logger:
  level: debug
  format: console
`
	err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o644)
	require.NoError(t, err)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "https://idp.example.com", cfg.Auth.Issuer)
	assert.Equal(t, "debug", cfg.Logger.Level)

	// Values absent from the file fall back to defaults.
	assert.Equal(t, "tt_session", cfg.Auth.CookieName)
	assert.Equal(t, 168, cfg.Auth.SessionTTLHours)
	assert.Equal(t, float64(10), cfg.Auth.RateLimit)
}
