package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/fungiquest/internal/apierr"
)

func TestFromEnvOfflineDefaults(t *testing.T) {
	t.Setenv("MODE", "")
	t.Setenv("AUTH_HMAC_SECRET", "")
	t.Setenv("API_KEY", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("MAGIC_LINK_TTL", "5m")

	c := FromEnv()
	assert.Equal(t, ModeOffline, c.Mode)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.NotEmpty(t, c.HMACSecret)
	assert.NotEmpty(t, c.APIKey)
	assert.Equal(t, []string{"*"}, c.CORSOrigins)
	assert.Equal(t, 5*time.Minute, c.MagicLinkTTL)
	assert.NoError(t, c.Validate())
}

func TestFromEnvOnlineRequiresSecrets(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("AUTH_HMAC_SECRET", "")
	t.Setenv("API_KEY", "")
	err := FromEnv().Validate()
	require.Error(t, err)
	assert.Equal(t, apierr.KindConfig, apierr.KindOf(err))

	t.Setenv("AUTH_HMAC_SECRET", "s3cret")
	t.Setenv("API_KEY", "anon")
	assert.NoError(t, FromEnv().Validate())
}

func TestLoadClientFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend_url: http://file:8080\nbackend_key: from-file\nserver_grading: true\n"), 0o600))

	t.Setenv("FUNGIQUEST_BACKEND_URL", "")
	t.Setenv("FUNGIQUEST_BACKEND_KEY", "from-env")
	t.Setenv("FUNGIQUEST_STATE_DIR", "/tmp/fq")
	t.Setenv("FUNGIQUEST_SERVER_GRADING", "")

	c, err := LoadClient(path)
	require.NoError(t, err)
	assert.Equal(t, "http://file:8080", c.BackendURL)
	assert.Equal(t, "from-env", c.BackendKey)
	assert.True(t, c.ServerGrading)
	assert.Equal(t, filepath.Join("/tmp/fq", "local.db"), c.LocalDBPath())
}

func TestLoadClientMissingSettingsIsConfigError(t *testing.T) {
	t.Setenv("FUNGIQUEST_BACKEND_URL", "")
	t.Setenv("FUNGIQUEST_BACKEND_KEY", "")
	_, err := LoadClient(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, apierr.KindConfig, apierr.KindOf(err))
	assert.Contains(t, err.Error(), "FUNGIQUEST_BACKEND_URL")
}
