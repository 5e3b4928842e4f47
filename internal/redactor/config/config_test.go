package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfigDefaults(t *testing.T) {
	for _, key := range []string{"LISTEN_ADDR", "DATABASE_PATH", "AUTOSAVE_INTERVAL", "PDF_EXPORT_TIMEOUT", "REMOTE_SYNC_URL"} {
		t.Setenv(key, "")
	}

	cfg := ReadConfig()
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "redactor.db", cfg.DatabasePath)
	assert.Equal(t, 30, cfg.AutosaveInterval)
	assert.Equal(t, 15*time.Second, cfg.PDFExportTimeout)
	assert.Nil(t, cfg.RemoteSyncURL)
	assert.False(t, cfg.MinioEnabled())
}

func TestReadConfigFromEnv(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("AUTOSAVE_INTERVAL", "1")
	t.Setenv("AUTOSAVE_DISABLED", "true")
	t.Setenv("PDF_EXPORT_TIMEOUT", "20s")
	t.Setenv("REMOTE_TIMEOUT", "3")
	t.Setenv("REMOTE_SYNC_URL", "https://sync.example.com/api")
	t.Setenv("REMOTE_SYNC_TOKEN", "secret-token")

	cfg := ReadConfig()
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, MinAutosaveInterval, cfg.AutosaveInterval)
	assert.True(t, cfg.AutosaveDisabled)
	assert.Equal(t, 20*time.Second, cfg.PDFExportTimeout)
	assert.Equal(t, 3*time.Second, cfg.RemoteTimeout)
	require.NotNil(t, cfg.RemoteSyncURL)
	assert.Equal(t, "sync.example.com", cfg.RemoteSyncURL.Host)
	assert.Equal(t, "secret-token", cfg.RemoteSyncToken)
}

func TestBadRemoteURLDisablesSync(t *testing.T) {
	t.Setenv("REMOTE_SYNC_URL", "not a url")
	assert.Nil(t, ReadConfig().RemoteSyncURL)
}

func TestClampAutosaveInterval(t *testing.T) {
	assert.Equal(t, DefaultAutosaveInterval, ClampAutosaveInterval(0))
	assert.Equal(t, MinAutosaveInterval, ClampAutosaveInterval(2))
	assert.Equal(t, 60, ClampAutosaveInterval(60))
	assert.Equal(t, MaxAutosaveInterval, ClampAutosaveInterval(100000))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "s**t", maskSecret("RemoteSyncToken", "sect"))
	assert.Equal(t, "**", maskSecret("AWSSecretKey", "ab"))
	assert.Equal(t, "plain", maskSecret("ListenAddr", "plain"))
}
