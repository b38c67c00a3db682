package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rogerbrinkmann/couchdb-rest-api/internal/config"
)

func TestConfigShowCmd_MasksPassword(t *testing.T) {
	out, err := execute(t, "config", "show",
		"--config", filepath.Join(t.TempDir(), "config.toml"),
		"--url", "http://db.example.com:5984",
		"--user", "admin",
		"--password", "secret")

	require.NoError(t, err)
	assert.Contains(t, out, "url:      http://db.example.com:5984")
	assert.Contains(t, out, "username: admin")
	assert.Contains(t, out, "password: ********")
	assert.NotContains(t, out, "secret")
}

func TestConfigSaveCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := execute(t, "config", "save",
		"--config", path,
		"--url", "http://db.example.com:5984",
		"--user", "admin",
		"--password", "secret",
		"--timeout", "5s")

	require.NoError(t, err)
	assert.Contains(t, out, "Saved "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://db.example.com:5984", cfg.URL)
	assert.Equal(t, "admin", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, "5s", cfg.Timeout.String())
}
