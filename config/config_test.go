package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/circular-table-server/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "json", cfg.Store.Backend)
	assert.Equal(t, "restaurants", cfg.Store.Key)
	assert.Equal(t, config.ConsistencyOptimistic, cfg.Consistency.Mode)
	assert.Equal(t, 5, cfg.Consistency.MaxRetries)
	assert.Empty(t, cfg.Geocode.APIKey)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	yamlDoc := `
server:
  port: 9090
  allowed_origins: ["https://a.example"]
store:
  backend: sqlite
  data_dir: /var/lib/ct
geocode:
  api_key: from-file
  timeout: 3s
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	t.Setenv("STORE_BACKEND", "bolt")
	t.Setenv("GOOGLE_MAPS_API_KEY", "from-env")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "bolt", cfg.Store.Backend)
	assert.Equal(t, "/var/lib/ct", cfg.Store.DataDir)
	assert.Equal(t, "from-env", cfg.Geocode.APIKey)
	assert.Equal(t, 3*time.Second, cfg.Geocode.Timeout)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORE_BACKEND": "redis"}},
		{"bad port", map[string]string{"PORT": "eighty"}},
		{"port out of range", map[string]string{"PORT": "70000"}},
		{"unknown consistency", map[string]string{"CONSISTENCY_MODE": "pessimistic"}},
		{"dynamodb without table", map[string]string{"STORE_BACKEND": "dynamodb"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad timeout", map[string]string{"GEOCODE_TIMEOUT": "soon"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsUnknownYAMLField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sever:\n  port: 1\n"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestStoreCheckServerless(t *testing.T) {
	for _, backend := range []string{"dynamodb", "memory"} {
		assert.NoError(t, config.Store{Backend: backend}.CheckServerless(), backend)
	}
	for _, backend := range []string{"json", "sqlite", "bolt", ""} {
		err := config.Store{Backend: backend, DataDir: "./data"}.CheckServerless()
		assert.Error(t, err, backend)
	}
	assert.Error(t, config.Default().Store.CheckServerless(), "the default json backend cannot run serverless")
}
