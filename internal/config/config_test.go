package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplateParses(t *testing.T) {
	cfg, err := FromYAML([]byte(DefaultTemplate))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, "/v0", cfg.Server.BasePath)
	assert.Equal(t, 60, cfg.Auth.TokenTTLMinutes)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Notifications.Webhooks)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"log level":   "logging:\n  level: chatty\n",
		"log format":  "logging:\n  format: xml\n",
		"ttl":         "auth:\n  token_ttl_minutes: -5\n",
		"webhook url": "notifications:\n  webhooks:\n    - events: [task.created]\n",
		"base path":   "server:\n  base_path: v0\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadOptional(t *testing.T) {
	ws := t.TempDir()
	cfg, err := LoadOptional(ws)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Logging.Format)

	doc := "notifications:\n  webhooks:\n    - url: http://localhost:9999/hook\n      enabled: false\n"
	require.NoError(t, os.WriteFile(filepath.Join(ws, FileName), []byte(doc), 0o644))
	cfg, err = LoadOptional(ws)
	require.NoError(t, err)
	require.Len(t, cfg.Notifications.Webhooks, 1)
	assert.False(t, cfg.Notifications.Webhooks[0].IsEnabled())
	assert.Equal(t, 2, cfg.Notifications.PollIntervalSeconds)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "not found")
}
