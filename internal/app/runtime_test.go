package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phasegate/internal/config"
	"phasegate/internal/engine"
)

func TestOpenWithoutConfigUsesDefaults(t *testing.T) {
	ws := t.TempDir()
	rt, err := Open(context.Background(), Options{Workspace: ws, LogOutput: &bytes.Buffer{}})
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, "127.0.0.1:8080", rt.Config.Server.Addr)
	assert.FileExists(t, filepath.Join(ws, ".phasegate", "phasegate.db"))
	assert.NotNil(t, rt.Engine.Metrics)
}

func TestOpenReadsConfigAndOverrides(t *testing.T) {
	ws := t.TempDir()
	yml := "server:\n  addr: 0.0.0.0:9000\nauth:\n  jwt_secret: s3cret\n  token_ttl_minutes: 15\nlogging:\n  level: warn\n"
	require.NoError(t, os.WriteFile(filepath.Join(ws, config.FileName), []byte(yml), 0o644))

	var buf bytes.Buffer
	rt, err := Open(context.Background(), Options{Workspace: ws, LogLevel: "debug", LogFormat: "json", LogOutput: &buf})
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, "debug", rt.Config.Logging.Level)
	assert.Contains(t, buf.String(), "workspace opened")

	sc := rt.ServerConfig()
	assert.Equal(t, "/v0", sc.BasePath)
	assert.Equal(t, "s3cret", sc.Auth.Token.Secret)
	assert.Equal(t, 15*time.Minute, sc.Auth.Token.TTL)
}

func TestOpenRejectsBadLogLevel(t *testing.T) {
	_, err := Open(context.Background(), Options{Workspace: t.TempDir(), LogLevel: "loud"})
	assert.Error(t, err)
}

func TestResolveProject(t *testing.T) {
	ctx := context.Background()
	rt, err := Open(ctx, Options{Workspace: t.TempDir(), LogOutput: &bytes.Buffer{}})
	require.NoError(t, err)
	defer rt.Close()

	_, err = ResolveProject(ctx, rt.Engine.Repo, "")
	assert.Error(t, err)

	_, err = rt.Engine.CreateProject(ctx, engine.ProjectCreateOptions{ID: "only", Name: "Only"})
	require.NoError(t, err)
	id, err := ResolveProject(ctx, rt.Engine.Repo, "")
	require.NoError(t, err)
	assert.Equal(t, "only", id)

	_, err = rt.Engine.CreateProject(ctx, engine.ProjectCreateOptions{ID: "second", Name: "Second"})
	require.NoError(t, err)
	_, err = ResolveProject(ctx, rt.Engine.Repo, "")
	assert.Error(t, err)

	id, err = ResolveProject(ctx, rt.Engine.Repo, "second")
	require.NoError(t, err)
	assert.Equal(t, "second", id)
}
