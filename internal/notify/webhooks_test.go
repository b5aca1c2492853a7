package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phasegate/internal/config"
	"phasegate/internal/db"
	"phasegate/internal/engine"
	"phasegate/internal/migrate"
)

func TestEventFilter(t *testing.T) {
	f := newEventFilter([]string{"quality_gate.*", "workflow.initialized"})
	assert.True(t, f.match("quality_gate.updated"))
	assert.True(t, f.match("workflow.initialized"))
	assert.False(t, f.match("task.created"))
	assert.False(t, f.match("quality_gates.initialized"))
	assert.True(t, newEventFilter(nil).match("anything"))
	assert.True(t, newEventFilter([]string{"*"}).match("anything"))
}

func TestDispatchDeliversNewMatchingEvents(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	eng := engine.New(conn, nil)

	_, err = eng.CreateProject(ctx, engine.ProjectCreateOptions{ID: "proj-1", Name: "before"})
	require.NoError(t, err)

	var got struct {
		mu         sync.Mutex
		deliveries []Delivery
		signatures []string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var d Delivery
		_ = json.Unmarshal(body, &d)
		got.mu.Lock()
		got.deliveries = append(got.deliveries, d)
		got.signatures = append(got.signatures, r.Header.Get("X-Phasegate-Signature"))
		got.mu.Unlock()
		assert.Equal(t, "sha256="+Sign("s3cret", body), r.Header.Get("X-Phasegate-Signature"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.Webhooks = []config.Webhook{{URL: srv.URL, Events: []string{"quality_gate.*", "quality_gates.*"}, Secret: "s3cret"}}
	n := New(eng.Repo, cfg, nil)
	require.True(t, n.Enabled())
	n.Prime(ctx)

	_, err = eng.InitializeWorkflow(ctx, "proj-1", "tester")
	require.NoError(t, err)
	_, err = eng.InitializeQualityGates(ctx, "proj-1", "tester")
	require.NoError(t, err)

	n.DispatchOnce(ctx)
	n.DispatchOnce(ctx)

	got.mu.Lock()
	defer got.mu.Unlock()
	require.Len(t, got.deliveries, 1, "project.created predates the cursor; workflow.initialized is filtered")
	assert.Equal(t, "quality_gates.initialized", got.deliveries[0].Type)
	assert.Equal(t, "proj-1", got.deliveries[0].ProjectID)
}

func TestDispatchRetriesAfterFailure(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	eng := engine.New(conn, nil)

	var mu sync.Mutex
	fail := true
	var types []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		types = append(types, r.Header.Get("X-Phasegate-Event"))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.Webhooks = []config.Webhook{{URL: srv.URL}}
	n := New(eng.Repo, cfg, nil)
	n.Prime(ctx)

	_, err = eng.CreateProject(ctx, engine.ProjectCreateOptions{ID: "proj-1", Name: "p"})
	require.NoError(t, err)
	n.DispatchOnce(ctx)

	mu.Lock()
	fail = false
	mu.Unlock()
	n.DispatchOnce(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"project.created"}, types)
}
