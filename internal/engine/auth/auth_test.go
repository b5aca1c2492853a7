package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phasegate/internal/db"
	"phasegate/internal/engine/auth"
	"phasegate/internal/migrate"
	"phasegate/internal/repo"
)

func newService(t *testing.T) auth.Service {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	return auth.NewService(conn)
}

func TestResolveSSOUserPrecedence(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	local, err := svc.EnsureUser(ctx, "Ada@Example.com", "Ada")
	require.NoError(t, err)
	assert.Nil(t, local.ExternalID)

	linked, outcome, err := svc.ResolveSSOUser(ctx, auth.Identity{ExternalID: "ext-1", Provider: "okta", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, auth.OutcomeLinked, outcome)
	assert.Equal(t, local.ID, linked.ID)
	require.NotNil(t, linked.ExternalID)
	assert.Equal(t, "ext-1", *linked.ExternalID)

	// external id wins even when the asserted email changed
	matched, outcome, err := svc.ResolveSSOUser(ctx, auth.Identity{ExternalID: "ext-1", Provider: "okta", Email: "ada@new.example.com"})
	require.NoError(t, err)
	assert.Equal(t, auth.OutcomeMatched, outcome)
	assert.Equal(t, local.ID, matched.ID)

	created, outcome, err := svc.ResolveSSOUser(ctx, auth.Identity{ExternalID: "ext-2", Provider: "okta", Email: "bob@example.com", Name: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, auth.OutcomeCreated, outcome)
	assert.NotEqual(t, local.ID, created.ID)
	assert.Equal(t, "bob@example.com", created.Email)
}

func TestResolveSSOUserRequiresIdentity(t *testing.T) {
	svc := newService(t)
	_, _, err := svc.ResolveSSOUser(context.Background(), auth.Identity{Provider: "okta", Email: "x@example.com"})
	assert.ErrorIs(t, err, auth.ErrIncompleteIdentity)
}

func TestAPIKeyRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	u, err := svc.EnsureUser(ctx, "ops@example.com", "Ops")
	require.NoError(t, err)

	key, plain, err := svc.CreateAPIKey(ctx, u.ID, "ci")
	require.NoError(t, err)
	assert.NotEqual(t, plain, key.KeyHash)

	got, err := svc.AuthenticateAPIKey(ctx, plain)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.AuthenticateAPIKey(ctx, plain+"x")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	_, _, err = svc.CreateAPIKey(ctx, "missing-user", "ci")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := auth.TokenConfig{Secret: "secret", Issuer: "phasegate", Audience: "phasegate", TTL: time.Hour}
	now := time.Now()
	token, exp, err := auth.IssueToken(cfg, "user-1", "u@example.com", now)
	require.NoError(t, err)
	assert.True(t, exp.After(now))

	claims, err := auth.ParseToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "u@example.com", claims.Email)

	_, err = auth.ParseToken(auth.TokenConfig{Secret: "other", Issuer: "phasegate", Audience: "phasegate"}, token)
	assert.Error(t, err)
	_, err = auth.ParseToken(auth.TokenConfig{Secret: "secret", Issuer: "someone-else"}, token)
	assert.Error(t, err)

	expired, _, err := auth.IssueToken(cfg, "user-1", "", now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = auth.ParseToken(cfg, expired)
	assert.Error(t, err)

	_, _, err = auth.IssueToken(auth.TokenConfig{}, "user-1", "", now)
	assert.ErrorIs(t, err, auth.ErrNoSecret)
}
