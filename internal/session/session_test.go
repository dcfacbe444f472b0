package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"finora/internal/config"
	"finora/internal/database"
	applog "finora/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db, err := database.Init(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "session.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.AutoMigrate(db))

	return NewManager(db, Config{
		Secret: "0123456789abcdef0123456789abcdef",
		Issuer: "finora",
		TTL:    time.Hour,
	}, applog.Discard())
}

func TestZeroSessionIsAnonymous(t *testing.T) {
	var s *Session
	assert.False(t, s.Authenticated())
	_, err := s.Require()
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	assert.False(t, (&Session{}).Authenticated())
}

func TestStartResolveEnd(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	s, token, err := m.Start(ctx, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, s.Authenticated())

	resolved, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, resolved.ID)
	assert.Equal(t, "alice", resolved.Username)

	require.NoError(t, m.End(ctx, s.ID))
	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	// ending twice is harmless
	assert.NoError(t, m.End(ctx, s.ID))
}

func TestResolve_Expired(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, token, err := m.Start(ctx, "alice")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestResolve_BadTokens(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.Resolve(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidSession)

	other := NewManager(m.db, Config{Secret: "ffffffffffffffffffffffffffffffff", Issuer: "finora", TTL: time.Hour}, nil)
	_, token, err := other.Start(ctx, "alice")
	require.NoError(t, err)
	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession, "tokens signed with another secret are rejected")
}

func TestSessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	a, tokenA, err := m.Start(ctx, "alice")
	require.NoError(t, err)
	_, tokenB, err := m.Start(ctx, "bob")
	require.NoError(t, err)

	require.NoError(t, m.End(ctx, a.ID))

	_, err = m.Resolve(ctx, tokenA)
	assert.ErrorIs(t, err, ErrInvalidSession)
	b, err := m.Resolve(ctx, tokenB)
	require.NoError(t, err)
	assert.Equal(t, "bob", b.Username)
}
