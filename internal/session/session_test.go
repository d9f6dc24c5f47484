package session

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetOutput(io.Discard)
}

func TestTokenStore_SetAndClear(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	s := NewTokenStore(p)

	_, ok := s.Access()
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "acc", "ref"))
	tok, ok := s.Access()
	assert.True(t, ok)
	assert.Equal(t, "acc", tok)
	ref, _ := s.Refresh()
	assert.Equal(t, "ref", ref)

	stored, _ := p.Load(ctx)
	assert.Equal(t, Credential{Access: "acc", Refresh: "ref"}, stored)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx)) // idempotent
	_, ok = s.Access()
	assert.False(t, ok)
	stored, _ = p.Load(ctx)
	assert.False(t, stored.Valid())
}

func TestTokenStore_SetIgnoresIncompletePair(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore(nil)
	require.NoError(t, s.Set(ctx, "a", "r"))

	require.NoError(t, s.Set(ctx, "", "r2"))
	require.NoError(t, s.Set(ctx, "a2", ""))

	tok, _ := s.Access()
	assert.Equal(t, "a", tok)
}

func TestOpen_RestoresPersistedCredential(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	require.NoError(t, p.Save(ctx, Credential{Access: "acc", Refresh: "ref"}))

	sess, err := Open(ctx, p)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.True(t, sess.Authenticated())

	require.NoError(t, sess.Close(ctx))
	assert.False(t, sess.Authenticated())
	stored, _ := p.Load(ctx)
	assert.Equal(t, Credential{}, stored)
}

func TestOpen_DiscardsHalfPair(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersister()
	p.vals[KeyAccess] = "orphan"

	sess, err := Open(ctx, p)
	require.NoError(t, err)
	assert.False(t, sess.Authenticated())
	stored, _ := p.Load(ctx)
	assert.Empty(t, stored.Access)
}

func TestSQLitePersister_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.db")

	p, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, p.Save(ctx, Credential{Access: "a1", Refresh: "r1"}))
	require.NoError(t, p.Save(ctx, Credential{Access: "a2", Refresh: "r2"}))
	require.NoError(t, p.Close())

	// reopen: survives a restart
	p, err = OpenSQLite(path)
	require.NoError(t, err)
	defer p.Close()

	c, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Credential{Access: "a2", Refresh: "r2"}, c)

	require.NoError(t, p.Clear(ctx))
	c, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Credential{}, c)
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestRedisPersister_RoundTrip(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()
	ctx := context.Background()

	p := NewRedisPersister(client, "test:sess")
	c, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Credential{}, c)

	require.NoError(t, p.Save(ctx, Credential{Access: "acc", Refresh: "ref"}))
	got, err := mr.Get("test:sess:access")
	require.NoError(t, err)
	assert.Equal(t, "acc", got)

	c, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Credential{Access: "acc", Refresh: "ref"}, c)

	require.NoError(t, p.Clear(ctx))
	assert.False(t, mr.Exists("test:sess:access"))
	assert.False(t, mr.Exists("test:sess:refresh"))
}
