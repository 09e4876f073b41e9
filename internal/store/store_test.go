package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestKeyDeterministic(t *testing.T) {
	assert.Equal(t, Key("abc", "en", "plain"), Key("abc", "en", "plain"))
	assert.NotEqual(t, Key("abc", "en", "plain"), Key("abc", "de", "plain"))
}

func TestPutGetRoundtrip(t *testing.T) {
	s := openTestStore(t)

	key := Key("GJLlxj_dtq8", "en", "plain")
	payload := []byte(`{"snippets":[{"text":"hi","start":0,"duration":1.5}]}`)
	require.NoError(t, s.Put(key, "GJLlxj_dtq8", "en", payload))

	got, ok, err := s.Get(key, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload, got)
}

func TestGetMiss(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.Get(Key("unknown"), time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutReplaces(t *testing.T) {
	s := openTestStore(t)

	key := Key("abc", "en", "plain")
	require.NoError(t, s.Put(key, "abc", "en", []byte("v1")))
	require.NoError(t, s.Put(key, "abc", "en", []byte("v2")))

	got, ok, err := s.Get(key, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), got)
}

func TestGetExpired(t *testing.T) {
	s := openTestStore(t)

	key := Key("abc", "en", "plain")
	require.NoError(t, s.Put(key, "abc", "en", []byte("old")))

	// Entry is fresh against a generous TTL, stale against a negative-ish one.
	_, ok, err := s.Get(key, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = s.Get(key, time.Nanosecond)
	require.NoError(t, err)
	assert.False(t, ok)
}
