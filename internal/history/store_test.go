package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/lootsync/internal/config"
)

func sampleRecords() []Record {
	base := time.Date(2025, 5, 31, 17, 20, 0, 0, time.UTC)
	return []Record{
		{Timestamp: base, ItemName: "Flowing Black Silk Sash", Recipient: "Bob"},
		{Timestamp: base.Add(time.Minute), ItemName: "Bone Chips, Polished", Recipient: "Alexr"},
	}
}

// exerciseStore checks append order and round-tripped fields.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	want := sampleRecords()
	for _, r := range want {
		require.NoError(t, s.Append(ctx, r))
	}
	got, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Timestamp.Equal(got[i].Timestamp), "timestamp %d", i)
		assert.Equal(t, want[i].ItemName, got[i].ItemName)
		assert.Equal(t, want[i].Recipient, got[i].Recipient)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loot_history.txt")
	s := NewFileStore(path)
	exerciseStore(t, s)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"2025-05-31T17:20:00Z,Flowing Black Silk Sash,Bob\n"+
			"2025-05-31T17:21:00Z,\"Bone Chips, Polished\",Alexr\n",
		string(raw))
	require.NoError(t, s.Close())
}

func TestFileStoreRejectsCorruptLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.txt")
	require.NoError(t, os.WriteFile(path, []byte("yesterday,Sash,Bob\n"), 0o644))
	_, err := NewFileStore(path).List(context.Background())
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisStore(rdb)
	exerciseStore(t, s)

	items, err := mr.List(keyHistory)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.JSONEq(t, `{"timestamp":"2025-05-31T17:20:00Z","itemName":"Flowing Black Silk Sash","recipient":"Bob"}`, items[0])
	// caller-owned client stays open
	require.NoError(t, s.Close())
	assert.NoError(t, rdb.Ping(context.Background()).Err())
}

func TestRedisStoreFromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStoreFromURL(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	_, err = NewRedisStoreFromURL(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lootsync.db")
	ctx := context.Background()

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, NewRecord(" Sash ", " Bob ")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Sash", got[0].ItemName)
	assert.Equal(t, "Bob", got[0].Recipient)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, &config.AppConfig{HistoryBackend: config.HistoryNone})
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, NewRecord("x", "y")))
	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	s, err = Open(ctx, &config.AppConfig{HistoryBackend: config.HistoryFile, HistoryFile: filepath.Join(t.TempDir(), "h.txt")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(ctx, &config.AppConfig{HistoryBackend: "mongo"})
	assert.True(t, errors.Is(err, ErrUnknownBackend))
}

func TestToDTO(t *testing.T) {
	d := ToDTOs(sampleRecords())
	require.Len(t, d, 2)
	assert.Equal(t, "2025-05-31T17:20:00Z", d[0].Timestamp)
	assert.Equal(t, "Bob", d[0].Recipient)
}
