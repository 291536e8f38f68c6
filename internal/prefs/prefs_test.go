package prefs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/signaldeck/internal/core"
	"github.com/newthinker/signaldeck/internal/storage/kv"
)

// brokenStorage fails every operation.
type brokenStorage struct{}

func (brokenStorage) Read(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}
func (brokenStorage) Write(context.Context, string, []byte) error { return errors.New("disk on fire") }
func (brokenStorage) Delete(context.Context, string) error        { return errors.New("disk on fire") }
func (brokenStorage) Exists(context.Context, string) (bool, error) {
	return false, errors.New("disk on fire")
}

func TestLoad_Defaults(t *testing.T) {
	ctx := context.Background()

	p := New(kv.NewMemory()).Load(ctx)
	assert.Empty(t, p.Watchlist)
	assert.False(t, p.DarkMode)

	p = New(kv.NewMemory(), WithDefaultDark(func() bool { return true })).Load(ctx)
	assert.True(t, p.DarkMode, "ambient preference applies when nothing is stored")
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := kv.NewMemory()
	store := New(storage, WithDefaultDark(func() bool { return true }))

	store.SaveWatchlist(ctx, core.NewWatchlist("THYAO", "BTC/USDT"))
	store.SaveDarkMode(ctx, false)

	raw, err := storage.Read(ctx, KeyWatchlist)
	require.NoError(t, err)
	assert.Equal(t, `["BTC/USDT","THYAO"]`, string(raw))

	raw, err = storage.Read(ctx, KeyDarkMode)
	require.NoError(t, err)
	assert.Equal(t, "false", string(raw))

	p := store.Load(ctx)
	assert.True(t, p.Watchlist.Equal(core.NewWatchlist("BTC/USDT", "THYAO")))
	assert.False(t, p.DarkMode, "stored value wins over the ambient default")
}

func TestSaveWatchlist_Empty(t *testing.T) {
	ctx := context.Background()
	storage := kv.NewMemory()

	New(storage).SaveWatchlist(ctx, core.NewWatchlist())

	raw, err := storage.Read(ctx, KeyWatchlist)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(raw))
}

func TestLoad_CorruptValues(t *testing.T) {
	ctx := context.Background()
	storage := kv.NewMemory()
	require.NoError(t, storage.Write(ctx, KeyWatchlist, []byte(`{not json`)))
	require.NoError(t, storage.Write(ctx, KeyDarkMode, []byte(`maybe`)))

	p := New(storage, WithDefaultDark(func() bool { return true })).Load(ctx)
	assert.Empty(t, p.Watchlist)
	assert.True(t, p.DarkMode)
}

func TestBrokenStorage_IsSwallowed(t *testing.T) {
	ctx := context.Background()
	store := New(brokenStorage{})

	assert.NotPanics(t, func() {
		store.SaveWatchlist(ctx, core.NewWatchlist("ETH/USDT"))
		store.SaveDarkMode(ctx, true)
	})

	p := store.Load(ctx)
	assert.Empty(t, p.Watchlist)
	assert.False(t, p.DarkMode)
}

func TestRoundTrip_LocalFS(t *testing.T) {
	ctx := context.Background()
	storage, err := kv.NewLocalFS(t.TempDir())
	require.NoError(t, err)

	New(storage).SaveWatchlist(ctx, core.NewWatchlist("AAPL"))
	New(storage).SaveDarkMode(ctx, true)

	p := New(storage).Load(ctx)
	assert.True(t, p.Watchlist.Has("AAPL"))
	assert.True(t, p.DarkMode)
}
