// Package prefs persists the dashboard's watchlist and theme choice.
package prefs

import (
	"context"
	"encoding/json"
	"strconv"

	"go.uber.org/zap"

	"github.com/newthinker/signaldeck/internal/core"
	"github.com/newthinker/signaldeck/internal/storage/kv"
)

// Storage keys.
const (
	KeyWatchlist = "watchlist"
	KeyDarkMode  = "darkMode"
)

// Store loads and saves preferences. All failures are swallowed: a broken
// backend degrades to defaults and unsaved changes, never to an error.
type Store struct {
	storage     kv.Storage
	defaultDark func() bool
	logger      *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithDefaultDark sets the ambient dark-mode preference used when none is stored.
func WithDefaultDark(fn func() bool) Option {
	return func(s *Store) {
		if fn != nil {
			s.defaultDark = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Store over storage.
func New(storage kv.Storage, opts ...Option) *Store {
	s := &Store{
		storage:     storage,
		defaultDark: func() bool { return false },
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads both preferences, substituting defaults for anything missing,
// corrupt or unreadable.
func (s *Store) Load(ctx context.Context) core.Preferences {
	return core.Preferences{
		Watchlist: s.loadWatchlist(ctx),
		DarkMode:  s.loadDarkMode(ctx),
	}
}

func (s *Store) loadWatchlist(ctx context.Context) core.Watchlist {
	data, err := s.storage.Read(ctx, KeyWatchlist)
	if err != nil {
		s.logger.Debug("watchlist not loaded", zap.Error(err))
		return core.NewWatchlist()
	}

	var symbols []string
	if err := json.Unmarshal(data, &symbols); err != nil {
		s.logger.Debug("ignoring corrupt watchlist", zap.Error(err))
		return core.NewWatchlist()
	}
	return core.NewWatchlist(symbols...)
}

func (s *Store) loadDarkMode(ctx context.Context) bool {
	data, err := s.storage.Read(ctx, KeyDarkMode)
	if err != nil {
		s.logger.Debug("dark mode not loaded", zap.Error(err))
		return s.defaultDark()
	}

	switch string(data) {
	case "true":
		return true
	case "false":
		return false
	default:
		s.logger.Debug("ignoring corrupt dark mode value", zap.ByteString("value", data))
		return s.defaultDark()
	}
}

// SaveWatchlist writes the watchlist as a sorted JSON array.
func (s *Store) SaveWatchlist(ctx context.Context, w core.Watchlist) {
	symbols := w.Symbols()
	if symbols == nil {
		symbols = []string{}
	}
	data, err := json.Marshal(symbols)
	if err != nil {
		s.logger.Debug("encoding watchlist", zap.Error(err))
		return
	}
	if err := s.storage.Write(ctx, KeyWatchlist, data); err != nil {
		s.logger.Debug("saving watchlist", zap.Error(err))
	}
}

// SaveDarkMode writes the theme choice as "true" or "false".
func (s *Store) SaveDarkMode(ctx context.Context, dark bool) {
	if err := s.storage.Write(ctx, KeyDarkMode, []byte(strconv.FormatBool(dark))); err != nil {
		s.logger.Debug("saving dark mode", zap.Error(err))
	}
}
