package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/newthinker/signaldeck/internal/core"
	"github.com/newthinker/signaldeck/internal/metrics"
)

// EventSignalUpdate is the only message type the backend pushes.
const EventSignalUpdate = "signal_update"

// StreamEvent is one message from the update stream.
type StreamEvent struct {
	Type string `json:"type"`
	Data struct {
		Count     int            `json:"count"`
		Timestamp core.Timestamp `json:"timestamp"`
	} `json:"data"`
}

// StreamConfig configures the update stream.
type StreamConfig struct {
	URL              string
	HandshakeTimeout time.Duration
	MinBackoff       time.Duration
	MaxBackoff       time.Duration
}

// DefaultStreamConfig returns stream settings for baseURL and path.
func DefaultStreamConfig(baseURL, path string) (StreamConfig, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + path)
	if err != nil {
		return StreamConfig{}, core.WrapError(core.ErrConfigInvalid, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return StreamConfig{}, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unsupported scheme %q", u.Scheme))
	}

	return StreamConfig{
		URL:              u.String(),
		HandshakeTimeout: 10 * time.Second,
		MinBackoff:       time.Second,
		MaxBackoff:       30 * time.Second,
	}, nil
}

// Stream subscribes to the backend's websocket and reports update
// notifications. It reconnects with exponential backoff until its context ends.
type Stream struct {
	cfg     StreamConfig
	logger  *zap.Logger
	metrics *metrics.Registry
}

// NewStream creates a Stream.
func NewStream(cfg StreamConfig, logger *zap.Logger, reg *metrics.Registry) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = cfg.MinBackoff
	}
	return &Stream{cfg: cfg, logger: logger, metrics: reg}
}

// Run dials the stream and calls onUpdate for each signal_update message.
// It blocks until ctx is done.
func (s *Stream) Run(ctx context.Context, onUpdate func(StreamEvent)) error {
	backoff := s.cfg.MinBackoff
	for {
		connected, err := s.session(ctx, onUpdate)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = s.cfg.MinBackoff
		}
		s.logger.Debug("update stream disconnected",
			zap.String("url", s.cfg.URL),
			zap.Duration("retry_in", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, s.cfg.MaxBackoff)
	}
}

// session runs one connection until it fails. connected reports whether the
// handshake succeeded.
func (s *Stream) session(ctx context.Context, onUpdate func(StreamEvent)) (connected bool, err error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: s.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			conn.Close()
		case <-done:
		}
	}()

	s.logger.Info("update stream connected", zap.String("url", s.cfg.URL))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}

		var event StreamEvent
		if err := json.Unmarshal(data, &event); err != nil {
			s.logger.Debug("ignoring malformed stream message", zap.Error(err))
			continue
		}
		if event.Type != EventSignalUpdate {
			continue
		}
		s.metrics.RecordStreamEvent()
		onUpdate(event)
	}
}
