package mockapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/newthinker/signaldeck/internal/client"
	"github.com/newthinker/signaldeck/internal/core"
	"github.com/newthinker/signaldeck/internal/storage/signal"
)

const streamWriteTimeout = 10 * time.Second

// subscribe registers a stream for Generate notifications.
func (s *Server) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	return ch, func() {
		s.subsMu.Lock()
		delete(s.subs, ch)
		s.subsMu.Unlock()
	}
}

func (s *Server) broadcast() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// handleStream pushes a signal_update every StreamInterval and after every
// Generate.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// The server's read deadline carries over to the hijacked connection.
	conn.SetReadDeadline(time.Time{})

	notify, unsubscribe := s.subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.StreamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-s.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			return
		case <-ticker.C:
		case <-notify:
		}

		event, err := s.updateEvent(r.Context())
		if err != nil {
			s.logger.Debug("building update failed", zap.Error(err))
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(event); err != nil {
			s.logger.Debug("stream write failed", zap.Error(err))
			return
		}
	}
}

func (s *Server) updateEvent(ctx context.Context) (client.StreamEvent, error) {
	count, err := s.signals.Count(ctx, signal.ListFilter{})
	if err != nil {
		return client.StreamEvent{}, err
	}
	var e client.StreamEvent
	e.Type = client.EventSignalUpdate
	e.Data.Count = count
	e.Data.Timestamp = core.Timestamp{Time: s.cfg.Now().UTC()}
	return e, nil
}
