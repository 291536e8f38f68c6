package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/signaldeck/internal/core"
	"github.com/newthinker/signaldeck/internal/metrics"
)

func TestDefaultStreamConfig(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8000", "ws://localhost:8000/ws"},
		{"https://api.example.com/", "wss://api.example.com/ws"},
		{"ws://localhost:8000", "ws://localhost:8000/ws"},
	}
	for _, tt := range tests {
		cfg, err := DefaultStreamConfig(tt.base, DefaultStreamPath)
		require.NoError(t, err)
		assert.Equal(t, tt.want, cfg.URL)
	}

	_, err := DefaultStreamConfig("ftp://localhost", DefaultStreamPath)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestStream_DeliversUpdates(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"signal_update","data":{"count":12,"timestamp":"2024-05-01T10:00:00+00:00"}}`))
		// Hold the connection until the client goes away.
		conn.ReadMessage()
	}))
	defer srv.Close()

	cfg, err := DefaultStreamConfig(srv.URL, DefaultStreamPath)
	require.NoError(t, err)
	reg := metrics.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan StreamEvent, 1)
	done := make(chan error, 1)
	go func() {
		done <- NewStream(cfg, nil, reg).Run(ctx, func(e StreamEvent) { events <- e })
	}()

	select {
	case e := <-events:
		assert.Equal(t, EventSignalUpdate, e.Type)
		assert.Equal(t, 12, e.Data.Count)
	case <-time.After(5 * time.Second):
		t.Fatal("no update delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop")
	}
}

func TestStream_Reconnects(t *testing.T) {
	upgrader := websocket.Upgrader{}
	connections := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		select {
		case connections <- struct{}{}:
		default:
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"signal_update","data":{"count":1}}`))
		conn.Close()
	}))
	defer srv.Close()

	cfg, err := DefaultStreamConfig(srv.URL, DefaultStreamPath)
	require.NoError(t, err)
	cfg.MinBackoff = 10 * time.Millisecond
	cfg.MaxBackoff = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewStream(cfg, nil, nil).Run(ctx, func(StreamEvent) {})

	for i := 0; i < 2; i++ {
		select {
		case <-connections:
		case <-time.After(5 * time.Second):
			t.Fatalf("connection %d not established", i+1)
		}
	}
}
