package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/polymarket-client/pkg/signing"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsServer struct {
	*httptest.Server
	mu    sync.Mutex
	subs  []map[string]any
	paths []string
	pings atomic.Int32
	conns atomic.Int32
}

// newWSServer upgrades every request, records the subscription and runs
// serve on the connection.
func newWSServer(t *testing.T, serve func(n int32, conn *websocket.Conn)) *wsServer {
	t.Helper()

	ws := &wsServer{}
	upgrader := websocket.Upgrader{}
	ws.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub map[string]any
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		ws.mu.Lock()
		ws.subs = append(ws.subs, sub)
		ws.paths = append(ws.paths, r.URL.Path)
		ws.mu.Unlock()

		serve(ws.conns.Add(1), conn)
	}))
	t.Cleanup(ws.Close)
	return ws
}

func (ws *wsServer) config() Config {
	return Config{
		URL:            "ws" + strings.TrimPrefix(ws.URL, "http") + "/ws",
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
		Buffer:         16,
	}
}

func collect(t *testing.T, s *Stream, n int) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				t.Fatalf("events closed after %d of %d", len(out), n)
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestMarketStream_DecodesAndReconnects(t *testing.T) {
	ws := newWSServer(t, func(n int32, conn *websocket.Conn) {
		if n == 1 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`[{"event_type":"book","asset_id":"11"},{"event_type":"book","asset_id":"22"}]`))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event_type":"price_change","market":"0xm"}`))
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event_type":"last_trade_price","asset_id":"11"}`))
		_, _, _ = conn.ReadMessage()
	})

	s := NewMarket(ws.config(), "11", "22")
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	events := collect(t, s, 4)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
		assert.Equal(t, ChannelMarket, ev.Channel)
	}
	assert.Equal(t, []string{"book", "book", "price_change", "last_trade_price"}, types)
	assert.Equal(t, "22", events[1].Record["asset_id"])

	ws.mu.Lock()
	defer ws.mu.Unlock()
	require.GreaterOrEqual(t, len(ws.subs), 2)
	assert.Equal(t, "/ws/market", ws.paths[0])
	assert.Equal(t, "market", ws.subs[0]["type"])
	assert.Equal(t, []any{"11", "22"}, ws.subs[1]["assets_ids"])
	assert.NotContains(t, ws.subs[0], "auth")

	_, open := <-s.Events()
	assert.False(t, open, "events should be closed after Run returns")
}

func TestUserStream_SendsAuth(t *testing.T) {
	ws := newWSServer(t, func(n int32, conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event_type":"order","id":"o1"}`))
		_, _, _ = conn.ReadMessage()
	})

	cred := signing.APICredential{Key: "k", Secret: "s", Passphrase: "p"}
	s, err := NewUser(ws.config(), cred, "0xm")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	events := collect(t, s, 1)
	assert.Equal(t, "order", events[0].Type)
	assert.Equal(t, ChannelUser, events[0].Channel)

	ws.mu.Lock()
	defer ws.mu.Unlock()
	assert.Equal(t, "/ws/user", ws.paths[0])
	assert.Equal(t, map[string]any{"apiKey": "k", "secret": "s", "passphrase": "p"}, ws.subs[0]["auth"])
	assert.Equal(t, []any{"0xm"}, ws.subs[0]["markets"])
}

func TestNewUser_IncompleteCredential(t *testing.T) {
	_, err := NewUser(DefaultConfig(), signing.APICredential{Key: "k"})
	assert.ErrorIs(t, err, signing.ErrMissingCredential)
}

func TestStream_Keepalive(t *testing.T) {
	var ws *wsServer
	ws = newWSServer(t, func(n int32, conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == pingMessage {
				ws.pings.Add(1)
				_ = conn.WriteMessage(websocket.TextMessage, []byte(pongMessage))
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event_type":"tick_size_change"}`))
			}
		}
	})

	cfg := ws.config()
	cfg.PingInterval = 10 * time.Millisecond
	s := NewMarket(cfg, "11")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	events := collect(t, s, 2)
	assert.GreaterOrEqual(t, ws.pings.Load(), int32(2))
	for _, ev := range events {
		assert.Equal(t, "tick_size_change", ev.Type)
	}
}

func TestDecode(t *testing.T) {
	s := NewMarket(DefaultConfig())

	events, err := s.decode([]byte(pongMessage))
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = s.decode([]byte(`42`))
	assert.Error(t, err)

	events, err = s.decode([]byte(`{"event_type":"book","bids":[{"price":"0.5"}]}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "book", events[0].Type)
	assert.IsType(t, []any{}, events[0].Record["bids"])
}

func TestSubscriptionJSON(t *testing.T) {
	data, err := json.Marshal(subscription{AssetIDs: []string{"1"}, Type: ChannelMarket})
	require.NoError(t, err)
	assert.Equal(t, `{"assets_ids":["1"],"type":"market"}`, string(data))
}

func TestEndpoint(t *testing.T) {
	s := NewMarket(Config{URL: "wss://example.com/ws/"})
	assert.Equal(t, "wss://example.com/ws/market", s.Endpoint())
}

func TestStream_RunOnce(t *testing.T) {
	s := NewMarket(Config{URL: "ws://127.0.0.1:1/ws"}, "123")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Run(ctx), context.Canceled)

	_, open := <-s.Events()
	assert.False(t, open, "events are closed after Run returns")

	assert.NotPanics(t, func() {
		assert.ErrorIs(t, s.Run(context.Background()), ErrStarted)
	})
}
