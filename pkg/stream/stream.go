// Package stream subscribes to the CLOB WebSocket channels.
//
// The market channel carries public book, price change and trade events for
// a set of asset ids; the user channel carries the authenticated user's
// order and trade events for a set of markets. Run keeps the subscription
// alive across disconnects until its context is cancelled:
//
//	s := stream.NewMarket(stream.DefaultConfig(), tokenIDs...)
//	go func() { _ = s.Run(ctx) }()
//	for ev := range s.Events() {
//		fmt.Println(ev.Type, ev.Record["asset_id"])
//	}
package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/polymarket-client/pkg/logging"
	"github.com/Sternrassler/polymarket-client/pkg/signing"
	"github.com/Sternrassler/polymarket-client/pkg/table"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// DefaultURL is the WebSocket endpoint; the channel name is appended.
const DefaultURL = "wss://ws-subscriptions-clob.polymarket.com/ws"

// Channel names a WebSocket channel.
type Channel string

const (
	ChannelMarket Channel = "market"
	ChannelUser   Channel = "user"
)

const (
	pingMessage = "PING"
	pongMessage = "PONG"
)

var (
	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_stream_messages_total",
		Help: "Total events received by channel",
	}, []string{"channel"})

	reconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_stream_reconnects_total",
		Help: "Total reconnects by channel",
	}, []string{"channel"})
)

// Config controls a stream.
type Config struct {
	URL            string
	PingInterval   time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Buffer is the capacity of the events channel.
	Buffer int

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// DefaultConfig returns the production endpoint with a 10s keepalive.
func DefaultConfig() Config {
	return Config{
		URL:            DefaultURL,
		PingInterval:   10 * time.Second,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		Buffer:         256,
	}
}

// Event is one decoded message. Record keeps the payload fields verbatim,
// including event_type.
type Event struct {
	Channel  Channel
	Type     string
	Record   table.Record
	Received time.Time
}

// subscription is the first message sent on every connection.
type subscription struct {
	Auth     *authMessage `json:"auth,omitempty"`
	Markets  []string     `json:"markets,omitempty"`
	AssetIDs []string     `json:"assets_ids,omitempty"`
	Type     Channel      `json:"type"`
}

type authMessage struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Stream is one channel subscription.
type Stream struct {
	cfg     Config
	channel Channel
	sub     subscription
	logger  zerolog.Logger
	events  chan Event

	started atomic.Bool
	writeMu sync.Mutex
}

// ErrStarted is returned by every call to Run after the first.
var ErrStarted = errors.New("stream: already started")

// NewMarket subscribes to public events for the given asset (token) ids.
func NewMarket(cfg Config, assetIDs ...string) *Stream {
	return newStream(cfg, ChannelMarket, subscription{AssetIDs: assetIDs, Type: ChannelMarket})
}

// NewUser subscribes to the user's events in the given markets (condition
// ids). No markets means all of them.
func NewUser(cfg Config, cred signing.APICredential, markets ...string) (*Stream, error) {
	if !cred.Complete() {
		return nil, fmt.Errorf("stream: user channel: %w", signing.ErrMissingCredential)
	}
	return newStream(cfg, ChannelUser, subscription{
		Auth:    &authMessage{APIKey: cred.Key, Secret: cred.Secret, Passphrase: cred.Passphrase},
		Markets: markets,
		Type:    ChannelUser,
	}), nil
}

func newStream(cfg Config, channel Channel, sub subscription) *Stream {
	def := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.Buffer < 0 {
		cfg.Buffer = 0
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}

	return &Stream{
		cfg:     cfg,
		channel: channel,
		sub:     sub,
		logger:  logging.NewLogger("stream").With().Str("channel", string(channel)).Logger(),
		events:  make(chan Event, cfg.Buffer),
	}
}

// Events returns the event channel. It is closed when Run returns.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Endpoint returns the channel URL.
func (s *Stream) Endpoint() string {
	return strings.TrimRight(s.cfg.URL, "/") + "/" + string(s.channel)
}

// Run connects, subscribes and delivers events until ctx is done,
// reconnecting with exponential backoff. It returns ctx.Err(). A Stream
// runs once; create a new one to subscribe again.
func (s *Stream) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrStarted
	}
	defer close(s.events)

	backoff := s.cfg.InitialBackoff
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			reconnectsTotal.WithLabelValues(string(s.channel)).Inc()
		}

		received, err := s.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if received {
			backoff = s.cfg.InitialBackoff
		}

		s.logger.Warn().Err(err).Dur("backoff", backoff).Msg("Stream disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
}

// session runs one connection. received reports whether any event arrived.
func (s *Stream) session(ctx context.Context) (received bool, err error) {
	conn, _, err := s.cfg.Dialer.DialContext(ctx, s.Endpoint(), nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", s.Endpoint(), err)
	}
	defer conn.Close()

	if err := s.write(conn, func(c *websocket.Conn) error { return c.WriteJSON(s.sub) }); err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}
	s.logger.Info().Str("url", s.Endpoint()).Msg("Stream subscribed")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	if s.cfg.PingInterval > 0 {
		go s.keepalive(conn, done)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return received, err
		}

		events, err := s.decode(data)
		if err != nil {
			s.logger.Debug().Err(err).Int("bytes", len(data)).Msg("Skipping undecodable message")
			continue
		}
		for _, ev := range events {
			select {
			case s.events <- ev:
				received = true
				messagesTotal.WithLabelValues(string(s.channel)).Inc()
			case <-ctx.Done():
				return received, ctx.Err()
			}
		}
	}
}

func (s *Stream) keepalive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := s.write(conn, func(c *websocket.Conn) error {
				return c.WriteMessage(websocket.TextMessage, []byte(pingMessage))
			})
			if err != nil {
				s.logger.Debug().Err(err).Msg("Ping failed")
				return
			}
		}
	}
}

func (s *Stream) write(conn *websocket.Conn, fn func(*websocket.Conn) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return fn(conn)
}

// decode turns a text frame into events. Frames are a single object or an
// array of objects; PONG replies yield nothing.
func (s *Stream) decode(data []byte) ([]Event, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == pongMessage {
		return nil, nil
	}

	t, err := table.Decode(data)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	out := make([]Event, 0, t.Len())
	for _, r := range t.Records {
		typ, _ := r["event_type"].(string)
		out = append(out, Event{Channel: s.channel, Type: typ, Record: r, Received: now})
	}
	return out, nil
}
