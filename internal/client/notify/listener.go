// Package notify receives push messages from the backend notification
// socket and dispatches them by type.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/contract"
	"github.com/fitiq/fitiq/internal/logging"
	"github.com/gorilla/websocket"
)

// Handler processes one push message. An error is logged and does not close
// the connection.
type Handler func(ctx context.Context, msg contract.PushMessage) error

type Options struct {
	PingInterval time.Duration
	PongWait     time.Duration
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
	// OnConnect runs after every successful dial.
	OnConnect func(ctx context.Context)
}

const (
	defaultPingInterval = 30 * time.Second
	defaultPongWait     = 60 * time.Second
	defaultMinBackoff   = time.Second
	defaultMaxBackoff   = time.Minute
	writeWait           = 5 * time.Second
)

// Listener keeps a notification socket open until its context ends.
type Listener struct {
	wsURL  string
	token  func() string
	logger logging.Logger
	opts   Options
	dialer *websocket.Dialer

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewListener builds a listener for the backend at baseURL (http or https).
// token is called before each dial so refreshed access tokens are picked up.
func NewListener(baseURL string, token func() string, logger logging.Logger, opts Options) (*Listener, error) {
	u, err := socketURL(baseURL)
	if err != nil {
		return nil, err
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.PongWait <= opts.PingInterval {
		opts.PongWait = 2 * opts.PingInterval
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = defaultMinBackoff
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = max(defaultMaxBackoff, opts.MinBackoff)
	}
	return &Listener{
		wsURL:    u,
		token:    token,
		logger:   logger,
		opts:     opts,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		handlers: make(map[string]Handler),
	}, nil
}

func socketURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path += contract.PathNotification
	return u.String(), nil
}

// Handle registers h for messages of type typ, replacing any previous one.
func (l *Listener) Handle(typ string, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[typ] = h
}

// Run connects and reconnects with exponential backoff until ctx is
// cancelled. It returns nil on cancellation.
func (l *Listener) Run(ctx context.Context) error {
	backoff := l.opts.MinBackoff
	for {
		conn, err := l.dial(ctx)
		if err == nil {
			backoff = l.opts.MinBackoff
			if l.opts.OnConnect != nil {
				l.opts.OnConnect(ctx)
			}
			err = l.serve(ctx, conn)
		}
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warn(ctx, "notification socket disconnected", "error", err, "retry_in", backoff.String())

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		backoff = min(backoff*2, l.opts.MaxBackoff)
	}
}

var errNoToken = errors.New("no access token")

func (l *Listener) dial(ctx context.Context) (*websocket.Conn, error) {
	tok := l.token()
	if tok == "" {
		return nil, errNoToken
	}
	u := l.wsURL + "?token=" + url.QueryEscape(tok)
	hdr := http.Header{}
	hdr.Set(common.AuthorizationHeaderName, common.BearerPrefix+tok)

	conn, resp, err := l.dialer.DialContext(ctx, u, hdr)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial notification socket: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial notification socket: %w", err)
	}
	l.logger.Info(ctx, "notification socket connected")
	return conn, nil
}

// serve reads messages until the connection fails or ctx ends.
func (l *Listener) serve(ctx context.Context, conn *websocket.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(l.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(l.opts.PongWait))
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		l.keepalive(ctx, conn)
	}()

	for {
		var msg contract.PushMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		l.dispatch(ctx, msg)
	}
}

// keepalive pings until ctx ends, then closes conn, which unblocks the reader.
func (l *Listener) keepalive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(l.opts.PingInterval)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, msg contract.PushMessage) {
	l.mu.RLock()
	h, ok := l.handlers[msg.Type]
	l.mu.RUnlock()
	if !ok {
		l.logger.Debug(ctx, "ignoring push message", "type", msg.Type)
		return
	}
	if err := h(ctx, msg); err != nil {
		l.logger.Error(ctx, "push message handler failed", "type", msg.Type, "error", err)
	}
}
