package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/genie/internal/shared"
	"github.com/gorilla/websocket"
)

// Conn is an established message transport.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a [Conn]. The context bounds the handshake.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DialerFunc adapts a function to [Dialer].
type DialerFunc func(ctx context.Context, url string) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, url string) (Conn, error) { return f(ctx, url) }

// WSDialer dials WebSocket endpoints with gorilla/websocket.
type WSDialer struct {
	dialer *websocket.Dialer
	header http.Header
}

// NewWSDialer creates a dialer whose opening handshake is bounded by handshakeTimeout.
func NewWSDialer(handshakeTimeout time.Duration) *WSDialer {
	d := *websocket.DefaultDialer
	d.HandshakeTimeout = handshakeTimeout
	return &WSDialer{dialer: &d, header: http.Header{}}
}

func (d *WSDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	header := d.header.Clone()
	header.Set("X-Request-ID", shared.GenerateID())

	conn, resp, err := d.dialer.DialContext(ctx, rawURL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		switch {
		case resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden):
			return nil, fmt.Errorf("%w: status %d", shared.ErrUnauthorized, resp.StatusCode)
		case errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%w: handshake: %v", shared.ErrTimeout, err)
		default:
			return nil, fmt.Errorf("handshake failed: %w", err)
		}
	}
	return conn, nil
}

// ChannelURL addresses the principal's channel, e.g. ws://host/api/v1/ws/{principal}?token=...
func ChannelURL(base, principalID, token string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(principalID) + "?token=" + url.QueryEscape(token)
}

// isAuthRejection reports whether err means no usable credentials exist until the next sign-in:
// the backend refused them, or the session can no longer refresh.
func isAuthRejection(err error) bool {
	return errors.Is(err, shared.ErrUnauthorized) ||
		errors.Is(err, shared.ErrRefreshFailed) ||
		errors.Is(err, shared.ErrNotAuthenticated) ||
		websocket.IsCloseError(err, websocket.ClosePolicyViolation)
}
