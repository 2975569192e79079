package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genie/internal/shared"
)

// ProbeFunc reports whether the backend can be reached. A nil error means online.
type ProbeFunc func(ctx context.Context) error

// NetworkSink receives reachability transitions. [Manager] implements it.
type NetworkSink interface {
	SetOnline(online bool) error
}

// TCPProbe checks that a TCP connection to the host of rawURL can be opened within timeout.
//
// ws and http default to port 80, wss and https to 443.
func TCPProbe(rawURL string, timeout time.Duration) (ProbeFunc, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: no host in %q", shared.ErrInvalidConfig, rawURL)
	}

	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "wss", "https":
			port = "443"
		default:
			port = "80"
		}
	}
	addr := net.JoinHostPort(u.Hostname(), port)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}, nil
}

// WatchNetwork probes every interval and reports transitions to sink, starting from online.
//
// It returns when ctx is done or the sink is closed.
func WatchNetwork(ctx context.Context, sink NetworkSink, probe ProbeFunc, interval time.Duration, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	logger = shared.WithLogger(logger, "component", "network")

	online := true
	check := func() error {
		err := probe(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		now := err == nil
		if now == online {
			return nil
		}
		online = now
		if online {
			logger.Info("backend reachable")
		} else {
			logger.Warn("backend unreachable", "err", err)
		}

		return sink.SetOnline(online)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := check(); err != nil {
			if errors.Is(err, shared.ErrManagerClosed) {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
