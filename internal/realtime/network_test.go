package realtime

import (
	"context"
	"errors"
	"net"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/genie/internal/shared"
	tu "github.com/desertthunder/genie/internal/testing"
)

type recordingSink struct {
	mu    sync.Mutex
	calls []bool
	err   error
}

func (s *recordingSink) SetOnline(online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, online)
	return s.err
}

func (s *recordingSink) seen() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.calls...)
}

// scriptedProbe returns each result in turn, then repeats the last one.
func scriptedProbe(results ...error) ProbeFunc {
	var mu sync.Mutex
	i := 0
	return func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		err := results[i]
		if i < len(results)-1 {
			i++
		}
		return err
	}
}

type switchProbe struct {
	mu  sync.Mutex
	err error
}

func (p *switchProbe) set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *switchProbe) probe(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// forwardingSink records transitions before handing them to next.
type forwardingSink struct {
	recordingSink
	next NetworkSink
}

func (s *forwardingSink) SetOnline(online bool) error {
	s.recordingSink.SetOnline(online)
	return s.next.SetOnline(online)
}

func TestTCPProbe(t *testing.T) {
	t.Run("reachable host", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		defer ln.Close()

		probe, err := TCPProbe("ws://"+ln.Addr().String()+"/api/v1/ws", time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := probe(context.Background()); err != nil {
			t.Errorf("expected reachable, got %v", err)
		}
	})

	t.Run("unreachable host", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addr := ln.Addr().String()
		ln.Close()

		probe, err := TCPProbe("ws://"+addr, time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := probe(context.Background()); err == nil {
			t.Error("expected probe to fail for a closed port")
		}
	})

	t.Run("no host", func(t *testing.T) {
		if _, err := TCPProbe("/api/v1/ws", time.Second); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestWatchNetwork(t *testing.T) {
	t.Run("reports transitions only", func(t *testing.T) {
		sink := &recordingSink{}
		down := errors.New("connection refused")
		probe := scriptedProbe(nil, down, down, nil, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- WatchNetwork(ctx, sink, probe, 5*time.Millisecond, nil) }()

		tu.Eventually(t, func() bool { return len(sink.seen()) == 2 }, "two transitions")
		time.Sleep(30 * time.Millisecond)
		cancel()

		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if got := sink.seen(); !slices.Equal(got, []bool{false, true}) {
			t.Errorf("expected [false true], got %v", got)
		}
	})

	t.Run("stops when the manager is closed", func(t *testing.T) {
		sink := &recordingSink{err: shared.ErrManagerClosed}
		probe := scriptedProbe(errors.New("down"))

		done := make(chan error, 1)
		go func() { done <- WatchNetwork(context.Background(), sink, probe, 5*time.Millisecond, nil) }()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("expected nil, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("WatchNetwork did not return")
		}
	})

	t.Run("offline then online re-arms the manager", func(t *testing.T) {
		h := newHarness(t)
		h.dialer.setFailAll(errors.New("connection refused"))
		h.activate(t)
		h.waitScheduled(t, 1)

		probe := &switchProbe{err: errors.New("unreachable")}
		sink := &forwardingSink{next: h.m}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go WatchNetwork(ctx, sink, probe.probe, 5*time.Millisecond, nil)

		tu.Eventually(t, func() bool { return slices.Equal(sink.seen(), []bool{false}) }, "offline reported")
		h.clock.fire()
		time.Sleep(20 * time.Millisecond)
		if h.dialer.calls() != 1 {
			t.Errorf("expected retry to be skipped offline, got %d dials", h.dialer.calls())
		}

		h.dialer.setFailAll(nil)
		probe.set(nil)
		h.waitState(t, Connected)
		if h.m.Attempts() != 0 {
			t.Errorf("expected attempts reset, got %d", h.m.Attempts())
		}
	})
}
