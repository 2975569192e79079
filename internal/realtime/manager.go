package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genie/internal/shared"
	"github.com/gorilla/websocket"
)

// DefaultHandshakeTimeout bounds the opening handshake.
const DefaultHandshakeTimeout = 10 * time.Second

const commandBuffer = 64

// TokenProvider supplies the principal id and a bearer token for the handshake.
type TokenProvider interface {
	PrincipalID() string
	AccessToken(ctx context.Context) (string, error)
}

// Options configures a [Manager].
type Options struct {
	// URL is the channel base address; the principal id and token are appended by [ChannelURL].
	URL              string
	Dialer           Dialer
	Backoff          BackoffPolicy
	HandshakeTimeout time.Duration
	Handler          EventHandler
	Logger           *log.Logger
}

// afterFunc schedules fn after d and returns a function that cancels it.
type afterFunc func(d time.Duration, fn func()) (stop func() bool)

func timerAfter(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// Manager owns the push channel for the signed-in session.
type Manager struct {
	url              string
	dialer           Dialer
	backoff          BackoffPolicy
	handshakeTimeout time.Duration
	handler          EventHandler
	logger           *log.Logger
	after            afterFunc
	// handshakeAfter bounds each handshake independently of the collaborators honoring ctx.
	handshakeAfter afterFunc

	cmds      chan func()
	done      chan struct{}
	closeOnce sync.Once
	running   atomic.Bool

	// Owned by the loop goroutine.
	runCtx     context.Context
	inputs     Inputs
	tokens     TokenProvider
	state      State
	conn       Conn
	gen        uint64
	dialing    bool
	dialGen    uint64
	dialCancel context.CancelFunc
	dialStop   func() bool
	armed      bool
	attempts   int
	exhausted  bool
	rejected   bool
	retryStop  func() bool
	retryGen   uint64

	mu        sync.RWMutex
	snapState State
	snapTries int
	lastEvent *Event
	subs      map[int]chan Update
	nextSub   int
}

// NewManager creates a manager. The network is assumed online and the terminal focused until told otherwise.
func NewManager(opts Options) *Manager {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.Backoff.MaxAttempts <= 0 || opts.Backoff.Base <= 0 {
		opts.Backoff = DefaultBackoff()
	}
	if opts.Dialer == nil {
		opts.Dialer = NewWSDialer(opts.HandshakeTimeout)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Manager{
		url:              opts.URL,
		dialer:           opts.Dialer,
		backoff:          opts.Backoff,
		handshakeTimeout: opts.HandshakeTimeout,
		handler:          opts.Handler,
		logger:           shared.WithLogger(logger, "component", "realtime"),
		after:            timerAfter,
		handshakeAfter:   timerAfter,
		cmds:             make(chan func(), commandBuffer),
		done:             make(chan struct{}),
		inputs:           Inputs{Online: true, Focused: true},
		subs:             make(map[int]chan Update),
	}
}

// Run processes commands until ctx is done or [Manager.Close] is called. It must be called exactly once;
// methods called before it starts block until it does.
func (m *Manager) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return fmt.Errorf("realtime manager already running")
	}
	m.runCtx = ctx

	defer func() {
		m.closeOnce.Do(func() { close(m.done) })
		m.shutdown()
	}()

	for {
		select {
		case fn := <-m.cmds:
			fn()
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return nil
		}
	}
}

// Close stops the loop, closing any live transport and cancelling any pending retry.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

// post queues fn for the loop without waiting. It reports false once the manager is closed.
func (m *Manager) post(fn func()) bool {
	select {
	case <-m.done:
		return false
	default:
	}
	select {
	case m.cmds <- fn:
		return true
	case <-m.done:
		return false
	}
}

// do runs fn on the loop and waits for it to finish.
func (m *Manager) do(fn func()) error {
	ran := make(chan struct{})
	if !m.post(func() { fn(); close(ran) }) {
		return shared.ErrManagerClosed
	}
	select {
	case <-ran:
		return nil
	case <-m.done:
		return shared.ErrManagerClosed
	}
}

// SignIn attaches a session. It starts a fresh episode and clears any auth rejection.
func (m *Manager) SignIn(tp TokenProvider) error {
	return m.do(func() {
		if m.tokens != nil {
			m.teardown("session replaced")
		}
		m.tokens = tp
		m.inputs.Authenticated = tp != nil
		m.rejected = false
		m.rearm("sign-in")
		m.reconcile()
	})
}

// SignOut closes the transport and cancels retries unconditionally.
func (m *Manager) SignOut() error {
	return m.do(func() {
		m.tokens = nil
		m.inputs.Authenticated = false
		m.rejected = false
		m.armed = false
		m.attempts = 0
		m.exhausted = false
		m.publishAttempts()
		m.teardown("sign-out")
	})
}

// SetViewActive records whether the realtime-requiring view is shown. Returning to it re-arms the channel.
func (m *Manager) SetViewActive(active bool) error {
	return m.do(func() {
		prev := m.inputs.ViewActive
		m.inputs.ViewActive = active
		if !prev && active {
			m.rearm("view active")
		}
		m.reconcile()
	})
}

// SetOnline records network reachability. An offline to online transition re-arms the channel.
func (m *Manager) SetOnline(online bool) error {
	return m.do(func() {
		prev := m.inputs.Online
		m.inputs.Online = online
		if !prev && online {
			m.rearm("network online")
		}
		m.reconcile()
	})
}

// SetFocused records terminal focus. Retries are only scheduled while focused.
func (m *Manager) SetFocused(focused bool) error {
	return m.do(func() {
		prev := m.inputs.Focused
		m.inputs.Focused = focused
		if prev || !focused {
			return
		}
		if m.state == Disconnected && !m.dialing && m.retryStop == nil && !m.armed && !m.rejected && !m.exhausted {
			m.scheduleRetry()
			return
		}
		m.reconcile()
	})
}

// Connect requests a connection now. It is a no-op when a handshake is in flight, the channel is
// connected, or the realtime view is not active. A pending retry is replaced by an immediate attempt.
func (m *Manager) Connect() error {
	var err error
	doErr := m.do(func() {
		switch {
		case m.tokens == nil:
			err = shared.ErrNotAuthenticated
			return
		case m.rejected:
			err = fmt.Errorf("%w: sign in again", shared.ErrUnauthorized)
			return
		case m.state != Disconnected || m.dialing:
			return
		}
		m.cancelRetry()
		m.rearm("connect requested")
		m.reconcile()
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// Send writes v as JSON while connected. Nothing is queued: any other state returns [shared.ErrNotConnected].
func (m *Manager) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	var sendErr error
	doErr := m.do(func() {
		if m.state != Connected || m.conn == nil {
			m.logger.Warn("send while not connected", "state", m.state)
			sendErr = shared.ErrNotConnected
			return
		}
		if err := m.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			m.logger.Warn("send failed", "err", err)
			sendErr = fmt.Errorf("%w: %v", shared.ErrNotConnected, err)
		}
	})
	if doErr != nil {
		return doErr
	}
	return sendErr
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapState
}

// Attempts returns the number of retries scheduled in the current episode.
func (m *Manager) Attempts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapTries
}

// LastEvent returns the most recently decoded event, if any.
func (m *Manager) LastEvent() (Event, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastEvent == nil {
		return Event{}, false
	}
	return *m.lastEvent, true
}

// Subscribe returns a channel of state changes and events. Slow subscribers miss updates rather than block the loop.
func (m *Manager) Subscribe(buf int) (<-chan Update, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Update, buf)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (m *Manager) broadcast(u Update) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

func (m *Manager) setState(s State) {
	if m.state == s {
		return
	}
	prev := m.state
	m.state = s

	m.mu.Lock()
	m.snapState = s
	m.mu.Unlock()

	m.logger.Info("state changed", "from", prev, "to", s)
	m.broadcast(Update{State: s})
}

func (m *Manager) publishAttempts() {
	m.mu.Lock()
	m.snapTries = m.attempts
	m.mu.Unlock()
}

// rearm starts a fresh episode.
func (m *Manager) rearm(reason string) {
	if m.exhausted || m.attempts > 0 {
		m.logger.Debug("retry budget reset", "reason", reason)
	}
	m.armed = true
	m.attempts = 0
	m.exhausted = false
	m.publishAttempts()
}

// reconcile diffs the desired and actual state and acts once.
func (m *Manager) reconcile() {
	if NeedsTeardown(m.inputs) || m.tokens == nil {
		m.teardown("not required")
		return
	}
	if !DesiredState(m.inputs) {
		return
	}
	if !m.armed || m.rejected || m.state != Disconnected || m.dialing || m.retryStop != nil {
		return
	}
	m.armed = false
	m.startDial()
}

// teardown closes the transport, abandons any in-flight handshake and cancels the pending retry.
func (m *Manager) teardown(reason string) {
	m.cancelRetry()

	if m.dialing && m.dialCancel != nil {
		m.dialCancel()
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
		m.logger.Info("channel closed", "reason", reason)
	}
	m.gen++
	m.setState(Disconnected)
}

func (m *Manager) cancelRetry() {
	if m.retryStop == nil {
		return
	}
	m.retryStop()
	m.retryStop = nil
	m.retryGen++
}

func (m *Manager) startDial() {
	m.gen++
	gen := m.gen
	tokens := m.tokens

	ctx, cancel := context.WithTimeout(m.runCtx, m.handshakeTimeout)
	m.dialing = true
	m.dialGen = gen
	m.dialCancel = cancel
	m.dialStop = m.handshakeAfter(m.handshakeTimeout, func() {
		m.post(func() { m.onHandshakeTimeout(gen) })
	})
	m.setState(Connecting)

	go func() {
		defer cancel()
		conn, err := m.handshake(ctx, tokens)

		delivered := make(chan struct{})
		if m.post(func() { close(delivered); m.onDialResult(gen, conn, err) }) {
			select {
			case <-delivered:
				return
			case <-m.done:
			}
		}
		if conn != nil {
			conn.Close()
		}
	}()
}

// handshake obtains a token and dials. A token failure counts as a handshake failure.
func (m *Manager) handshake(ctx context.Context, tokens TokenProvider) (Conn, error) {
	token, err := tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("token unavailable: %w", err)
	}
	return m.dialer.Dial(ctx, ChannelURL(m.url, tokens.PrincipalID(), token))
}

func (m *Manager) onDialResult(gen uint64, conn Conn, err error) {
	if !m.dialing || gen != m.dialGen {
		if conn != nil {
			conn.Close()
		}
		m.logger.Debug("discarded abandoned handshake result")
		return
	}
	m.releaseDial()

	if gen != m.gen {
		if conn != nil {
			conn.Close()
		}
		m.logger.Debug("discarded stale handshake result")
		m.reconcile()
		return
	}

	if err != nil {
		m.logger.Warn("handshake failed", "err", err)
		m.onDisconnected(err)
		return
	}

	m.conn = conn
	m.attempts = 0
	m.exhausted = false
	m.publishAttempts()
	m.setState(Connected)

	go m.readLoop(gen, conn)
}

// onHandshakeTimeout abandons a handshake that outlived the timeout. Its late result is closed on arrival.
func (m *Manager) onHandshakeTimeout(gen uint64) {
	if !m.dialing || gen != m.dialGen {
		return
	}
	m.dialCancel()
	m.releaseDial()

	if gen != m.gen {
		m.reconcile()
		return
	}
	m.logger.Warn("handshake timed out", "timeout", m.handshakeTimeout)
	m.onDisconnected(fmt.Errorf("%w: handshake after %s", shared.ErrTimeout, m.handshakeTimeout))
}

func (m *Manager) releaseDial() {
	if m.dialStop != nil {
		m.dialStop()
	}
	m.dialing = false
	m.dialCancel = nil
	m.dialStop = nil
}

func (m *Manager) readLoop(gen uint64, conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.post(func() { m.onTransportClosed(gen, err) })
			return
		}
		if !m.post(func() { m.onMessage(gen, data) }) {
			return
		}
	}
}

func (m *Manager) onTransportClosed(gen uint64, err error) {
	if gen != m.gen || m.conn == nil {
		return
	}
	m.conn.Close()
	m.conn = nil
	m.logger.Warn("transport closed", "err", err)
	m.onDisconnected(err)
}

func (m *Manager) onDisconnected(cause error) {
	m.setState(Disconnected)

	if isAuthRejection(cause) {
		m.rejected = true
		m.logger.Error("channel rejected credentials; waiting for sign-in", "err", cause)
		return
	}
	m.scheduleRetry()
}

// scheduleRetry arms the single retry timer when focused, desired and within budget.
func (m *Manager) scheduleRetry() {
	if m.retryStop != nil {
		return
	}
	if m.tokens == nil || !DesiredState(m.inputs) {
		m.logger.Debug("retry not scheduled", "inputs", fmt.Sprintf("%+v", m.inputs))
		return
	}
	if !m.inputs.Focused {
		m.logger.Debug("retry deferred until focused")
		return
	}
	if m.backoff.Exhausted(m.attempts) {
		if !m.exhausted {
			m.exhausted = true
			m.logger.Warn("max reconnection attempts reached", "attempts", m.attempts)
		}
		return
	}

	m.attempts++
	m.publishAttempts()
	delay := m.backoff.Delay(m.attempts)

	m.retryGen++
	retryGen := m.retryGen
	m.retryStop = m.after(delay, func() {
		m.post(func() { m.fireRetry(retryGen) })
	})
	m.logger.Info("reconnecting", "delay", delay, "attempt", m.attempts, "max_attempts", m.backoff.MaxAttempts)
}

// fireRetry re-checks authentication and reachability before dialing.
func (m *Manager) fireRetry(retryGen uint64) {
	if retryGen != m.retryGen || m.retryStop == nil {
		return
	}
	m.retryStop = nil

	if m.tokens == nil || !DesiredState(m.inputs) {
		m.logger.Debug("retry skipped", "inputs", fmt.Sprintf("%+v", m.inputs))
		return
	}
	if m.rejected || m.state != Disconnected || m.dialing {
		return
	}
	m.startDial()
}

func (m *Manager) onMessage(gen uint64, data []byte) {
	if gen != m.gen {
		return
	}

	ev, err := ParseEvent(data)
	if err != nil {
		m.logger.Warn("dropped message", "err", err, "bytes", len(data))
		return
	}

	m.mu.Lock()
	m.lastEvent = &ev
	m.mu.Unlock()

	m.logger.Debug("event received", "type", ev.Type, "meal_plan_id", ev.PlanID())
	m.broadcast(Update{State: m.state, Event: &ev})

	if ev.IsJobEvent() && m.handler != nil {
		m.handler.ApplyEvent(ev)
	}
}

func (m *Manager) shutdown() {
	m.teardown("shutdown")
	if m.dialing {
		m.releaseDial()
	}
	m.tokens = nil

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
}
