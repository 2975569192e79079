// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/genie/internal/models"
)

// textMessage mirrors websocket.TextMessage.
const textMessage = 1

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// StaticTokens is a token provider double with a fixed principal and token.
//
// Setting Err makes AccessToken fail, e.g. to simulate a rejected refresh.
type StaticTokens struct {
	Principal string
	Token     string

	mu    sync.Mutex
	Err   error
	calls int
}

func NewStaticTokens(principal, token string) *StaticTokens {
	return &StaticTokens{Principal: principal, Token: token}
}

func (s *StaticTokens) PrincipalID() string { return s.Principal }

func (s *StaticTokens) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.Err != nil {
		return "", s.Err
	}
	return s.Token, nil
}

// SetErr changes the error returned by subsequent AccessToken calls.
func (s *StaticTokens) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}

// Calls returns how many times AccessToken was invoked.
func (s *StaticTokens) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// FakeConn is an in-memory message transport. ReadMessage blocks until a message is pushed,
// the connection fails, or it is closed.
type FakeConn struct {
	URL string

	incoming chan []byte
	failed   chan error
	closed   chan struct{}

	mu      sync.Mutex
	written [][]byte
	once    sync.Once
	onClose func()
}

func NewFakeConn(url string) *FakeConn {
	return &FakeConn{
		URL:      url,
		incoming: make(chan []byte, 16),
		failed:   make(chan error, 1),
		closed:   make(chan struct{}),
	}
}

// OnClose registers fn to run once when the connection is closed.
func (c *FakeConn) OnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = fn
}

// Push queues an inbound text message.
func (c *FakeConn) Push(data []byte) {
	select {
	case c.incoming <- data:
	case <-c.closed:
	}
}

// Fail makes the pending or next ReadMessage return err, simulating a dropped transport.
func (c *FakeConn) Fail(err error) {
	select {
	case c.failed <- err:
	default:
	}
}

func (c *FakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-c.incoming:
		return textMessage, data, nil
	case err := <-c.failed:
		return 0, nil, err
	case <-c.closed:
		return 0, nil, io.EOF
	}
}

func (c *FakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-c.closed:
		return errors.New("write on closed connection")
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

func (c *FakeConn) Close() error {
	c.once.Do(func() {
		close(c.closed)
		c.mu.Lock()
		fn := c.onClose
		c.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
	return nil
}

// Closed reports whether Close has been called.
func (c *FakeConn) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Written returns a copy of every message written so far.
func (c *FakeConn) Written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.written))
	copy(out, c.written)
	return out
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// Eventually polls cond until it returns true or the attempt budget runs out.
func Eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	for range 400 {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

// CompletedPlan returns a two-day completed plan with three meals.
func CompletedPlan(id string) models.MealPlan {
	return models.MealPlan{
		ID:           id,
		UserID:       "user-1",
		StartDate:    "2025-03-01",
		EndDate:      "2025-03-02",
		MealType:     []string{"breakfast", "dinner"},
		CuisineTypes: []string{"mediterranean"},
		Status:       models.StatusCompleted,
		CreatedAt:    "2025-03-01T08:00:00",
		CompletedAt:  "2025-03-01T08:01:30",
		Plan: &models.MealPlanContent{Days: []models.MealDay{
			{Day: 1, Meals: []models.MealItem{
				{
					Type:            "breakfast",
					Name:            "Greek Yogurt Bowl",
					Ingredients:     []string{"yogurt", "honey", "walnuts"},
					Recipe:          "Combine and serve.",
					NutritionalInfo: models.NutritionalInfo{Calories: 320, Protein: 18, Carbs: 30, Fat: 14},
				},
				{
					Type:            "dinner",
					Name:            "Lemon Chicken",
					Ingredients:     []string{"chicken", "lemon"},
					NutritionalInfo: models.NutritionalInfo{Calories: 540.5, Protein: 45, Carbs: 12, Fat: 22},
				},
			}},
			{Day: 2, Meals: []models.MealItem{
				{
					Type:            "breakfast",
					Name:            "Shakshuka",
					Ingredients:     []string{"eggs", "tomato"},
					NutritionalInfo: models.NutritionalInfo{Calories: 410, Protein: 21, Carbs: 18, Fat: 25},
				},
			}},
		}},
	}
}

// PendingPlan returns a freshly submitted plan.
func PendingPlan(id string) models.MealPlan {
	return models.MealPlan{
		ID:        id,
		UserID:    "user-1",
		StartDate: "2025-03-01",
		EndDate:   "2025-03-02",
		MealType:  []string{"fullDay"},
		Status:    models.StatusPending,
		CreatedAt: "2025-03-01T08:00:00",
	}
}
