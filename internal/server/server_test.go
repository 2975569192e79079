package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genie/internal/shared"
	"golang.org/x/oauth2"
)

type fakeExchanger struct {
	token *oauth2.Token
	err   error
	codes []string
}

func (f *fakeExchanger) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	f.codes = append(f.codes, code)
	return f.token, f.err
}

func TestOAuthHandler(t *testing.T) {
	t.Run("exchanges code", func(t *testing.T) {
		ex := &fakeExchanger{token: &oauth2.Token{AccessToken: "tok"}}
		h := NewOAuthHandler(ex, "state-1", "")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state-1&code=abc", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		res := <-h.Result()
		if res.Error() != nil || res.Token.AccessToken != "tok" {
			t.Errorf("unexpected result %+v", res)
		}
		if len(ex.codes) != 1 || ex.codes[0] != "abc" {
			t.Errorf("expected code abc to be exchanged, got %v", ex.codes)
		}
	})

	t.Run("rejects bad state", func(t *testing.T) {
		ex := &fakeExchanger{}
		h := NewOAuthHandler(ex, "state-1", "/cb")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cb?state=other&code=abc", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if res := <-h.Result(); res.Error() == nil {
			t.Error("expected state error")
		}
		if len(ex.codes) != 0 {
			t.Error("expected no exchange on bad state")
		}
	})

	t.Run("provider error", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{}, "s", "")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied&error_description=nope", nil))

		res := <-h.Result()
		if res.Error() == nil || !strings.Contains(res.Error().Error(), "access_denied") {
			t.Errorf("expected provider error, got %v", res.Error())
		}
	})

	t.Run("exchange failure", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{err: errors.New("bad code")}, "s", "")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=x", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if res := <-h.Result(); res.Error() == nil {
			t.Error("expected exchange error")
		}
	})

	t.Run("single shot", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{token: &oauth2.Token{AccessToken: "tok"}}, "s", "")

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s&code=x", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=y", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected replay to be rejected, got %d", rec.Code)
		}

		<-h.Result()
		if _, ok := <-h.Result(); ok {
			t.Error("expected result channel to be closed after one result")
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mw("first"), mw("second"))
		r.HandleFunc("get", "/ping", func(w http.ResponseWriter, _ *http.Request) {
			order = append(order, "handler")
		})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("method filtering", func(t *testing.T) {
		r := NewBasicRouter()
		r.HandleFunc(http.MethodGet, "/ping", func(w http.ResponseWriter, _ *http.Request) {})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("request id", func(t *testing.T) {
		r := NewBasicRouter()
		r.Use(RequestID())
		r.HandleFunc(http.MethodGet, "/ping", func(w http.ResponseWriter, _ *http.Request) {})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("expected generated request id")
		}

		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Request-ID", "abc")
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if got := rec.Header().Get("X-Request-ID"); got != "abc" {
			t.Errorf("expected inbound id to be kept, got %s", got)
		}
	})
}

func TestAwaitCallback(t *testing.T) {
	logger := log.New(io.Discard)

	t.Run("returns token", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		h := NewOAuthHandler(&fakeExchanger{token: &oauth2.Token{AccessToken: "tok"}}, "s", "")

		go func() {
			resp, err := http.Get(fmt.Sprintf("http://%s/callback?state=s&code=x", ln.Addr()))
			if err == nil {
				resp.Body.Close()
			}
		}()

		tok, err := AwaitCallback(context.Background(), ln, h, logger)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok.AccessToken != "tok" {
			t.Errorf("expected tok, got %s", tok.AccessToken)
		}
	})

	t.Run("wraps callback errors", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		h := NewOAuthHandler(&fakeExchanger{}, "s", "")

		go func() {
			resp, err := http.Get(fmt.Sprintf("http://%s/callback?state=wrong", ln.Addr()))
			if err == nil {
				resp.Body.Close()
			}
		}()

		if _, err := AwaitCallback(context.Background(), ln, h, logger); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("times out", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		if _, err := AwaitCallback(ctx, ln, NewOAuthHandler(&fakeExchanger{}, "s", ""), logger); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})
}
