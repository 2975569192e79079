package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/oauth2"
)

// Exchanger trades an authorization code for tokens.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

var (
	errStateMismatch = errors.New("state parameter does not match")
	errReplayed      = errors.New("callback already processed")
)

// OAuthResult is what the browser redirect produced: a token, or the reason there is none.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Genie</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh; margin: 0; }
        main { text-align: center; }
        h1 { margin: 0 0 1rem 0; color: {{if .OK}}#04B575{{else}}#FF0000{{end}}; }
    </style>
</head>
<body>
    <main>
        <h1>{{if .OK}}✓ Signed in to Genie{{else}}✗ Sign-in failed{{end}}</h1>
        <p>{{.Message}}</p>
    </main>
</body>
</html>
`))

type callbackView struct {
	OK      bool
	Message string
}

// OAuthHandler serves the redirect URI of an authorization code flow.
//
// It accepts a single callback; later requests are rejected.
type OAuthHandler struct {
	exchanger Exchanger
	state     string
	path      string
	results   chan OAuthResult
	seen      atomic.Bool
	once      sync.Once
}

// NewOAuthHandler serves path (default "/callback") and accepts only callbacks carrying state.
func NewOAuthHandler(exchanger Exchanger, state, path string) *OAuthHandler {
	if path == "" {
		path = "/callback"
	}
	return &OAuthHandler{
		exchanger: exchanger,
		state:     state,
		path:      path,
		results:   make(chan OAuthResult, 1),
	}
}

func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.seen.CompareAndSwap(false, true) {
		h.render(w, http.StatusBadRequest, callbackView{Message: errReplayed.Error()})
		return
	}

	q := r.URL.Query()
	if q.Get("state") != h.state {
		h.fail(w, http.StatusBadRequest, errStateMismatch)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.fail(w, http.StatusBadRequest, fmt.Errorf("provider returned %s: %s", q.Get("error"), q.Get("error_description")))
		return
	}

	tok, err := h.exchanger.Exchange(r.Context(), code)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, fmt.Errorf("token exchange failed: %w", err))
		return
	}

	h.deliver(OAuthResult{Token: tok})
	h.render(w, http.StatusOK, callbackView{OK: true, Message: "You can close this window and return to the terminal."})
}

func (h *OAuthHandler) fail(w http.ResponseWriter, status int, err error) {
	h.deliver(OAuthResult{err: err})
	h.render(w, status, callbackView{Message: err.Error()})
}

func (h *OAuthHandler) render(w http.ResponseWriter, status int, v callbackView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = callbackPage.Execute(w, v)
}

func (h *OAuthHandler) deliver(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result yields exactly one [OAuthResult] and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}
