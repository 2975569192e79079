package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/genie/internal/shared"
	"golang.org/x/oauth2"
)

// TokenProvider supplies the identity of the signed-in principal and a current bearer token.
type TokenProvider interface {
	// PrincipalID returns the opaque id the backend uses to address the principal.
	PrincipalID() string

	// AccessToken returns a bearer token, refreshing it first when it has expired.
	AccessToken(ctx context.Context) (string, error)
}

// Session is a signed-in principal backed by an [oauth2.TokenSource].
type Session struct {
	principalID string
	source      oauth2.TokenSource

	mu      sync.Mutex
	current *oauth2.Token
	invalid bool
}

// NewSession creates a session for principalID that draws tokens from source.
func NewSession(principalID string, source oauth2.TokenSource) *Session {
	return &Session{principalID: principalID, source: source}
}

// NewStaticSession creates a session around a fixed token that is never refreshed.
func NewStaticSession(principalID string, token *oauth2.Token) *Session {
	return NewSession(principalID, oauth2.StaticTokenSource(token))
}

func (s *Session) PrincipalID() string {
	return s.principalID
}

// AccessToken returns the bearer token for the current [oauth2.Token].
//
// Once a refresh fails the session stays invalid and every call returns [shared.ErrRefreshFailed].
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	tok, err := s.Token(ctx)
	if err != nil {
		return "", err
	}
	return BearerToken(tok), nil
}

// Token returns the current [oauth2.Token], refreshing through the source when needed.
func (s *Session) Token(ctx context.Context) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.invalid {
		return nil, shared.ErrRefreshFailed
	}

	tok, err := s.source.Token()
	if err != nil {
		s.invalid = true
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	if BearerToken(tok) == "" {
		s.invalid = true
		return nil, fmt.Errorf("%w: empty token", shared.ErrRefreshFailed)
	}
	s.current = tok
	return tok, nil
}

// Authenticated reports whether the session can still produce tokens.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.invalid
}

// Current returns the last token handed out, or nil before the first call to [Session.Token].
func (s *Session) Current() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
