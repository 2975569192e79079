package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/genie/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const idTokenKey = "id_token"

// OAuthProvider runs the authorization code flow against the configured identity provider.
type OAuthProvider struct {
	config *oauth2.Config
}

// NewOAuthProvider creates a provider from the [auth] config section.
func NewOAuthProvider(cfg shared.AuthConfig) (*OAuthProvider, error) {
	switch {
	case cfg.ClientID == "":
		return nil, fmt.Errorf("%w: auth.client_id", shared.ErrMissingConfig)
	case cfg.AuthURL == "":
		return nil, fmt.Errorf("%w: auth.auth_url", shared.ErrMissingConfig)
	case cfg.TokenURL == "":
		return nil, fmt.Errorf("%w: auth.token_url", shared.ErrMissingConfig)
	}

	return &OAuthProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
	}, nil
}

// AuthCodeURL returns the URL the user visits to sign in.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return tok, nil
}

// Session builds a refreshing [Session] for tok. The principal id is read from the bearer token's claims.
func (p *OAuthProvider) Session(ctx context.Context, tok *oauth2.Token) (*Session, error) {
	principal, err := PrincipalFromToken(BearerToken(tok))
	if err != nil {
		return nil, err
	}
	source := oauth2.ReuseTokenSource(tok, p.config.TokenSource(ctx, tok))
	return NewSession(principal, source), nil
}

// BearerToken returns the id_token extra when the provider issued one, else the access token.
func BearerToken(tok *oauth2.Token) string {
	if tok == nil {
		return ""
	}
	if id, ok := tok.Extra(idTokenKey).(string); ok && id != "" {
		return id
	}
	return tok.AccessToken
}

// WithIDToken attaches a stored id_token to tok.
func WithIDToken(tok *oauth2.Token, idToken string) *oauth2.Token {
	if idToken == "" {
		return tok
	}
	return tok.WithExtra(map[string]any{idTokenKey: idToken})
}

// IDToken returns the id_token extra, if any.
func IDToken(tok *oauth2.Token) string {
	if tok == nil {
		return ""
	}
	id, _ := tok.Extra(idTokenKey).(string)
	return id
}

// PrincipalFromToken extracts the principal id from a JWT bearer token without verifying its signature.
//
// The backend verifies tokens; the client only needs the id to address the push channel.
func PrincipalFromToken(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: empty token", shared.ErrAuthFailed)
	}

	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: malformed token claims", shared.ErrAuthFailed)
	}

	if uid, ok := claims["user_id"].(string); ok && uid != "" {
		return uid, nil
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: token has no user_id or sub claim", shared.ErrAuthFailed)
	}
	return sub, nil
}
