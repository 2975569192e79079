package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/desertthunder/genie/internal/server"
	"github.com/desertthunder/genie/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultLoginTimeout = 2 * time.Minute

// AuthStatusReport is the JSON shape of `auth status`.
type AuthStatusReport struct {
	SignedIn        bool      `json:"signedIn"`
	PrincipalID     string    `json:"principalId,omitempty"`
	Expiry          time.Time `json:"expiry,omitzero"`
	BackendURL      string    `json:"backendUrl"`
	BackendOK       bool      `json:"backendOk"`
	BackendError    string    `json:"backendError,omitempty"`
	PlanCount       int       `json:"planCount"`
	SessionSequence int       `json:"sessionSequence,omitempty"`
}

// AuthLogin performs the OAuth2 authorization code flow and stores the resulting session.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.oauth == nil {
		return fmt.Errorf("%w: [auth] client_id, auth_url and token_url must be set", shared.ErrMissingConfig)
	}
	if err := r.requireDB(); err != nil {
		return err
	}

	callbackPath := "/callback"
	if u, err := url.Parse(r.config.Auth.RedirectURI); err == nil && u.Path != "" {
		callbackPath = u.Path
	}

	state := shared.GenerateID()
	handler := server.NewOAuthHandler(r.oauth, state, callbackPath)

	ln, err := net.Listen("tcp", r.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to start callback server: %w", err)
	}
	r.logger.Info("starting OAuth callback server", "addr", ln.Addr().String(), "path", callbackPath)

	authURL := r.oauth.AuthCodeURL(state)
	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	} else {
		r.writePlain("→ Opening browser for sign-in...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
		}
	}

	timeout := cmd.Duration("timeout")
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tok, err := server.AwaitCallback(waitCtx, ln, handler, r.logger)
	if err != nil {
		return err
	}

	session, err := r.oauth.Session(ctx, tok)
	if err != nil {
		return err
	}

	stored, err := r.sessions.Save(ctx, session.PrincipalID(), tok)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	r.session = session
	r.api.SetTokenProvider(session)
	r.logger.Info("signed in", "principal", stored.PrincipalID)

	r.writePlainln("✓ Signed in as %s", stored.PrincipalID)
	r.writePlain("You can now use: genie plans list\n")
	return nil
}

// AuthToken prints a current bearer token for the stored session.
func (r *Runner) AuthToken(ctx context.Context, cmd *cli.Command) error {
	session, err := r.authenticate(ctx)
	if err != nil {
		return err
	}

	token, err := session.AccessToken(ctx)
	if err != nil {
		return err
	}
	r.saveSession(ctx)

	return r.writePlain("%s\n", token)
}

// AuthStatus reports the stored session and whether the backend accepts it.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	report := AuthStatusReport{BackendURL: r.config.Backend.BaseURL}

	if r.sessions != nil {
		stored, err := r.sessions.Current(ctx)
		switch {
		case err == nil:
			report.SignedIn = true
			report.PrincipalID = stored.PrincipalID
			report.Expiry = stored.Token.Expiry
			report.SessionSequence = stored.Sequence
		case !errors.Is(err, shared.ErrNotAuthenticated):
			return err
		}
	}

	if report.SignedIn {
		if _, err := r.authenticate(ctx); err != nil {
			report.BackendError = err.Error()
		} else if plans, err := r.plans.List(ctx); err != nil {
			report.BackendError = err.Error()
		} else {
			report.BackendOK = true
			report.PlanCount = len(plans)
			r.saveSession(ctx)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, cmd.Bool("pretty"))
	}

	if !report.SignedIn {
		r.writePlain("✗ Not signed in\n")
		return r.writePlain("Run 'genie auth login' to sign in\n")
	}

	r.writePlain("✓ Signed in as %s\n", report.PrincipalID)
	if !report.Expiry.IsZero() {
		r.writePlain("Token expiry: %s\n", report.Expiry.Local().Format(time.RFC1123))
	}
	if report.BackendOK {
		r.writePlain("Backend: ✓ %s (%d meal plans)\n", report.BackendURL, report.PlanCount)
	} else {
		r.writePlain("Backend: ✗ %s: %s\n", report.BackendURL, report.BackendError)
	}
	return nil
}

// AuthLogout retires the stored session and clears cached plans from memory.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}
	if err := r.sessions.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	r.session = nil
	r.api.SetTokenProvider(nil)
	r.store.Clear()
	r.logger.Info("signed out")

	return r.writePlain("✓ Signed out\n")
}
