package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/genie/internal/services"
	"github.com/desertthunder/genie/internal/shared"
	"golang.org/x/oauth2"
)

// StoredSession is a persisted sign-in.
type StoredSession struct {
	ID          string
	Sequence    int
	PrincipalID string
	Token       *oauth2.Token
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SessionRepository persists at most one active session.
//
// Signing in replaces the active row; signing out soft-deletes it.
type SessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSessionRepository creates a new SessionRepository with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// Save stores tok for principalID.
//
// When the principal already has an active session its tokens are updated in place,
// otherwise any other active session is retired and a new row is inserted.
func (r *SessionRepository) Save(ctx context.Context, principalID string, tok *oauth2.Token) (*StoredSession, error) {
	if principalID == "" {
		return nil, fmt.Errorf("%w: principal id is required", shared.ErrInvalidInput)
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: access token is required", shared.ErrInvalidInput)
	}

	now := r.now()
	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	var expiry any
	if !tok.Expiry.IsZero() {
		expiry = tok.Expiry
	}

	current, err := r.Current(ctx)
	switch {
	case err == nil && current.PrincipalID == principalID:
		_, err = r.db.ExecContext(ctx, `
			UPDATE sessions
			SET access_token = ?, refresh_token = ?, id_token = ?, token_type = ?, expiry = ?, updated_at = ?
			WHERE id = ?
		`, tok.AccessToken, tok.RefreshToken, services.IDToken(tok), tokenType, expiry, now, current.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update session: %w", err)
		}
		current.Token = tok
		current.UpdatedAt = now
		return current, nil
	case err == nil:
		if err := r.Delete(ctx); err != nil {
			return nil, err
		}
	case !errors.Is(err, shared.ErrNotAuthenticated):
		return nil, err
	}

	sequence, err := NextSequence(ctx, r.db, "sessions")
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequence: %w", err)
	}

	stored := &StoredSession{
		ID:          shared.GenerateID(),
		Sequence:    sequence,
		PrincipalID: principalID,
		Token:       tok,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (
			id, sequence, principal_id, access_token, refresh_token, id_token,
			token_type, expiry, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		stored.ID, sequence, principalID, tok.AccessToken, tok.RefreshToken, services.IDToken(tok),
		tokenType, expiry, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	return stored, nil
}

// Current returns the active session or [shared.ErrNotAuthenticated].
func (r *SessionRepository) Current(ctx context.Context) (*StoredSession, error) {
	var (
		s            StoredSession
		accessToken  string
		refreshToken string
		idToken      string
		tokenType    string
		expiry       sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, sequence, principal_id, access_token, refresh_token, id_token, token_type, expiry, created_at, updated_at
		FROM sessions
		WHERE deleted_at IS NULL
		ORDER BY sequence DESC
		LIMIT 1
	`).Scan(&s.ID, &s.Sequence, &s.PrincipalID, &accessToken, &refreshToken, &idToken, &tokenType, &expiry, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	tok := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenType,
	}
	if expiry.Valid {
		tok.Expiry = expiry.Time
	}
	s.Token = services.WithIDToken(tok, idToken)

	return &s, nil
}

// Delete soft-deletes every active session. Deleting with none active is not an error.
func (r *SessionRepository) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET deleted_at = ? WHERE deleted_at IS NULL", r.now(),
	); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
