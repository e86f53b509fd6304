package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/showsync/internal/shared"
)

// TokenRepository persists the authorized user's [oauth2.Token] in the single-row trakt_tokens table.
type TokenRepository struct {
	db DBTX
}

// NewTokenRepository creates a new [TokenRepository] with the given database connection
func NewTokenRepository(db DBTX) *TokenRepository {
	return &TokenRepository{db: db}
}

// Get returns the stored token or an error wrapping [shared.ErrNotFound].
func (r *TokenRepository) Get(ctx context.Context) (*oauth2.Token, error) {
	query := `SELECT access_token, refresh_token, token_type, expiry FROM trakt_tokens WHERE id = 1`

	var (
		token   oauth2.Token
		refresh sql.NullString
		expiry  sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query).Scan(&token.AccessToken, &refresh, &token.TokenType, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no stored token", shared.ErrNotFound)
	}
	if err != nil {
		return nil, shared.StoreError("get token", fmt.Errorf("failed to query token: %w", err))
	}

	token.RefreshToken = refresh.String
	if expiry.Valid {
		token.Expiry = expiry.Time
	}
	return &token, nil
}

// Save stores token, replacing any previous one.
func (r *TokenRepository) Save(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: access token is required", shared.ErrInvalidInput)
	}

	var refresh, expiry any
	if token.RefreshToken != "" {
		refresh = token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		expiry = token.Expiry.UTC()
	}
	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO trakt_tokens (id, access_token, refresh_token, token_type, expiry, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = COALESCE(excluded.refresh_token, trakt_tokens.refresh_token),
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, token.AccessToken, refresh, tokenType, expiry, now, now); err != nil {
		return shared.StoreError("save token", fmt.Errorf("failed to save token: %w", err))
	}
	return nil
}

// Exists reports whether a token is stored, without checking its expiry.
func (r *TokenRepository) Exists(ctx context.Context) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM trakt_tokens").Scan(&n); err != nil {
		return false, shared.StoreError("token exists", fmt.Errorf("failed to query token: %w", err))
	}
	return n > 0, nil
}

// Delete removes the stored token. Deleting when none is stored is not an error.
func (r *TokenRepository) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM trakt_tokens"); err != nil {
		return shared.StoreError("delete token", fmt.Errorf("failed to delete token: %w", err))
	}
	return nil
}
