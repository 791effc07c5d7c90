package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/voclaria/voclaria/internal/model"
)

var ErrTokenNotFound = errors.New("token not found")

// TokenRepository stores one-time email tokens (confirmation, password reset).
type TokenRepository interface {
	Create(ctx context.Context, token *model.Token) error
	// Consume redeems a live token of the given type exactly once.
	Consume(ctx context.Context, value, tokenType string) (*model.Token, error)
	// Revoke spends every outstanding token of tokenType for the user.
	Revoke(ctx context.Context, userID, tokenType string) error
	// Purge deletes tokens that expired or were spent before cutoff.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

type tokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) TokenRepository {
	return &tokenRepository{db: db}
}

const tokenColumns = `id, user_id, type, token, expires_at, used_at, created_at`

func (r *tokenRepository) Create(ctx context.Context, token *model.Token) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO tokens (id, user_id, type, token, expires_at, created_at)
		VALUES (:id, :user_id, :type, :token, :expires_at, :created_at)
	`, token)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (r *tokenRepository) Consume(ctx context.Context, value, tokenType string) (*model.Token, error) {
	now := time.Now()
	var t model.Token
	err := r.db.GetContext(ctx, &t, `
		UPDATE tokens SET used_at = $1
		WHERE token = $2 AND type = $3 AND used_at IS NULL AND expires_at > $1
		RETURNING `+tokenColumns,
		now, value, tokenType)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrTokenNotFound
	case err != nil:
		return nil, fmt.Errorf("consume token: %w", err)
	}
	return &t, nil
}

func (r *tokenRepository) Revoke(ctx context.Context, userID, tokenType string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tokens SET used_at = $1 WHERE user_id = $2 AND type = $3 AND used_at IS NULL`,
		time.Now(), userID, tokenType)
	if err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}

func (r *tokenRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE expires_at < $1 OR used_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge tokens: %w", err)
	}
	return res.RowsAffected()
}
