package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

type LikeRepository interface {
	// Add reports whether a new like was stored.
	Add(ctx context.Context, postID, userID string) (bool, error)
	// Remove reports whether a like was deleted.
	Remove(ctx context.Context, postID, userID string) (bool, error)
	Counts(ctx context.Context, postIDs []string) (map[string]int, error)
	LikedBy(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
}

type likeRepository struct {
	db *sqlx.DB
}

func NewLikeRepository(db *sqlx.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Add(ctx context.Context, postID, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO likes (post_id, user_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`, postID, userID, time.Now())
	return changed(result, err)
}

func (r *likeRepository) Remove(ctx context.Context, postID, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	return changed(result, err)
}

func (r *likeRepository) Counts(ctx context.Context, postIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	query, args, err := sqlx.In(`SELECT post_id, COUNT(*) AS n FROM likes WHERE post_id IN (?) GROUP BY post_id`, postIDs)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		PostID string `db:"post_id"`
		N      int    `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.PostID] = row.N
	}
	return counts, nil
}

func (r *likeRepository) LikedBy(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	liked := map[string]bool{}
	if userID == "" || len(postIDs) == 0 {
		return liked, nil
	}

	query, args, err := sqlx.In(`SELECT post_id FROM likes WHERE user_id = ? AND post_id IN (?)`, userID, postIDs)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func changed(result sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
