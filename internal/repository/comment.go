package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/voclaria/voclaria/internal/model"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	// ByPosts returns the comments on the given posts, newest first.
	ByPosts(ctx context.Context, postIDs []string) ([]*model.Comment, error)
}

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, c *model.Comment) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO comments (id, post_id, user_id, content, rating_delivery, rating_confidence, created_at)
		VALUES (:id, :post_id, :user_id, :content, :rating_delivery, :rating_confidence, :created_at)
	`, c)
	return err
}

func (r *commentRepository) ByPosts(ctx context.Context, postIDs []string) ([]*model.Comment, error) {
	var comments []*model.Comment
	if len(postIDs) == 0 {
		return comments, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM comments WHERE post_id IN (?) ORDER BY created_at DESC`, postIDs)
	if err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &comments, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return comments, nil
}
