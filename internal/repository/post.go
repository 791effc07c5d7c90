package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/voclaria/voclaria/internal/model"
)

var ErrPostNotFound = errors.New("post not found")

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	ByID(ctx context.Context, id string) (*model.Post, error)
	Published(ctx context.Context, limit int) ([]*model.Post, error)
}

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, p *model.Post) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO posts (id, user_id, title, content, media_url, module, type, status, visibility, allow_comments, allow_reviews, created_at)
		VALUES (:id, :user_id, :title, :content, :media_url, :module, :type, :status, :visibility, :allow_comments, :allow_reviews, :created_at)
	`, p)
	return err
}

func (r *postRepository) ByID(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	err := r.db.GetContext(ctx, &post, `SELECT * FROM posts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Published returns public, published posts, newest first.
func (r *postRepository) Published(ctx context.Context, limit int) ([]*model.Post, error) {
	var posts []*model.Post
	err := r.db.SelectContext(ctx, &posts, `
		SELECT * FROM posts
		WHERE status = $1 AND visibility = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, model.PostStatusPublished, model.PostVisibilityPublic, limit)
	if err != nil {
		return nil, err
	}
	return posts, nil
}
