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

var (
	ErrLiveSessionNotFound = errors.New("live session not found")
	// ErrHostAlreadyLive is returned by Create when the host already has a
	// session on air.
	ErrHostAlreadyLive = errors.New("host already has a live session")
)

type LiveSessionRepository interface {
	ByStatuses(ctx context.Context, statuses []string) ([]*model.LiveSession, error)
	ByID(ctx context.Context, id string) (*model.LiveSession, error)
	Create(ctx context.Context, session *model.LiveSession) error
	End(ctx context.Context, id, hostID string) error
	// RecountViewers sets viewers to the number of present attendees and
	// returns it.
	RecountViewers(ctx context.Context, id string) (int, error)
}

type liveSessionRepository struct {
	db *sqlx.DB
}

func NewLiveSessionRepository(db *sqlx.DB) LiveSessionRepository {
	return &liveSessionRepository{db: db}
}

// ByStatuses returns sessions in any of the given statuses, most recently
// started first.
func (r *liveSessionRepository) ByStatuses(ctx context.Context, statuses []string) ([]*model.LiveSession, error) {
	var sessions []*model.LiveSession
	if len(statuses) == 0 {
		return sessions, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM live_sessions WHERE status IN (?) ORDER BY started_at DESC`, statuses)
	if err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &sessions, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *liveSessionRepository) ByID(ctx context.Context, id string) (*model.LiveSession, error) {
	var session model.LiveSession
	err := r.db.GetContext(ctx, &session, `SELECT * FROM live_sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLiveSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *liveSessionRepository) Create(ctx context.Context, s *model.LiveSession) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.StartedAt == nil {
		now := time.Now()
		s.StartedAt = &now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO live_sessions (id, host_id, title, viewers, status, level, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.ID, s.HostID, s.Title, s.Viewers, s.Status, s.Level, s.StartedAt)
	if err != nil && isUniqueViolation(err) {
		return ErrHostAlreadyLive
	}
	return err
}

// End marks a session hosted by hostID as ended.
func (r *liveSessionRepository) End(ctx context.Context, id, hostID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE live_sessions SET status = $1, ended_at = $2
		WHERE id = $3 AND host_id = $4
	`, model.LiveStatusEnded, time.Now(), id, hostID)
	return affectedOne(result, err, ErrLiveSessionNotFound)
}

func (r *liveSessionRepository) RecountViewers(ctx context.Context, id string) (int, error) {
	var viewers int
	err := r.db.GetContext(ctx, &viewers, `
		UPDATE live_sessions SET viewers = (
			SELECT COUNT(*) FROM live_attendances WHERE session_id = $1 AND left_at IS NULL
		)
		WHERE id = $2
		RETURNING viewers
	`, id, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrLiveSessionNotFound
	}
	return viewers, err
}
