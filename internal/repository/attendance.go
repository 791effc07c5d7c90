package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/voclaria/voclaria/internal/model"
)

var ErrAttendanceNotFound = errors.New("not attending this session")

type AttendanceRepository interface {
	// Join records the user as present, reopening an earlier visit.
	Join(ctx context.Context, sessionID, userID string) error
	Leave(ctx context.Context, sessionID, userID string) error
	// Present returns current viewers, earliest arrival first.
	Present(ctx context.Context, sessionID string) ([]*model.Attendance, error)
}

type attendanceRepository struct {
	db *sqlx.DB
}

func NewAttendanceRepository(db *sqlx.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) Join(ctx context.Context, sessionID, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO live_attendances (session_id, user_id, joined_at, left_at)
		VALUES ($1, $2, $3, NULL)
		ON CONFLICT (session_id, user_id) DO UPDATE SET
			joined_at = excluded.joined_at,
			left_at = NULL
	`, sessionID, userID, time.Now())
	return err
}

func (r *attendanceRepository) Leave(ctx context.Context, sessionID, userID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE live_attendances SET left_at = $1
		WHERE session_id = $2 AND user_id = $3 AND left_at IS NULL
	`, time.Now(), sessionID, userID)
	return affectedOne(result, err, ErrAttendanceNotFound)
}

func (r *attendanceRepository) Present(ctx context.Context, sessionID string) ([]*model.Attendance, error) {
	var rows []*model.Attendance
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM live_attendances
		WHERE session_id = $1 AND left_at IS NULL
		ORDER BY joined_at ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
