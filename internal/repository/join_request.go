package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/voclaria/voclaria/internal/model"
)

// ErrDuplicatePending is returned by Create when the student already has a
// pending request with the teacher.
var ErrDuplicatePending = errors.New("pending join request already exists")

type JoinRequestRepository interface {
	PendingByTeacher(ctx context.Context, teacherID string) ([]*model.JoinRequest, error)
	ByIDs(ctx context.Context, teacherID string, ids []string) ([]*model.JoinRequest, error)
	Create(ctx context.Context, req *model.JoinRequest) error
	SetStatus(ctx context.Context, teacherID string, ids []string, status string) (int64, error)
	Reopen(ctx context.Context, teacherID, id string) error
}

type joinRequestRepository struct {
	db *sqlx.DB
}

func NewJoinRequestRepository(db *sqlx.DB) JoinRequestRepository {
	return &joinRequestRepository{db: db}
}

// PendingByTeacher returns pending requests, oldest first.
func (r *joinRequestRepository) PendingByTeacher(ctx context.Context, teacherID string) ([]*model.JoinRequest, error) {
	var reqs []*model.JoinRequest
	err := r.db.SelectContext(ctx, &reqs, `
		SELECT * FROM class_join_requests
		WHERE teacher_id = $1 AND status = $2
		ORDER BY requested_at ASC
	`, teacherID, model.JoinStatusPending)
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

// ByIDs scopes the lookup to the teacher so one teacher cannot act on
// another's requests.
func (r *joinRequestRepository) ByIDs(ctx context.Context, teacherID string, ids []string) ([]*model.JoinRequest, error) {
	var reqs []*model.JoinRequest
	if len(ids) == 0 {
		return reqs, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM class_join_requests WHERE teacher_id = ? AND id IN (?)`, teacherID, ids)
	if err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &reqs, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *joinRequestRepository) Create(ctx context.Context, req *model.JoinRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Status == "" {
		req.Status = model.JoinStatusPending
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO class_join_requests (id, teacher_id, student_id, grade_level, strand, code_entered, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, req.ID, req.TeacherID, req.StudentID, req.GradeLevel, req.Strand, req.CodeEntered, req.Status, req.RequestedAt)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicatePending
	}
	return err
}

// SetStatus moves the listed pending requests owned by the teacher to status
// and reports how many rows changed. Settled requests are left alone.
func (r *joinRequestRepository) SetStatus(ctx context.Context, teacherID string, ids []string, status string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`UPDATE class_join_requests SET status = ? WHERE teacher_id = ? AND status = ? AND id IN (?)`,
		status, teacherID, model.JoinStatusPending, ids)
	if err != nil {
		return 0, err
	}
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Reopen puts an approved request back to pending.
func (r *joinRequestRepository) Reopen(ctx context.Context, teacherID, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE class_join_requests SET status = $1
		WHERE id = $2 AND teacher_id = $3 AND status = $4
	`, model.JoinStatusPending, id, teacherID, model.JoinStatusApproved)
	return err
}
