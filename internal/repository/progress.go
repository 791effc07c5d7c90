package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/voclaria/voclaria/internal/model"
)

type ProgressRepository interface {
	ByStudentIDs(ctx context.Context, ids []string) ([]*model.StudentProgress, error)
	Upsert(ctx context.Context, progress *model.StudentProgress) error
}

type progressRepository struct {
	db *sqlx.DB
}

func NewProgressRepository(db *sqlx.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) ByStudentIDs(ctx context.Context, ids []string) ([]*model.StudentProgress, error) {
	var rows []*model.StudentProgress
	if len(ids) == 0 {
		return rows, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM student_progress WHERE student_id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *progressRepository) Upsert(ctx context.Context, p *model.StudentProgress) error {
	p.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO student_progress (student_id, speaking_completed, speaking_total, reading_completed, reading_total, confidence, anxiety, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (student_id) DO UPDATE SET
			speaking_completed = excluded.speaking_completed,
			speaking_total = excluded.speaking_total,
			reading_completed = excluded.reading_completed,
			reading_total = excluded.reading_total,
			confidence = excluded.confidence,
			anxiety = excluded.anxiety,
			updated_at = excluded.updated_at
	`, p.StudentID, p.SpeakingCompleted, p.SpeakingTotal, p.ReadingCompleted, p.ReadingTotal, p.Confidence, p.Anxiety, p.UpdatedAt)
	return err
}
