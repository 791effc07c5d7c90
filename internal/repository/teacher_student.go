package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/voclaria/voclaria/internal/model"
)

type TeacherStudentRepository interface {
	ByTeacher(ctx context.Context, teacherID string) ([]*model.TeacherStudent, error)
	StudentIDsByTeacher(ctx context.Context, teacherID string, statuses ...string) ([]string, error)
	Upsert(ctx context.Context, link *model.TeacherStudent) error
	SetStatus(ctx context.Context, teacherID, studentID, status string) error
}

type teacherStudentRepository struct {
	db *sqlx.DB
}

func NewTeacherStudentRepository(db *sqlx.DB) TeacherStudentRepository {
	return &teacherStudentRepository{db: db}
}

// ByTeacher returns every link for the teacher, newest first.
func (r *teacherStudentRepository) ByTeacher(ctx context.Context, teacherID string) ([]*model.TeacherStudent, error) {
	var links []*model.TeacherStudent
	err := r.db.SelectContext(ctx, &links, `
		SELECT * FROM teacher_students
		WHERE teacher_id = $1
		ORDER BY inserted_at DESC
	`, teacherID)
	if err != nil {
		return nil, err
	}
	return links, nil
}

// StudentIDsByTeacher lists student ids linked to the teacher. With no
// statuses every link matches.
func (r *teacherStudentRepository) StudentIDsByTeacher(ctx context.Context, teacherID string, statuses ...string) ([]string, error) {
	var ids []string
	if len(statuses) == 0 {
		err := r.db.SelectContext(ctx, &ids, `SELECT student_id FROM teacher_students WHERE teacher_id = $1`, teacherID)
		return ids, err
	}

	query, args, err := sqlx.In(`SELECT student_id FROM teacher_students WHERE teacher_id = ? AND status IN (?)`, teacherID, statuses)
	if err != nil {
		return nil, err
	}
	err = r.db.SelectContext(ctx, &ids, r.db.Rebind(query), args...)
	return ids, err
}

// Upsert creates the link or updates grade, strand and status of an existing
// one. The (teacher_id, student_id) pair is the conflict target.
func (r *teacherStudentRepository) Upsert(ctx context.Context, link *model.TeacherStudent) error {
	if link.InsertedAt.IsZero() {
		link.InsertedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO teacher_students (teacher_id, student_id, grade_level, strand, status, inserted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (teacher_id, student_id) DO UPDATE SET
			grade_level = excluded.grade_level,
			strand = excluded.strand,
			status = excluded.status
	`, link.TeacherID, link.StudentID, link.GradeLevel, link.Strand, link.Status, link.InsertedAt)
	return err
}

func (r *teacherStudentRepository) SetStatus(ctx context.Context, teacherID, studentID, status string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE teacher_students SET status = $1
		WHERE teacher_id = $2 AND student_id = $3
	`, status, teacherID, studentID)
	return affectedOne(result, err, ErrLinkNotFound)
}
