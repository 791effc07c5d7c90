package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/realtime"
	"github.com/voclaria/voclaria/internal/repository"
)

var ErrInvalidProgress = errors.New("completed counts must be between 0 and their totals, scores between 0 and 100")

type ProgressInput struct {
	SpeakingCompleted int  `json:"speaking_completed"`
	SpeakingTotal     int  `json:"speaking_total"`
	ReadingCompleted  int  `json:"reading_completed"`
	ReadingTotal      int  `json:"reading_total"`
	Confidence        *int `json:"confidence"`
	Anxiety           *int `json:"anxiety"`
}

func (in ProgressInput) valid() bool {
	counts := in.SpeakingCompleted >= 0 && in.ReadingCompleted >= 0 &&
		in.SpeakingCompleted <= in.SpeakingTotal && in.ReadingCompleted <= in.ReadingTotal
	return counts && score(in.Confidence) && score(in.Anxiety)
}

func score(v *int) bool {
	return v == nil || (*v >= 0 && *v <= 100)
}

type ProgressService struct {
	progressRepository repository.ProgressRepository
	publisher          realtime.Publisher
}

func NewProgressService(progressRepository repository.ProgressRepository, publisher realtime.Publisher) *ProgressService {
	return &ProgressService{progressRepository: progressRepository, publisher: publisher}
}

func (s *ProgressService) Record(ctx context.Context, studentID string, in ProgressInput) (*model.StudentProgress, error) {
	if !in.valid() {
		return nil, ErrInvalidProgress
	}

	p := &model.StudentProgress{
		StudentID:         studentID,
		SpeakingCompleted: in.SpeakingCompleted,
		SpeakingTotal:     in.SpeakingTotal,
		ReadingCompleted:  in.ReadingCompleted,
		ReadingTotal:      in.ReadingTotal,
		Confidence:        in.Confidence,
		Anxiety:           in.Anxiety,
	}
	if err := s.progressRepository.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to record progress: %w", err)
	}

	realtime.Notify(ctx, s.publisher, model.TableStudentProgress, model.EventUpdate, map[string]string{"student_id": studentID})
	return p, nil
}

// Mine returns the student's progress, zeroed when nothing is recorded yet.
func (s *ProgressService) Mine(ctx context.Context, studentID string) (*model.StudentProgress, error) {
	rows, err := s.progressRepository.ByStudentIDs(ctx, []string{studentID})
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if len(rows) == 0 {
		return &model.StudentProgress{StudentID: studentID}, nil
	}
	return rows[0], nil
}
