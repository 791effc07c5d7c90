package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	DemoPrefix    = "demo-"
	DemoTeacherID = DemoPrefix + "teacher"
	DemoPassword  = "voclaria-demo"
)

type demoPerson struct {
	id, name, role string
}

type demoStudent struct {
	demoPerson
	grade, strand, status string
	progress              *model.StudentProgress
}

func intPtr(v int) *int { return &v }

var demoStudents = []demoStudent{
	{demoPerson{DemoPrefix + "student-1", "Ana Cruz", model.RoleStudent}, "Grade 11", "STEM", model.StudentStatusActive,
		&model.StudentProgress{SpeakingCompleted: 6, SpeakingTotal: 10, ReadingCompleted: 4, ReadingTotal: 10, Confidence: intPtr(72), Anxiety: intPtr(35)}},
	{demoPerson{DemoPrefix + "student-2", "Miguel Santos", model.RoleStudent}, "Grade 12", "HUMMS", model.StudentStatusActive,
		&model.StudentProgress{SpeakingCompleted: 2, SpeakingTotal: 10, ReadingCompleted: 1, ReadingTotal: 10, Confidence: intPtr(40), Anxiety: intPtr(68)}},
	{demoPerson{DemoPrefix + "student-3", "Bea", model.RoleStudent}, "Grade 11", "ABM", model.StudentStatusInactive, nil},
}

var demoApplicant = demoPerson{DemoPrefix + "student-4", "Paolo Reyes", model.RoleStudent}

// DemoSeeder fills an empty database with a clearly labelled demo class.
// Every row it writes has an id starting with DemoPrefix, so demo data is
// never mistaken for real data, and running it again changes nothing.
type DemoSeeder struct {
	userRepository           repository.UserRepository
	profileRepository        repository.ProfileRepository
	teacherStudentRepository repository.TeacherStudentRepository
	progressRepository       repository.ProgressRepository
	liveSessionRepository    repository.LiveSessionRepository
	joinRequestRepository    repository.JoinRequestRepository
}

func NewDemoSeeder(
	userRepository repository.UserRepository,
	profileRepository repository.ProfileRepository,
	teacherStudentRepository repository.TeacherStudentRepository,
	progressRepository repository.ProgressRepository,
	liveSessionRepository repository.LiveSessionRepository,
	joinRequestRepository repository.JoinRequestRepository,
) *DemoSeeder {
	return &DemoSeeder{
		userRepository:           userRepository,
		profileRepository:        profileRepository,
		teacherStudentRepository: teacherStudentRepository,
		progressRepository:       progressRepository,
		liveSessionRepository:    liveSessionRepository,
		joinRequestRepository:    joinRequestRepository,
	}
}

// Seed reports whether anything was written.
func (s *DemoSeeder) Seed(ctx context.Context) (bool, error) {
	_, err := s.userRepository.ByID(ctx, DemoTeacherID)
	if err == nil {
		slog.Debug("demo data already present")
		return false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return false, fmt.Errorf("failed to check demo data: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash demo password: %w", err)
	}

	people := []demoPerson{{DemoTeacherID, "Teacher Demo", model.RoleTeacher}, demoApplicant}
	for _, st := range demoStudents {
		people = append(people, st.demoPerson)
	}
	for _, p := range people {
		if err := s.createPerson(ctx, p, string(hash)); err != nil {
			return false, err
		}
	}

	for _, st := range demoStudents {
		grade, strand, status := st.grade, st.strand, st.status
		err := s.teacherStudentRepository.Upsert(ctx, &model.TeacherStudent{
			TeacherID:  DemoTeacherID,
			StudentID:  st.id,
			GradeLevel: &grade,
			Strand:     &strand,
			Status:     &status,
		})
		if err != nil {
			return false, fmt.Errorf("failed to link demo student: %w", err)
		}
		if st.progress != nil {
			p := *st.progress
			p.StudentID = st.id
			if err := s.progressRepository.Upsert(ctx, &p); err != nil {
				return false, fmt.Errorf("failed to seed demo progress: %w", err)
			}
		}
	}

	title, level := "Morning pronunciation drills", "Basic"
	err = s.liveSessionRepository.Create(ctx, &model.LiveSession{
		ID:      DemoPrefix + "live-1",
		HostID:  demoStudents[0].id,
		Title:   &title,
		Level:   &level,
		Viewers: 1100,
		Status:  model.LiveStatusLive,
	})
	if err != nil {
		return false, fmt.Errorf("failed to seed demo live session: %w", err)
	}

	grade, strand := "Grade 11", "STEM"
	err = s.joinRequestRepository.Create(ctx, &model.JoinRequest{
		ID:         DemoPrefix + "join-1",
		TeacherID:  DemoTeacherID,
		StudentID:  demoApplicant.id,
		GradeLevel: &grade,
		Strand:     &strand,
	})
	if err != nil {
		return false, fmt.Errorf("failed to seed demo join request: %w", err)
	}

	slog.Info("demo data seeded", "teacher_id", DemoTeacherID, "students", len(demoStudents))
	return true, nil
}

func (s *DemoSeeder) createPerson(ctx context.Context, p demoPerson, hash string) error {
	meta, err := json.Marshal(map[string]string{"full_name": p.name, "role": p.role})
	if err != nil {
		return err
	}
	now := time.Now()
	err = s.userRepository.Create(ctx, &model.User{
		ID:               p.id,
		Email:            p.id + "@voclaria.test",
		PasswordHash:     hash,
		Metadata:         string(meta),
		EmailConfirmedAt: &now,
		CreatedAt:        now,
	})
	if err != nil {
		return fmt.Errorf("failed to create demo user %s: %w", p.id, err)
	}

	name, role := p.name, p.role
	err = s.profileRepository.Upsert(ctx, &model.Profile{
		ID:                        p.id,
		Name:                      &name,
		Role:                      &role,
		HasCompletedPreassessment: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create demo profile %s: %w", p.id, err)
	}
	return nil
}
