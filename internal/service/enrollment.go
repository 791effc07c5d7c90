package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voclaria/voclaria/internal/avatar"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/realtime"
	"github.com/voclaria/voclaria/internal/repository"
)

var (
	ErrTeacherNotFound    = errors.New("teacher not found")
	ErrJoinRequestExists  = errors.New("a join request is already pending for this teacher")
	ErrAlreadyEnrolled    = errors.New("you are already in this teacher's class")
	ErrNoJoinRequests     = errors.New("no matching join requests")
	ErrJoinRequestMissing = errors.New("join request ids are required")
)

type JoinRequestInput struct {
	TeacherID  string `json:"teacher_id"`
	GradeLevel string `json:"grade_level"`
	Strand     string `json:"strand"`
	Code       string `json:"code"`
}

type EnrollmentService struct {
	joinRequestRepository    repository.JoinRequestRepository
	teacherStudentRepository repository.TeacherStudentRepository
	profileRepository        repository.ProfileRepository
	userRepository           repository.UserRepository
	emailService             *EmailService
	resolver                 *avatar.Resolver
	publisher                realtime.Publisher
}

func NewEnrollmentService(
	joinRequestRepository repository.JoinRequestRepository,
	teacherStudentRepository repository.TeacherStudentRepository,
	profileRepository repository.ProfileRepository,
	userRepository repository.UserRepository,
	emailService *EmailService,
	resolver *avatar.Resolver,
	publisher realtime.Publisher,
) *EnrollmentService {
	return &EnrollmentService{
		joinRequestRepository:    joinRequestRepository,
		teacherStudentRepository: teacherStudentRepository,
		profileRepository:        profileRepository,
		userRepository:           userRepository,
		emailService:             emailService,
		resolver:                 resolver,
		publisher:                publisher,
	}
}

func (s *EnrollmentService) Submit(ctx context.Context, studentID string, in JoinRequestInput) (*model.JoinRequest, error) {
	teacher, err := s.profileRepository.ByID(ctx, in.TeacherID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrTeacherNotFound
		}
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	if !teacher.HasRole(model.RoleTeacher) {
		return nil, ErrTeacherNotFound
	}

	students, err := s.teacherStudentRepository.StudentIDsByTeacher(ctx, in.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	for _, id := range students {
		if id == studentID {
			return nil, ErrAlreadyEnrolled
		}
	}

	pending, err := s.joinRequestRepository.PendingByTeacher(ctx, in.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	for _, r := range pending {
		if r.StudentID == studentID {
			return nil, ErrJoinRequestExists
		}
	}

	req := &model.JoinRequest{
		TeacherID:   in.TeacherID,
		StudentID:   studentID,
		GradeLevel:  optional(in.GradeLevel),
		Strand:      optional(NormalizeStrand(strings.TrimSpace(in.Strand))),
		CodeEntered: optional(in.Code),
	}
	if err := s.joinRequestRepository.Create(ctx, req); err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			return nil, ErrJoinRequestExists
		}
		return nil, fmt.Errorf("failed to create join request: %w", err)
	}

	realtime.Notify(ctx, s.publisher, model.TableClassJoinRequests, model.EventInsert, map[string]string{"id": req.ID, "teacher_id": req.TeacherID})
	slog.Info("join request submitted", "request_id", req.ID, "teacher_id", req.TeacherID, "student_id", studentID)
	return req, nil
}

// Pending lists the teacher's pending requests, oldest first.
func (s *EnrollmentService) Pending(ctx context.Context, teacherID string) ([]model.JoinRequestView, error) {
	reqs, err := s.joinRequestRepository.PendingByTeacher(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	if len(reqs) == 0 {
		return []model.JoinRequestView{}, nil
	}

	ids := make([]string, 0, len(reqs))
	seen := map[string]bool{}
	for _, r := range reqs {
		if !seen[r.StudentID] {
			seen[r.StudentID] = true
			ids = append(ids, r.StudentID)
		}
	}

	profiles, err := s.profileRepository.ByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	byID := make(map[string]*model.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	hints := make(map[string]string, len(ids))
	for _, id := range ids {
		hints[id] = byID[id].StoredAvatar()
	}
	avatars := s.resolver.ResolveAll(ctx, hints)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	views := make([]model.JoinRequestView, 0, len(reqs))
	for _, r := range reqs {
		name := DisplayName(byID[r.StudentID], unknownStudent)
		views = append(views, model.JoinRequestView{
			ID:          r.ID,
			StudentID:   r.StudentID,
			Name:        name,
			Initials:    Initials(name),
			Color:       ColorFor(r.StudentID),
			Grade:       deref(r.GradeLevel),
			Strand:      NormalizeStrand(deref(r.Strand)),
			AvatarURL:   avatars[r.StudentID],
			RequestedAt: r.RequestedAt,
		})
	}
	return views, nil
}

// Approve links every listed pending request to the teacher as an active
// student and marks it approved. Ids that are not the teacher's pending
// requests are skipped. Returns how many were approved.
func (s *EnrollmentService) Approve(ctx context.Context, teacherID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, ErrJoinRequestMissing
	}

	reqs, err := s.joinRequestRepository.ByIDs(ctx, teacherID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to load join requests: %w", err)
	}

	approved := 0
	active := model.StudentStatusActive
	for _, r := range reqs {
		if r.Status != model.JoinStatusPending {
			continue
		}

		// Claim the request first so a racing approve or decline cannot
		// double count it.
		n, err := s.joinRequestRepository.SetStatus(ctx, teacherID, []string{r.ID}, model.JoinStatusApproved)
		if err != nil {
			return approved, fmt.Errorf("failed to approve join request: %w", err)
		}
		if n == 0 {
			continue
		}

		link := &model.TeacherStudent{
			TeacherID:  teacherID,
			StudentID:  r.StudentID,
			GradeLevel: r.GradeLevel,
			Strand:     r.Strand,
			Status:     &active,
		}
		if err := s.teacherStudentRepository.Upsert(ctx, link); err != nil {
			if reopenErr := s.joinRequestRepository.Reopen(context.WithoutCancel(ctx), teacherID, r.ID); reopenErr != nil {
				slog.Error("failed to reopen join request", "error", reopenErr, "request_id", r.ID)
			}
			return approved, fmt.Errorf("failed to add student: %w", err)
		}
		approved++

		realtime.Notify(ctx, s.publisher, model.TableTeacherStudents, model.EventInsert, map[string]string{"teacher_id": teacherID, "student_id": r.StudentID})
		realtime.Notify(ctx, s.publisher, model.TableClassJoinRequests, model.EventUpdate, map[string]string{"id": r.ID, "teacher_id": teacherID})
		s.notifyApproved(ctx, teacherID, r.StudentID)
	}

	if approved == 0 {
		return 0, ErrNoJoinRequests
	}
	slog.Info("join requests approved", "teacher_id", teacherID, "count", approved)
	return approved, nil
}

func (s *EnrollmentService) notifyApproved(ctx context.Context, teacherID, studentID string) {
	student, err := s.userRepository.ByID(ctx, studentID)
	if err != nil {
		slog.Warn("failed to load student for approval email", "error", err, "student_id", studentID)
		return
	}
	var studentName, teacherName string
	if p, err := s.profileRepository.ByID(ctx, studentID); err == nil {
		studentName = p.DisplayName()
	}
	teacherName = "Your teacher"
	if p, err := s.profileRepository.ByID(ctx, teacherID); err == nil && p.DisplayName() != "" {
		teacherName = p.DisplayName()
	}
	if err := s.emailService.SendJoinApprovedEmail(ctx, student.Email, studentName, teacherName); err != nil {
		slog.Warn("failed to send join approved email", "error", err, "student_id", studentID)
	}
}

// Decline rejects the listed requests in one statement.
func (s *EnrollmentService) Decline(ctx context.Context, teacherID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, ErrJoinRequestMissing
	}

	n, err := s.joinRequestRepository.SetStatus(ctx, teacherID, ids, model.JoinStatusRejected)
	if err != nil {
		return 0, fmt.Errorf("failed to decline join requests: %w", err)
	}
	if n == 0 {
		return 0, ErrNoJoinRequests
	}

	realtime.Notify(ctx, s.publisher, model.TableClassJoinRequests, model.EventUpdate, map[string]string{"teacher_id": teacherID})
	slog.Info("join requests declined", "teacher_id", teacherID, "count", n)
	return int(n), nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
