package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/voclaria/voclaria/internal/avatar"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/realtime"
	"github.com/voclaria/voclaria/internal/repository"
)

var (
	ErrSessionNotLive = errors.New("this live session has ended")
	ErrNotAttending   = errors.New("you are not watching this session")
)

// AttendanceService tracks who is watching a live session. The session's
// viewer count always reflects the present attendees.
type AttendanceService struct {
	attendanceRepository  repository.AttendanceRepository
	liveSessionRepository repository.LiveSessionRepository
	profileRepository     repository.ProfileRepository
	resolver              *avatar.Resolver
	publisher             realtime.Publisher
}

func NewAttendanceService(
	attendanceRepository repository.AttendanceRepository,
	liveSessionRepository repository.LiveSessionRepository,
	profileRepository repository.ProfileRepository,
	resolver *avatar.Resolver,
	publisher realtime.Publisher,
) *AttendanceService {
	return &AttendanceService{
		attendanceRepository:  attendanceRepository,
		liveSessionRepository: liveSessionRepository,
		profileRepository:     profileRepository,
		resolver:              resolver,
		publisher:             publisher,
	}
}

// Join marks userID as watching and returns the new viewer count.
func (s *AttendanceService) Join(ctx context.Context, sessionID, userID string) (int, error) {
	session, err := s.liveSessionRepository.ByID(ctx, sessionID)
	if errors.Is(err, repository.ErrLiveSessionNotFound) {
		return 0, ErrLiveSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load live session: %w", err)
	}
	if !slices.Contains(model.LiveStatuses, session.Status) {
		return 0, ErrSessionNotLive
	}

	if err := s.attendanceRepository.Join(ctx, sessionID, userID); err != nil {
		return 0, fmt.Errorf("failed to join live session: %w", err)
	}
	return s.recount(ctx, session.ID, session.HostID, userID, model.EventInsert)
}

// Leave marks userID as gone and returns the new viewer count.
func (s *AttendanceService) Leave(ctx context.Context, sessionID, userID string) (int, error) {
	session, err := s.liveSessionRepository.ByID(ctx, sessionID)
	if errors.Is(err, repository.ErrLiveSessionNotFound) {
		return 0, ErrLiveSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load live session: %w", err)
	}

	if err := s.attendanceRepository.Leave(ctx, sessionID, userID); err != nil {
		if errors.Is(err, repository.ErrAttendanceNotFound) {
			return 0, ErrNotAttending
		}
		return 0, fmt.Errorf("failed to leave live session: %w", err)
	}
	return s.recount(ctx, session.ID, session.HostID, userID, model.EventUpdate)
}

func (s *AttendanceService) recount(ctx context.Context, sessionID, hostID, userID, event string) (int, error) {
	viewers, err := s.liveSessionRepository.RecountViewers(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to count viewers: %w", err)
	}

	realtime.Notify(ctx, s.publisher, model.TableLiveAttendances, event, map[string]string{"session_id": sessionID, "user_id": userID})
	realtime.Notify(ctx, s.publisher, model.TableLiveSessions, model.EventUpdate, map[string]string{"id": sessionID, "host_id": hostID})
	slog.Debug("live viewers changed", "session_id", sessionID, "viewers", viewers)
	return viewers, nil
}

// Attendees lists the present viewers, earliest arrival first.
func (s *AttendanceService) Attendees(ctx context.Context, sessionID string) ([]model.AttendeeView, error) {
	rows, err := s.attendanceRepository.Present(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendees: %w", err)
	}

	ids := make([]string, len(rows))
	for i, a := range rows {
		ids[i] = a.UserID
	}
	people, avatars, err := loadPeople(ctx, s.profileRepository, s.resolver, ids)
	if err != nil {
		return nil, err
	}

	views := make([]model.AttendeeView, 0, len(rows))
	for _, a := range rows {
		views = append(views, model.AttendeeView{
			UserID:    a.UserID,
			Name:      DisplayName(people[a.UserID], "Unknown"),
			AvatarURL: avatars[a.UserID],
			JoinedAt:  a.JoinedAt,
		})
	}
	return views, nil
}
