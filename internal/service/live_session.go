package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/voclaria/voclaria/internal/avatar"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/realtime"
	"github.com/voclaria/voclaria/internal/repository"
)

var (
	ErrLiveSessionNotFound = errors.New("live session not found")
	ErrAlreadyLive         = errors.New("you already have a live session")
)

type LiveSessionFilter struct {
	// MyStudentsOnly keeps sessions hosted by the viewer's students.
	MyStudentsOnly bool
	// Query matches host name or title, case-insensitively.
	Query string
}

type StartSessionInput struct {
	Title string `json:"title"`
	Level string `json:"level"`
}

type LiveSessionService struct {
	liveSessionRepository    repository.LiveSessionRepository
	profileRepository        repository.ProfileRepository
	teacherStudentRepository repository.TeacherStudentRepository
	resolver                 *avatar.Resolver
	publisher                realtime.Publisher
}

func NewLiveSessionService(
	liveSessionRepository repository.LiveSessionRepository,
	profileRepository repository.ProfileRepository,
	teacherStudentRepository repository.TeacherStudentRepository,
	resolver *avatar.Resolver,
	publisher realtime.Publisher,
) *LiveSessionService {
	return &LiveSessionService{
		liveSessionRepository:    liveSessionRepository,
		profileRepository:        profileRepository,
		teacherStudentRepository: teacherStudentRepository,
		resolver:                 resolver,
		publisher:                publisher,
	}
}

// Live lists live sessions as seen by viewerID. Sessions hosted by the
// viewer's students come first, then by viewer count.
func (s *LiveSessionService) Live(ctx context.Context, viewerID string, filter LiveSessionFilter) ([]model.LiveSessionView, error) {
	sessions, err := s.liveSessionRepository.ByStatuses(ctx, model.LiveStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to list live sessions: %w", err)
	}
	if len(sessions) == 0 {
		return []model.LiveSessionView{}, nil
	}

	myStudents := map[string]bool{}
	if viewerID != "" {
		ids, err := s.teacherStudentRepository.StudentIDsByTeacher(ctx, viewerID,
			model.StudentStatusActive, model.StudentStatusGraduated, model.StudentStatusInactive)
		if err != nil {
			return nil, fmt.Errorf("failed to list students: %w", err)
		}
		for _, id := range ids {
			myStudents[id] = true
		}
	}

	hostIDs := make([]string, 0, len(sessions))
	seen := map[string]bool{}
	for _, ls := range sessions {
		if ls.HostID != "" && !seen[ls.HostID] {
			seen[ls.HostID] = true
			hostIDs = append(hostIDs, ls.HostID)
		}
	}
	hosts, err := s.profileRepository.ByIDs(ctx, hostIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load hosts: %w", err)
	}
	byID := make(map[string]*model.Profile, len(hosts))
	for _, p := range hosts {
		byID[p.ID] = p
	}

	hints := make(map[string]string, len(hostIDs))
	for _, id := range hostIDs {
		hints[id] = byID[id].StoredAvatar()
	}
	avatars := s.resolver.ResolveAll(ctx, hints)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	views := make([]model.LiveSessionView, 0, len(sessions))
	viewers := make(map[string]int, len(sessions))
	for _, ls := range sessions {
		v := model.LiveSessionView{
			ID:            ls.ID,
			HostID:        ls.HostID,
			HostName:      DisplayName(byID[ls.HostID], "Unknown"),
			HostAvatarURL: avatars[ls.HostID],
			Title:         orDefault(deref(ls.Title), "Live Session"),
			Level:         orDefault(deref(ls.Level), "Basic"),
			Viewers:       CompactCount(ls.Viewers),
			StartedAt:     ls.StartedAt,
			IsMyStudent:   myStudents[ls.HostID],
		}
		if filter.MyStudentsOnly && !v.IsMyStudent {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(v.HostName), query) && !strings.Contains(strings.ToLower(v.Title), query) {
			continue
		}
		viewers[v.ID] = ls.Viewers
		views = append(views, v)
	}

	sort.SliceStable(views, func(i, j int) bool {
		if views[i].IsMyStudent != views[j].IsMyStudent {
			return views[i].IsMyStudent
		}
		return viewers[views[i].ID] > viewers[views[j].ID]
	})
	return views, nil
}

func (s *LiveSessionService) Start(ctx context.Context, hostID string, in StartSessionInput) (*model.LiveSession, error) {
	live, err := s.liveSessionRepository.ByStatuses(ctx, model.LiveStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to list live sessions: %w", err)
	}
	for _, ls := range live {
		if ls.HostID == hostID {
			return nil, ErrAlreadyLive
		}
	}

	session := &model.LiveSession{
		HostID: hostID,
		Status: model.LiveStatusLive,
	}
	if t := strings.TrimSpace(in.Title); t != "" {
		session.Title = &t
	}
	if l := strings.TrimSpace(in.Level); l != "" {
		session.Level = &l
	}

	if err := s.liveSessionRepository.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrHostAlreadyLive) {
			return nil, ErrAlreadyLive
		}
		return nil, fmt.Errorf("failed to start live session: %w", err)
	}

	realtime.Notify(ctx, s.publisher, model.TableLiveSessions, model.EventInsert, map[string]string{"id": session.ID, "host_id": hostID})
	slog.Info("live session started", "session_id", session.ID, "host_id", hostID)
	return session, nil
}

func (s *LiveSessionService) End(ctx context.Context, hostID, sessionID string) error {
	if err := s.liveSessionRepository.End(ctx, sessionID, hostID); err != nil {
		if errors.Is(err, repository.ErrLiveSessionNotFound) {
			return ErrLiveSessionNotFound
		}
		return fmt.Errorf("failed to end live session: %w", err)
	}

	realtime.Notify(ctx, s.publisher, model.TableLiveSessions, model.EventUpdate, map[string]string{"id": sessionID, "host_id": hostID})
	slog.Info("live session ended", "session_id", sessionID, "host_id", hostID)
	return nil
}

// CompactCount renders viewer counts like 723, 1.1k or 2.0m.
func CompactCount(n int) string {
	v := max(0, n)
	switch {
	case v >= 1_000_000:
		return strconv.FormatFloat(float64(v)/1_000_000, 'f', 1, 64) + "m"
	case v >= 1_000:
		return strconv.FormatFloat(float64(v)/1_000, 'f', 1, 64) + "k"
	default:
		return strconv.Itoa(v)
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
