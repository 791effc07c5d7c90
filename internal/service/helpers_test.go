package service_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/voclaria/voclaria/internal/avatar"
	"github.com/voclaria/voclaria/internal/db/dbtest"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/repository"
	"github.com/voclaria/voclaria/internal/service"
	"github.com/voclaria/voclaria/internal/storage"
)

// memStorage is an in-memory storage.Storage. Signed URLs are
// "signed://<path>".
type memStorage struct {
	mu      sync.Mutex
	objects map[string]storage.Object
	saveErr error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string]storage.Object{}}
}

func (m *memStorage) put(path string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = storage.Object{Key: path, LastModified: at}
}

func (m *memStorage) has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[path]
	return ok
}

func (m *memStorage) Save(_ context.Context, path string, body io.Reader, _ string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = storage.Object{Key: path, Size: int64(len(data)), LastModified: time.Now()}
	return nil
}

func (m *memStorage) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	return nil
}

func (m *memStorage) List(_ context.Context, prefix string, opts storage.ListOptions) ([]storage.Object, error) {
	m.mu.Lock()
	var out []storage.Object
	for k, o := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, o)
		}
	}
	m.mu.Unlock()
	if opts.NewestFirst {
		storage.SortNewestFirst(out)
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *memStorage) SignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "signed://" + path, nil
}

// recorder captures published notifications.
type recorder struct {
	mu  sync.Mutex
	got []model.ChangeNotification
}

func (r *recorder) Publish(_ context.Context, n model.ChangeNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return nil
}

func (r *recorder) tables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, n := range r.got {
		out = append(out, n.Table)
	}
	return out
}

type fixture struct {
	db        *sqlx.DB
	store     *memStorage
	published *recorder
	resolver  *avatar.Resolver
	email     *service.EmailService

	users        repository.UserRepository
	sessions     repository.SessionRepository
	tokens       repository.TokenRepository
	profiles     repository.ProfileRepository
	links        repository.TeacherStudentRepository
	progress     repository.ProgressRepository
	liveSessions repository.LiveSessionRepository
	joinRequests repository.JoinRequestRepository
	attendance   repository.AttendanceRepository

	posts         repository.PostRepository
	likes         repository.LikeRepository
	comments      repository.CommentRepository
	notifications repository.NotificationRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := dbtest.Open(t)
	store := newMemStorage()
	return &fixture{
		db:           database,
		store:        store,
		published:    &recorder{},
		resolver:     avatar.NewResolver(store, avatar.Config{Bucket: "avatars"}),
		email:        service.NewEmailService("", "noreply@example.com", "http://localhost:8090", "Voclaria", true),
		users:        repository.NewUserRepository(database),
		sessions:     repository.NewSessionRepository(database),
		tokens:       repository.NewTokenRepository(database),
		profiles:     repository.NewProfileRepository(database),
		links:        repository.NewTeacherStudentRepository(database),
		progress:     repository.NewProgressRepository(database),
		liveSessions: repository.NewLiveSessionRepository(database),
		joinRequests: repository.NewJoinRequestRepository(database),
		attendance:   repository.NewAttendanceRepository(database),

		posts:         repository.NewPostRepository(database),
		likes:         repository.NewLikeRepository(database),
		comments:      repository.NewCommentRepository(database),
		notifications: repository.NewNotificationRepository(database),
	}
}

func (f *fixture) auth() *service.AuthService {
	return service.NewAuthService(f.users, f.sessions, f.tokens, f.profiles, f.email, f.published,
		"test-secret", time.Hour, time.Hour)
}

func (f *fixture) link(t *testing.T, teacherID, studentID, status string) {
	t.Helper()
	err := f.links.Upsert(context.Background(), &model.TeacherStudent{TeacherID: teacherID, StudentID: studentID, Status: &status})
	if err != nil {
		t.Fatalf("link: %v", err)
	}
}

func (r *recorder) count(table string) int {
	n := 0
	for _, t := range r.tables() {
		if t == table {
			n++
		}
	}
	return n
}

func intPtr(v int) *int { return &v }
