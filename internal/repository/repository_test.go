package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voclaria/voclaria/internal/db/dbtest"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/repository"
)

func strPtr(s string) *string { return &s }

func TestProfileRepository_ByIDsSkipsUnknown(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.Person(t, database, "s1", "Ana Cruz", dbtest.Student)
	dbtest.Person(t, database, "s2", "Ben Uy", dbtest.Student)

	repo := repository.NewProfileRepository(database)
	profiles, err := repo.ByIDs(context.Background(), []string{"s1", "s2", "ghost"})
	require.NoError(t, err)
	assert.Len(t, profiles, 2)

	empty, err := repo.ByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProfileRepository_UpsertKeepsAvatar(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.Person(t, database, "s1", "Ana", dbtest.Student)
	ctx := context.Background()
	repo := repository.NewProfileRepository(database)

	require.NoError(t, repo.UpdateAvatar(ctx, "s1", "s1/100.png"))
	require.NoError(t, repo.Upsert(ctx, &model.Profile{ID: "s1", Name: strPtr("Ana Cruz"), Role: strPtr(model.RoleStudent)}))

	p, err := repo.ByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Cruz", p.DisplayName())
	assert.Equal(t, "s1/100.png", p.StoredAvatar())
}

func TestProfileRepository_NotFound(t *testing.T) {
	database := dbtest.Open(t)
	repo := repository.NewProfileRepository(database)

	_, err := repo.ByID(context.Background(), "nobody")
	assert.ErrorIs(t, err, repository.ErrProfileNotFound)
	assert.ErrorIs(t, repo.UpdateName(context.Background(), "nobody", "x"), repository.ErrProfileNotFound)
}

func TestTeacherStudentRepository_UpsertAndFilter(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.Person(t, database, "t1", "Teacher", dbtest.Teacher)
	dbtest.Person(t, database, "s1", "Ana", dbtest.Student)
	dbtest.Person(t, database, "s2", "Ben", dbtest.Student)
	ctx := context.Background()
	repo := repository.NewTeacherStudentRepository(database)

	require.NoError(t, repo.Upsert(ctx, &model.TeacherStudent{TeacherID: "t1", StudentID: "s1", Status: strPtr(model.StudentStatusActive)}))
	require.NoError(t, repo.Upsert(ctx, &model.TeacherStudent{TeacherID: "t1", StudentID: "s2", Status: strPtr("pending")}))
	// second upsert of the same pair updates in place
	require.NoError(t, repo.Upsert(ctx, &model.TeacherStudent{TeacherID: "t1", StudentID: "s1", Status: strPtr(model.StudentStatusGraduated), Strand: strPtr("STEM")}))

	links, err := repo.ByTeacher(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, links, 2)

	all, err := repo.StudentIDsByTeacher(ctx, "t1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2"}, all)

	mine, err := repo.StudentIDsByTeacher(ctx, "t1", model.StudentStatusActive, model.StudentStatusGraduated)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, mine)

	assert.ErrorIs(t, repo.SetStatus(ctx, "t1", "nobody", model.StudentStatusActive), repository.ErrLinkNotFound)
}

func TestProgressRepository_Upsert(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.Person(t, database, "s1", "Ana", dbtest.Student)
	ctx := context.Background()
	repo := repository.NewProgressRepository(database)

	require.NoError(t, repo.Upsert(ctx, &model.StudentProgress{StudentID: "s1", SpeakingCompleted: 1, SpeakingTotal: 4}))
	require.NoError(t, repo.Upsert(ctx, &model.StudentProgress{StudentID: "s1", SpeakingCompleted: 3, SpeakingTotal: 4}))

	rows, err := repo.ByStudentIDs(ctx, []string{"s1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].SpeakingCompleted)
	assert.Nil(t, rows[0].Confidence)
}

func TestJoinRequestRepository_SetStatusScopedToTeacher(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.Person(t, database, "t1", "Teacher One", dbtest.Teacher)
	dbtest.Person(t, database, "t2", "Teacher Two", dbtest.Teacher)
	dbtest.Person(t, database, "s1", "Ana", dbtest.Student)
	dbtest.Person(t, database, "s2", "Ben", dbtest.Student)
	ctx := context.Background()
	repo := repository.NewJoinRequestRepository(database)

	first := &model.JoinRequest{TeacherID: "t1", StudentID: "s1", RequestedAt: time.Now().Add(-time.Hour)}
	second := &model.JoinRequest{TeacherID: "t1", StudentID: "s2"}
	other := &model.JoinRequest{TeacherID: "t2", StudentID: "s1"}
	for _, r := range []*model.JoinRequest{second, first, other} {
		require.NoError(t, repo.Create(ctx, r))
	}

	pending, err := repo.PendingByTeacher(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)

	n, err := repo.SetStatus(ctx, "t1", []string{first.ID, other.ID}, model.JoinStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	pending, err = repo.PendingByTeacher(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	found, err := repo.ByIDs(ctx, "t1", []string{other.ID})
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, repo.Reopen(ctx, "t1", first.ID))
	pending, err = repo.PendingByTeacher(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestLiveSessionRepository_ByStatusesAndEnd(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.Person(t, database, "h1", "Host", dbtest.Student)
	dbtest.Person(t, database, "h2", "Other Host", dbtest.Student)
	ctx := context.Background()
	repo := repository.NewLiveSessionRepository(database)

	older := time.Now().Add(-time.Hour)
	a := &model.LiveSession{HostID: "h1", Status: "LIVE", StartedAt: &older}
	b := &model.LiveSession{HostID: "h2", Status: model.LiveStatusLive}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	live, err := repo.ByStatuses(ctx, model.LiveStatuses)
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, b.ID, live[0].ID)

	assert.ErrorIs(t, repo.End(ctx, a.ID, "someone-else"), repository.ErrLiveSessionNotFound)
	require.NoError(t, repo.End(ctx, a.ID, "h1"))

	ended, err := repo.ByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LiveStatusEnded, ended.Status)
	assert.NotNil(t, ended.EndedAt)
}

func TestSingleActiveIndexes(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.Person(t, database, "t1", "Teacher", dbtest.Teacher)
	dbtest.Person(t, database, "s1", "Ana", dbtest.Student)
	ctx := context.Background()

	sessions := repository.NewLiveSessionRepository(database)
	live := &model.LiveSession{HostID: "s1", Status: "active"}
	require.NoError(t, sessions.Create(ctx, live))
	err := sessions.Create(ctx, &model.LiveSession{HostID: "s1", Status: "LIVE"})
	assert.ErrorIs(t, err, repository.ErrHostAlreadyLive)

	require.NoError(t, sessions.End(ctx, live.ID, "s1"))
	require.NoError(t, sessions.Create(ctx, &model.LiveSession{HostID: "s1", Status: model.LiveStatusLive}))
	require.NoError(t, sessions.Create(ctx, &model.LiveSession{HostID: "s1", Status: model.LiveStatusEnded}))

	requests := repository.NewJoinRequestRepository(database)
	pending := &model.JoinRequest{TeacherID: "t1", StudentID: "s1"}
	require.NoError(t, requests.Create(ctx, pending))
	err = requests.Create(ctx, &model.JoinRequest{TeacherID: "t1", StudentID: "s1"})
	assert.ErrorIs(t, err, repository.ErrDuplicatePending)

	_, err = requests.SetStatus(ctx, "t1", []string{pending.ID}, model.JoinStatusRejected)
	require.NoError(t, err)
	assert.NoError(t, requests.Create(ctx, &model.JoinRequest{TeacherID: "t1", StudentID: "s1"}))
}

func TestTokenRepository_ConsumeOnce(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.Person(t, database, "u1", "User", dbtest.Student)
	ctx := context.Background()
	repo := repository.NewTokenRepository(database)

	require.NoError(t, repo.Create(ctx, &model.Token{UserID: "u1", Type: model.TokenTypeEmailConfirm, Token: "abc", ExpiresAt: time.Now().Add(time.Hour)}))

	_, err := repo.Consume(ctx, "abc", model.TokenTypePasswordReset)
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)

	tok, err := repo.Consume(ctx, "abc", model.TokenTypeEmailConfirm)
	require.NoError(t, err)
	assert.Equal(t, "u1", tok.UserID)

	_, err = repo.Consume(ctx, "abc", model.TokenTypeEmailConfirm)
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)
}

func TestTokenRepository_RevokeAndPurge(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.Person(t, database, "u1", "User", dbtest.Student)
	ctx := context.Background()
	repo := repository.NewTokenRepository(database)
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &model.Token{UserID: "u1", Type: model.TokenTypePasswordReset, Token: "old", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &model.Token{UserID: "u1", Type: model.TokenTypeEmailConfirm, Token: "keep", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &model.Token{UserID: "u1", Type: model.TokenTypeEmailConfirm, Token: "stale", ExpiresAt: now.Add(-time.Hour)}))

	require.NoError(t, repo.Revoke(ctx, "u1", model.TokenTypePasswordReset))
	_, err := repo.Consume(ctx, "old", model.TokenTypePasswordReset)
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)

	n, err := repo.Purge(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.Consume(ctx, "keep", model.TokenTypeEmailConfirm)
	assert.NoError(t, err)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	database := dbtest.Open(t)
	ctx := context.Background()
	repo := repository.NewUserRepository(database)

	require.NoError(t, repo.Create(ctx, &model.User{ID: "u1", Email: "a@example.com", PasswordHash: "x", CreatedAt: time.Now()}))
	err := repo.Create(ctx, &model.User{ID: "u2", Email: "a@example.com", PasswordHash: "x", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	_, err = repo.ByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestLikeRepository_AddRemove(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.Person(t, database, "u1", "User", dbtest.Student)
	ctx := context.Background()
	post := &model.Post{UserID: "u1", Content: "Hi", Type: model.PostTypeSpeaking, Status: model.PostStatusPublished, Visibility: model.PostVisibilityPublic}
	require.NoError(t, repository.NewPostRepository(database).Create(ctx, post))
	repo := repository.NewLikeRepository(database)

	added, err := repo.Add(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = repo.Add(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.False(t, added)

	counts, err := repo.Counts(ctx, []string{post.ID, "other"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{post.ID: 1}, counts)

	liked, err := repo.LikedBy(ctx, "u1", []string{post.ID})
	require.NoError(t, err)
	assert.True(t, liked[post.ID])

	removed, err := repo.Remove(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.Remove(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLiveSessionRepository_RecountViewers(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.Person(t, database, "h1", "Host", dbtest.Student)
	dbtest.Person(t, database, "v1", "Viewer", dbtest.Student)
	ctx := context.Background()
	sessions := repository.NewLiveSessionRepository(database)
	attendance := repository.NewAttendanceRepository(database)

	s := &model.LiveSession{HostID: "h1", Status: model.LiveStatusLive, Viewers: 1100}
	require.NoError(t, sessions.Create(ctx, s))

	require.NoError(t, attendance.Join(ctx, s.ID, "v1"))
	n, err := sessions.RecountViewers(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, attendance.Leave(ctx, s.ID, "v1"))
	assert.ErrorIs(t, attendance.Leave(ctx, s.ID, "v1"), repository.ErrAttendanceNotFound)
	n, err = sessions.RecountViewers(ctx, s.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = sessions.RecountViewers(ctx, "ghost")
	assert.ErrorIs(t, err, repository.ErrLiveSessionNotFound)
}
