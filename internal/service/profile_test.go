package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voclaria/voclaria/internal/db/dbtest"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/service"
)

func newProfileService(f *fixture) *service.ProfileService {
	return service.NewProfileService(f.profiles, f.store, f.resolver, f.published)
}

func TestProfileService_UploadAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.Person(t, f.db, "u1", "Ana", dbtest.Student)
	svc := newProfileService(f)

	assert.Empty(t, svc.AvatarURL(ctx, "u1"))

	url, err := svc.UploadAvatar(ctx, "u1", strings.NewReader("png"), "me.PNG", "image/png")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "signed://u1/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	first, err := svc.ByID(ctx, "u1")
	require.NoError(t, err)
	firstPath := first.StoredAvatar()
	assert.True(t, f.store.has(firstPath))
	assert.Equal(t, url, svc.AvatarURL(ctx, "u1"))

	time.Sleep(2 * time.Millisecond)
	_, err = svc.UploadAvatar(ctx, "u1", strings.NewReader("jpg"), "me.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.False(t, f.store.has(firstPath))
	assert.Contains(t, f.published.tables(), model.TableProfiles)
}

func TestProfileService_UploadAvatarRemovesBucketPrefixedPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.Person(t, f.db, "u1", "Ana", dbtest.Student)
	f.store.put("u1/old.png", time.Now().Add(-time.Hour))
	require.NoError(t, f.profiles.UpdateAvatar(ctx, "u1", "avatars/u1/old.png"))
	svc := newProfileService(f)

	_, err := svc.UploadAvatar(ctx, "u1", strings.NewReader("png"), "me.png", "image/png")
	require.NoError(t, err)
	assert.False(t, f.store.has("u1/old.png"))
}

func TestProfileService_UploadAvatarStorageFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.Person(t, f.db, "u1", "Ana", dbtest.Student)
	f.store.saveErr = errors.New("bucket unavailable")
	svc := newProfileService(f)

	_, err := svc.UploadAvatar(ctx, "u1", strings.NewReader("png"), "me.png", "image/png")
	require.Error(t, err)

	p, err := svc.ByID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, p.StoredAvatar())
	assert.Empty(t, f.published.tables())
}

func TestProfileService_UpdateNameAndPreassessment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.Person(t, f.db, "u1", "Ana", dbtest.Student)
	svc := newProfileService(f)

	require.NoError(t, svc.UpdateName(ctx, "u1", "  Ana Cruz "))
	assert.Error(t, svc.UpdateName(ctx, "u1", "   "))
	assert.ErrorIs(t, svc.UpdateName(ctx, "ghost", "Name"), service.ErrProfileNotFound)

	require.NoError(t, svc.CompletePreassessment(ctx, "u1"))
	p, err := svc.ByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Cruz", p.DisplayName())
	assert.True(t, p.HasCompletedPreassessment)
}

func TestProgressService_Record(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.Person(t, f.db, "s1", "Ana", dbtest.Student)
	svc := service.NewProgressService(f.progress, f.published)

	_, err := svc.Record(ctx, "s1", service.ProgressInput{SpeakingCompleted: 3, SpeakingTotal: 2})
	assert.ErrorIs(t, err, service.ErrInvalidProgress)
	_, err = svc.Record(ctx, "s1", service.ProgressInput{Confidence: intPtr(101)})
	assert.ErrorIs(t, err, service.ErrInvalidProgress)

	p, err := svc.Record(ctx, "s1", service.ProgressInput{SpeakingCompleted: 1, SpeakingTotal: 2, Anxiety: intPtr(30)})
	require.NoError(t, err)
	assert.Equal(t, 50, service.ProgressPercent(p))
	assert.Equal(t, []string{model.TableStudentProgress}, f.published.tables())
}

func TestProgressService_Mine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.Person(t, f.db, "s1", "Ana", dbtest.Student)
	svc := service.NewProgressService(f.progress, f.published)

	empty, err := svc.Mine(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", empty.StudentID)
	assert.Zero(t, service.ProgressPercent(empty))

	_, err = svc.Record(ctx, "s1", service.ProgressInput{SpeakingCompleted: 2, SpeakingTotal: 4})
	require.NoError(t, err)

	p, err := svc.Mine(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.SpeakingCompleted)
}
