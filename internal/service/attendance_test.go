package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voclaria/voclaria/internal/db/dbtest"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/service"
)

func TestAttendanceService_JoinLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.Person(t, f.db, "h1", "Host", dbtest.Student)
	dbtest.Person(t, f.db, "v1", "Ana Cruz", dbtest.Student)
	dbtest.Person(t, f.db, "v2", "Ben Uy", dbtest.Teacher)
	live := service.NewLiveSessionService(f.liveSessions, f.profiles, f.links, f.resolver, f.published)
	svc := service.NewAttendanceService(f.attendance, f.liveSessions, f.profiles, f.resolver, f.published)

	session, err := live.Start(ctx, "h1", service.StartSessionInput{})
	require.NoError(t, err)

	n, err := svc.Join(ctx, session.ID, "v1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = svc.Join(ctx, session.ID, "v2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = svc.Join(ctx, session.ID, "v1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stored, err := f.liveSessions.ByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Viewers)

	people, err := svc.Attendees(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "Ben Uy", people[0].Name)

	n, err = svc.Leave(ctx, session.ID, "v1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = svc.Leave(ctx, session.ID, "v1")
	assert.ErrorIs(t, err, service.ErrNotAttending)

	views, err := live.Live(ctx, "", service.LiveSessionFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "1", views[0].Viewers)

	_, err = svc.Join(ctx, "ghost", "v1")
	assert.ErrorIs(t, err, service.ErrLiveSessionNotFound)

	require.NoError(t, live.End(ctx, "h1", session.ID))
	_, err = svc.Join(ctx, session.ID, "v1")
	assert.ErrorIs(t, err, service.ErrSessionNotLive)

	assert.Equal(t, 4, f.published.count(model.TableLiveAttendances))
}
