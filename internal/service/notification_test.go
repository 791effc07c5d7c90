package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voclaria/voclaria/internal/db/dbtest"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/service"
)

func TestNotificationService_ListAndMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.Person(t, f.db, "a1", "Ana", dbtest.Student)
	dbtest.Person(t, f.db, "b1", "Ben Uy", dbtest.Student)
	community := newCommunity(f)
	svc := service.NewNotificationService(f.notifications, f.profiles, f.resolver, f.published)

	post, err := community.CreatePost(ctx, "a1", service.PostInput{Content: "Practice"})
	require.NoError(t, err)
	_, _, err = community.ToggleLike(ctx, "b1", post.ID)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = community.AddComment(ctx, "b1", post.ID, service.CommentInput{Content: "Great"})
	require.NoError(t, err)

	views, err := svc.List(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, model.NotificationComment, views[0].Type)
	assert.Equal(t, "Ben Uy commented on your post", views[0].Message)
	assert.Equal(t, "Ben Uy liked your post", views[1].Message)
	assert.Equal(t, post.ID, views[1].PostID)
	assert.Equal(t, 2, service.UnreadCount(views))

	assert.ErrorIs(t, svc.MarkRead(ctx, "b1", views[0].ID), service.ErrNotificationNotFound)
	require.NoError(t, svc.MarkRead(ctx, "a1", views[0].ID))

	views, err = svc.List(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 1, service.UnreadCount(views))

	n, err := svc.MarkAllRead(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = svc.MarkAllRead(ctx, "a1")
	require.NoError(t, err)
	assert.Zero(t, n)

	mine, err := svc.List(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, mine)
}
