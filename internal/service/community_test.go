package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voclaria/voclaria/internal/db/dbtest"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/service"
)

func newCommunity(f *fixture) *service.CommunityService {
	return service.NewCommunityService(f.posts, f.likes, f.comments, f.notifications, f.profiles, f.resolver, f.published)
}

func boolPtr(v bool) *bool { return &v }

func TestCommunityService_CreatePostAndFeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.Person(t, f.db, "a1", "Ana Cruz", dbtest.Student)
	dbtest.Person(t, f.db, "b1", "Ben Uy", dbtest.Student)
	svc := newCommunity(f)

	_, err := svc.CreatePost(ctx, "a1", service.PostInput{Content: "   "})
	assert.ErrorIs(t, err, service.ErrPostContentMissing)

	post, err := svc.CreatePost(ctx, "a1", service.PostInput{Title: "Intro", Content: " Hello class "})
	require.NoError(t, err)
	assert.Equal(t, "Hello class", post.Content)
	assert.Equal(t, model.PostTypeSpeaking, post.Type)
	assert.Equal(t, model.PostStatusPublished, post.Status)
	assert.True(t, post.AllowComments)
	assert.True(t, post.AllowReviews)

	older := &model.Post{UserID: "b1", Content: "Earlier", Type: model.PostTypeSpeaking, Status: model.PostStatusPublished,
		Visibility: model.PostVisibilityPublic, CreatedAt: time.Now().Add(-time.Hour)}
	draft := &model.Post{UserID: "b1", Content: "Draft", Type: model.PostTypeSpeaking, Status: "draft", Visibility: model.PostVisibilityPublic}
	require.NoError(t, f.posts.Create(ctx, older))
	require.NoError(t, f.posts.Create(ctx, draft))

	views, err := svc.Feed(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, post.ID, views[0].ID)
	assert.Equal(t, "Ana Cruz", views[0].AuthorName)
	assert.Equal(t, "Intro", views[0].Title)
	assert.Equal(t, older.ID, views[1].ID)

	_, err = svc.Thread(ctx, "a1", draft.ID)
	assert.ErrorIs(t, err, service.ErrPostNotFound)
	own, err := svc.Thread(ctx, "b1", draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "Draft", own.Post.Content)

	assert.Equal(t, []string{model.TablePosts}, f.published.tables())
}

func TestCommunityService_ToggleLike(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.Person(t, f.db, "a1", "Ana", dbtest.Student)
	dbtest.Person(t, f.db, "b1", "Ben", dbtest.Student)
	svc := newCommunity(f)

	post, err := svc.CreatePost(ctx, "a1", service.PostInput{Content: "Listen to this"})
	require.NoError(t, err)

	liked, n, err := svc.ToggleLike(ctx, "b1", post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, n)

	liked, n, err = svc.ToggleLike(ctx, "a1", post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 2, n)

	liked, n, err = svc.ToggleLike(ctx, "b1", post.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 1, n)

	views, err := svc.Feed(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].LikedByMe)
	assert.Equal(t, 1, views[0].LikeCount)

	views, err = svc.Feed(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, views[0].LikedByMe)

	// Only Ben's like notifies; liking your own post does not.
	notes, err := f.notifications.ForRecipient(ctx, "a1", 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "b1", notes[0].ActorID)
	assert.Equal(t, model.NotificationLike, notes[0].Type)

	assert.Equal(t, 3, f.published.count(model.TableLikes))
	assert.Equal(t, 1, f.published.count(model.TableNotifications))

	_, _, err = svc.ToggleLike(ctx, "b1", "ghost")
	assert.ErrorIs(t, err, service.ErrPostNotFound)
}

func TestCommunityService_AddComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.Person(t, f.db, "a1", "Ana Cruz", dbtest.Student)
	dbtest.Person(t, f.db, "b1", "Ben Uy", dbtest.Student)
	f.store.put("b1/100.png", time.Now())
	require.NoError(t, f.profiles.UpdateAvatar(ctx, "b1", "b1/100.png"))
	svc := newCommunity(f)

	post, err := svc.CreatePost(ctx, "a1", service.PostInput{Content: "My reading"})
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, "b1", post.ID, service.CommentInput{Content: "  "})
	assert.ErrorIs(t, err, service.ErrCommentMissing)
	_, err = svc.AddComment(ctx, "b1", post.ID, service.CommentInput{Content: strings.Repeat("a", 2001)})
	assert.ErrorIs(t, err, service.ErrCommentTooLong)
	_, err = svc.AddComment(ctx, "b1", post.ID, service.CommentInput{Content: "Nice", RatingDelivery: intPtr(6)})
	assert.ErrorIs(t, err, service.ErrInvalidRating)

	first, err := svc.AddComment(ctx, "b1", post.ID, service.CommentInput{Content: "Nice", RatingDelivery: intPtr(4), RatingConfidence: intPtr(5)})
	require.NoError(t, err)
	require.NotNil(t, first.RatingDelivery)
	assert.Equal(t, 4, *first.RatingDelivery)

	time.Sleep(2 * time.Millisecond)
	second, err := svc.AddComment(ctx, "a1", post.ID, service.CommentInput{Content: "Thanks", RatingDelivery: intPtr(0)})
	require.NoError(t, err)
	assert.Nil(t, second.RatingDelivery)

	thread, err := svc.Thread(ctx, "b1", post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, thread.Post.CommentCount)
	assert.Equal(t, 5, thread.Post.Rating)
	require.Len(t, thread.Comments, 2)
	assert.Equal(t, second.ID, thread.Comments[0].ID)
	assert.Equal(t, 0, thread.Comments[0].Rating)
	assert.Equal(t, "Ben Uy", thread.Comments[1].AuthorName)
	assert.Equal(t, "signed://b1/100.png", thread.Comments[1].AuthorAvatarURL)
	assert.Equal(t, 5, thread.Comments[1].Rating)

	notes, err := f.notifications.ForRecipient(ctx, "a1", 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationComment, notes[0].Type)
	assert.Equal(t, 2, f.published.count(model.TableComments))
}

func TestCommunityService_CommentSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.Person(t, f.db, "a1", "Ana", dbtest.Student)
	dbtest.Person(t, f.db, "b1", "Ben", dbtest.Student)
	svc := newCommunity(f)

	closed, err := svc.CreatePost(ctx, "a1", service.PostInput{Content: "No comments", AllowComments: boolPtr(false)})
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, "b1", closed.ID, service.CommentInput{Content: "Hi"})
	assert.ErrorIs(t, err, service.ErrCommentsDisabled)

	noReviews, err := svc.CreatePost(ctx, "a1", service.PostInput{Content: "No reviews", AllowReviews: boolPtr(false)})
	require.NoError(t, err)
	c, err := svc.AddComment(ctx, "b1", noReviews.ID, service.CommentInput{Content: "Hi", RatingDelivery: intPtr(3)})
	require.NoError(t, err)
	assert.Nil(t, c.RatingDelivery)
}

func TestCommentRating(t *testing.T) {
	tests := []struct {
		delivery, confidence *int
		want                 int
	}{
		{nil, nil, 0},
		{intPtr(4), nil, 4},
		{nil, intPtr(2), 2},
		{intPtr(4), intPtr(5), 5},
		{intPtr(3), intPtr(4), 4},
		{intPtr(1), intPtr(2), 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, service.CommentRating(tt.delivery, tt.confidence))
	}
}
