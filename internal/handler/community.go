package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/voclaria/voclaria/internal/ctxkeys"
	"github.com/voclaria/voclaria/internal/feed"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/realtime"
	"github.com/voclaria/voclaria/internal/response"
	"github.com/voclaria/voclaria/internal/service"
)

type CommunityHandler struct {
	communityService *service.CommunityService
	subscriber       realtime.Subscriber
}

func NewCommunityHandler(communityService *service.CommunityService, subscriber realtime.Subscriber) *CommunityHandler {
	return &CommunityHandler{
		communityService: communityService,
		subscriber:       subscriber,
	}
}

// Feed handles GET /app/posts.
func (h *CommunityHandler) Feed(w http.ResponseWriter, r *http.Request) {
	viewer := ctxkeys.User(r.Context())

	posts, err := h.communityService.Feed(r.Context(), viewer.ID)
	if err != nil {
		writeError(w, r, err, "Failed to load posts")
		return
	}
	response.Success(w, http.StatusOK, posts, ctxkeys.RequestID(r.Context()))
}

// FeedStream handles GET /app/posts/stream.
func (h *CommunityHandler) FeedStream(w http.ResponseWriter, r *http.Request) {
	viewerID := ctxkeys.User(r.Context()).ID

	syncer := feed.New("posts:"+viewerID,
		func(ctx context.Context) ([]model.PostView, error) {
			return h.communityService.Feed(ctx, viewerID)
		},
		h.subscriber,
		realtime.Channel{Name: "posts:" + viewerID, Table: model.TablePosts},
		realtime.Channel{Name: "posts-likes:" + viewerID, Table: model.TableLikes},
		realtime.Channel{Name: "posts-comments:" + viewerID, Table: model.TableComments},
		realtime.Channel{Name: "posts-authors:" + viewerID, Table: model.TableProfiles},
	)

	serveStream(w, r, syncer, nil)
}

// Create handles POST /app/posts.
func (h *CommunityHandler) Create(w http.ResponseWriter, r *http.Request) {
	author := ctxkeys.User(r.Context())

	var req service.PostInput
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.communityService.CreatePost(r.Context(), author.ID, req)
	if err != nil {
		writeError(w, r, err, "Failed to create post")
		return
	}
	response.Success(w, http.StatusCreated, map[string]string{"id": post.ID}, ctxkeys.RequestID(r.Context()))
}

// Thread handles GET /app/posts/{id}.
func (h *CommunityHandler) Thread(w http.ResponseWriter, r *http.Request) {
	viewer := ctxkeys.User(r.Context())

	thread, err := h.communityService.Thread(r.Context(), viewer.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to load post")
		return
	}
	response.Success(w, http.StatusOK, thread, ctxkeys.RequestID(r.Context()))
}

// ThreadStream handles GET /app/posts/{id}/stream. Each snapshot holds the
// single thread.
func (h *CommunityHandler) ThreadStream(w http.ResponseWriter, r *http.Request) {
	viewerID := ctxkeys.User(r.Context()).ID
	postID := chi.URLParam(r, "id")

	// Reject unknown posts before the stream opens.
	if _, err := h.communityService.Thread(r.Context(), viewerID, postID); err != nil {
		writeError(w, r, err, "Failed to load post")
		return
	}

	name := "post:" + postID + ":" + viewerID
	syncer := feed.New(name,
		func(ctx context.Context) ([]model.PostThread, error) {
			thread, err := h.communityService.Thread(ctx, viewerID, postID)
			if err != nil {
				return nil, err
			}
			return []model.PostThread{*thread}, nil
		},
		h.subscriber,
		realtime.Channel{Name: name + ":post", Table: model.TablePosts, Filter: realtime.Eq("id", postID)},
		realtime.Channel{Name: name + ":likes", Table: model.TableLikes, Filter: realtime.Eq("post_id", postID)},
		realtime.Channel{Name: name + ":comments", Table: model.TableComments, Filter: realtime.Eq("post_id", postID)},
		realtime.Channel{Name: name + ":authors", Table: model.TableProfiles},
	)

	serveStream(w, r, syncer, nil)
}

// ToggleLike handles POST /app/posts/{id}/like.
func (h *CommunityHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	liked, count, err := h.communityService.ToggleLike(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to update like")
		return
	}
	response.Success(w, http.StatusOK, map[string]any{
		"liked":      liked,
		"like_count": count,
	}, ctxkeys.RequestID(r.Context()))
}

// AddComment handles POST /app/posts/{id}/comments.
func (h *CommunityHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req service.CommentInput
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.communityService.AddComment(r.Context(), user.ID, chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err, "Failed to add comment")
		return
	}
	response.Success(w, http.StatusCreated, map[string]any{
		"id":     comment.ID,
		"rating": service.CommentRating(comment.RatingDelivery, comment.RatingConfidence),
	}, ctxkeys.RequestID(r.Context()))
}
