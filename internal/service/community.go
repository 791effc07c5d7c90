package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/voclaria/voclaria/internal/avatar"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/realtime"
	"github.com/voclaria/voclaria/internal/repository"
)

const (
	feedLimit        = 20
	maxCommentLength = 2000
)

var (
	ErrPostNotFound       = errors.New("post not found")
	ErrPostContentMissing = errors.New("post content is required")
	ErrCommentMissing     = errors.New("comment cannot be empty")
	ErrCommentTooLong     = errors.New("comment must be at most 2000 characters")
	ErrInvalidRating      = errors.New("ratings must be between 1 and 5")
	ErrCommentsDisabled   = errors.New("comments are turned off for this post")
)

type PostInput struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	MediaURL      string `json:"media_url"`
	Module        string `json:"module"`
	Type          string `json:"type"`
	AllowComments *bool  `json:"allow_comments"`
	AllowReviews  *bool  `json:"allow_reviews"`
}

// CommentInput carries optional 1-5 ratings. Zero means unrated.
type CommentInput struct {
	Content          string `json:"content"`
	RatingDelivery   *int   `json:"rating_delivery"`
	RatingConfidence *int   `json:"rating_confidence"`
}

type CommunityService struct {
	postRepository         repository.PostRepository
	likeRepository         repository.LikeRepository
	commentRepository      repository.CommentRepository
	notificationRepository repository.NotificationRepository
	profileRepository      repository.ProfileRepository
	resolver               *avatar.Resolver
	publisher              realtime.Publisher
}

func NewCommunityService(
	postRepository repository.PostRepository,
	likeRepository repository.LikeRepository,
	commentRepository repository.CommentRepository,
	notificationRepository repository.NotificationRepository,
	profileRepository repository.ProfileRepository,
	resolver *avatar.Resolver,
	publisher realtime.Publisher,
) *CommunityService {
	return &CommunityService{
		postRepository:         postRepository,
		likeRepository:         likeRepository,
		commentRepository:      commentRepository,
		notificationRepository: notificationRepository,
		profileRepository:      profileRepository,
		resolver:               resolver,
		publisher:              publisher,
	}
}

func (s *CommunityService) CreatePost(ctx context.Context, authorID string, in PostInput) (*model.Post, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, ErrPostContentMissing
	}

	post := &model.Post{
		UserID:        authorID,
		Content:       content,
		Title:         optional(in.Title),
		MediaURL:      optional(in.MediaURL),
		Module:        optional(in.Module),
		Type:          orDefault(strings.TrimSpace(in.Type), model.PostTypeSpeaking),
		Status:        model.PostStatusPublished,
		Visibility:    model.PostVisibilityPublic,
		AllowComments: in.AllowComments == nil || *in.AllowComments,
		AllowReviews:  in.AllowReviews == nil || *in.AllowReviews,
	}
	if err := s.postRepository.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	realtime.Notify(ctx, s.publisher, model.TablePosts, model.EventInsert, map[string]string{"id": post.ID, "user_id": authorID})
	slog.Info("post created", "post_id", post.ID, "user_id", authorID)
	return post, nil
}

// Feed returns the newest public posts as seen by viewerID.
func (s *CommunityService) Feed(ctx context.Context, viewerID string) ([]model.PostView, error) {
	posts, err := s.postRepository.Published(ctx, feedLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	views, _, err := s.buildViews(ctx, viewerID, posts, false)
	return views, err
}

// Thread returns one post with its comments. Posts the viewer may not read
// are reported as missing.
func (s *CommunityService) Thread(ctx context.Context, viewerID, postID string) (*model.PostThread, error) {
	post, err := s.visiblePost(ctx, viewerID, postID)
	if err != nil {
		return nil, err
	}
	views, comments, err := s.buildViews(ctx, viewerID, []*model.Post{post}, true)
	if err != nil {
		return nil, err
	}
	return &model.PostThread{Post: views[0], Comments: comments}, nil
}

// ToggleLike likes the post, or unlikes it when the viewer already did. It
// returns the new state and the post's like count.
func (s *CommunityService) ToggleLike(ctx context.Context, userID, postID string) (bool, int, error) {
	post, err := s.visiblePost(ctx, userID, postID)
	if err != nil {
		return false, 0, err
	}

	removed, err := s.likeRepository.Remove(ctx, postID, userID)
	if err != nil {
		return false, 0, fmt.Errorf("failed to unlike post: %w", err)
	}
	liked := false
	if !removed {
		liked, err = s.likeRepository.Add(ctx, postID, userID)
		if err != nil {
			return false, 0, fmt.Errorf("failed to like post: %w", err)
		}
	}

	event := model.EventDelete
	if liked {
		event = model.EventInsert
	}
	realtime.Notify(ctx, s.publisher, model.TableLikes, event, map[string]string{"post_id": postID, "user_id": userID})
	if liked {
		s.notifyAuthor(ctx, post, userID, model.NotificationLike)
	}

	counts, err := s.likeRepository.Counts(ctx, []string{postID})
	if err != nil {
		return liked, 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return liked, counts[postID], nil
}

func (s *CommunityService) AddComment(ctx context.Context, userID, postID string, in CommentInput) (*model.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, ErrCommentMissing
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, ErrCommentTooLong
	}
	delivery, err := rating(in.RatingDelivery)
	if err != nil {
		return nil, err
	}
	confidence, err := rating(in.RatingConfidence)
	if err != nil {
		return nil, err
	}

	post, err := s.visiblePost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if !post.AllowComments {
		return nil, ErrCommentsDisabled
	}

	comment := &model.Comment{PostID: postID, UserID: userID, Content: content}
	if post.AllowReviews {
		comment.RatingDelivery, comment.RatingConfidence = delivery, confidence
	}
	if err := s.commentRepository.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	realtime.Notify(ctx, s.publisher, model.TableComments, model.EventInsert, map[string]string{"id": comment.ID, "post_id": postID, "user_id": userID})
	s.notifyAuthor(ctx, post, userID, model.NotificationComment)
	return comment, nil
}

func (s *CommunityService) visiblePost(ctx context.Context, viewerID, postID string) (*model.Post, error) {
	post, err := s.postRepository.ByID(ctx, postID)
	if errors.Is(err, repository.ErrPostNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load post: %w", err)
	}
	if !post.Visible(viewerID) {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// notifyAuthor records a notification for the post's author. Acting on your
// own post notifies nobody.
func (s *CommunityService) notifyAuthor(ctx context.Context, post *model.Post, actorID, kind string) {
	if post.UserID == actorID {
		return
	}
	postID := post.ID
	n := &model.Notification{RecipientID: post.UserID, ActorID: actorID, PostID: &postID, Type: kind}
	if err := s.notificationRepository.Create(ctx, n); err != nil {
		slog.Warn("failed to create notification", "error", err, "post_id", post.ID, "type", kind)
		return
	}
	realtime.Notify(ctx, s.publisher, model.TableNotifications, model.EventInsert, map[string]string{"id": n.ID, "recipient_id": post.UserID})
}

// buildViews merges posts with their likes, comments and authors. Comment
// views are only built when withComments is set.
func (s *CommunityService) buildViews(ctx context.Context, viewerID string, posts []*model.Post, withComments bool) ([]model.PostView, []model.CommentView, error) {
	if len(posts) == 0 {
		return []model.PostView{}, []model.CommentView{}, nil
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	likes, err := s.likeRepository.Counts(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count likes: %w", err)
	}
	liked, err := s.likeRepository.LikedBy(ctx, viewerID, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load likes: %w", err)
	}
	comments, err := s.commentRepository.ByPosts(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load comments: %w", err)
	}

	authorIDs := make([]string, 0, len(posts)+len(comments))
	for _, p := range posts {
		authorIDs = append(authorIDs, p.UserID)
	}
	commentCounts := map[string]int{}
	ratings := map[string][]int{}
	for _, c := range comments {
		commentCounts[c.PostID]++
		if r := CommentRating(c.RatingDelivery, c.RatingConfidence); r > 0 {
			ratings[c.PostID] = append(ratings[c.PostID], r)
		}
		if withComments {
			authorIDs = append(authorIDs, c.UserID)
		}
	}

	profiles, avatars, err := s.authors(ctx, authorIDs)
	if err != nil {
		return nil, nil, err
	}

	views := make([]model.PostView, len(posts))
	for i, p := range posts {
		views[i] = model.PostView{
			ID:              p.ID,
			AuthorID:        p.UserID,
			AuthorName:      DisplayName(profiles[p.UserID], "Unknown"),
			AuthorAvatarURL: avatars[p.UserID],
			Title:           deref(p.Title),
			Content:         p.Content,
			MediaURL:        deref(p.MediaURL),
			Module:          deref(p.Module),
			Type:            p.Type,
			AllowComments:   p.AllowComments,
			AllowReviews:    p.AllowReviews,
			LikeCount:       likes[p.ID],
			LikedByMe:       liked[p.ID],
			CommentCount:    commentCounts[p.ID],
			Rating:          meanRating(ratings[p.ID]),
			CreatedAt:       p.CreatedAt,
		}
	}

	commentViews := []model.CommentView{}
	if withComments {
		for _, c := range comments {
			commentViews = append(commentViews, model.CommentView{
				ID:               c.ID,
				AuthorID:         c.UserID,
				AuthorName:       DisplayName(profiles[c.UserID], "Unknown"),
				AuthorAvatarURL:  avatars[c.UserID],
				Content:          c.Content,
				RatingDelivery:   c.RatingDelivery,
				RatingConfidence: c.RatingConfidence,
				Rating:           CommentRating(c.RatingDelivery, c.RatingConfidence),
				CreatedAt:        c.CreatedAt,
			})
		}
	}
	return views, commentViews, nil
}

// authors loads profiles for the given users and signs their avatars.
func (s *CommunityService) authors(ctx context.Context, ids []string) (map[string]*model.Profile, map[string]string, error) {
	return loadPeople(ctx, s.profileRepository, s.resolver, ids)
}

func loadPeople(ctx context.Context, profiles repository.ProfileRepository, resolver *avatar.Resolver, ids []string) (map[string]*model.Profile, map[string]string, error) {
	unique := make([]string, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	rows, err := profiles.ByIDs(ctx, unique)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	byID := make(map[string]*model.Profile, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}

	hints := make(map[string]string, len(unique))
	for _, id := range unique {
		hints[id] = byID[id].StoredAvatar()
	}
	avatars := resolver.ResolveAll(ctx, hints)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return byID, avatars, nil
}

// CommentRating combines the two ratings into one 1-5 score. A single rating
// stands on its own and no rating gives 0.
func CommentRating(delivery, confidence *int) int {
	switch {
	case delivery != nil && confidence != nil:
		return int(math.Round(float64(*delivery+*confidence) / 2))
	case delivery != nil:
		return *delivery
	case confidence != nil:
		return *confidence
	default:
		return 0
	}
}

func meanRating(ratings []int) int {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return int(math.Round(float64(sum) / float64(len(ratings))))
}

func rating(v *int) (*int, error) {
	if v == nil || *v == 0 {
		return nil, nil
	}
	if *v < 1 || *v > 5 {
		return nil, ErrInvalidRating
	}
	r := *v
	return &r, nil
}
