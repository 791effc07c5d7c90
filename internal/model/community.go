package model

import "time"

const (
	PostTypeSpeaking     = "speaking"
	PostStatusPublished  = "published"
	PostVisibilityPublic = "public"
)

const (
	NotificationLike    = "like"
	NotificationComment = "comment"
)

type Post struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	Title         *string   `db:"title"`
	Content       string    `db:"content"`
	MediaURL      *string   `db:"media_url"`
	Module        *string   `db:"module"`
	Type          string    `db:"type"`
	Status        string    `db:"status"`
	Visibility    string    `db:"visibility"`
	AllowComments bool      `db:"allow_comments"`
	AllowReviews  bool      `db:"allow_reviews"`
	CreatedAt     time.Time `db:"created_at"`
}

// Visible reports whether viewerID may read the post.
func (p *Post) Visible(viewerID string) bool {
	if p.UserID == viewerID {
		return true
	}
	return p.Status == PostStatusPublished && p.Visibility == PostVisibilityPublic
}

type Comment struct {
	ID               string    `db:"id"`
	PostID           string    `db:"post_id"`
	UserID           string    `db:"user_id"`
	Content          string    `db:"content"`
	RatingDelivery   *int      `db:"rating_delivery"`
	RatingConfidence *int      `db:"rating_confidence"`
	CreatedAt        time.Time `db:"created_at"`
}

type Notification struct {
	ID          string    `db:"id"`
	RecipientID string    `db:"recipient_id"`
	ActorID     string    `db:"actor_id"`
	PostID      *string   `db:"post_id"`
	Type        string    `db:"type"`
	IsRead      bool      `db:"is_read"`
	CreatedAt   time.Time `db:"created_at"`
}

type PostView struct {
	ID              string    `json:"id"`
	AuthorID        string    `json:"author_id"`
	AuthorName      string    `json:"author_name"`
	AuthorAvatarURL string    `json:"author_avatar_url,omitempty"`
	Title           string    `json:"title,omitempty"`
	Content         string    `json:"content"`
	MediaURL        string    `json:"media_url,omitempty"`
	Module          string    `json:"module,omitempty"`
	Type            string    `json:"type"`
	AllowComments   bool      `json:"allow_comments"`
	AllowReviews    bool      `json:"allow_reviews"`
	LikeCount       int       `json:"like_count"`
	LikedByMe       bool      `json:"liked_by_me"`
	CommentCount    int       `json:"comment_count"`
	Rating          int       `json:"rating"` // rounded mean of rated comments, 0 when none
	CreatedAt       time.Time `json:"created_at"`
}

type CommentView struct {
	ID               string    `json:"id"`
	AuthorID         string    `json:"author_id"`
	AuthorName       string    `json:"author_name"`
	AuthorAvatarURL  string    `json:"author_avatar_url,omitempty"`
	Content          string    `json:"content"`
	RatingDelivery   *int      `json:"rating_delivery,omitempty"`
	RatingConfidence *int      `json:"rating_confidence,omitempty"`
	Rating           int       `json:"rating"`
	CreatedAt        time.Time `json:"created_at"`
}

// PostThread is one post with its comments, newest first.
type PostThread struct {
	Post     PostView      `json:"post"`
	Comments []CommentView `json:"comments"`
}

type NotificationView struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	ActorID        string    `json:"actor_id"`
	ActorName      string    `json:"actor_name"`
	ActorAvatarURL string    `json:"actor_avatar_url,omitempty"`
	PostID         string    `json:"post_id,omitempty"`
	Message        string    `json:"message"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}
