package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/voclaria/voclaria/internal/avatar"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/realtime"
	"github.com/voclaria/voclaria/internal/repository"
)

const notificationLimit = 100

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationService struct {
	notificationRepository repository.NotificationRepository
	profileRepository      repository.ProfileRepository
	resolver               *avatar.Resolver
	publisher              realtime.Publisher
}

func NewNotificationService(
	notificationRepository repository.NotificationRepository,
	profileRepository repository.ProfileRepository,
	resolver *avatar.Resolver,
	publisher realtime.Publisher,
) *NotificationService {
	return &NotificationService{
		notificationRepository: notificationRepository,
		profileRepository:      profileRepository,
		resolver:               resolver,
		publisher:              publisher,
	}
}

// List returns the recipient's latest notifications, newest first.
func (s *NotificationService) List(ctx context.Context, recipientID string) ([]model.NotificationView, error) {
	rows, err := s.notificationRepository.ForRecipient(ctx, recipientID, notificationLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	actorIDs := make([]string, len(rows))
	for i, n := range rows {
		actorIDs[i] = n.ActorID
	}
	actors, avatars, err := loadPeople(ctx, s.profileRepository, s.resolver, actorIDs)
	if err != nil {
		return nil, err
	}

	views := make([]model.NotificationView, 0, len(rows))
	for _, n := range rows {
		name := DisplayName(actors[n.ActorID], "Someone")
		views = append(views, model.NotificationView{
			ID:             n.ID,
			Type:           n.Type,
			ActorID:        n.ActorID,
			ActorName:      name,
			ActorAvatarURL: avatars[n.ActorID],
			PostID:         deref(n.PostID),
			Message:        notificationMessage(name, n.Type),
			IsRead:         n.IsRead,
			CreatedAt:      n.CreatedAt,
		})
	}
	return views, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, recipientID, id string) error {
	if err := s.notificationRepository.MarkRead(ctx, recipientID, id); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	realtime.Notify(ctx, s.publisher, model.TableNotifications, model.EventUpdate, map[string]string{"id": id, "recipient_id": recipientID})
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	n, err := s.notificationRepository.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	if n > 0 {
		realtime.Notify(ctx, s.publisher, model.TableNotifications, model.EventUpdate, map[string]string{"recipient_id": recipientID})
	}
	return int(n), nil
}

func UnreadCount(views []model.NotificationView) int {
	n := 0
	for _, v := range views {
		if !v.IsRead {
			n++
		}
	}
	return n
}

func notificationMessage(actor, kind string) string {
	switch kind {
	case model.NotificationLike:
		return actor + " liked your post"
	case model.NotificationComment:
		return actor + " commented on your post"
	default:
		return actor + " reacted to your post"
	}
}
