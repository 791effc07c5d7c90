package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/voclaria/voclaria/internal/avatar"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/realtime"
	"github.com/voclaria/voclaria/internal/repository"
	"github.com/voclaria/voclaria/internal/storage"
	"github.com/voclaria/voclaria/internal/validation"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileService struct {
	profileRepository repository.ProfileRepository
	storage           storage.Storage
	resolver          *avatar.Resolver
	publisher         realtime.Publisher
}

func NewProfileService(
	profileRepository repository.ProfileRepository,
	storage storage.Storage,
	resolver *avatar.Resolver,
	publisher realtime.Publisher,
) *ProfileService {
	return &ProfileService{
		profileRepository: profileRepository,
		storage:           storage,
		resolver:          resolver,
		publisher:         publisher,
	}
}

func (s *ProfileService) ByID(ctx context.Context, userID string) (*model.Profile, error) {
	profile, err := s.profileRepository.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// AvatarURL resolves the user's current avatar, or "" when none is stored.
func (s *ProfileService) AvatarURL(ctx context.Context, userID string) string {
	profile, err := s.profileRepository.ByID(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		slog.Debug("avatar profile lookup failed", "user_id", userID, "error", err)
		return ""
	}
	return s.resolver.Resolve(ctx, userID, profile.StoredAvatar())
}

func (s *ProfileService) UpdateName(ctx context.Context, userID, name string) error {
	name = strings.TrimSpace(name)
	if err := validation.ValidateName(name); err != nil {
		return err
	}

	if err := s.profileRepository.UpdateName(ctx, userID, name); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("failed to update name: %w", err)
	}

	realtime.Notify(ctx, s.publisher, model.TableProfiles, model.EventUpdate, map[string]string{"id": userID})
	return nil
}

// UploadAvatar stores the image under the user's folder, points the profile
// at it and returns a freshly signed URL.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID string, body io.Reader, filename, contentType string) (string, error) {
	profile, err := s.ByID(ctx, userID)
	if err != nil {
		return "", err
	}
	previous := profile.StoredAvatar()

	path := avatar.UploadPath(userID, time.Now(), filepath.Ext(filename))
	if err := s.storage.Save(ctx, path, body, contentType); err != nil {
		return "", fmt.Errorf("failed to store avatar: %w", err)
	}

	if err := s.profileRepository.UpdateAvatar(ctx, userID, path); err != nil {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), path); delErr != nil {
			slog.Warn("failed to clean up orphaned avatar", "error", delErr, "path", path)
		}
		return "", fmt.Errorf("failed to save avatar path: %w", err)
	}

	// Folder references keep their history; only an explicit old object is removed.
	if previous != "" && !avatar.IsAbsoluteURL(previous) && filepath.Ext(previous) != "" {
		s.deletePrevious(ctx, userID, previous, path)
	}

	realtime.Notify(ctx, s.publisher, model.TableProfiles, model.EventUpdate, map[string]string{"id": userID})
	slog.Info("avatar uploaded", "user_id", userID, "path", path)

	return s.resolver.Resolve(ctx, userID, path), nil
}

// deletePrevious removes the old avatar object. The stored reference may
// carry the bucket prefix, so it is normalized the way the resolver reads it.
func (s *ProfileService) deletePrevious(ctx context.Context, userID, previous, current string) {
	old, err := s.resolver.ObjectPath(ctx, userID, previous)
	if err != nil || old == current {
		return
	}
	if err := s.storage.Delete(ctx, old); err != nil {
		slog.Warn("failed to delete previous avatar", "error", err, "path", old)
	}
}

func (s *ProfileService) CompletePreassessment(ctx context.Context, userID string) error {
	if err := s.profileRepository.CompletePreassessment(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	realtime.Notify(ctx, s.publisher, model.TableProfiles, model.EventUpdate, map[string]string{"id": userID})
	return nil
}
