package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/voclaria/voclaria/internal/model"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrLinkNotFound    = errors.New("student is not linked to teacher")
)

type ProfileRepository interface {
	ByID(ctx context.Context, id string) (*model.Profile, error)
	ByIDs(ctx context.Context, ids []string) ([]*model.Profile, error)
	Upsert(ctx context.Context, profile *model.Profile) error
	UpdateName(ctx context.Context, id, name string) error
	UpdateAvatar(ctx context.Context, id, objectPath string) error
	CompletePreassessment(ctx context.Context, id string) error
}

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) ByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.GetContext(ctx, &profile, `SELECT * FROM profiles WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ByIDs returns the profiles whose id is in ids, in no particular order.
// Unknown ids are skipped.
func (r *profileRepository) ByIDs(ctx context.Context, ids []string) ([]*model.Profile, error) {
	var profiles []*model.Profile
	if len(ids) == 0 {
		return profiles, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM profiles WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	err = r.db.SelectContext(ctx, &profiles, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// Upsert inserts the profile or, if it exists, overwrites name, phone and
// role. Avatar and pre-assessment state are left alone on conflict.
func (r *profileRepository) Upsert(ctx context.Context, profile *model.Profile) error {
	now := time.Now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, name, avatar_url, role, phone, has_completed_preassessment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			role = excluded.role,
			updated_at = excluded.updated_at
	`, profile.ID, profile.Name, profile.AvatarURL, profile.Role, profile.Phone,
		profile.HasCompletedPreassessment, profile.CreatedAt, profile.UpdatedAt)
	return err
}

func (r *profileRepository) UpdateName(ctx context.Context, id, name string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET name = $1, updated_at = $2
		WHERE id = $3
	`, name, time.Now(), id)
	return affectedOne(result, err, ErrProfileNotFound)
}

func (r *profileRepository) UpdateAvatar(ctx context.Context, id, objectPath string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET avatar_url = $1, updated_at = $2
		WHERE id = $3
	`, objectPath, time.Now(), id)
	return affectedOne(result, err, ErrProfileNotFound)
}

func (r *profileRepository) CompletePreassessment(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET has_completed_preassessment = $1, updated_at = $2
		WHERE id = $3
	`, true, time.Now(), id)
	return affectedOne(result, err, ErrProfileNotFound)
}
