// Package dbtest opens a migrated throwaway SQLite database for tests.
package dbtest

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/voclaria/voclaria/internal/db"
	"github.com/voclaria/voclaria/internal/model"
)

// Open returns a fresh database in t.TempDir with all migrations applied.
func Open(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)"
	database, err := db.Open(context.Background(), "sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.RunMigrations(context.Background(), database.DB, "sqlite"))
	return database
}

// Person inserts a confirmed user and a matching profile. An empty role
// leaves the profile role NULL.
func Person(t *testing.T, database *sqlx.DB, id, name, role string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	meta, err := json.Marshal(map[string]string{"full_name": name, "role": role})
	require.NoError(t, err)

	_, err = database.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, metadata, email_confirmed_at, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, id+"@example.com", "x", string(meta), now, now)
	require.NoError(t, err)

	var rolePtr *string
	if role != "" {
		rolePtr = &role
	}
	_, err = database.ExecContext(ctx,
		`INSERT INTO profiles (id, name, role, has_completed_preassessment, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, name, rolePtr, false, now, now)
	require.NoError(t, err)
}

// Roles are the profile roles used by Person.
const (
	Student = model.RoleStudent
	Teacher = model.RoleTeacher
)
