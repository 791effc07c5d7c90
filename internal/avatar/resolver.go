// Package avatar turns stored avatar references into short-lived signed URLs.
package avatar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/voclaria/voclaria/internal/storage"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTTL         = time.Hour
	DefaultConcurrency = 8
)

var (
	// ErrNoObject means nothing is stored for the reference.
	ErrNoObject = errors.New("avatar: no stored object")
	// ErrExternalURL means the reference is already a URL and has no object path.
	ErrExternalURL = errors.New("avatar: reference is an absolute URL")
)

var extPattern = regexp.MustCompile(`\.[a-zA-Z0-9]+$`)

// Store is the subset of storage.Storage the resolver needs.
type Store interface {
	List(ctx context.Context, prefix string, opts storage.ListOptions) ([]storage.Object, error)
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

type Config struct {
	// Bucket is stripped when a stored path is prefixed with it.
	Bucket      string
	TTL         time.Duration
	Concurrency int
}

type Resolver struct {
	store       Store
	bucket      string
	ttl         time.Duration
	concurrency int
}

func NewResolver(store Store, cfg Config) *Resolver {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Resolver{
		store:       store,
		bucket:      strings.Trim(cfg.Bucket, "/"),
		ttl:         cfg.TTL,
		concurrency: cfg.Concurrency,
	}
}

func IsAbsoluteURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Resolve returns a signed URL for the user's avatar, or "" when there is
// none. storedPath may be empty, a full object path, a folder, or an absolute
// URL which is returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, userID, storedPath string) string {
	if IsAbsoluteURL(storedPath) {
		return storedPath
	}

	path, err := r.ObjectPath(ctx, userID, storedPath)
	if err != nil {
		if !errors.Is(err, ErrNoObject) {
			slog.Debug("avatar path lookup failed", "user_id", userID, "error", err)
		}
		return ""
	}

	url, err := r.store.SignedURL(ctx, path, r.ttl)
	if err != nil {
		slog.Debug("avatar signing failed", "user_id", userID, "path", path, "error", err)
		return ""
	}
	return url
}

// ObjectPath resolves the reference to the object that would be signed.
// A folder reference picks the newest object in it.
func (r *Resolver) ObjectPath(ctx context.Context, userID, storedPath string) (string, error) {
	if IsAbsoluteURL(storedPath) {
		return "", ErrExternalURL
	}

	base := strings.TrimSpace(storedPath)
	if base == "" {
		base = userID
	}
	if r.bucket != "" {
		base = strings.TrimPrefix(base, r.bucket+"/")
	}
	base = strings.Trim(base, "/")
	if base == "" {
		return "", ErrNoObject
	}

	if extPattern.MatchString(base) {
		return base, nil
	}

	objects, err := r.store.List(ctx, base+"/", storage.ListOptions{Limit: 1, NewestFirst: true})
	if err != nil {
		return "", fmt.Errorf("failed to list %q: %w", base, err)
	}
	if len(objects) == 0 {
		return "", ErrNoObject
	}

	name := strings.TrimPrefix(objects[0].Key, base+"/")
	return base + "/" + name, nil
}

// ResolveAll resolves hints (user id -> stored path) with bounded
// parallelism. Users without an avatar are absent from the result.
func (r *Resolver) ResolveAll(ctx context.Context, hints map[string]string) map[string]string {
	urls := make(map[string]string, len(hints))
	if len(hints) == 0 {
		return urls
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for id, hint := range hints {
		g.Go(func() error {
			url := r.Resolve(ctx, id, hint)
			if url == "" {
				return nil
			}
			mu.Lock()
			urls[id] = url
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return urls
}

// UploadPath is where a freshly uploaded avatar is stored.
func UploadPath(userID string, at time.Time, ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s/%d%s", userID, at.UnixMilli(), ext)
}
