package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/voclaria/voclaria/internal/markdown"
	"github.com/voclaria/voclaria/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrLessonNotFound = errors.New("lesson not found")

// LessonService serves the speaking and reading lessons stored as markdown
// under <contentPath>/lessons. Files are cached and reloaded on change.
type LessonService struct {
	parser *markdown.Parser
	dir    string

	mu      sync.RWMutex
	lessons map[string]*model.Lesson
}

func NewLessonService(contentPath string) *LessonService {
	return &LessonService{
		parser:  markdown.NewParser(),
		dir:     filepath.Join(contentPath, "lessons"),
		lessons: map[string]*model.Lesson{},
	}
}

// Load reads every lesson file, replacing the cache. Unparseable files are
// skipped with a warning.
func (s *LessonService) Load() error {
	files, err := filepath.Glob(filepath.Join(s.dir, "*.md"))
	if err != nil {
		return err
	}

	lessons := make(map[string]*model.Lesson, len(files))
	for _, file := range files {
		lesson, err := s.parseFile(file)
		if err != nil {
			slog.Warn("skipping lesson", "file", file, "error", err)
			continue
		}
		lessons[lesson.Slug] = lesson
	}

	s.mu.Lock()
	s.lessons = lessons
	s.mu.Unlock()

	slog.Debug("lessons loaded", "count", len(lessons), "dir", s.dir)
	return nil
}

func (s *LessonService) parseFile(path string) (*model.Lesson, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := s.parser.Parse(content)
	if err != nil {
		return nil, err
	}

	slug := strings.TrimSuffix(filepath.Base(path), ".md")
	lesson := &model.Lesson{
		Slug:        slug,
		Title:       strings.TrimSpace(doc.Meta.Title),
		HTMLContent: string(doc.HTML),
		Level:       "basic",
		Kind:        model.LessonKindSpeaking,
		Order:       doc.Meta.Order,
		Description: doc.Meta.Description,
	}

	if lesson.Title == "" {
		lesson.Title = cases.Title(language.English).String(strings.ReplaceAll(slug, "-", " "))
	}
	if level := strings.TrimSpace(doc.Meta.Level); level != "" {
		lesson.Level = strings.ToLower(level)
	}
	switch kind := strings.ToLower(strings.TrimSpace(doc.Meta.Kind)); kind {
	case "":
	case model.LessonKindSpeaking, model.LessonKindReading:
		lesson.Kind = kind
	default:
		return nil, fmt.Errorf("unknown lesson kind %q", doc.Meta.Kind)
	}

	return lesson, nil
}

// Lessons returns the catalog without rendered content, optionally filtered
// by kind and level. Empty filters match everything.
func (s *LessonService) Lessons(kind, level string) []model.Lesson {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]model.Lesson, 0, len(s.lessons))
	for _, l := range s.lessons {
		if kind != "" && l.Kind != kind {
			continue
		}
		if level != "" && l.Level != strings.ToLower(level) {
			continue
		}
		entry := *l
		entry.HTMLContent = ""
		list = append(list, entry)
	}

	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.Slug < b.Slug
	})
	return list
}

func (s *LessonService) Lesson(slug string) (*model.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lessons[slug]
	if !ok {
		return nil, ErrLessonNotFound
	}
	lesson := *l
	return &lesson, nil
}

// Watch reloads the catalog whenever a lesson file changes, until ctx is
// done. Bursts of events within the debounce window cause one reload.
func (s *LessonService) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}
	slog.Info("watching lessons", "dir", s.dir)

	const debounce = 200 * time.Millisecond
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".md" {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("lesson watch error", "error", err)
		case <-timer.C:
			if err := s.Load(); err != nil {
				slog.Warn("failed to reload lessons", "error", err)
			}
		}
	}
}
