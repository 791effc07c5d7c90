// Package feed keeps a list in sync with the database by re-fetching it
// whenever a watched table changes.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/realtime"
)

var ErrClosed = errors.New("feed: synchronizer closed")

type Status string

const (
	StatusFresh Status = "fresh"
	StatusStale Status = "stale"
	StatusEmpty Status = "empty"
)

// Snapshot is one published state of the list. Version increases with every
// completed fetch; version 0 means no fetch has completed yet.
type Snapshot[T any] struct {
	Status    Status    `json:"status"`
	Data      []T       `json:"data"`
	Err       error     `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   uint64    `json:"version"`
}

type FetchFunc[T any] func(ctx context.Context) ([]T, error)

type state int

const (
	stateIdle state = iota
	stateFetching
	stateFetchingAgain
)

// Synchronizer runs at most one fetch at a time. Triggers that arrive while a
// fetch is running collapse into a single follow-up fetch.
type Synchronizer[T any] struct {
	name    string
	fetch   FetchFunc[T]
	source  realtime.Subscriber
	watches []realtime.Channel

	mu      sync.Mutex
	state   state
	started bool
	closed  bool
	hasData bool
	snap    Snapshot[T]
	subs    []*realtime.Subscription
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	updates chan Snapshot[T]
}

func New[T any](name string, fetch FetchFunc[T], source realtime.Subscriber, watches ...realtime.Channel) *Synchronizer[T] {
	return &Synchronizer[T]{
		name:    name,
		fetch:   fetch,
		source:  source,
		watches: watches,
		snap:    Snapshot[T]{Status: StatusEmpty},
		updates: make(chan Snapshot[T], 1),
	}
}

// Start subscribes to every watch and runs the first fetch. ctx bounds the
// lifetime of all fetches.
func (s *Synchronizer[T]) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.mu.Unlock()

	subs := make([]*realtime.Subscription, 0, len(s.watches))
	for _, w := range s.watches {
		sub, err := s.source.Subscribe(w, func(model.ChangeNotification) { s.Refresh() })
		if err != nil {
			for _, prev := range subs {
				prev.Unsubscribe()
			}
			s.Close()
			return fmt.Errorf("failed to watch %s for %s: %w", w.Table, s.name, err)
		}
		subs = append(subs, sub)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		for _, sub := range subs {
			sub.Unsubscribe()
		}
		return ErrClosed
	}
	s.subs = subs
	s.mu.Unlock()

	s.Refresh()
	return nil
}

// Refresh requests a fetch. It never blocks.
func (s *Synchronizer[T]) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.closed {
		return
	}

	switch s.state {
	case stateIdle:
		s.state = stateFetching
		s.wg.Add(1)
		go s.loop()
	case stateFetching:
		s.state = stateFetchingAgain
	case stateFetchingAgain:
	}
}

func (s *Synchronizer[T]) loop() {
	defer s.wg.Done()

	for {
		data, err := s.fetch(s.ctx)

		s.mu.Lock()
		if s.closed {
			s.state = stateIdle
			s.mu.Unlock()
			return
		}
		s.publish(data, err)
		if s.state == stateFetchingAgain {
			s.state = stateFetching
			s.mu.Unlock()
			continue
		}
		s.state = stateIdle
		s.mu.Unlock()
		return
	}
}

// publish must be called with s.mu held.
func (s *Synchronizer[T]) publish(data []T, err error) {
	next := Snapshot[T]{
		UpdatedAt: time.Now(),
		Version:   s.snap.Version + 1,
	}

	switch {
	case err == nil:
		if data == nil {
			data = []T{}
		}
		next.Status = StatusFresh
		next.Data = data
		s.hasData = true
	case s.hasData:
		slog.Warn("feed refresh failed, serving stale data", "feed", s.name, "error", err)
		next.Status = StatusStale
		next.Data = s.snap.Data
		next.Err = err
	default:
		slog.Warn("feed refresh failed", "feed", s.name, "error", err)
		next.Status = StatusEmpty
		next.Err = err
	}

	s.snap = next

	select {
	case <-s.updates:
	default:
	}
	s.updates <- next
}

func (s *Synchronizer[T]) Snapshot() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Updates holds at most the latest unread snapshot. It is closed by Close.
func (s *Synchronizer[T]) Updates() <-chan Snapshot[T] {
	return s.updates
}

// Close unsubscribes, cancels any running fetch and waits for it to return.
// Nothing is published after Close.
func (s *Synchronizer[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	s.wg.Wait()
	close(s.updates)
}
