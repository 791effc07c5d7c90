// Package realtime fans out table change notifications to subscribers.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/voclaria/voclaria/internal/model"
)

const defaultBuffer = 16

var ErrBrokerClosed = errors.New("realtime: broker closed")

// Channel names a subscription and selects which notifications reach it.
// Empty Event or "*" matches every event.
type Channel struct {
	Name   string
	Table  string
	Event  string
	Filter string
}

type Handler func(model.ChangeNotification)

// Publisher sends a change notification to every interested subscriber.
type Publisher interface {
	Publish(ctx context.Context, n model.ChangeNotification) error
}

// Subscriber registers handlers for change notifications.
type Subscriber interface {
	Subscribe(ch Channel, fn Handler) (*Subscription, error)
}

type Subscription struct {
	channel Channel
	filter  Filter
	fn      Handler
	queue   chan model.ChangeNotification
	done    chan struct{}
	once    sync.Once
	broker  *Broker
}

func (s *Subscription) Channel() Channel {
	return s.channel
}

// Unsubscribe stops delivery. It is safe to call more than once. A handler
// call already in progress is allowed to finish.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.remove(s)
		close(s.done)
	})
}

func (s *Subscription) matches(n model.ChangeNotification) bool {
	if s.channel.Table != "" && s.channel.Table != n.Table {
		return false
	}
	if s.channel.Event != "" && s.channel.Event != model.EventAll && s.channel.Event != n.Event {
		return false
	}
	return s.filter.Match(n.Record)
}

func (s *Subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case n := <-s.queue:
			select {
			case <-s.done:
				return
			default:
			}
			s.fn(n)
		}
	}
}

// Broker delivers notifications in-process. Each subscription has its own
// goroutine and bounded queue; when the queue is full the notification is
// dropped for that subscriber.
type Broker struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
}

func NewBroker() *Broker {
	return &Broker{
		subs:   make(map[*Subscription]struct{}),
		buffer: defaultBuffer,
	}
}

func (b *Broker) Subscribe(ch Channel, fn Handler) (*Subscription, error) {
	if fn == nil {
		return nil, errors.New("realtime: nil handler")
	}
	filter, err := ParseFilter(ch.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe %q: %w", ch.Name, err)
	}

	sub := &Subscription{
		channel: ch,
		filter:  filter,
		fn:      fn,
		queue:   make(chan model.ChangeNotification, b.buffer),
		done:    make(chan struct{}),
		broker:  b,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBrokerClosed
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go sub.run()

	slog.Debug("realtime subscribed", "channel", ch.Name, "table", ch.Table, "filter", ch.Filter)
	return sub, nil
}

// Publish never blocks on a slow subscriber.
func (b *Broker) Publish(_ context.Context, n model.ChangeNotification) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBrokerClosed
	}

	for sub := range b.subs {
		if !sub.matches(n) {
			continue
		}
		select {
		case sub.queue <- n:
		default:
			slog.Warn("realtime subscriber queue full, dropping notification",
				"channel", sub.channel.Name,
				"table", n.Table,
				"event", n.Event,
			)
		}
	}
	return nil
}

// Len returns the number of active subscriptions.
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close unsubscribes everyone and rejects further use.
func (b *Broker) Close() {
	b.mu.Lock()
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}
