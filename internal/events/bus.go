package events

import (
	"sync"
	"time"
)

type Kind string

const (
	ConversationSaved   Kind = "conversation.saved"
	ConversationDeleted Kind = "conversation.deleted"
	DispatchFailed      Kind = "dispatch.failed"
	UploadPresigned     Kind = "upload.presigned"
	AssistantImported   Kind = "assistant.imported"
)

// Event is addressed to a single user. Level follows the UI toast variants.
type Event struct {
	Kind    Kind        `json:"kind"`
	UserID  uint        `json:"-"`
	Level   string      `json:"level"`
	Title   string      `json:"title"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	At      time.Time   `json:"at"`
}

// Subscription receives the events of one user until Unsubscribe is called.
type Subscription struct {
	id     uint64
	userID uint
	ch     chan Event
	bus    *Bus
	once   sync.Once
}

func (s *Subscription) Events() <-chan Event {
	return s.ch
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.remove(s)
	})
}

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription
	buffer int
	now    func() time.Time
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		now:    time.Now,
	}
}

func (b *Bus) Subscribe(userID uint) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{id: b.nextID, userID: userID, ch: make(chan Event, b.buffer), bus: b}
	b.subs[sub.id] = sub
	return sub
}

// Publish returns how many subscribers received the event.
func (b *Bus) Publish(ev Event) int {
	if b == nil {
		return 0
	}
	if ev.At.IsZero() {
		ev.At = b.now()
	}
	if ev.Level == "" {
		ev.Level = "default"
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	delivered := 0
	for _, sub := range b.subs {
		if sub.userID != ev.UserID {
			continue
		}
		select {
		case sub.ch <- ev:
			delivered++
		default:
		}
	}
	return delivered
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close unsubscribes everyone; their channels are closed.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[uint64]*Subscription)
	b.mu.Unlock()
	for _, sub := range subs {
		sub.once.Do(func() { close(sub.ch) })
	}
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s.id)
	b.mu.Unlock()
	close(s.ch)
}
