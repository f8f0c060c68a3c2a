// Package events fans submission changes out to live admin consoles.
package events

import (
	"crypto/rand"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diewo77/gedoc/internal/models"
	"github.com/oklog/ulid/v2"
)

// Type is the kind of change.
type Type string

const (
	Insert Type = "insert"
	Update Type = "update"
	Delete Type = "delete"
)

// Event describes one change to a submission. For deletes Submission only
// carries the id.
type Event struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	Submission models.Submission `json:"submission"`
	At         time.Time         `json:"at"`
}

// NewEvent stamps an event with a ULID so consumers can order and
// deduplicate them.
func NewEvent(t Type, s models.Submission, at time.Time) Event {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(at), entropy)
	entropyMu.Unlock()
	return Event{ID: id.String(), Type: t, Submission: s, At: at}
}

var (
	entropyMu sync.Mutex
	entropy   io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// Publisher is what the submission service needs.
type Publisher interface {
	Publish(Event)
}

// Hub is an in-process broadcaster. Each subscriber has a bounded buffer;
// when it is full the event is dropped for that subscriber only.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]chan Event
	next    uint64
	bufSize int
	dropped atomic.Uint64
}

func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 16
	}
	return &Hub{subs: make(map[uint64]chan Event), bufSize: bufSize}
}

// Publish never blocks.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Subscribe registers a listener. cancel must be called to release it;
// it closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.bufSize)
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of active listeners.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
