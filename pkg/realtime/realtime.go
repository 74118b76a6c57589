// Package realtime provides a lightweight in-process publish/subscribe hub
// used to fan indexing events out to multiple listeners (e.g. WebSocket
// sessions watching the document feed).
//
// Semantics are deliberately modest: best-effort fan-out where a slow
// listener drops events rather than backpressuring ingestion, and no
// persistence or replay. If durable semantics are ever needed this package
// is the seam where a broker can be introduced behind the same interface.
package realtime

import (
	"sync"
	"time"
)

// DocumentEvent describes one ingestion outcome: a document was upserted
// into or deleted from the provider indexes.
type DocumentEvent struct {
	// Action is "upsert" or "delete".
	Action string `json:"action"`

	// ID is the document identifier.
	ID string `json:"id"`

	// Source is the document's source kind ("wiki", "ticket", ...).
	// Empty for deletes, where only the ID is known.
	Source string `json:"source,omitempty"`

	Title string    `json:"title,omitempty"`
	Time  time.Time `json:"time"`

	// Backends lists the providers that accepted the operation.
	Backends []string `json:"backends,omitempty"`

	// Errors counts providers that rejected the operation.
	Errors int `json:"errors,omitempty"`
}

// Hub is an in-memory fan-out dispatcher. Each registered listener gets its
// own buffered channel; when a listener's buffer is full an event is
// dropped for that listener only. The hub is concurrency-safe.
type Hub struct {
	mu        sync.RWMutex
	listeners map[uint64]chan DocumentEvent
	nextID    uint64
	bufSize   int
}

// NewHub constructs a hub with the given per-listener buffer size.
// If bufSize <= 0, a default of 32 is used.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 32
	}
	return &Hub{
		listeners: make(map[uint64]chan DocumentEvent),
		bufSize:   bufSize,
	}
}

// Register adds a listener and returns its id plus a receive-only channel.
// Callers must Unregister(id) when done.
func (h *Hub) Register() (uint64, <-chan DocumentEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan DocumentEvent, h.bufSize)
	h.listeners[id] = ch
	return id, ch
}

// Unregister removes the listener and closes its channel. Safe to call
// multiple times; unknown ids are ignored.
func (h *Hub) Unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(ch)
	}
}

// Broadcast delivers an event to all listeners, dropping it for any whose
// buffer is full.
func (h *Hub) Broadcast(event DocumentEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- event:
		default:
			// Drop for slow listener.
		}
	}
}

// Size returns the current number of active listeners.
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
