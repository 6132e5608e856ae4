// Package realtime fans out table change notifications to in-process
// subscribers and, optionally, to an external broker.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/theirongolddev/fintrack/internal/metrics"
)

// Op is the kind of row change.
type Op string

const (
	Insert Op = "insert"
	Update Op = "update"
	Delete Op = "delete"
)

// AllTables subscribes to changes on every table.
const AllTables = "*"

// Change is one row-level notification. It carries no row data: listeners
// re-read what they need.
type Change struct {
	ID    int64     `json:"id"`
	Table string    `json:"table"`
	Op    Op        `json:"op"`
	RowID string    `json:"row_id,omitempty"`
	At    time.Time `json:"at"`
}

// Publisher mirrors changes to an external system.
type Publisher interface {
	Publish(ctx context.Context, topic string, v any) error
	Close() error
}

type subscriber struct {
	table string
	ch    chan Change
}

// Hub is the process-wide change fan-out. The zero value is not usable;
// construct with NewHub.
type Hub struct {
	ringSize  int
	publisher Publisher

	mu      sync.RWMutex
	nextID  int64
	recent  []Change
	nextSub int
	subs    map[int]subscriber
}

// NewHub returns a hub keeping the last ringSize changes.
func NewHub(ringSize int) *Hub {
	if ringSize < 1 {
		ringSize = 200
	}
	return &Hub{
		ringSize: ringSize,
		subs:     make(map[int]subscriber),
	}
}

// SetPublisher mirrors every subsequent change to p.
func (h *Hub) SetPublisher(p Publisher) {
	h.mu.Lock()
	h.publisher = p
	h.mu.Unlock()
}

// Publish records a change and delivers it to matching subscribers.
// Delivery never blocks: a subscriber whose buffer is full misses it.
func (h *Hub) Publish(table string, op Op, rowID string) Change {
	h.mu.Lock()
	h.nextID++
	c := Change{ID: h.nextID, Table: table, Op: op, RowID: rowID, At: time.Now().UTC()}
	h.recent = append(h.recent, c)
	if len(h.recent) > h.ringSize {
		h.recent = h.recent[len(h.recent)-h.ringSize:]
	}
	for _, s := range h.subs {
		if s.table != AllTables && s.table != table {
			continue
		}
		select {
		case s.ch <- c:
		default:
		}
	}
	pub := h.publisher
	h.mu.Unlock()
	metrics.Changes.WithLabelValues(table).Inc()

	if pub != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := pub.Publish(ctx, table, c); err != nil {
				log.Printf("realtime: mirror %s change: %v", table, err)
			}
		}()
	}
	return c
}

// Subscribe returns a channel of changes for table (or AllTables) and a
// cancel func that must be called to release it.
func (h *Hub) Subscribe(table string) (<-chan Change, func()) {
	ch := make(chan Change, 16)

	h.mu.Lock()
	h.nextSub++
	id := h.nextSub
	h.subs[id] = subscriber{table: table, ch: ch}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Recent returns up to n of the latest changes, oldest first.
func (h *Hub) Recent(n int) []Change {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > len(h.recent) {
		n = len(h.recent)
	}
	out := make([]Change, n)
	copy(out, h.recent[len(h.recent)-n:])
	return out
}

// SubscriberCount returns the number of live subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// WriteSSE writes one server-sent event with a JSON payload.
func WriteSSE(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("realtime: encoding %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// PrepareSSE sets streaming headers. It reports false when w cannot flush.
func PrepareSSE(w http.ResponseWriter) bool {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return true
}
