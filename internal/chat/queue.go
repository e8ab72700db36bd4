package chat

import (
	"context"
	"sync"
)

// Event is one unit of streamed output. Done marks the terminal event of an
// assistant turn; its Content is the final (possibly empty) fragment. Err is
// set only on the terminal event of a failed turn.
type Event struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
	Err     string `json:"error,omitempty"`
}

// EventQueue decouples turn production from stream delivery. Put must never
// block the producer; Get blocks until an item is available or ctx is
// cancelled, and cancellation must be observed promptly so a publisher whose
// client went away does not linger.
//
// The default implementation below is a single unbounded FIFO shared by all
// producers and all stream publishers. Concurrent readers contend per item:
// each event is handed to exactly one of them. A bounded or per-session
// backing can be substituted here without touching the orchestrator.
type EventQueue interface {
	Put(Event)
	Get(ctx context.Context) (Event, error)
	Len() int
}

// Queue is the shared unbounded FIFO EventQueue.
type Queue struct {
	mu    sync.Mutex
	items []Event
	ready chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Put appends an event. Never blocks.
func (q *Queue) Put(ev Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()
	q.signal()
}

// Get pops the oldest event, blocking until one exists or ctx is done.
func (q *Queue) Get(ctx context.Context) (Event, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()
			if remaining > 0 {
				// wake the next waiter; the signal consumed above covered only us
				q.signal()
			}
			return ev, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-q.ready:
		}
	}
}

// Len reports the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
