package trail

import (
	"sort"
	"sync"

	"watchtrail/model"
)

// QueuedEntry pairs a progress key with the entry version queued for it.
type QueuedEntry struct {
	Key   string
	Entry model.ProgressEntry
}

// Queue holds the keys mutated since the last successful flush, each
// mapped to its latest entry. Repeated marks for a key replace the
// queued entry, so a flush only ever carries the newest version.
//
// The queue is memory-only: entries queued when the process exits are
// lost and will be re-queued the next time the title is watched.
type Queue struct {
	mu      sync.Mutex
	entries map[string]model.ProgressEntry
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{entries: make(map[string]model.ProgressEntry)}
}

// Mark records a key as dirty with its newest entry.
func (q *Queue) Mark(key string, entry model.ProgressEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries[key] = entry
}

// Len returns the number of dirty keys.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot returns the queued entries as a stable key-ordered sequence.
// The queue itself is not modified; pair with Ack after a successful
// flush.
func (q *Queue) Snapshot() []QueuedEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	snap := make([]QueuedEntry, 0, len(q.entries))
	for k, e := range q.entries {
		snap = append(snap, QueuedEntry{Key: k, Entry: e})
	}
	sort.Slice(snap, func(i, j int) bool { return snap[i].Key < snap[j].Key })
	return snap
}

// Ack removes the snapshotted keys after a confirmed flush. A key is
// only removed if its queued entry is still the snapshotted version; an
// entry re-marked while the flush was in flight stays queued for the
// next tick.
func (q *Queue) Ack(snapshot []QueuedEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, qe := range snapshot {
		if cur, ok := q.entries[qe.Key]; ok && cur == qe.Entry {
			delete(q.entries, qe.Key)
		}
	}
}

// Clear drops every queued entry. Used when the backend is unconfigured
// and on fatal auth rejection.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = make(map[string]model.ProgressEntry)
}
