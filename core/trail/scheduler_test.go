package trail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"watchtrail/model"
)

// fakeRemote is an in-memory stand-in for the backend: an upsert-by-key
// store behind a /sync endpoint.
type fakeRemote struct {
	mu      sync.Mutex
	status  int // forced status; 0 means accept and upsert
	records map[string]model.ProgressEntry
	batches int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: make(map[string]model.ProgressEntry)}
}

func (f *fakeRemote) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.batches++

		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}

		var req model.SyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, item := range req.Items {
			f.records[model.ItemKey(item.Platform, item.Title)] = item
		}
		json.NewEncoder(w).Encode(model.SyncResponse{OK: true, Stored: len(req.Items)})
	})
}

func (f *fakeRemote) snapshot() map[string]model.ProgressEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]model.ProgressEntry, len(f.records))
	for k, v := range f.records {
		out[k] = v
	}
	return out
}

func newTestScheduler(t *testing.T, backendURL string) (*Scheduler, *Queue, *Session) {
	t.Helper()
	queue := NewQueue()
	session := NewSession()
	sched := NewScheduler(queue, session, NewClient(2*time.Second),
		func() string { return backendURL }, time.Second)
	return sched, queue, session
}

func markEntries(q *Queue, n int) {
	titles := []string{"Show A", "Show B", "Show C", "Show D"}
	for i := 0; i < n && i < len(titles); i++ {
		q.Mark("local:X:"+titles[i], model.ProgressEntry{
			Title:       titles[i],
			Platform:    "X",
			Time:        float64(100 * (i + 1)),
			LastUpdated: int64(i + 1),
		})
	}
}

func TestFlushTickEmptyQueueNoop(t *testing.T) {
	remote := newFakeRemote()
	srv := httptest.NewServer(remote.handler())
	defer srv.Close()

	sched, _, _ := newTestScheduler(t, srv.URL)
	sched.FlushTick(context.Background())

	if remote.batches != 0 {
		t.Fatalf("remote received %d batches, want 0", remote.batches)
	}
}

func TestFlushTickUnconfiguredBackendDropsQueue(t *testing.T) {
	remote := newFakeRemote()
	srv := httptest.NewServer(remote.handler())
	defer srv.Close()

	sched, queue, _ := newTestScheduler(t, "")
	markEntries(queue, 3)

	sched.FlushTick(context.Background())

	if queue.Len() != 0 {
		t.Fatalf("queue length = %d, want 0 (dropped, not retried)", queue.Len())
	}
	if remote.batches != 0 {
		t.Fatalf("remote received %d batches, want 0", remote.batches)
	}
	if !sched.LastSyncAt().IsZero() {
		t.Error("lastSyncAt stamped without a flush")
	}
}

func TestFlushTickSuccessAcksAndStamps(t *testing.T) {
	remote := newFakeRemote()
	srv := httptest.NewServer(remote.handler())
	defer srv.Close()

	sched, queue, session := newTestScheduler(t, srv.URL)
	if err := session.Set("tok", "user-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	markEntries(queue, 2)

	sched.FlushTick(context.Background())

	if queue.Len() != 0 {
		t.Fatalf("queue length = %d, want 0", queue.Len())
	}
	if len(remote.snapshot()) != 2 {
		t.Fatalf("remote has %d records, want 2", len(remote.snapshot()))
	}
	if sched.LastSyncAt().IsZero() {
		t.Error("lastSyncAt not stamped on success")
	}
	if _, ok := session.Get(); !ok {
		t.Error("session cleared on success")
	}
}

func TestFlushTick401ClearsSessionAndQueue(t *testing.T) {
	remote := newFakeRemote()
	remote.status = http.StatusUnauthorized
	srv := httptest.NewServer(remote.handler())
	defer srv.Close()

	sched, queue, session := newTestScheduler(t, srv.URL)
	if err := session.Set("revoked", "user-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	markEntries(queue, 3)

	sched.FlushTick(context.Background())

	if queue.Len() != 0 {
		t.Fatalf("queue length = %d, want 0 after 401", queue.Len())
	}
	if _, ok := session.Get(); ok {
		t.Fatal("session survives 401")
	}
	if !sched.LastSyncAt().IsZero() {
		t.Error("lastSyncAt stamped on 401")
	}
}

func TestFlushTickTransientFailureKeepsQueue(t *testing.T) {
	// Closed server: transport-level failure, no response at all.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	sched, queue, session := newTestScheduler(t, url)
	if err := session.Set("tok", "user-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	markEntries(queue, 3)
	before := queue.Snapshot()

	sched.FlushTick(context.Background())

	after := queue.Snapshot()
	if len(after) != len(before) {
		t.Fatalf("queue length = %d, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("queue entry changed: %+v -> %+v", before[i], after[i])
		}
	}
	if _, ok := session.Get(); !ok {
		t.Error("session cleared on transient failure")
	}
}

func TestFlushTickServerErrorKeepsQueue(t *testing.T) {
	remote := newFakeRemote()
	remote.status = http.StatusServiceUnavailable
	srv := httptest.NewServer(remote.handler())
	defer srv.Close()

	sched, queue, _ := newTestScheduler(t, srv.URL)
	markEntries(queue, 2)

	sched.FlushTick(context.Background())

	if queue.Len() != 2 {
		t.Fatalf("queue length = %d, want 2 after 5xx", queue.Len())
	}
}

func TestFlushIdempotentAgainstUpsertingRemote(t *testing.T) {
	remote := newFakeRemote()
	srv := httptest.NewServer(remote.handler())
	defer srv.Close()

	sched, queue, _ := newTestScheduler(t, srv.URL)
	markEntries(queue, 3)
	batch := queue.Snapshot()

	sched.FlushTick(context.Background())
	once := remote.snapshot()

	// Redeliver the identical batch.
	for _, qe := range batch {
		queue.Mark(qe.Key, qe.Entry)
	}
	sched.FlushTick(context.Background())
	twice := remote.snapshot()

	if len(once) != len(twice) {
		t.Fatalf("remote size changed on redelivery: %d -> %d", len(once), len(twice))
	}
	for k, v := range once {
		if twice[k] != v {
			t.Fatalf("record %s changed on redelivery: %+v -> %+v", k, v, twice[k])
		}
	}
}

func TestFlushSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(model.SyncResponse{OK: true})
	}))
	defer srv.Close()

	sched, queue, session := newTestScheduler(t, srv.URL)
	if err := session.Set("tok-123", "user-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	markEntries(queue, 1)

	sched.FlushTick(context.Background())

	if gotAuth != "Bearer tok-123" {
		t.Fatalf("Authorization = %q, want Bearer tok-123", gotAuth)
	}
}
