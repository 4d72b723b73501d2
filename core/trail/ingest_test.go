package trail

import (
	"testing"

	"watchtrail/model"
)

func newTestPipeline(t *testing.T) (*Pipeline, *Store, *Queue) {
	t.Helper()
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	queue := NewQueue()
	return NewPipeline(store, queue), store, queue
}

func TestIngestDropsMissingTitle(t *testing.T) {
	p, store, queue := newTestPipeline(t)

	p.Ingest(model.Observation{Platform: "X", Time: 42, URL: "https://x.test/v"}, "local")

	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d entries", store.Len())
	}
	if queue.Len() != 0 {
		t.Fatalf("expected empty queue, got %d entries", queue.Len())
	}
}

func TestIngestDefaultsAndKey(t *testing.T) {
	p, store, queue := newTestPipeline(t)

	p.Ingest(model.Observation{Title: "Show A", Time: -5, Duration: -1}, "local")

	entry, ok := store.Get("local:unknown:Show A")
	if !ok {
		t.Fatalf("expected entry under local:unknown:Show A, store=%v", store.Export())
	}
	if entry.Platform != "unknown" {
		t.Errorf("platform = %q, want unknown", entry.Platform)
	}
	if entry.Time != 0 || entry.Duration != 0 {
		t.Errorf("negative time/duration not zeroed: time=%v duration=%v", entry.Time, entry.Duration)
	}
	if entry.LastUpdated == 0 {
		t.Error("lastUpdated not stamped")
	}
	if queue.Len() != 1 {
		t.Errorf("queue length = %d, want 1", queue.Len())
	}
}

func TestLikePreservedAcrossIngestions(t *testing.T) {
	p, store, _ := newTestPipeline(t)
	key := "local:X:Show A"

	p.Ingest(model.Observation{Title: "Show A", Episode: "1", Time: 120, Duration: 1400, Platform: "X"}, "local")

	entry, ok := store.Get(key)
	if !ok {
		t.Fatalf("entry missing after first ingest")
	}
	if entry.Time != 120 || entry.Liked {
		t.Fatalf("after first ingest: time=%v liked=%v, want 120/false", entry.Time, entry.Liked)
	}

	p.Ingest(model.Observation{Title: "Show A", Time: 300, Platform: "X"}, "local")
	entry, _ = store.Get(key)
	if entry.Time != 300 || entry.Liked {
		t.Fatalf("after second ingest: time=%v liked=%v, want 300/false", entry.Time, entry.Liked)
	}
	if entry.Episode != "" {
		t.Errorf("episode = %q, want empty (observations replace, not merge)", entry.Episode)
	}

	if _, ok := p.ToggleLike("local", "X", "Show A"); !ok {
		t.Fatalf("ToggleLike failed for existing key")
	}
	entry, _ = store.Get(key)
	if !entry.Liked {
		t.Fatal("liked not set after toggle")
	}

	// Any number of further observations must not flip the flag back.
	for i := 0; i < 5; i++ {
		p.Ingest(model.Observation{Title: "Show A", Time: 310, Platform: "X"}, "local")
	}
	entry, _ = store.Get(key)
	if !entry.Liked || entry.Time != 310 {
		t.Fatalf("after re-ingest: time=%v liked=%v, want 310/true", entry.Time, entry.Liked)
	}
}

func TestToggleLikeUnknownKey(t *testing.T) {
	p, _, queue := newTestPipeline(t)

	if _, ok := p.ToggleLike("local", "X", "Nope"); ok {
		t.Fatal("ToggleLike succeeded for missing key")
	}
	if queue.Len() != 0 {
		t.Fatalf("queue length = %d, want 0", queue.Len())
	}
}

func TestIngestMarksQueueWithLatestVersion(t *testing.T) {
	p, _, queue := newTestPipeline(t)

	p.Ingest(model.Observation{Title: "Show A", Time: 100, Platform: "X"}, "local")
	p.Ingest(model.Observation{Title: "Show A", Time: 200, Platform: "X"}, "local")

	snap := queue.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot length = %d, want 1 (replace, not append)", len(snap))
	}
	if snap[0].Entry.Time != 200 {
		t.Errorf("queued time = %v, want 200", snap[0].Entry.Time)
	}
}
