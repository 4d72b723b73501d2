package trail

import (
	"time"

	"watchtrail/logger"
	"watchtrail/model"
)

// Pipeline normalizes raw observations from content scripts and merges
// them into the store, marking the touched key dirty for the next flush.
type Pipeline struct {
	store *Store
	queue *Queue
	now   func() time.Time
}

// NewPipeline creates an ingest pipeline over the given store and queue.
func NewPipeline(store *Store, queue *Queue) *Pipeline {
	return &Pipeline{
		store: store,
		queue: queue,
		now:   time.Now,
	}
}

// Ingest merges one observation into the store for the given user.
// Observations without a title are dropped silently; content scripts
// fire noisy, partial signals and the filter belongs here, not upstream.
// The liked flag of an existing entry survives re-ingestion.
func (p *Pipeline) Ingest(obs model.Observation, userID string) {
	if obs.Title == "" {
		logger.Debug("Dropping observation without title",
			logger.String("platform", obs.Platform),
			logger.String("url", obs.URL))
		return
	}

	platform := obs.Platform
	if platform == "" {
		platform = model.PlatformUnknown
	}
	key := model.ProgressKey(userID, platform, obs.Title)

	entry := model.ProgressEntry{
		Title:       obs.Title,
		Episode:     obs.Episode,
		Time:        obs.Time,
		Duration:    obs.Duration,
		Cover:       obs.Cover,
		URL:         obs.URL,
		Platform:    platform,
		LastUpdated: p.now().UnixMilli(),
	}
	if obs.Time < 0 {
		entry.Time = 0
	}
	if obs.Duration < 0 {
		entry.Duration = 0
	}

	// Carry the user-set flag forward; observations never touch it.
	if prev, ok := p.store.Get(key); ok {
		entry.Liked = prev.Liked
	}

	p.store.Put(key, entry)
	p.queue.Mark(key, entry)
}

// ToggleLike flips the liked flag for (user, platform, title) and queues
// the updated entry for sync. Returns the updated entry, or false if no
// entry exists for the key.
func (p *Pipeline) ToggleLike(userID, platform, title string) (model.ProgressEntry, bool) {
	key := model.ProgressKey(userID, platform, title)
	entry, ok := p.store.ToggleLike(key)
	if !ok {
		return model.ProgressEntry{}, false
	}
	p.queue.Mark(key, entry)
	return entry, true
}
