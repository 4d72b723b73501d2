package trail

import (
	"strings"
	"sync"
	"time"

	"watchtrail/logger"
	"watchtrail/model"
)

// defaultSettleDelay is how long a freshly opened viewing context gets
// to load its player before a parked seek is delivered.
const defaultSettleDelay = 2 * time.Second

// parkedSeekTTL bounds how long an undeliverable seek waits for a
// matching context to appear.
const parkedSeekTTL = 30 * time.Second

// SeekSender delivers a seek request to one live viewing context.
type SeekSender interface {
	SendSeek(seconds float64) error
}

type viewingContext struct {
	id     int64
	url    string
	sender SeekSender
}

type parkedSeek struct {
	url     string // fragment-stripped target
	seconds float64
	expires time.Time
}

// Registry tracks live viewing contexts (player pages connected to the
// agent) and routes resume requests to them. A resume with no matching
// context parks the seek; it is delivered after a settle delay as soon
// as a context with a matching URL registers.
type Registry struct {
	mu          sync.Mutex
	contexts    map[int64]*viewingContext
	parked      []parkedSeek
	nextID      int64
	settleDelay time.Duration
}

// NewRegistry creates an empty context registry.
func NewRegistry() *Registry {
	return &Registry{
		contexts:    make(map[int64]*viewingContext),
		settleDelay: defaultSettleDelay,
	}
}

// Register adds a viewing context and returns its id. Any parked seek
// matching the context's URL is scheduled for delivery after the settle
// delay.
func (r *Registry) Register(url string, sender SeekSender) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.contexts[id] = &viewingContext{id: id, url: model.StripFragment(url), sender: sender}

	r.deliverParkedLocked(r.contexts[id])
	return id
}

// Unregister removes a viewing context.
func (r *Registry) Unregister(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contexts, id)
}

// UpdateURL records a navigation within an existing context.
func (r *Registry) UpdateURL(id int64, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, ok := r.contexts[id]
	if !ok {
		return
	}
	ctx.url = model.StripFragment(url)
	r.deliverParkedLocked(ctx)
}

// Resume asks the context playing the entry's URL to seek to the stored
// position. Matching is by prefix on the fragment-stripped URLs. When no
// context matches, the seek is parked and false is returned; the caller
// should open the entry's URL, and the parked seek fires once the new
// context registers.
func (r *Registry) Resume(entry model.ProgressEntry) bool {
	if entry.URL == "" {
		return false
	}
	target := model.StripFragment(entry.URL)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ctx := range r.contexts {
		if hasPrefix(ctx.url, target) {
			go sendSeek(ctx.sender, entry.Time)
			return true
		}
	}

	r.parked = append(r.parked, parkedSeek{
		url:     target,
		seconds: entry.Time,
		expires: time.Now().Add(parkedSeekTTL),
	})
	return false
}

// ContextCount returns the number of live viewing contexts.
func (r *Registry) ContextCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contexts)
}

// deliverParkedLocked hands any parked seek matching the context's URL
// to it after the settle delay, and prunes expired parks.
func (r *Registry) deliverParkedLocked(ctx *viewingContext) {
	now := time.Now()
	kept := r.parked[:0]
	for _, p := range r.parked {
		if now.After(p.expires) {
			continue
		}
		if hasPrefix(ctx.url, p.url) {
			sender, seconds := ctx.sender, p.seconds
			time.AfterFunc(r.settleDelay, func() {
				sendSeek(sender, seconds)
			})
			continue
		}
		kept = append(kept, p)
	}
	r.parked = kept
}

func sendSeek(sender SeekSender, seconds float64) {
	if err := sender.SendSeek(seconds); err != nil {
		logger.Warn("Failed to deliver seek", logger.Float64("seconds", seconds), logger.ErrorField(err))
	}
}

func hasPrefix(s, prefix string) bool {
	return prefix != "" && strings.HasPrefix(s, prefix)
}
