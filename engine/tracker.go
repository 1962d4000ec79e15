package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pozitronik/viscrapper/internal/types"
)

// Tracker watches a session's page for the two changes that invalidate
// extracted data: replacement of the structured-data fragment and address
// changes. Staleness is one-way; once stale, the tracker stays stale and
// the caller rebuilds the session on a fresh page.
//
// Triggers inside the grace window after arming are absorbed rather than
// reported: they are the page's own hydration settling, not a product
// change. Content seen during grace becomes the comparison baseline.
type Tracker struct {
	page     types.Page
	selector string
	sanitize func(string) string
	grace    time.Duration
	logger   types.Logger

	mu          sync.Mutex
	armedAt     time.Time
	fingerprint string
	address     string
	stale       bool
	suspended   int
	closed      bool
	cancels     []func()

	events chan types.StaleEvent
}

// newTracker arms a tracker on the page. The structured-data watcher is
// best effort: a page without the fragment still gets address tracking.
func newTracker(pg types.Page, adapter types.SiteAdapter, config *types.Config, logger types.Logger) (*Tracker, error) {
	t := &Tracker{
		page:     pg,
		selector: adapter.StructuredDataSelector(),
		sanitize: adapter.SanitizeURL,
		grace:    config.GraceWindow,
		logger:   logger,
		events:   make(chan types.StaleEvent, 1),
	}
	t.armedAt = time.Now()
	t.fingerprint = fingerprint(pg.Subtree(t.selector))
	t.address = t.sanitize(pg.Address())

	if cancel, err := pg.WatchMutations(t.selector, t.onMutation); err != nil {
		logger.Warnf("Structured data watch unavailable, tracking address only: %v", err)
	} else {
		t.cancels = append(t.cancels, cancel)
	}

	cancel, err := pg.WatchAddress(t.onAddress)
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to watch page address: %w", err)
	}
	t.cancels = append(t.cancels, cancel)

	return t, nil
}

// Stale reports whether the page has been marked stale.
func (t *Tracker) Stale() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stale
}

// Events returns the notification channel. Exactly one event is sent over
// the tracker's lifetime, on the transition to stale.
func (t *Tracker) Events() <-chan types.StaleEvent {
	return t.events
}

// Suspend masks triggers while the engine itself mutates the page, such as
// during a size matrix walk. Calls nest.
func (t *Tracker) Suspend() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.suspended++
}

// Rearm lifts one suspension. When the last one lifts, the tracker re-arms
// against the page's current state with a fresh grace window, so changes
// the engine itself caused are not mistaken for page changes.
func (t *Tracker) Rearm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.suspended > 0 {
		t.suspended--
	}
	if t.suspended == 0 && !t.stale {
		t.armedAt = time.Now()
		t.fingerprint = fingerprint(t.page.Subtree(t.selector))
		t.address = t.sanitize(t.page.Address())
	}
}

// Close cancels the watchers and closes the event channel.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	cancels := t.cancels
	t.cancels = nil
	t.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	t.mu.Lock()
	close(t.events)
	t.mu.Unlock()
}

func (t *Tracker) onMutation(ev types.MutationEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stale || t.closed || t.suspended > 0 {
		return
	}
	fp := fingerprint(ev.Content)
	if time.Since(t.armedAt) < t.grace {
		t.fingerprint = fp
		return
	}
	if fp == t.fingerprint {
		return
	}
	t.markStaleLocked(types.StaleReasonStructuredData, "structured data fragment replaced")
}

func (t *Tracker) onAddress(ev types.AddressChange) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stale || t.closed || t.suspended > 0 {
		return
	}
	to := t.sanitize(ev.To)
	if time.Since(t.armedAt) < t.grace {
		t.address = to
		return
	}
	if to == t.address {
		return
	}
	t.markStaleLocked(types.StaleReasonAddress, fmt.Sprintf("address changed to %s", to))
}

func (t *Tracker) markStaleLocked(reason, detail string) {
	t.stale = true
	t.logger.Infof("Page marked stale (%s): %s", reason, detail)
	select {
	case t.events <- types.StaleEvent{Reason: reason, Detail: detail, At: time.Now()}:
	default:
	}
}

// fingerprint returns a hex digest of the trimmed content. Whitespace-only
// edits produce the same fingerprint.
func fingerprint(content string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(content)))
	return hex.EncodeToString(sum[:])
}
