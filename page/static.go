package page

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pozitronik/viscrapper/internal/types"
)

// ActivateFunc scripts how a static page reacts when an element is clicked.
// It runs with the page lock held and may mutate the document freely.
type ActivateFunc func(doc *goquery.Document, el *goquery.Selection)

// StaticPage is a goquery-backed Page over an HTML snapshot. It serves
// offline extraction from saved pages and acts as the DOM fixture in tests:
// activation handlers script how the page reacts to clicks, and registered
// watchers fire synchronously when a change touches their subtree.
type StaticPage struct {
	mu           sync.Mutex
	doc          *goquery.Document
	address      string
	handlers     []activationHandler
	mutWatchers  map[int]mutationWatcher
	addrWatchers map[int]func(types.AddressChange)
	nextWatchID  int
}

type activationHandler struct {
	selector string
	fn       ActivateFunc
}

type mutationWatcher struct {
	selector string
	fn       func(types.MutationEvent)
}

// NewStaticPage parses html into a page reachable at address.
func NewStaticPage(html, address string) (*StaticPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &StaticPage{
		doc:          doc,
		address:      address,
		mutWatchers:  make(map[int]mutationWatcher),
		addrWatchers: make(map[int]func(types.AddressChange)),
	}, nil
}

// NewStaticPageFromFile loads a saved HTML file into a page reachable at
// address.
func NewStaticPageFromFile(path, address string) (*StaticPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewStaticPage(string(data), address)
}

// OnActivate registers a handler invoked when an element matching selector
// is activated. Handlers are checked in registration order; the first match
// wins. Activating an element with no handler is a no-op.
func (p *StaticPage) OnActivate(selector string, fn ActivateFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, activationHandler{selector: selector, fn: fn})
}

// Address returns the page's current address.
func (p *StaticPage) Address() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.address
}

// SetAddress changes the page address and notifies address watchers.
func (p *StaticPage) SetAddress(addr string) {
	p.mu.Lock()
	from := p.address
	p.address = addr
	watchers := make([]func(types.AddressChange), 0, len(p.addrWatchers))
	for _, fn := range p.addrWatchers {
		watchers = append(watchers, fn)
	}
	p.mu.Unlock()

	if from == addr {
		return
	}
	change := types.AddressChange{From: from, To: addr, At: time.Now()}
	for _, fn := range watchers {
		fn(change)
	}
}

// Query returns the elements matching a CSS selector, in document order.
func (p *StaticPage) Query(selector string) []types.Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := p.doc.Find(selector)
	elements := make([]types.Element, 0, sel.Length())
	sel.Each(func(i int, _ *goquery.Selection) {
		elements = append(elements, &staticElement{page: p, sel: sel.Eq(i)})
	})
	return elements
}

// Suspend waits for the given duration or until ctx is done.
func (p *StaticPage) Suspend(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WatchMutations invokes fn when a scripted change alters the subtree
// matched by selector.
func (p *StaticPage) WatchMutations(selector string, fn func(types.MutationEvent)) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextWatchID
	p.nextWatchID++
	p.mutWatchers[id] = mutationWatcher{selector: selector, fn: fn}
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.mutWatchers, id)
	}, nil
}

// WatchAddress invokes fn when the page address changes.
func (p *StaticPage) WatchAddress(fn func(types.AddressChange)) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextWatchID
	p.nextWatchID++
	p.addrWatchers[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.addrWatchers, id)
	}, nil
}

// Apply runs a scripted document change, then notifies mutation watchers
// whose subtree content differs from before the change.
func (p *StaticPage) Apply(mutate func(doc *goquery.Document)) {
	p.mutateAndNotify(func() {
		mutate(p.doc)
	})
}

// Subtree returns the serialized content currently matched by selector.
func (p *StaticPage) Subtree(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subtreeLocked(selector)
}

func (p *StaticPage) activate(ctx context.Context, sel *goquery.Selection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mutateAndNotify(func() {
		for _, h := range p.handlers {
			if sel.Is(h.selector) {
				h.fn(p.doc, sel)
				return
			}
		}
	})
	return nil
}

// mutateAndNotify snapshots every watched subtree, runs fn under the lock,
// then dispatches mutation events outside the lock so callbacks can query
// the page.
func (p *StaticPage) mutateAndNotify(fn func()) {
	type pending struct {
		fn    func(types.MutationEvent)
		event types.MutationEvent
	}

	p.mu.Lock()
	before := make(map[int]string, len(p.mutWatchers))
	for id, w := range p.mutWatchers {
		before[id] = p.subtreeLocked(w.selector)
	}
	fn()
	var fire []pending
	now := time.Now()
	for id, w := range p.mutWatchers {
		after := p.subtreeLocked(w.selector)
		if after != before[id] {
			fire = append(fire, pending{fn: w.fn, event: types.MutationEvent{
				Selector: w.selector,
				Content:  after,
				At:       now,
			}})
		}
	}
	p.mu.Unlock()

	for _, f := range fire {
		f.fn(f.event)
	}
}

func (p *StaticPage) subtreeLocked(selector string) string {
	sel := p.doc.Find(selector)
	if sel.Length() == 0 {
		return ""
	}
	var b strings.Builder
	sel.Each(func(i int, _ *goquery.Selection) {
		if html, err := goquery.OuterHtml(sel.Eq(i)); err == nil {
			b.WriteString(html)
		}
	})
	return b.String()
}

// staticElement is an Element bound to one node of a StaticPage.
type staticElement struct {
	page *StaticPage
	sel  *goquery.Selection
}

func (e *staticElement) Attr(name string) (string, bool) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return e.sel.Attr(name)
}

func (e *staticElement) Text() string {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return strings.TrimSpace(e.sel.Text())
}

func (e *staticElement) Activate(ctx context.Context) error {
	return e.page.activate(ctx, e.sel)
}
