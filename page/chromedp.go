package page

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/pozitronik/viscrapper/internal/types"
)

// mutationBinding is the CDP binding mutation observers report through.
const mutationBinding = "__viscrapperMutation"

// installObserverJS installs a MutationObserver for one watched selector.
// Observing the parent node catches wholesale replacement of the watched
// element, which is how single-page stores swap their structured data.
const installObserverJS = `(function(id, selector) {
	var target = document.querySelector(selector);
	if (!target) { return false; }
	window.__viscrapperObservers = window.__viscrapperObservers || {};
	var observer = new MutationObserver(function() {
		var content = '';
		document.querySelectorAll(selector).forEach(function(n) { content += n.outerHTML; });
		window.%s(JSON.stringify({selector: selector, content: content}));
	});
	observer.observe(target.parentNode || target, {childList: true, subtree: true, characterData: true, attributes: true});
	window.__viscrapperObservers[id] = observer;
	return true;
})(%d, %s)`

// disconnectObserverJS tears down one installed MutationObserver.
const disconnectObserverJS = `(function(id) {
	var observers = window.__viscrapperObservers || {};
	if (observers[id]) { observers[id].disconnect(); delete observers[id]; }
	return true;
})(%d)`

// subtreeJS serializes a subtree the same way the mutation observer does,
// so fingerprints taken from either source compare equal.
const subtreeJS = `(function(selector) {
	var content = '';
	document.querySelectorAll(selector).forEach(function(n) { content += n.outerHTML; });
	return content;
})(%s)`

// ChromePage is a Page backed by a live headless browser tab. The tab stays
// open for the lifetime of the page so watchers keep reporting and element
// activation hits real page state.
type ChromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	config *types.Config
	logger types.Logger

	mu           sync.Mutex
	address      string
	mutWatchers  map[int]mutationWatcher
	addrWatchers map[int]func(types.AddressChange)
	nextWatchID  int
	bindingReady bool
}

// NewChromePage opens url in a headless browser tab and leaves it open for
// interaction. Close releases the tab and the browser.
func NewChromePage(parent context.Context, url string, config *types.Config, logger types.Logger) (*ChromePage, error) {
	// Suppress chromedp debug logging
	log.SetOutput(io.Discard)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.UseHeadlessBrowser),
		chromedp.UserAgent(config.UserAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	p := &ChromePage{
		ctx:    tabCtx,
		config: config,
		logger: logger,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		mutWatchers:  make(map[int]mutationWatcher),
		addrWatchers: make(map[int]func(types.AddressChange)),
	}

	chromedp.ListenTarget(tabCtx, p.handleEvent)

	navCtx, cancel := context.WithTimeout(tabCtx, config.Timeout)
	defer cancel()

	var address string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.Location(&address),
	)
	if err != nil {
		p.cancel()
		return nil, fmt.Errorf("failed to open %s: %w", url, err)
	}
	p.address = address

	logger.Debugf("Opened browser page at %s", address)
	return p, nil
}

// Close releases the browser tab.
func (p *ChromePage) Close() {
	p.cancel()
}

// Address returns the page's current address.
func (p *ChromePage) Address() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.address
}

// Query returns the elements matching a CSS selector, in document order.
func (p *ChromePage) Query(selector string) []types.Element {
	queryCtx, cancel := context.WithTimeout(p.ctx, p.config.Timeout)
	defer cancel()

	var nodes []*cdp.Node
	err := chromedp.Run(queryCtx,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	if err != nil {
		p.logger.Warnf("Query %s failed: %v", selector, err)
		return nil
	}

	elements := make([]types.Element, 0, len(nodes))
	for _, node := range nodes {
		elements = append(elements, &chromeElement{page: p, node: node})
	}
	return elements
}

// Subtree returns the serialized content matched by selector.
func (p *ChromePage) Subtree(selector string) string {
	subCtx, cancel := context.WithTimeout(p.ctx, p.config.Timeout)
	defer cancel()

	var content string
	script := fmt.Sprintf(subtreeJS, strconv.Quote(selector))
	if err := chromedp.Run(subCtx, chromedp.Evaluate(script, &content)); err != nil {
		p.logger.Warnf("Subtree read for %s failed: %v", selector, err)
		return ""
	}
	return content
}

// Suspend waits for the given duration or until ctx is done.
func (p *ChromePage) Suspend(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// WatchMutations installs a MutationObserver for selector and invokes fn
// with the subtree's serialized content on every reported change.
func (p *ChromePage) WatchMutations(selector string, fn func(types.MutationEvent)) (func(), error) {
	if err := p.ensureBinding(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	id := p.nextWatchID
	p.nextWatchID++
	p.mutWatchers[id] = mutationWatcher{selector: selector, fn: fn}
	p.mu.Unlock()

	script := fmt.Sprintf(installObserverJS, mutationBinding, id, strconv.Quote(selector))

	installCtx, cancel := context.WithTimeout(p.ctx, p.config.Timeout)
	defer cancel()

	var installed bool
	if err := chromedp.Run(installCtx, chromedp.Evaluate(script, &installed)); err != nil {
		p.removeMutationWatcher(id)
		return nil, fmt.Errorf("failed to install mutation observer for %s: %w", selector, err)
	}
	if !installed {
		p.removeMutationWatcher(id)
		return nil, fmt.Errorf("no element matches %s", selector)
	}

	cancelWatch := func() {
		p.removeMutationWatcher(id)
		disconnectCtx, cancelDisconnect := context.WithTimeout(p.ctx, p.config.Timeout)
		defer cancelDisconnect()
		var ok bool
		_ = chromedp.Run(disconnectCtx, chromedp.Evaluate(fmt.Sprintf(disconnectObserverJS, id), &ok))
	}
	return cancelWatch, nil
}

// WatchAddress invokes fn on every page address change, including
// in-document navigations.
func (p *ChromePage) WatchAddress(fn func(types.AddressChange)) (func(), error) {
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

// HTML returns the page's current serialized DOM.
func (p *ChromePage) HTML() (string, error) {
	htmlCtx, cancel := context.WithTimeout(p.ctx, p.config.Timeout)
	defer cancel()

	var html string
	if err := chromedp.Run(htmlCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}

	p.logger.Debugf("Retrieved page content (%d bytes)", len(html))
	return html, nil
}

func (p *ChromePage) ensureBinding() error {
	p.mu.Lock()
	ready := p.bindingReady
	p.mu.Unlock()
	if ready {
		return nil
	}

	bindCtx, cancel := context.WithTimeout(p.ctx, p.config.Timeout)
	defer cancel()

	err := chromedp.Run(bindCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return runtime.AddBinding(mutationBinding).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to add mutation binding: %w", err)
	}

	p.mu.Lock()
	p.bindingReady = true
	p.mu.Unlock()
	return nil
}

func (p *ChromePage) removeMutationWatcher(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.mutWatchers, id)
}

func (p *ChromePage) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *runtime.EventBindingCalled:
		if e.Name == mutationBinding {
			p.dispatchMutation(e.Payload)
		}
	case *cdppage.EventNavigatedWithinDocument:
		p.updateAddress(e.URL)
	case *cdppage.EventFrameNavigated:
		if e.Frame != nil && e.Frame.ParentID == "" {
			p.updateAddress(e.Frame.URL)
		}
	}
}

func (p *ChromePage) dispatchMutation(payload string) {
	var msg struct {
		Selector string `json:"selector"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		p.logger.Warnf("Ignoring malformed mutation payload: %v", err)
		return
	}

	p.mu.Lock()
	var fire []func(types.MutationEvent)
	for _, w := range p.mutWatchers {
		if w.selector == msg.Selector {
			fire = append(fire, w.fn)
		}
	}
	p.mu.Unlock()

	event := types.MutationEvent{Selector: msg.Selector, Content: msg.Content, At: time.Now()}
	for _, fn := range fire {
		fn(event)
	}
}

func (p *ChromePage) updateAddress(to string) {
	p.mu.Lock()
	from := p.address
	if to == "" || to == from {
		p.mu.Unlock()
		return
	}
	p.address = to
	watchers := make([]func(types.AddressChange), 0, len(p.addrWatchers))
	for _, fn := range p.addrWatchers {
		watchers = append(watchers, fn)
	}
	p.mu.Unlock()

	change := types.AddressChange{From: from, To: to, At: time.Now()}
	for _, fn := range watchers {
		fn(change)
	}
}

// chromeElement is an Element bound to one CDP node.
type chromeElement struct {
	page *ChromePage
	node *cdp.Node
}

func (e *chromeElement) Attr(name string) (string, bool) {
	e.node.RLock()
	defer e.node.RUnlock()
	attrs := e.node.Attributes
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i] == name {
			return attrs[i+1], true
		}
	}
	return "", false
}

func (e *chromeElement) Text() string {
	textCtx, cancel := context.WithTimeout(e.page.ctx, e.page.config.Timeout)
	defer cancel()

	// TextContent rather than visible text: script bodies such as the
	// JSON-LD fragment render as empty otherwise.
	var text string
	err := chromedp.Run(textCtx,
		chromedp.TextContent([]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID),
	)
	if err != nil {
		e.page.logger.Warnf("Text read failed: %v", err)
		return ""
	}
	return strings.TrimSpace(text)
}

func (e *chromeElement) Activate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	clickCtx, cancel := context.WithTimeout(e.page.ctx, e.page.config.Timeout)
	defer cancel()

	if err := chromedp.Run(clickCtx, chromedp.MouseClickNode(e.node)); err != nil {
		return fmt.Errorf("failed to click node: %w", err)
	}
	return nil
}
