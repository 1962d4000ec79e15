package types

import (
	"context"
	"time"
)

// Element is a handle on a single matched page node.
type Element interface {
	// Attr returns the attribute value and whether the attribute is present.
	Attr(name string) (string, bool)

	// Text returns the node's trimmed text content.
	Text() string

	// Activate performs the page's activation gesture on the node, normally
	// a click.
	Activate(ctx context.Context) error
}

// MutationEvent reports a change inside a watched subtree.
type MutationEvent struct {
	Selector string
	Content  string
	At       time.Time
}

// AddressChange reports a page address transition, including in-document
// navigations on single-page stores.
type AddressChange struct {
	From string
	To   string
	At   time.Time
}

// Page is the access surface the engine requires from an open product page.
// Implementations exist for a live browser tab and for static HTML snapshots.
type Page interface {
	// Address returns the page's current address.
	Address() string

	// Query returns the elements matching a CSS selector, in document order.
	// A selector that matches nothing returns an empty slice.
	Query(selector string) []Element

	// Subtree returns the serialized content of the subtree matched by
	// selector, in the same encoding mutation events report.
	Subtree(selector string) string

	// Suspend waits for the given duration or until ctx is done.
	Suspend(ctx context.Context, d time.Duration) error

	// WatchMutations invokes fn whenever the subtree matched by selector
	// changes. The returned function cancels the watch.
	WatchMutations(selector string, fn func(MutationEvent)) (func(), error)

	// WatchAddress invokes fn whenever the page address changes. The
	// returned function cancels the watch.
	WatchAddress(fn func(AddressChange)) (func(), error)
}
