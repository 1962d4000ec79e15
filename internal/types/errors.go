package types

import "errors"

// Sentinel errors shared between the engine and its callers.
var (
	// ErrExtractionInFlight is returned when an extraction is requested
	// while another one is still running on the same session.
	ErrExtractionInFlight = errors.New("extraction already in flight")

	// ErrSessionStale is returned for page interactions on a session whose
	// page has been replaced or navigated away.
	ErrSessionStale = errors.New("session page is stale")

	// ErrNotProductPage is returned when the adapter does not recognize the
	// page as a product detail page.
	ErrNotProductPage = errors.New("page is not a product page")

	// ErrNoAdapter is returned when no registered adapter handles a URL.
	ErrNoAdapter = errors.New("no adapter registered for url")
)
