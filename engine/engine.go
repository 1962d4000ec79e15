package engine

import (
	"context"
	"fmt"

	"github.com/pozitronik/viscrapper/internal/types"
)

// Engine creates extraction sessions. It holds no page state itself; one
// Session exists per open page and adapter pair.
type Engine struct {
	config *types.Config
	logger types.Logger
}

// New creates an engine.
func New(config *types.Config, logger types.Logger) *Engine {
	if config == nil {
		config = types.DefaultConfig()
	}
	return &Engine{
		config: config,
		logger: logger,
	}
}

// NewSession binds an open page to its adapter. When the adapter asks for
// change watching, the tracker arms here, before any extraction, so no
// page change between session start and first extraction goes unseen.
func (e *Engine) NewSession(pg types.Page, adapter types.SiteAdapter) (*Session, error) {
	s := &Session{
		page:    pg,
		adapter: adapter,
		config:  e.config,
		logger:  e.logger,
	}
	if adapter.Capabilities().WatchStructuredData {
		tracker, err := newTracker(pg, adapter, e.config, e.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to arm change tracker: %w", err)
		}
		s.tracker = tracker
	}
	return s, nil
}

// ExtractFromPage runs a one-shot session over an open page.
func (e *Engine) ExtractFromPage(ctx context.Context, pg types.Page, adapter types.SiteAdapter) (*types.ExtractionResult, error) {
	session, err := e.NewSession(pg, adapter)
	if err != nil {
		return nil, err
	}
	defer session.Close()
	return session.ExtractData(ctx)
}
