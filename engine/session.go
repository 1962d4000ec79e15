package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pozitronik/viscrapper/internal/types"
)

// Session is one page bound to one adapter. Sessions run a single
// extraction at a time: a request arriving while one is in flight is
// rejected, not queued, since both would interact with the same live page.
type Session struct {
	page    types.Page
	adapter types.SiteAdapter
	config  *types.Config
	logger  types.Logger
	tracker *Tracker

	inFlight atomic.Bool
}

// ExtractData runs the extraction pipeline: field extraction, then the
// variant matrix builder or the color enumerator depending on the
// adapter's capabilities, then validation.
func (s *Session) ExtractData(ctx context.Context) (*types.ExtractionResult, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, types.ErrExtractionInFlight
	}
	defer s.inFlight.Store(false)

	if s.Stale() {
		s.logger.Info("Extraction refused: page is stale")
		return &types.ExtractionResult{NeedsRefresh: true}, nil
	}
	if !s.isProductPage(ctx) {
		return nil, types.ErrNotProductPage
	}

	start := time.Now()
	s.logger.Infof("Starting extraction for %s at %s", s.adapter.Name(), s.page.Address())

	base := s.extractBase(ctx)

	var (
		variants []types.ProductVariant
		warnings []string
		valid    bool
	)
	if s.adapter.Capabilities().MultiColor {
		variants, warnings = s.enumerateColorVariants(ctx, base)
		valid = len(variants) > 0
	} else {
		variant, verdict := s.singleVariant(ctx, base)
		variants = []types.ProductVariant{variant}
		warnings = verdict.Warnings
		valid = verdict.IsValid
	}

	// A record extracted from a page that changed underneath it is worse
	// than no record. Staleness wins over everything assembled above.
	if s.Stale() {
		s.logger.Warn("Page went stale during extraction, discarding results")
		return &types.ExtractionResult{NeedsRefresh: true}, nil
	}

	s.logger.Infof("Extraction completed in %v: %d variant(s), valid=%t",
		time.Since(start), len(variants), valid)
	return &types.ExtractionResult{
		Data:     variants,
		IsValid:  valid,
		Warnings: warnings,
	}, nil
}

// CheckPageChanges reports whether the page left the state the session was
// created against. It never touches the page.
func (s *Session) CheckPageChanges() bool {
	return s.Stale()
}

// Stale reports whether the tracker has marked the session's page stale.
// Sessions without a tracker never go stale.
func (s *Session) Stale() bool {
	return s.tracker != nil && s.tracker.Stale()
}

// StaleEvents returns the tracker's notification channel, or nil when the
// adapter does not ask for change watching.
func (s *Session) StaleEvents() <-chan types.StaleEvent {
	if s.tracker == nil {
		return nil
	}
	return s.tracker.Events()
}

// Close cancels the session's watchers.
func (s *Session) Close() {
	if s.tracker != nil {
		s.tracker.Close()
	}
}

// extractBase pulls the color-independent fields. Every extractor call is
// guarded: an absent field or a broken adapter degrades to an empty value
// and validation decides what that means.
func (s *Session) extractBase(ctx context.Context) types.ProductVariant {
	variant := types.ProductVariant{
		Availability: types.AvailabilityUnknown,
		ProductURL:   s.adapter.SanitizeURL(s.page.Address()),
	}

	variant.Name = s.textField(ctx, "name", s.adapter.ExtractName)
	variant.SKU = s.textField(ctx, "sku", s.adapter.ExtractSKU)
	variant.Currency = s.textField(ctx, "currency", s.adapter.ExtractCurrency)
	variant.Color = s.textField(ctx, "color", s.adapter.ExtractColor)
	variant.Composition = s.textField(ctx, "composition", s.adapter.ExtractComposition)
	variant.Item = s.textField(ctx, "item", s.adapter.ExtractItem)

	if price, err := guard("price", func() (*float64, error) {
		return s.adapter.ExtractPrice(ctx, s.page)
	}); err == nil {
		variant.Price = price
	} else {
		s.logger.Debugf("Field price absent: %v", err)
	}

	if availability, err := guard("availability", func() (types.Availability, error) {
		return s.adapter.ExtractAvailability(ctx, s.page)
	}); err == nil && availability != "" {
		variant.Availability = availability
	}

	return variant
}

// singleVariant finishes one variant for the page's current state: size
// data per the adapter's capabilities, then images, then validation.
func (s *Session) singleVariant(ctx context.Context, base types.ProductVariant) (types.ProductVariant, types.ValidationResult) {
	variant := base
	if s.adapter.Capabilities().MultiSize {
		matrix, err := s.buildSizeMatrix(ctx)
		if err != nil {
			s.logger.Warnf("Size matrix build failed: %v", err)
		}
		variant.SizeCombinations = matrix
	} else {
		s.fillSizes(ctx, &variant)
	}
	s.fillImages(ctx, &variant)
	return variant, validateVariant(variant, s.adapter.RequiredFields())
}

func (s *Session) fillSizes(ctx context.Context, v *types.ProductVariant) {
	sizes, err := guard("sizes", func() ([]string, error) {
		return s.adapter.ExtractSizes(ctx, s.page)
	})
	if err != nil {
		s.logger.Debugf("Field sizes absent: %v", err)
		return
	}
	v.AvailableSizes = sizes
}

func (s *Session) fillImages(ctx context.Context, v *types.ProductVariant) {
	urls, err := guard("images", func() ([]string, error) {
		return s.adapter.ExtractImageURLs(ctx, s.page)
	})
	if err != nil {
		s.logger.Debugf("Field images absent: %v", err)
		return
	}
	v.AllImageURLs = urls
	if len(urls) > 0 {
		v.MainImageURL = urls[0]
	}
}

func (s *Session) textField(ctx context.Context, name string, fn func(context.Context, types.Page) (string, error)) string {
	value, err := guard(name, func() (string, error) {
		return fn(ctx, s.page)
	})
	if err != nil {
		s.logger.Debugf("Field %s absent: %v", name, err)
		return ""
	}
	return value
}

func (s *Session) isProductPage(ctx context.Context) bool {
	ok, err := guard("product page check", func() (bool, error) {
		return s.adapter.IsProductPage(ctx, s.page), nil
	})
	return err == nil && ok
}

// settle waits out the configured post-activation window plus whatever the
// adapter declares on top. A fixed delay is the fragile part of every page
// walk, but no reliable cross-store "finished reacting" signal exists.
func (s *Session) settle(ctx context.Context) error {
	delay := s.config.SettleDelay + s.adapter.Capabilities().ExtraSettleDelay
	return s.page.Suspend(ctx, delay)
}

// activate clicks an option and settles.
func (s *Session) activate(ctx context.Context, opt types.Option) error {
	if opt.Element == nil {
		return fmt.Errorf("option %s has no element handle", opt.Value)
	}
	if err := opt.Element.Activate(ctx); err != nil {
		return err
	}
	return s.settle(ctx)
}

// awaitOptions polls a reader until it returns options or the discovery
// budget runs out. An exhausted budget means "no data observed" and
// returns the empty group, not an error.
func (s *Session) awaitOptions(ctx context.Context, read types.OptionReader) (types.OptionGroup, error) {
	deadline := time.Now().Add(s.config.DiscoveryTimeout)
	for {
		group, err := read(ctx)
		if err != nil {
			return types.OptionGroup{}, err
		}
		if len(group.Options) > 0 || time.Now().After(deadline) {
			return group, nil
		}
		if err := s.page.Suspend(ctx, s.config.DiscoveryInterval); err != nil {
			return types.OptionGroup{}, err
		}
	}
}

// guard runs an adapter call, converting a panic into an error so a broken
// adapter degrades to a missing field instead of taking the engine down.
func guard[T any](name string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter panic in %s: %v", name, r)
		}
	}()
	return fn()
}
