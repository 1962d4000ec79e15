package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/pozitronik/viscrapper/internal/types"
)

// enumerateColorVariants walks the color options sequentially and builds
// one validated variant per enabled color. Size and image data is
// re-extracted per color against the settled page; invalid variants are
// dropped and logged, never returned. Warnings come back prefixed with the
// variant's SKU so callers can tell them apart.
func (s *Session) enumerateColorVariants(ctx context.Context, base types.ProductVariant) ([]types.ProductVariant, []string) {
	colors, err := s.awaitOptions(ctx, func(ctx context.Context) (types.OptionGroup, error) {
		return guard("color options", func() (types.OptionGroup, error) {
			return s.adapter.ColorOptions(ctx, s.page)
		})
	})
	if err != nil || len(colors.Options) == 0 {
		// No colors observed inside the discovery budget: degrade to a
		// plain single-variant extraction of the current page state.
		s.logger.Warnf("No color options discovered, extracting current state only (err=%v)", err)
		variant, verdict := s.singleVariant(ctx, base)
		if !verdict.IsValid {
			s.logger.Warnf("Dropping invalid variant %q: %v", variant.SKU, verdict.Warnings)
			return nil, nil
		}
		return []types.ProductVariant{variant}, verdict.Warnings
	}

	baseID, err := guard("base product id", func() (string, error) {
		return s.adapter.BaseProductID(ctx, s.page)
	})
	if err != nil {
		s.logger.Debugf("Base product id absent, falling back to extracted sku: %v", err)
		baseID = base.SKU
	}

	// The walk's own color switches mutate structured data and, on
	// single-page stores, the address. Neither is a page change.
	if s.tracker != nil {
		s.tracker.Suspend()
		defer s.tracker.Rearm()
	}

	ownsObserver := s.adapter.Capabilities().OwnsColorObserver

	var (
		variants []types.ProductVariant
		warnings []string
	)
	for i, opt := range colors.Options {
		if !opt.Enabled {
			s.logger.Debugf("Skipping unavailable color %s", opt.Label)
			continue
		}
		if !opt.Selected {
			if err := s.activate(ctx, opt); err != nil {
				s.logger.Warnf("Failed to activate color %s: %v", opt.Label, err)
				continue
			}
			// Without a page-side observer nothing re-reads the rendered
			// state after the switch, so wait out a second settle window.
			if !ownsObserver {
				if err := s.settle(ctx); err != nil {
					s.logger.Warnf("Settle after color %s interrupted: %v", opt.Label, err)
					break
				}
			}
		}

		variant := base
		variant.Color = colorName(opt)
		variant.SKU = synthesizeSKU(baseID, opt, i)
		variant.ProductURL = s.adapter.SanitizeURL(s.page.Address())

		if s.adapter.Capabilities().MultiSize {
			matrix, err := s.buildSizeMatrix(ctx)
			if err != nil {
				s.logger.Warnf("Size matrix build failed for color %s: %v", opt.Label, err)
			}
			variant.SizeCombinations = matrix
		} else {
			s.fillSizes(ctx, &variant)
		}
		s.fillImages(ctx, &variant)

		verdict := validateVariant(variant, s.adapter.RequiredFields())
		if !verdict.IsValid {
			s.logger.Warnf("Dropping invalid variant for color %s: %v", opt.Label, verdict.Warnings)
			continue
		}
		for _, w := range verdict.Warnings {
			warnings = append(warnings, variant.SKU+": "+w)
		}
		variants = append(variants, variant)
	}
	return variants, warnings
}

// colorName picks the human name recorded on the variant.
func colorName(opt types.Option) string {
	if opt.Label != "" {
		return opt.Label
	}
	return opt.Value
}

// synthesizeSKU derives the per-color SKU from the base product id and the
// color's token. The same base id and code always produce the same SKU.
func synthesizeSKU(baseID string, opt types.Option, position int) string {
	token := colorToken(opt, position)
	if baseID == "" {
		return token
	}
	return baseID + "-" + token
}

// colorToken picks the token appended to the base id: the vendor's short
// code, then the sanitized display name, then a positional placeholder.
// The placeholder is deterministic on purpose: downstream duplicate
// detection needs repeat extractions to produce the same SKU.
func colorToken(opt types.Option, position int) string {
	if opt.Code != "" {
		return opt.Code
	}
	if name := sanitizeToken(opt.Label); name != "" {
		return name
	}
	return fmt.Sprintf("COLOR-%d", position+1)
}

// sanitizeToken reduces a display name to SKU-safe characters.
func sanitizeToken(s string) string {
	var b strings.Builder
	dashed := false
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dashed = false
		case r == ' ', r == '-', r == '_':
			if !dashed && b.Len() > 0 {
				b.WriteRune('-')
				dashed = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
