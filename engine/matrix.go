package engine

import (
	"context"
	"fmt"

	"github.com/pozitronik/viscrapper/internal/types"
)

// buildSizeMatrix walks the primary size axis and records the enabled
// secondary sizes under each enabled primary. Activation mutates shared
// page state, so the walk is strictly sequential and in document order.
// The tracker is suspended for the duration: the walk's own mutations must
// not look like page changes.
func (s *Session) buildSizeMatrix(ctx context.Context) (*types.VariantMatrix, error) {
	primaryReader, secondaryReader := s.adapter.SizeAxes(s.page)
	if primaryReader == nil || secondaryReader == nil {
		return nil, fmt.Errorf("adapter declares multi-size but configures no size axes")
	}

	if s.tracker != nil {
		s.tracker.Suspend()
		defer s.tracker.Rearm()
	}

	primary, err := s.awaitOptions(ctx, primaryReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read primary size axis: %w", err)
	}
	if len(primary.Options) == 0 {
		s.logger.Warn("Primary size axis stayed empty, skipping matrix")
		return nil, nil
	}

	secondaryProbe, err := secondaryReader(ctx)
	if err != nil {
		secondaryProbe = types.OptionGroup{}
	}

	matrix := &types.VariantMatrix{
		PrimaryLabel:   primary.DisplayLabel(),
		SecondaryLabel: secondaryProbe.DisplayLabel(),
	}

	originalPrimary, hadSelection := primary.SelectedOption()

	for _, opt := range primary.Options {
		if !opt.Enabled {
			s.logger.Debugf("Skipping disabled %s %s", matrix.PrimaryLabel, opt.Value)
			continue
		}
		if err := s.activate(ctx, opt); err != nil {
			s.logger.Warnf("Failed to activate %s %s: %v", matrix.PrimaryLabel, opt.Value, err)
			continue
		}

		secondary, err := secondaryReader(ctx)
		if err != nil {
			s.logger.Warnf("Failed to read secondary sizes under %s: %v", opt.Value, err)
			continue
		}
		var values []string
		for _, sec := range secondary.Options {
			if sec.Enabled {
				values = append(values, sec.Value)
			}
		}
		if len(values) == 0 {
			// A primary with nothing under it is omitted, not recorded
			// with an empty list.
			s.logger.Debugf("No secondary sizes under %s %s", matrix.PrimaryLabel, opt.Value)
			continue
		}
		matrix.Combinations = append(matrix.Combinations, types.MatrixEntry{
			Primary:   opt.Value,
			Secondary: values,
		})
	}

	// Put the page back the way it was found. Best effort: a restore
	// failure is logged, never fatal.
	if hadSelection {
		s.restorePrimary(ctx, primaryReader, originalPrimary)
	}

	if len(matrix.Combinations) == 0 {
		return nil, nil
	}
	return matrix, nil
}

// restorePrimary re-reads the primary axis, since the walk may have
// re-rendered its elements, and activates the originally selected option.
func (s *Session) restorePrimary(ctx context.Context, reader types.OptionReader, original types.Option) {
	group, err := reader(ctx)
	if err != nil {
		s.logger.Warnf("Could not re-read primary axis to restore %s: %v", original.Value, err)
		return
	}
	for _, opt := range group.Options {
		if opt.Value != original.Value {
			continue
		}
		if opt.Selected {
			return
		}
		if err := s.activate(ctx, opt); err != nil {
			s.logger.Warnf("Failed to restore original selection %s: %v", original.Value, err)
		}
		return
	}
	s.logger.Warnf("Original selection %s disappeared from the primary axis", original.Value)
}
