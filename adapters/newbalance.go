package adapters

import (
	"context"
	"strings"

	"github.com/pozitronik/viscrapper/internal/types"
)

// NewBalanceAdapter handles extraction for newbalance.com. Products carry a
// style code such as MW41326-HGF and per-color short codes such as DW5; the
// engine synthesizes one SKU per color from them.
type NewBalanceAdapter struct {
	*BaseAdapter
}

// NewNewBalanceAdapter creates a new New Balance adapter.
func NewNewBalanceAdapter(config *types.Config, logger types.Logger) *NewBalanceAdapter {
	return &NewBalanceAdapter{
		BaseAdapter: NewBaseAdapter(config, logger, Profile{
			Name:  "newbalance.com",
			Hosts: []string{"newbalance.com"},
			Capabilities: types.CapabilitySet{
				Navigation: types.NavigationSPA,
				MultiColor: true,
				// The page's own scripts re-read the gallery on color
				// switches, so the engine does not add its own settle pass.
				OwnsColorObserver: true,
			},
			Selectors: Selectors{
				ProductPage: ".pdp-container",
				Name: []FieldSelector{
					{Query: "h1.pdp-header__name"},
					{Query: "h1"},
				},
				SKU: []FieldSelector{
					{Query: ".pdp-style-number"},
					{Query: "[data-style-number]", Attr: "data-style-number"},
				},
				Price: []FieldSelector{
					{Query: ".pdp-price .sales-price"},
					{Query: ".pdp-price"},
				},
				Color: []FieldSelector{
					{Query: ".color-picker .selected-color-label"},
				},
				Item: []FieldSelector{
					{Query: "ol.breadcrumbs li:last-child"},
				},
				Images: []FieldSelector{
					{Query: ".pdp-gallery img", Attr: "src"},
				},
				BaseProductID: []FieldSelector{
					{Query: "[data-style-number]", Attr: "data-style-number"},
					{Query: ".pdp-style-number"},
				},
				Sizes: OptionSelector{
					Container:     ".size-picker",
					Items:         ".size-picker button.size-option",
					Label:         ".size-picker .picker-label",
					DisabledClass: "is-disabled",
					SelectedClass: "is-selected",
				},
				Colors: OptionSelector{
					Container:     ".color-picker",
					Items:         ".color-picker .color-swatch",
					LabelAttr:     "data-color-name",
					CodeAttr:      "data-color-code",
					DisabledClass: "is-unavailable",
					SelectedClass: "is-selected",
				},
			},
			KeepParams: []string{"style"},
		}),
	}
}

// BaseProductID strips the "Style:" label the page prefixes to the code.
func (n *NewBalanceAdapter) BaseProductID(ctx context.Context, pg types.Page) (string, error) {
	id, err := n.BaseAdapter.BaseProductID(ctx, pg)
	if err != nil {
		return "", err
	}
	id = strings.TrimPrefix(id, "Style:")
	return strings.TrimSpace(id), nil
}
