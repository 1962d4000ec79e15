package adapters

import (
	"github.com/pozitronik/viscrapper/internal/types"
)

// LacosteAdapter handles extraction for lacoste.com. The store renders
// complete JSON-LD product data and reloads per color, so the selector
// table stays small and the structured-data fallbacks do most of the work.
type LacosteAdapter struct {
	*BaseAdapter
}

// NewLacosteAdapter creates a new Lacoste adapter.
func NewLacosteAdapter(config *types.Config, logger types.Logger) *LacosteAdapter {
	return &LacosteAdapter{
		BaseAdapter: NewBaseAdapter(config, logger, Profile{
			Name:  "lacoste.com",
			Hosts: []string{"lacoste.com"},
			Capabilities: types.CapabilitySet{
				Navigation: types.NavigationReload,
			},
			Selectors: Selectors{
				ProductPage: ".product-detail",
				Name: []FieldSelector{
					{Query: "h1.product-detail__title"},
				},
				Price: []FieldSelector{
					{Query: ".product-detail__price"},
				},
				Composition: []FieldSelector{
					{Query: ".product-detail__composition"},
				},
				Item: []FieldSelector{
					{Query: ".breadcrumb li:last-child"},
				},
				Images: []FieldSelector{
					{Query: ".product-detail__gallery img", Attr: "src"},
				},
				Sizes: OptionSelector{
					Container:    "#size-select",
					Items:        "#size-select option",
					Label:        "label[for='size-select']",
					ValueAttr:    "value",
					DisabledAttr: "disabled",
					SelectedAttr: "selected",
				},
			},
		}),
	}
}
