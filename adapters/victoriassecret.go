package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pozitronik/viscrapper/internal/types"
)

// VictoriasSecretAdapter handles extraction for victoriassecret.com. The
// store is a single-page app with a band x cup size matrix and per-color
// structured data, so it exercises every engine capability at once.
type VictoriasSecretAdapter struct {
	*BaseAdapter
}

// NewVictoriasSecretAdapter creates a new Victoria's Secret adapter.
func NewVictoriasSecretAdapter(config *types.Config, logger types.Logger) *VictoriasSecretAdapter {
	return &VictoriasSecretAdapter{
		BaseAdapter: NewBaseAdapter(config, logger, Profile{
			Name:  "victoriassecret.com",
			Hosts: []string{"victoriassecret.com"},
			Capabilities: types.CapabilitySet{
				WatchStructuredData: true,
				Navigation:          types.NavigationSPA,
				MultiColor:          true,
				MultiSize:           true,
				// Band switches re-render the cup list late on slow pages.
				ExtraSettleDelay: 100 * time.Millisecond,
			},
			Selectors: Selectors{
				ProductPage: "[data-testid='product-detail']",
				Name: []FieldSelector{
					{Query: "h1[data-testid='product-name']"},
					{Query: "h1.product-name"},
				},
				SKU: []FieldSelector{
					{Query: "[data-testid='generic-id']"},
					{Query: "[data-product-id]", Attr: "data-product-id"},
				},
				Price: []FieldSelector{
					{Query: "[data-testid='product-price'] .selected-price"},
					{Query: "[data-testid='product-price']"},
				},
				Color: []FieldSelector{
					{Query: "[data-testid='selected-color-name']"},
				},
				Composition: []FieldSelector{
					{Query: "[data-testid='fabric-content']"},
				},
				Item: []FieldSelector{
					{Query: "nav[aria-label='breadcrumb'] li:last-child"},
				},
				Images: []FieldSelector{
					{Query: "[data-testid='product-gallery'] img", Attr: "src"},
					{Query: ".product-images img", Attr: "src"},
				},
				BaseProductID: []FieldSelector{
					{Query: "[data-product-id]", Attr: "data-product-id"},
				},
				SizePrimary: OptionSelector{
					Container:     "#band-size",
					Items:         "#band-size button.size-option",
					Label:         "label[for='band-size']",
					DisabledAttr:  "disabled",
					DisabledClass: "unavailable",
					SelectedClass: "selected",
				},
				SizeSecondary: OptionSelector{
					Container:     "#cup-size",
					Items:         "#cup-size button.size-option",
					Label:         "label[for='cup-size']",
					DisabledAttr:  "disabled",
					DisabledClass: "unavailable",
					SelectedClass: "selected",
				},
				Colors: OptionSelector{
					Container:     "[data-testid='color-swatches']",
					Items:         "[data-testid='color-swatches'] .swatch",
					LabelAttr:     "aria-label",
					CodeAttr:      "data-color-code",
					DisabledClass: "unavailable",
					SelectedClass: "selected",
				},
			},
			KeepParams: []string{"productId", "choice"},
		}),
	}
}

// ExtractComposition also scans the details list: the fabric line moved out
// of its labeled container on redesigned pages.
func (v *VictoriasSecretAdapter) ExtractComposition(ctx context.Context, pg types.Page) (string, error) {
	if composition, err := v.BaseAdapter.ExtractComposition(ctx, pg); err == nil {
		return composition, nil
	}
	for _, el := range pg.Query("[data-testid='product-details'] li") {
		text := el.Text()
		if strings.Contains(text, "%") {
			return text, nil
		}
	}
	return "", fmt.Errorf("composition not found on page")
}
