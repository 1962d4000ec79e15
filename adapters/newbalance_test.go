package adapters

import (
	"context"
	"fmt"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pozitronik/viscrapper/engine"
	"github.com/pozitronik/viscrapper/page"
)

const nbFixture = `
<html><body>
<div class="pdp-container">
	<h1 class="pdp-header__name">MW41326 Walking Shoe</h1>
	<span class="pdp-style-number">Style: MW41326-HGF</span>
	<div class="pdp-price"><span class="sales-price">$139.99</span></div>
	<div class="color-picker">
		<span class="selected-color-label">Team Red</span>
		<button class="color-swatch is-selected" data-color-name="Team Red" data-color-code="DW5"></button>
		<button class="color-swatch" data-color-name="Royal Blue" data-color-code="DW6"></button>
		<button class="color-swatch is-unavailable" data-color-name="Phantom Gray" data-color-code="DG7"></button>
	</div>
	<ol class="breadcrumbs"><li>Home</li><li>Men's Walking</li></ol>
	<div class="pdp-gallery">
		<img src="/images/DW5-1.jpg">
		<img src="/images/DW5-2.jpg">
	</div>
	<div class="size-picker">
		<span class="picker-label">US size</span>
		<button class="size-option">8</button>
		<button class="size-option is-selected">9</button>
		<button class="size-option is-disabled">10</button>
	</div>
</div>
</body></html>`

const nbAddress = "https://www.newbalance.com/pd/mw41326?style=MW41326-HGF&utm_source=mail"

// wireNBPage loads the fixture and scripts the color switch: the clicked
// swatch takes the selection, and the page swaps its gallery and re-renders
// the size run for that colorway.
func wireNBPage(t *testing.T) *page.StaticPage {
	t.Helper()
	pg, err := page.NewStaticPage(nbFixture, nbAddress)
	require.NoError(t, err)

	pg.OnActivate(".color-picker .color-swatch", func(doc *goquery.Document, el *goquery.Selection) {
		doc.Find(".color-picker .color-swatch").RemoveClass("is-selected")
		el.AddClass("is-selected")

		name, _ := el.Attr("data-color-name")
		doc.Find(".color-picker .selected-color-label").SetText(name)

		code, _ := el.Attr("data-color-code")
		doc.Find(".pdp-gallery").SetHtml(fmt.Sprintf(
			`<img src="/images/%s-1.jpg"><img src="/images/%s-2.jpg">`, code, code))

		sizes := `<span class="picker-label">US size</span>`
		switch code {
		case "DW5":
			sizes += `<button class="size-option">8</button>` +
				`<button class="size-option is-selected">9</button>` +
				`<button class="size-option is-disabled">10</button>`
		case "DW6":
			sizes += `<button class="size-option is-disabled">8</button>` +
				`<button class="size-option">9</button>` +
				`<button class="size-option">10</button>`
		}
		doc.Find(".size-picker").SetHtml(sizes)
	})

	return pg
}

func TestNewBalance_EndToEnd(t *testing.T) {
	pg := wireNBPage(t)
	config := testConfig()
	adapter := NewNewBalanceAdapter(config, logrus.New())

	result, err := engine.New(config, logrus.New()).ExtractFromPage(context.Background(), pg, adapter)
	require.NoError(t, err)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Warnings)

	// The unavailable gray colorway is skipped, not recorded.
	require.Len(t, result.Data, 2)
	red, blue := result.Data[0], result.Data[1]

	assert.Equal(t, "MW41326-HGF-DW5", red.SKU)
	assert.Equal(t, "Team Red", red.Color)
	assert.Equal(t, "MW41326 Walking Shoe", red.Name)
	require.NotNil(t, red.Price)
	assert.InDelta(t, 139.99, *red.Price, 0.001)
	assert.Equal(t, "USD", red.Currency)
	assert.Equal(t, "Men's Walking", red.Item)
	assert.Equal(t, []string{"8", "9"}, red.AvailableSizes)
	assert.Equal(t, "https://www.newbalance.com/images/DW5-1.jpg", red.MainImageURL)
	assert.Equal(t, "https://www.newbalance.com/pd/mw41326?style=MW41326-HGF", red.ProductURL)

	assert.Equal(t, "MW41326-HGF-DW6", blue.SKU)
	assert.Equal(t, "Royal Blue", blue.Color)
	assert.Equal(t, []string{"9", "10"}, blue.AvailableSizes)
	assert.Equal(t, "https://www.newbalance.com/images/DW6-1.jpg", blue.MainImageURL)

	assert.Nil(t, red.SizeCombinations)
	assert.Nil(t, blue.SizeCombinations)
}

func TestNewBalanceAdapter_BaseProductID(t *testing.T) {
	adapter := NewNewBalanceAdapter(testConfig(), logrus.New())
	ctx := context.Background()

	prefixed := staticPage(t, `<span class="pdp-style-number">Style: MW41326-HGF</span>`, nbAddress)
	id, err := adapter.BaseProductID(ctx, prefixed)
	require.NoError(t, err)
	assert.Equal(t, "MW41326-HGF", id)

	plain := staticPage(t, `<span class="pdp-style-number" data-style-number="MW41326-HGF"></span>`, nbAddress)
	id, err = adapter.BaseProductID(ctx, plain)
	require.NoError(t, err)
	assert.Equal(t, "MW41326-HGF", id)

	empty := staticPage(t, `<div class="pdp-container"></div>`, nbAddress)
	_, err = adapter.BaseProductID(ctx, empty)
	assert.Error(t, err)
}

func TestNewBalanceAdapter_Capabilities(t *testing.T) {
	caps := NewNewBalanceAdapter(testConfig(), logrus.New()).Capabilities()

	assert.True(t, caps.MultiColor)
	assert.True(t, caps.OwnsColorObserver)
	assert.False(t, caps.MultiSize)
	assert.False(t, caps.WatchStructuredData)
}
