package adapters

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pozitronik/viscrapper/engine"
	"github.com/pozitronik/viscrapper/internal/types"
)

// The fixture carries no gallery, no price element and no composition
// block, so everything except the title and the size list has to come out
// of the JSON-LD graph.
const lacosteFixture = `
<html><head>
<script type="application/ld+json">
{
	"@context": "https://schema.org",
	"@graph": [
		{"@type": "BreadcrumbList"},
		{
			"@type": "Product",
			"name": "Classic Fit L.12.12 Polo",
			"sku": "L1212-001",
			"color": "White",
			"material": "100% Cotton Petit Piqué",
			"image": ["https://cdn.lacoste.com/front.jpg", "https://cdn.lacoste.com/back.jpg"],
			"offers": [{"price": "98.00", "priceCurrency": "USD", "availability": "https://schema.org/InStock"}]
		}
	]
}
</script>
</head><body>
<div class="product-detail">
	<h1 class="product-detail__title">Classic Fit L.12.12 Polo</h1>
	<ol class="breadcrumb"><li>Men</li><li>Polos</li></ol>
	<label for="size-select">Size</label>
	<select id="size-select">
		<option value="">Choose a size</option>
		<option value="S">S</option>
		<option value="M" selected>M</option>
		<option value="L" disabled>L</option>
	</select>
</div>
</body></html>`

const lacosteAddress = "https://www.lacoste.com/us/lacoste/men/clothing/polos/L1212-51.html?szacc=1&utm_campaign=summer"

func TestLacoste_SingleVariant(t *testing.T) {
	pg := staticPage(t, lacosteFixture, lacosteAddress)
	config := testConfig()
	adapter := NewLacosteAdapter(config, logrus.New())

	result, err := engine.New(config, logrus.New()).ExtractFromPage(context.Background(), pg, adapter)
	require.NoError(t, err)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Warnings)
	require.Len(t, result.Data, 1)
	variant := result.Data[0]

	assert.Equal(t, "L1212-001", variant.SKU)
	assert.Equal(t, "Classic Fit L.12.12 Polo", variant.Name)
	require.NotNil(t, variant.Price)
	assert.InDelta(t, 98.00, *variant.Price, 0.001)
	assert.Equal(t, "USD", variant.Currency)
	assert.Equal(t, types.AvailabilityInStock, variant.Availability)
	assert.Equal(t, "White", variant.Color)
	assert.Equal(t, "100% Cotton Petit Piqué", variant.Composition)
	assert.Equal(t, "Polos", variant.Item)
	assert.Equal(t, []string{"S", "M"}, variant.AvailableSizes)
	assert.Nil(t, variant.SizeCombinations)
	assert.Equal(t, "https://cdn.lacoste.com/front.jpg", variant.MainImageURL)
	assert.Equal(t, []string{"https://cdn.lacoste.com/front.jpg", "https://cdn.lacoste.com/back.jpg"}, variant.AllImageURLs)
	assert.Equal(t, "https://www.lacoste.com/us/lacoste/men/clothing/polos/L1212-51.html", variant.ProductURL)
}

func TestLacoste_NotProductPage(t *testing.T) {
	pg := staticPage(t, `<div class="category-grid"></div>`, "https://www.lacoste.com/us/polos/")
	config := testConfig()
	adapter := NewLacosteAdapter(config, logrus.New())

	_, err := engine.New(config, logrus.New()).ExtractFromPage(context.Background(), pg, adapter)
	assert.ErrorIs(t, err, types.ErrNotProductPage)
}

func TestLacosteAdapter_Capabilities(t *testing.T) {
	caps := NewLacosteAdapter(testConfig(), logrus.New()).Capabilities()

	assert.Equal(t, types.NavigationReload, caps.Navigation)
	assert.False(t, caps.MultiColor)
	assert.False(t, caps.MultiSize)
	assert.False(t, caps.WatchStructuredData)
}
