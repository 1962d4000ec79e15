package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pozitronik/viscrapper/internal/types"
)

type colorOption struct {
	value, code, label string
	enabled            bool
}

// colorFixture models a color swatch row: activating a swatch switches the
// page's selected colorway, which changes what the size and image
// extractors see.
type colorFixture struct {
	mu           sync.Mutex
	options      []colorOption
	selected     string
	activated    []string
	sizesByColor map[string][]string
}

func (c *colorFixture) reader() func(context.Context) (types.OptionGroup, error) {
	return func(ctx context.Context) (types.OptionGroup, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		group := types.OptionGroup{Label: "Color"}
		for _, opt := range c.options {
			opt := opt
			group.Options = append(group.Options, types.Option{
				Value:    opt.value,
				Code:     opt.code,
				Label:    opt.label,
				Enabled:  opt.enabled,
				Selected: opt.value == c.selected,
				Element: &fakeElement{onActivate: func(context.Context) error {
					c.mu.Lock()
					c.selected = opt.value
					c.activated = append(c.activated, opt.value)
					c.mu.Unlock()
					return nil
				}},
			})
		}
		return group, nil
	}
}

func (c *colorFixture) sizes(context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sizes := c.sizesByColor[c.selected]
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no sizes for %s", c.selected)
	}
	return sizes, nil
}

func TestExtractData_EnumeratesColorVariants(t *testing.T) {
	fixture := &colorFixture{
		options: []colorOption{
			{value: "RED", code: "DW5", label: "Team Red", enabled: true},
			{value: "BLUE", code: "DW6", label: "Royal Blue", enabled: true},
		},
		sizesByColor: map[string][]string{
			"RED":  {"8", "9"},
			"BLUE": {"9", "10"},
		},
	}
	adapter := &fakeAdapter{
		caps:     types.CapabilitySet{MultiColor: true},
		fields:   map[string]string{"name": "Fresh Foam X", "sku": "MW41326-HGF", "currency": "USD"},
		price:    floatPtr(139.99),
		baseID:   "MW41326-HGF",
		colorsFn: fixture.reader(),
		sizesFn:  fixture.sizes,
		imagesFn: staticList("https://cdn.store.example/shoe.jpg"),
	}
	session := newTestSession(t, adapter, blankPage(t), nil)

	result, err := session.ExtractData(context.Background())

	require.NoError(t, err)
	assert.True(t, result.IsValid)
	require.Len(t, result.Data, 2)

	red := result.Data[0]
	assert.Equal(t, "MW41326-HGF-DW5", red.SKU)
	assert.Equal(t, "Team Red", red.Color)
	assert.Equal(t, []string{"8", "9"}, red.AvailableSizes)
	assert.Equal(t, "https://store.example/p/1", red.ProductURL)

	blue := result.Data[1]
	assert.Equal(t, "MW41326-HGF-DW6", blue.SKU)
	assert.Equal(t, "Royal Blue", blue.Color)
	assert.Equal(t, []string{"9", "10"}, blue.AvailableSizes)

	assert.Equal(t, []string{"RED", "BLUE"}, fixture.activated)
}

func TestExtractData_ColorTokenFallbacks(t *testing.T) {
	fixture := &colorFixture{
		options: []colorOption{
			{value: "c1", code: "DW5", label: "Team Red", enabled: true},
			{value: "c2", label: "Deep Blue", enabled: true},
			{value: "c3", enabled: true},
		},
		sizesByColor: map[string][]string{
			"c1": {"8"}, "c2": {"8"}, "c3": {"8"},
		},
	}
	adapter := &fakeAdapter{
		caps:     types.CapabilitySet{MultiColor: true},
		fields:   map[string]string{"sku": "MW41326-HGF"},
		baseID:   "MW41326-HGF",
		colorsFn: fixture.reader(),
		sizesFn:  fixture.sizes,
		imagesFn: staticList("https://cdn.store.example/shoe.jpg"),
	}
	session := newTestSession(t, adapter, blankPage(t), nil)

	result, err := session.ExtractData(context.Background())

	require.NoError(t, err)
	require.Len(t, result.Data, 3)
	assert.Equal(t, "MW41326-HGF-DW5", result.Data[0].SKU)
	assert.Equal(t, "MW41326-HGF-DEEP-BLUE", result.Data[1].SKU)
	// Positional placeholder is 1-based and stable across runs.
	assert.Equal(t, "MW41326-HGF-COLOR-3", result.Data[2].SKU)
}

func TestExtractData_SkipsDisabledColors(t *testing.T) {
	fixture := &colorFixture{
		options: []colorOption{
			{value: "RED", code: "DW5", enabled: true},
			{value: "GRAY", code: "DW9", enabled: false},
			{value: "BLUE", code: "DW6", enabled: true},
		},
		sizesByColor: map[string][]string{"RED": {"8"}, "BLUE": {"8"}},
	}
	adapter := &fakeAdapter{
		caps:     types.CapabilitySet{MultiColor: true},
		fields:   map[string]string{"sku": "MW41326-HGF"},
		baseID:   "MW41326-HGF",
		colorsFn: fixture.reader(),
		sizesFn:  fixture.sizes,
		imagesFn: staticList("https://cdn.store.example/shoe.jpg"),
	}
	session := newTestSession(t, adapter, blankPage(t), nil)

	result, err := session.ExtractData(context.Background())

	require.NoError(t, err)
	require.Len(t, result.Data, 2)
	assert.Equal(t, "MW41326-HGF-DW5", result.Data[0].SKU)
	assert.Equal(t, "MW41326-HGF-DW6", result.Data[1].SKU)
	assert.NotContains(t, fixture.activated, "GRAY")
}

func TestExtractData_DropsInvalidColorVariants(t *testing.T) {
	fixture := &colorFixture{
		options: []colorOption{
			{value: "RED", code: "DW5", enabled: true},
			{value: "BLUE", code: "DW6", enabled: true},
		},
		sizesByColor: map[string][]string{"RED": {"8"}, "BLUE": {"8"}},
	}
	adapter := &fakeAdapter{
		caps:     types.CapabilitySet{MultiColor: true},
		fields:   map[string]string{"sku": "MW41326-HGF"},
		baseID:   "MW41326-HGF",
		required: []types.Field{types.FieldImages},
		colorsFn: fixture.reader(),
		sizesFn:  fixture.sizes,
		imagesFn: func(context.Context) ([]string, error) {
			fixture.mu.Lock()
			defer fixture.mu.Unlock()
			// The blue colorway renders no gallery.
			if fixture.selected == "BLUE" {
				return nil, fmt.Errorf("gallery empty")
			}
			return []string{"https://cdn.store.example/red.jpg"}, nil
		},
	}
	session := newTestSession(t, adapter, blankPage(t), nil)

	result, err := session.ExtractData(context.Background())

	require.NoError(t, err)
	assert.True(t, result.IsValid)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "MW41326-HGF-DW5", result.Data[0].SKU)
}

func TestExtractData_ColorWarningsCarrySKU(t *testing.T) {
	fixture := &colorFixture{
		options: []colorOption{
			{value: "RED", code: "DW5", enabled: true},
		},
		sizesByColor: map[string][]string{"RED": {"8"}},
	}
	adapter := &fakeAdapter{
		caps:     types.CapabilitySet{MultiColor: true},
		fields:   map[string]string{"name": "Fresh Foam X", "sku": "MW41326-HGF"},
		baseID:   "MW41326-HGF",
		colorsFn: fixture.reader(),
		sizesFn:  fixture.sizes,
		imagesFn: staticList("https://cdn.store.example/shoe.jpg"),
	}
	session := newTestSession(t, adapter, blankPage(t), nil)

	result, err := session.ExtractData(context.Background())

	require.NoError(t, err)
	assert.Contains(t, result.Warnings, "MW41326-HGF-DW5: missing price")
	assert.Contains(t, result.Warnings, "MW41326-HGF-DW5: missing currency")
}

func TestExtractData_NoColorsDegradesToCurrentState(t *testing.T) {
	adapter := &fakeAdapter{
		caps:   types.CapabilitySet{MultiColor: true},
		fields: map[string]string{"sku": "MW41326-HGF", "color": "Team Red"},
		colorsFn: func(context.Context) (types.OptionGroup, error) {
			return types.OptionGroup{}, nil
		},
		sizesFn:  staticList("8", "9"),
		imagesFn: staticList("https://cdn.store.example/shoe.jpg"),
	}
	session := newTestSession(t, adapter, blankPage(t), nil)

	result, err := session.ExtractData(context.Background())

	require.NoError(t, err)
	assert.True(t, result.IsValid)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "MW41326-HGF", result.Data[0].SKU)
	assert.Equal(t, "Team Red", result.Data[0].Color)
}

func TestExtractData_SelectedColorNotReclicked(t *testing.T) {
	fixture := &colorFixture{
		selected: "RED",
		options: []colorOption{
			{value: "RED", code: "DW5", enabled: true},
			{value: "BLUE", code: "DW6", enabled: true},
		},
		sizesByColor: map[string][]string{"RED": {"8"}, "BLUE": {"9"}},
	}
	adapter := &fakeAdapter{
		caps:     types.CapabilitySet{MultiColor: true},
		fields:   map[string]string{"sku": "MW41326-HGF"},
		baseID:   "MW41326-HGF",
		colorsFn: fixture.reader(),
		sizesFn:  fixture.sizes,
		imagesFn: staticList("https://cdn.store.example/shoe.jpg"),
	}
	session := newTestSession(t, adapter, blankPage(t), nil)

	result, err := session.ExtractData(context.Background())

	require.NoError(t, err)
	require.Len(t, result.Data, 2)
	// The selected swatch is read in place; only the other one is clicked.
	assert.Equal(t, []string{"BLUE"}, fixture.activated)
	assert.Equal(t, []string{"8"}, result.Data[0].AvailableSizes)
	assert.Equal(t, []string{"9"}, result.Data[1].AvailableSizes)
}

func TestExtractData_ColorMatrixPerColor(t *testing.T) {
	colorState := &colorFixture{
		options: []colorOption{
			{value: "RED", code: "DW5", enabled: true},
			{value: "BLUE", code: "DW6", enabled: true},
		},
	}
	sizeState := newMatrixFixture()
	adapter := &fakeAdapter{
		caps:      types.CapabilitySet{MultiColor: true, MultiSize: true},
		fields:    map[string]string{"sku": "VS-112-233"},
		baseID:    "VS-112-233",
		colorsFn:  colorState.reader(),
		primary:   sizeState.primaryReader(),
		secondary: sizeState.secondaryReader(),
		imagesFn:  staticList("https://cdn.store.example/bra.jpg"),
	}
	session := newTestSession(t, adapter, blankPage(t), nil)

	result, err := session.ExtractData(context.Background())

	require.NoError(t, err)
	require.Len(t, result.Data, 2)
	for _, variant := range result.Data {
		require.NotNil(t, variant.SizeCombinations)
		assert.Equal(t, []string{"S", "M"}, variant.SizeCombinations.Primaries())
		assert.Empty(t, variant.AvailableSizes)
	}
	assert.Equal(t, "VS-112-233-DW5", result.Data[0].SKU)
	assert.Equal(t, "VS-112-233-DW6", result.Data[1].SKU)
}
