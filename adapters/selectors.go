package adapters

import "github.com/pozitronik/viscrapper/internal/types"

// DefaultStructuredDataSelector locates the JSON-LD fragment most stores
// embed on product pages.
const DefaultStructuredDataSelector = "script[type='application/ld+json']"

// FieldSelector locates one scalar field. Query is a CSS selector; Attr
// names the attribute to read, empty meaning text content.
type FieldSelector struct {
	Query string
	Attr  string
}

// OptionSelector describes how to read one selectable option control, such
// as a size list or a color swatch row.
type OptionSelector struct {
	// Container is the control's wrapping element, read for its id and
	// aria-label when resolving the axis label.
	Container string
	// Items matches the option elements themselves.
	Items string
	// Label matches the declared axis label element, if the store has one.
	Label string
	// ValueAttr is the attribute carrying the option value; empty means
	// text content.
	ValueAttr string
	// CodeAttr is the attribute carrying the vendor short code, if any.
	CodeAttr string
	// LabelAttr is the attribute carrying the display name; empty means
	// text content.
	LabelAttr string
	// DisabledAttr marks an option as disabled when present.
	DisabledAttr string
	// DisabledClass marks an option as disabled when in its class list.
	DisabledClass string
	// SelectedAttr marks the selected option when present.
	SelectedAttr string
	// SelectedClass marks the selected option when in its class list.
	SelectedClass string
}

// Configured reports whether the control has an item selector at all.
func (s OptionSelector) Configured() bool {
	return s.Items != ""
}

// Selectors is a store's selector table. Together with the capability set
// it is most of what distinguishes one store adapter from another.
type Selectors struct {
	// ProductPage marks a product detail page when it matches.
	ProductPage string

	Name          []FieldSelector
	SKU           []FieldSelector
	Price         []FieldSelector
	Currency      []FieldSelector
	Availability  []FieldSelector
	Color         []FieldSelector
	Composition   []FieldSelector
	Item          []FieldSelector
	Images        []FieldSelector
	BaseProductID []FieldSelector

	// Sizes is the flat size list control.
	Sizes OptionSelector
	// SizePrimary and SizeSecondary are the two-axis size controls for
	// stores with size matrices.
	SizePrimary   OptionSelector
	SizeSecondary OptionSelector
	// Colors is the color swatch control.
	Colors OptionSelector

	// StructuredData overrides DefaultStructuredDataSelector when set.
	StructuredData string
}

// Profile is the static description of a store: identity, capabilities and
// the selector table. Site adapters are a profile plus quirks.
type Profile struct {
	Name         string
	Hosts        []string
	Capabilities types.CapabilitySet
	Selectors    Selectors
	// KeepParams lists query parameters that carry product identity and
	// survive URL sanitization.
	KeepParams []string
	// Required lists fields whose absence invalidates a record. SKU is
	// always required.
	Required []types.Field
}
