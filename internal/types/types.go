package types

import (
	"context"
	"time"
)

// Availability is the normalized stock state of a product variant.
type Availability string

// Availability values follow the schema.org ItemAvailability vocabulary.
const (
	AvailabilityInStock    Availability = "InStock"
	AvailabilityOutOfStock Availability = "OutOfStock"
	AvailabilitySoldOut    Availability = "SoldOut"
	AvailabilityPreOrder   Availability = "PreOrder"
	AvailabilityUnknown    Availability = "Unknown"
)

// ProductVariant is the downstream record for a single purchasable variant.
type ProductVariant struct {
	SKU              string         `json:"sku"`
	Name             string         `json:"name"`
	Price            *float64       `json:"price"`
	Currency         string         `json:"currency"`
	Availability     Availability   `json:"availability"`
	Color            string         `json:"color"`
	Composition      string         `json:"composition"`
	Item             string         `json:"item"`
	AvailableSizes   []string       `json:"available_sizes,omitempty"`
	SizeCombinations *VariantMatrix `json:"size_combinations,omitempty"`
	MainImageURL     string         `json:"main_image_url,omitempty"`
	AllImageURLs     []string       `json:"all_image_urls,omitempty"`
	ProductURL       string         `json:"product_url"`
	Comment          string         `json:"comment"`
}

// MatrixEntry pairs one primary size with the secondary sizes available under it.
type MatrixEntry struct {
	Primary   string   `json:"primary"`
	Secondary []string `json:"secondary"`
}

// VariantMatrix is an ordered two-axis size matrix, for example band x cup.
type VariantMatrix struct {
	PrimaryLabel   string        `json:"primary_label"`
	SecondaryLabel string        `json:"secondary_label"`
	Combinations   []MatrixEntry `json:"combinations"`
}

// SecondaryFor returns the secondary sizes recorded under a primary size.
func (m *VariantMatrix) SecondaryFor(primary string) ([]string, bool) {
	if m == nil {
		return nil, false
	}
	for _, entry := range m.Combinations {
		if entry.Primary == primary {
			return entry.Secondary, true
		}
	}
	return nil, false
}

// Primaries returns the primary sizes in the order they were recorded.
func (m *VariantMatrix) Primaries() []string {
	if m == nil {
		return nil
	}
	primaries := make([]string, 0, len(m.Combinations))
	for _, entry := range m.Combinations {
		primaries = append(primaries, entry.Primary)
	}
	return primaries
}

// IsEmpty reports whether the matrix holds no combinations.
func (m *VariantMatrix) IsEmpty() bool {
	return m == nil || len(m.Combinations) == 0
}

// NavigationStyle describes how a store moves between product variants.
type NavigationStyle string

const (
	NavigationReload NavigationStyle = "reload"
	NavigationSPA    NavigationStyle = "spa"
)

// CapabilitySet declares what a site adapter supports. The engine branches
// only on these flags, never on adapter identity.
type CapabilitySet struct {
	// WatchStructuredData attaches the change tracker for the session.
	WatchStructuredData bool
	// Navigation tells how variant switches move the page address.
	Navigation NavigationStyle
	// OwnsColorObserver means the adapter observes color switches itself.
	OwnsColorObserver bool
	// MultiColor enables per-color variant enumeration.
	MultiColor bool
	// MultiSize enables the two-axis size matrix builder.
	MultiSize bool
	// ExtraSettleDelay is added to the engine's settle wait after activations.
	ExtraSettleDelay time.Duration
}

// Option is a single selectable control value, such as a size or a color.
type Option struct {
	Value    string
	Code     string
	Label    string
	Enabled  bool
	Selected bool
	Element  Element
}

// OptionGroup is a set of options read from one selector control.
type OptionGroup struct {
	Label     string
	AriaLabel string
	ControlID string
	Options   []Option
}

// UnknownAxisLabel is the last-resort label for an unidentifiable axis.
const UnknownAxisLabel = "Unknown"

// DisplayLabel resolves the axis label: declared label text, then the
// container's aria-label, then the raw control id, then UnknownAxisLabel.
func (g OptionGroup) DisplayLabel() string {
	if g.Label != "" {
		return g.Label
	}
	if g.AriaLabel != "" {
		return g.AriaLabel
	}
	if g.ControlID != "" {
		return g.ControlID
	}
	return UnknownAxisLabel
}

// SelectedOption returns the currently selected option, if any.
func (g OptionGroup) SelectedOption() (Option, bool) {
	for _, opt := range g.Options {
		if opt.Selected {
			return opt, true
		}
	}
	return Option{}, false
}

// OptionReader reads an option group from live page state. Implementations
// must re-query the page on every call, since enabling and disabling of
// options changes as other controls are activated.
type OptionReader func(ctx context.Context) (OptionGroup, error)

// Field names a product record field for validation requirements.
type Field string

const (
	FieldSKU      Field = "sku"
	FieldName     Field = "name"
	FieldPrice    Field = "price"
	FieldCurrency Field = "currency"
	FieldImages   Field = "images"
	FieldSizes    Field = "sizes"
)

// ValidationResult is the validator's verdict on a single variant.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Warnings []string `json:"warnings,omitempty"`
}

// ExtractionResult is the session's answer to an extraction request.
type ExtractionResult struct {
	Data         []ProductVariant `json:"data"`
	IsValid      bool             `json:"is_valid"`
	Warnings     []string         `json:"warnings,omitempty"`
	NeedsRefresh bool             `json:"needs_refresh"`
}

// Stale reasons reported in StaleEvent.
const (
	StaleReasonStructuredData = "structured_data"
	StaleReasonAddress        = "address"
)

// StaleEvent is emitted once when a session's page goes stale.
type StaleEvent struct {
	Reason string    `json:"reason"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// SiteAdapter defines the site-specific extraction contract. All methods
// except CanHandle and Capabilities operate on an open page; extractors
// report absence as an error and the engine degrades it to a warning.
type SiteAdapter interface {
	// Name returns the store name.
	Name() string

	// CanHandle reports whether the adapter recognizes the page address.
	CanHandle(pageURL string) bool

	// Capabilities declares what the adapter supports.
	Capabilities() CapabilitySet

	// IsProductPage reports whether the page is a product detail page.
	IsProductPage(ctx context.Context, pg Page) bool

	// ExtractName extracts the product name.
	ExtractName(ctx context.Context, pg Page) (string, error)

	// ExtractSKU extracts the product SKU or article identifier.
	ExtractSKU(ctx context.Context, pg Page) (string, error)

	// ExtractPrice extracts the numeric price.
	ExtractPrice(ctx context.Context, pg Page) (*float64, error)

	// ExtractCurrency extracts the ISO currency code.
	ExtractCurrency(ctx context.Context, pg Page) (string, error)

	// ExtractAvailability extracts the normalized stock state.
	ExtractAvailability(ctx context.Context, pg Page) (Availability, error)

	// ExtractColor extracts the currently selected color name.
	ExtractColor(ctx context.Context, pg Page) (string, error)

	// ExtractComposition extracts the material composition text.
	ExtractComposition(ctx context.Context, pg Page) (string, error)

	// ExtractItem extracts the item category, such as "Bra" or "Shoes".
	ExtractItem(ctx context.Context, pg Page) (string, error)

	// ExtractImageURLs extracts absolute product image URLs, main image first.
	ExtractImageURLs(ctx context.Context, pg Page) ([]string, error)

	// ExtractSizes extracts the flat list of available sizes.
	ExtractSizes(ctx context.Context, pg Page) ([]string, error)

	// BaseProductID returns the stable identifier used as the SKU base for
	// synthesized per-color SKUs.
	BaseProductID(ctx context.Context, pg Page) (string, error)

	// ColorOptions reads the color selector's options.
	ColorOptions(ctx context.Context, pg Page) (OptionGroup, error)

	// SizeAxes returns live readers for the primary and secondary size axes.
	SizeAxes(pg Page) (primary OptionReader, secondary OptionReader)

	// SanitizeURL strips addressing noise while keeping identity parameters.
	SanitizeURL(raw string) string

	// StructuredDataSelector returns the selector of the structured-data
	// fragment the change tracker watches.
	StructuredDataSelector() string

	// RequiredFields lists fields whose absence invalidates a record.
	RequiredFields() []Field
}

// Config holds the engine timing, browser and backend client settings.
type Config struct {
	SettleDelay        time.Duration
	DiscoveryTimeout   time.Duration
	DiscoveryInterval  time.Duration
	GraceWindow        time.Duration
	Timeout            time.Duration
	MaxRetries         int
	RequestDelay       time.Duration
	UseHeadlessBrowser bool
	UserAgent          string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SettleDelay:        150 * time.Millisecond,
		DiscoveryTimeout:   10 * time.Second,
		DiscoveryInterval:  250 * time.Millisecond,
		GraceWindow:        2 * time.Second,
		Timeout:            30 * time.Second,
		MaxRetries:         3,
		RequestDelay:       1 * time.Second,
		UseHeadlessBrowser: true,
		UserAgent:          "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// Logger defines the logging interface.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
