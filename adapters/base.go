package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pozitronik/viscrapper/internal/types"
)

// BaseAdapter provides the selector-table driven extraction shared by all
// store adapters. Site adapters embed it, supply a Profile, and override
// only the methods where the store needs special handling.
type BaseAdapter struct {
	config  *types.Config
	logger  types.Logger
	profile Profile
}

// NewBaseAdapter creates a base adapter from a store profile. SKU is added
// to the required fields if the profile leaves them empty, and the default
// structured-data selector is filled in when the table has none.
func NewBaseAdapter(config *types.Config, logger types.Logger, profile Profile) *BaseAdapter {
	if profile.Selectors.StructuredData == "" {
		profile.Selectors.StructuredData = DefaultStructuredDataSelector
	}
	if len(profile.Required) == 0 {
		profile.Required = []types.Field{types.FieldSKU}
	}
	return &BaseAdapter{
		config:  config,
		logger:  logger,
		profile: profile,
	}
}

// Name returns the store name.
func (b *BaseAdapter) Name() string {
	return b.profile.Name
}

// CanHandle reports whether the URL belongs to one of the profile's hosts.
func (b *BaseAdapter) CanHandle(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range b.profile.Hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Capabilities returns the profile's capability set.
func (b *BaseAdapter) Capabilities() types.CapabilitySet {
	return b.profile.Capabilities
}

// IsProductPage reports whether the page carries the profile's product page
// marker or a structured-data Product node.
func (b *BaseAdapter) IsProductPage(ctx context.Context, pg types.Page) bool {
	if b.profile.Selectors.ProductPage != "" {
		if len(pg.Query(b.profile.Selectors.ProductPage)) > 0 {
			return true
		}
	}
	_, ok := b.StructuredProduct(pg)
	return ok
}

// ExtractName extracts the product name.
func (b *BaseAdapter) ExtractName(ctx context.Context, pg types.Page) (string, error) {
	if name, err := b.FirstMatch(pg, b.profile.Selectors.Name); err == nil {
		return name, nil
	}
	if product, ok := b.StructuredProduct(pg); ok && product.Name != "" {
		return strings.TrimSpace(product.Name), nil
	}
	return "", fmt.Errorf("product name not found on page")
}

// ExtractSKU extracts the product SKU or article identifier.
func (b *BaseAdapter) ExtractSKU(ctx context.Context, pg types.Page) (string, error) {
	if sku, err := b.FirstMatch(pg, b.profile.Selectors.SKU); err == nil {
		return sku, nil
	}
	if product, ok := b.StructuredProduct(pg); ok && product.SKU != "" {
		return strings.TrimSpace(product.SKU), nil
	}
	return "", fmt.Errorf("sku not found on page")
}

// ExtractPrice extracts the numeric price.
func (b *BaseAdapter) ExtractPrice(ctx context.Context, pg types.Page) (*float64, error) {
	if raw, err := b.FirstMatch(pg, b.profile.Selectors.Price); err == nil {
		price, parseErr := parsePrice(raw)
		if parseErr == nil {
			return price, nil
		}
		b.logger.Debugf("Unparseable price text %q: %v", raw, parseErr)
	}
	if product, ok := b.StructuredProduct(pg); ok {
		if price := product.Price(); price != nil {
			return price, nil
		}
	}
	return nil, fmt.Errorf("price not found on page")
}

// ExtractCurrency extracts the ISO currency code, falling back to the
// currency symbol in the price text.
func (b *BaseAdapter) ExtractCurrency(ctx context.Context, pg types.Page) (string, error) {
	if raw, err := b.FirstMatch(pg, b.profile.Selectors.Currency); err == nil {
		if code := normalizeCurrency(raw); code != "" {
			return code, nil
		}
	}
	if product, ok := b.StructuredProduct(pg); ok {
		if code := normalizeCurrency(product.Currency()); code != "" {
			return code, nil
		}
	}
	if raw, err := b.FirstMatch(pg, b.profile.Selectors.Price); err == nil {
		if code := currencyFromText(raw); code != "" {
			return code, nil
		}
	}
	return "", fmt.Errorf("currency not found on page")
}

// ExtractAvailability extracts the normalized stock state. Absence maps to
// AvailabilityUnknown rather than an error.
func (b *BaseAdapter) ExtractAvailability(ctx context.Context, pg types.Page) (types.Availability, error) {
	if raw, err := b.FirstMatch(pg, b.profile.Selectors.Availability); err == nil {
		if availability := mapAvailability(raw); availability != types.AvailabilityUnknown {
			return availability, nil
		}
	}
	if product, ok := b.StructuredProduct(pg); ok {
		if availability := mapAvailability(product.Availability()); availability != types.AvailabilityUnknown {
			return availability, nil
		}
	}
	return types.AvailabilityUnknown, nil
}

// ExtractColor extracts the currently selected color name.
func (b *BaseAdapter) ExtractColor(ctx context.Context, pg types.Page) (string, error) {
	if color, err := b.FirstMatch(pg, b.profile.Selectors.Color); err == nil {
		return color, nil
	}
	if b.profile.Selectors.Colors.Configured() {
		group, err := b.readOptions(pg, b.profile.Selectors.Colors)
		if err == nil {
			if selected, ok := group.SelectedOption(); ok {
				return selected.Label, nil
			}
		}
	}
	if product, ok := b.StructuredProduct(pg); ok && product.Color != "" {
		return strings.TrimSpace(product.Color), nil
	}
	return "", fmt.Errorf("color not found on page")
}

// ExtractComposition extracts the material composition text.
func (b *BaseAdapter) ExtractComposition(ctx context.Context, pg types.Page) (string, error) {
	if composition, err := b.FirstMatch(pg, b.profile.Selectors.Composition); err == nil {
		return composition, nil
	}
	if product, ok := b.StructuredProduct(pg); ok && product.Material != "" {
		return strings.TrimSpace(product.Material), nil
	}
	return "", fmt.Errorf("composition not found on page")
}

// ExtractItem extracts the item category.
func (b *BaseAdapter) ExtractItem(ctx context.Context, pg types.Page) (string, error) {
	if item, err := b.FirstMatch(pg, b.profile.Selectors.Item); err == nil {
		return item, nil
	}
	if product, ok := b.StructuredProduct(pg); ok && product.Category != "" {
		return strings.TrimSpace(product.Category), nil
	}
	return "", fmt.Errorf("item category not found on page")
}

// ExtractImageURLs extracts absolute product image URLs in page order with
// duplicates removed. The first productive selector in the table wins.
func (b *BaseAdapter) ExtractImageURLs(ctx context.Context, pg types.Page) ([]string, error) {
	var urls []string
	for _, fs := range b.profile.Selectors.Images {
		for _, el := range pg.Query(fs.Query) {
			raw := readField(el, fs.Attr)
			if raw == "" {
				continue
			}
			if abs, ok := b.resolveURL(pg.Address(), raw); ok {
				urls = append(urls, abs)
			}
		}
		if len(urls) > 0 {
			break
		}
	}
	if len(urls) == 0 {
		if product, ok := b.StructuredProduct(pg); ok {
			for _, raw := range product.Image {
				if abs, ok := b.resolveURL(pg.Address(), raw); ok {
					urls = append(urls, abs)
				}
			}
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("no product images found on page")
	}
	return b.RemoveDuplicateURLs(urls), nil
}

// ExtractSizes extracts the enabled values of the flat size control.
func (b *BaseAdapter) ExtractSizes(ctx context.Context, pg types.Page) ([]string, error) {
	group, err := b.readOptions(pg, b.profile.Selectors.Sizes)
	if err != nil {
		return nil, err
	}
	var sizes []string
	for _, opt := range group.Options {
		if opt.Enabled {
			sizes = append(sizes, opt.Value)
		}
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no sizes found on page")
	}
	return sizes, nil
}

// BaseProductID returns the stable identifier used as the SKU base,
// falling back to the extracted SKU.
func (b *BaseAdapter) BaseProductID(ctx context.Context, pg types.Page) (string, error) {
	if id, err := b.FirstMatch(pg, b.profile.Selectors.BaseProductID); err == nil {
		return id, nil
	}
	return b.ExtractSKU(ctx, pg)
}

// ColorOptions reads the color swatch control.
func (b *BaseAdapter) ColorOptions(ctx context.Context, pg types.Page) (types.OptionGroup, error) {
	return b.readOptions(pg, b.profile.Selectors.Colors)
}

// SizeAxes returns live readers for the primary and secondary size axes.
// Either reader is nil when the profile configures no control for it.
func (b *BaseAdapter) SizeAxes(pg types.Page) (types.OptionReader, types.OptionReader) {
	return b.optionReader(pg, b.profile.Selectors.SizePrimary),
		b.optionReader(pg, b.profile.Selectors.SizeSecondary)
}

// SanitizeURL strips query parameters that carry no product identity and
// drops the fragment. Tracking noise would otherwise make the same product
// look like different addresses.
func (b *BaseAdapter) SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	kept := url.Values{}
	query := u.Query()
	for _, name := range b.profile.KeepParams {
		if vs, ok := query[name]; ok {
			kept[name] = vs
		}
	}
	u.RawQuery = kept.Encode()
	u.Fragment = ""
	return u.String()
}

// StructuredDataSelector returns the watched structured-data selector.
func (b *BaseAdapter) StructuredDataSelector() string {
	return b.profile.Selectors.StructuredData
}

// RequiredFields lists fields whose absence invalidates a record.
func (b *BaseAdapter) RequiredFields() []types.Field {
	return b.profile.Required
}

// Config returns the adapter's configuration.
func (b *BaseAdapter) Config() *types.Config {
	return b.config
}

// FirstMatch tries each field selector in order and returns the first
// non-empty value.
func (b *BaseAdapter) FirstMatch(pg types.Page, selectors []FieldSelector) (string, error) {
	for _, fs := range selectors {
		for _, el := range pg.Query(fs.Query) {
			if value := readField(el, fs.Attr); value != "" {
				return value, nil
			}
		}
	}
	return "", fmt.Errorf("element not found with %d selectors", len(selectors))
}

// StructuredProduct parses the page's JSON-LD Product node, if present.
func (b *BaseAdapter) StructuredProduct(pg types.Page) (*ldProduct, bool) {
	for _, el := range pg.Query(b.profile.Selectors.StructuredData) {
		if product := decodeStructuredProduct(el.Text()); product != nil {
			return product, true
		}
	}
	return nil, false
}

// RemoveDuplicateURLs removes duplicate URLs while preserving order.
func (b *BaseAdapter) RemoveDuplicateURLs(urls []string) []string {
	seen := make(map[string]bool)
	var uniqueURLs []string
	for _, u := range urls {
		if !seen[u] {
			seen[u] = true
			uniqueURLs = append(uniqueURLs, u)
		}
	}
	return uniqueURLs
}

func (b *BaseAdapter) optionReader(pg types.Page, sel OptionSelector) types.OptionReader {
	if !sel.Configured() {
		return nil
	}
	return func(ctx context.Context) (types.OptionGroup, error) {
		if err := ctx.Err(); err != nil {
			return types.OptionGroup{}, err
		}
		return b.readOptions(pg, sel)
	}
}

// readOptions reads one option control into an OptionGroup, in document
// order. An empty group is not an error; discovery polling handles it.
func (b *BaseAdapter) readOptions(pg types.Page, sel OptionSelector) (types.OptionGroup, error) {
	if !sel.Configured() {
		return types.OptionGroup{}, fmt.Errorf("option control not configured")
	}

	var group types.OptionGroup
	if sel.Container != "" {
		if els := pg.Query(sel.Container); len(els) > 0 {
			if id, ok := els[0].Attr("id"); ok {
				group.ControlID = strings.TrimSpace(id)
			}
			if aria, ok := els[0].Attr("aria-label"); ok {
				group.AriaLabel = strings.TrimSpace(aria)
			}
		}
	}
	if sel.Label != "" {
		if els := pg.Query(sel.Label); len(els) > 0 {
			group.Label = els[0].Text()
		}
	}

	for _, el := range pg.Query(sel.Items) {
		if sel.ValueAttr != "" {
			if v, ok := el.Attr(sel.ValueAttr); ok && strings.TrimSpace(v) == "" {
				continue // explicitly empty value marks a placeholder entry
			}
		}
		opt := types.Option{Element: el}
		opt.Value = readField(el, sel.ValueAttr)
		opt.Label = readField(el, sel.LabelAttr)
		if opt.Value == "" {
			opt.Value = opt.Label
		}
		if opt.Label == "" {
			opt.Label = opt.Value
		}
		if sel.CodeAttr != "" {
			if code, ok := el.Attr(sel.CodeAttr); ok {
				opt.Code = strings.TrimSpace(code)
			}
		}
		opt.Enabled = !optionDisabled(el, sel)
		opt.Selected = optionSelected(el, sel)
		if opt.Value == "" {
			continue // nothing to key the option on
		}
		group.Options = append(group.Options, opt)
	}
	return group, nil
}

func (b *BaseAdapter) resolveURL(pageAddr, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	base, err := url.Parse(pageAddr)
	if err != nil {
		return raw, true
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme == "" {
		resolved.Scheme = "https"
	}
	return resolved.String(), true
}

// readField reads an element attribute, or its text when attr is empty.
func readField(el types.Element, attr string) string {
	if attr == "" {
		return el.Text()
	}
	value, _ := el.Attr(attr)
	return strings.TrimSpace(value)
}

func optionDisabled(el types.Element, sel OptionSelector) bool {
	if sel.DisabledAttr != "" {
		if v, ok := el.Attr(sel.DisabledAttr); ok && v != "false" {
			return true
		}
	}
	if sel.DisabledClass != "" && hasClass(el, sel.DisabledClass) {
		return true
	}
	return false
}

func optionSelected(el types.Element, sel OptionSelector) bool {
	if sel.SelectedAttr != "" {
		if v, ok := el.Attr(sel.SelectedAttr); ok && v != "false" {
			return true
		}
	}
	if sel.SelectedClass != "" && hasClass(el, sel.SelectedClass) {
		return true
	}
	return false
}

func hasClass(el types.Element, class string) bool {
	raw, ok := el.Attr("class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(raw) {
		if c == class {
			return true
		}
	}
	return false
}

// parsePrice extracts a numeric amount from price text such as "$1,299.00",
// "1.299,00 €" or "USD 59".
func parsePrice(raw string) (*float64, error) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	num := strings.Trim(b.String(), ".,")
	if num == "" {
		return nil, fmt.Errorf("no digits in price %q", raw)
	}

	lastDot := strings.LastIndex(num, ".")
	lastComma := strings.LastIndex(num, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			num = strings.ReplaceAll(num, ",", "")
		} else {
			num = decimalComma(strings.ReplaceAll(num, ".", ""))
		}
	case lastComma >= 0:
		// Lone comma: thousands separator when followed by exactly three
		// digits, decimal separator otherwise.
		if len(num)-lastComma-1 == 3 && strings.Count(num, ",") == 1 {
			num = strings.ReplaceAll(num, ",", "")
		} else {
			num = decimalComma(num)
		}
	case strings.Count(num, ".") > 1:
		num = strings.ReplaceAll(num, ".", "")
	}

	value, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return nil, fmt.Errorf("unparseable price %q: %w", raw, err)
	}
	return &value, nil
}

// decimalComma turns the last comma into the decimal point and drops the rest.
func decimalComma(s string) string {
	i := strings.LastIndex(s, ",")
	if i < 0 {
		return s
	}
	return strings.ReplaceAll(s[:i], ",", "") + "." + s[i+1:]
}

var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"US$", "USD"},
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"₹", "INR"},
	{"¥", "JPY"},
}

var currencyCodes = []string{"USD", "EUR", "GBP", "INR", "JPY", "CAD", "AUD"}

// normalizeCurrency maps a currency code or symbol to an ISO code.
func normalizeCurrency(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) == 3 && isLetters(s) {
		return strings.ToUpper(s)
	}
	return currencyFromText(s)
}

// currencyFromText finds a currency code or symbol inside arbitrary text.
func currencyFromText(s string) string {
	up := strings.ToUpper(s)
	for _, code := range currencyCodes {
		if strings.Contains(up, code) {
			return code
		}
	}
	for _, sym := range currencySymbols {
		if strings.Contains(s, sym.symbol) {
			return sym.code
		}
	}
	return ""
}

func isLetters(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return len(s) > 0
}

// mapAvailability normalizes schema.org availability tokens and common page
// wording to an Availability value.
func mapAvailability(raw string) types.Availability {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return types.AvailabilityUnknown
	}
	compact := strings.ReplaceAll(s, " ", "")
	switch {
	case strings.Contains(compact, "soldout"):
		return types.AvailabilitySoldOut
	case strings.Contains(compact, "outofstock") || strings.Contains(s, "unavailable"):
		return types.AvailabilityOutOfStock
	case strings.Contains(compact, "preorder") || strings.Contains(compact, "pre-order"):
		return types.AvailabilityPreOrder
	case strings.Contains(compact, "instock") || strings.Contains(s, "add to cart") ||
		strings.Contains(s, "add to bag") || strings.Contains(s, "available"):
		return types.AvailabilityInStock
	default:
		return types.AvailabilityUnknown
	}
}
