package adapters

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ldProduct is a tolerant view of a schema.org Product node. Stores are
// sloppy with types here: price arrives as string or number, image as
// string or list, offers as object or array.
type ldProduct struct {
	Type     ldStrings `json:"@type"`
	Name     string    `json:"name"`
	SKU      string    `json:"sku"`
	Color    string    `json:"color"`
	Material string    `json:"material"`
	Category string    `json:"category"`
	Image    ldStrings `json:"image"`
	Offers   ldOffers  `json:"offers"`
}

func (p *ldProduct) isProduct() bool {
	for _, t := range p.Type {
		if strings.EqualFold(t, "Product") {
			return true
		}
	}
	return false
}

// Price returns the first parseable offer price.
func (p *ldProduct) Price() *float64 {
	for _, offer := range p.Offers {
		if v, ok := offer.Price.Value(); ok {
			price := v
			return &price
		}
	}
	return nil
}

// Currency returns the first declared offer currency.
func (p *ldProduct) Currency() string {
	for _, offer := range p.Offers {
		if offer.PriceCurrency != "" {
			return offer.PriceCurrency
		}
	}
	return ""
}

// Availability returns the first declared offer availability token.
func (p *ldProduct) Availability() string {
	for _, offer := range p.Offers {
		if offer.Availability != "" {
			return offer.Availability
		}
	}
	return ""
}

type ldOffer struct {
	Price         ldNumber `json:"price"`
	PriceCurrency string   `json:"priceCurrency"`
	Availability  string   `json:"availability"`
}

// ldOffers accepts a single offer object or a list of them.
type ldOffers []ldOffer

func (o *ldOffers) UnmarshalJSON(data []byte) error {
	var single ldOffer
	if err := json.Unmarshal(data, &single); err == nil {
		*o = ldOffers{single}
		return nil
	}
	var list []ldOffer
	if err := json.Unmarshal(data, &list); err == nil {
		*o = list
		return nil
	}
	*o = nil
	return nil
}

// ldStrings accepts a string, a list of strings, or a mixed list whose
// non-string entries are dropped.
type ldStrings []string

func (s *ldStrings) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = ldStrings{single}
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err == nil {
		var out ldStrings
		for _, v := range raw {
			if str, ok := v.(string); ok {
				out = append(out, str)
			}
		}
		*s = out
		return nil
	}
	*s = nil
	return nil
}

// ldNumber accepts a JSON number or a numeric string.
type ldNumber struct {
	value float64
	ok    bool
}

func (n *ldNumber) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		n.value, n.ok = num, true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			n.value, n.ok = v, true
		}
	}
	return nil
}

// Value returns the parsed number and whether one was present.
func (n ldNumber) Value() (float64, bool) {
	return n.value, n.ok
}

// ldNode is one top-level JSON-LD entity, possibly carrying a @graph.
type ldNode struct {
	ldProduct
	Graph []ldProduct `json:"@graph"`
}

func (n *ldNode) product() *ldProduct {
	if n.isProduct() {
		return &n.ldProduct
	}
	for i := range n.Graph {
		if n.Graph[i].isProduct() {
			return &n.Graph[i]
		}
	}
	return nil
}

// decodeStructuredProduct finds a Product node in a JSON-LD payload: the
// top-level object, an element of a top-level array, or a @graph entry.
func decodeStructuredProduct(raw string) *ldProduct {
	data := []byte(strings.TrimSpace(raw))
	if len(data) == 0 {
		return nil
	}

	var node ldNode
	if err := json.Unmarshal(data, &node); err == nil {
		if p := node.product(); p != nil {
			return p
		}
	}

	var list []ldNode
	if err := json.Unmarshal(data, &list); err == nil {
		for i := range list {
			if p := list[i].product(); p != nil {
				return p
			}
		}
	}
	return nil
}
