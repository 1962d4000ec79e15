package engine

import (
	"strings"

	"github.com/pozitronik/viscrapper/internal/types"
)

var fieldOrder = []types.Field{
	types.FieldSKU,
	types.FieldName,
	types.FieldPrice,
	types.FieldCurrency,
	types.FieldImages,
	types.FieldSizes,
}

// validateVariant applies the validation rules to an assembled variant.
// Only fields in the adapter's required set gate validity, and SKU is
// required no matter what the adapter declares. Everything else produces a
// warning at most: a record with holes is still worth submitting, a record
// without identity is not.
func validateVariant(v types.ProductVariant, required []types.Field) types.ValidationResult {
	missing := map[types.Field]bool{
		types.FieldSKU:      strings.TrimSpace(v.SKU) == "",
		types.FieldName:     strings.TrimSpace(v.Name) == "",
		types.FieldPrice:    v.Price == nil,
		types.FieldCurrency: strings.TrimSpace(v.Currency) == "",
		types.FieldImages:   len(v.AllImageURLs) == 0 && v.MainImageURL == "",
		types.FieldSizes:    len(v.AvailableSizes) == 0 && v.SizeCombinations.IsEmpty(),
	}

	requiredSet := map[types.Field]bool{types.FieldSKU: true}
	for _, f := range required {
		requiredSet[f] = true
	}

	result := types.ValidationResult{IsValid: true}
	for _, f := range fieldOrder {
		if !missing[f] {
			continue
		}
		if requiredSet[f] {
			result.IsValid = false
		}
		result.Warnings = append(result.Warnings, warningText(f))
	}
	return result
}

func warningText(f types.Field) string {
	switch f {
	case types.FieldSKU:
		return "missing sku"
	case types.FieldName:
		return "missing product name"
	case types.FieldPrice:
		return "missing price"
	case types.FieldCurrency:
		return "missing currency"
	case types.FieldImages:
		return "no images extracted"
	case types.FieldSizes:
		return "no size data extracted"
	}
	return "missing " + string(f)
}
