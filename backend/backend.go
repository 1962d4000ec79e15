package backend

import (
	"context"
	"errors"

	"github.com/pozitronik/viscrapper/internal/types"
)

// ErrRecordNotFound is returned when the backend holds no record for a SKU.
var ErrRecordNotFound = errors.New("record not found")

// Store is the downstream collaborator extracted records go to. The engine
// never talks to it; callers use it to flag already-known SKUs and to
// submit accepted records.
type Store interface {
	// FindBySKU looks up a previously submitted record.
	FindBySKU(ctx context.Context, sku string) (*types.ProductVariant, error)

	// Submit stores an extracted record.
	Submit(ctx context.Context, variant types.ProductVariant) error
}
