package adapters

import (
	"fmt"

	"github.com/pozitronik/viscrapper/internal/types"
)

// All returns every registered store adapter.
func All(config *types.Config, logger types.Logger) []types.SiteAdapter {
	return []types.SiteAdapter{
		NewVictoriasSecretAdapter(config, logger),
		NewNewBalanceAdapter(config, logger),
		NewLacosteAdapter(config, logger),
	}
}

// ForURL resolves the adapter handling a page URL. Store identity is
// decided here and nowhere else; the engine only sees the interface.
func ForURL(pageURL string, config *types.Config, logger types.Logger) (types.SiteAdapter, error) {
	for _, adapter := range All(config, logger) {
		if adapter.CanHandle(pageURL) {
			return adapter, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", types.ErrNoAdapter, pageURL)
}
