package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pozitronik/viscrapper/adapters"
	"github.com/pozitronik/viscrapper/backend"
	"github.com/pozitronik/viscrapper/engine"
	"github.com/pozitronik/viscrapper/internal/types"
	"github.com/pozitronik/viscrapper/page"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	engine *engine.Engine
	store  backend.Store
	config *types.Config
	logger types.Logger

	// openPage opens a live page for URL-only requests. Tests swap it out
	// so no browser is launched.
	openPage func(ctx context.Context, pageURL string) (types.Page, func(), error)
}

// NewHandler creates a new HTTP handler
func NewHandler(eng *engine.Engine, store backend.Store, config *types.Config, logger types.Logger) *Handler {
	h := &Handler{
		engine: eng,
		store:  store,
		config: config,
		logger: logger,
	}
	h.openPage = h.openLivePage
	return h
}

type extractRequest struct {
	// URL of a live page to open in the browser.
	URL string `json:"url"`
	// HTML plus PageURL extract from an already-captured document instead.
	HTML    string `json:"html"`
	PageURL string `json:"page_url"`
}

type extractResponse struct {
	types.ExtractionResult
	KnownSKUs []string `json:"known_skus,omitempty"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "viscrapper-api",
		"version": "1.0.0",
	})
}

// Extract runs a one-shot extraction over a live URL or inline HTML.
func (h *Handler) Extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pageURL := strings.TrimSpace(req.URL)
	inline := strings.TrimSpace(req.HTML) != ""
	if inline {
		pageURL = strings.TrimSpace(req.PageURL)
	}
	if pageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either url, or html with page_url, is required"})
		return
	}

	adapter, err := adapters.ForURL(pageURL, h.config, h.logger)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no adapter for this store"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.Timeout)
	defer cancel()

	var (
		pg      types.Page
		cleanup func()
	)
	if inline {
		static, perr := page.NewStaticPage(req.HTML, pageURL)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse html"})
			return
		}
		pg, cleanup = static, func() {}
	} else {
		pg, cleanup, err = h.openPage(ctx, pageURL)
		if err != nil {
			h.logger.Errorf("Failed to open page %s: %v", pageURL, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to open page"})
			return
		}
	}
	defer cleanup()

	result, err := h.engine.ExtractFromPage(ctx, pg, adapter)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrNotProductPage):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "not a product page"})
		case errors.Is(err, types.ErrExtractionInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": "extraction already in flight"})
		default:
			h.logger.Errorf("Extraction failed for %s: %v", pageURL, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "extraction failed"})
		}
		return
	}

	c.JSON(http.StatusOK, extractResponse{
		ExtractionResult: *result,
		KnownSKUs:        h.knownSKUs(ctx, result.Data),
	})
}

// knownSKUs reports which extracted SKUs the store already holds.
func (h *Handler) knownSKUs(ctx context.Context, variants []types.ProductVariant) []string {
	if h.store == nil {
		return nil
	}

	var known []string
	for _, variant := range variants {
		if variant.SKU == "" {
			continue
		}
		_, err := h.store.FindBySKU(ctx, variant.SKU)
		if err != nil {
			if !errors.Is(err, backend.ErrRecordNotFound) {
				h.logger.Warnf("Failed to check store for %s: %v", variant.SKU, err)
			}
			continue
		}
		known = append(known, variant.SKU)
	}
	return known
}

// GetRecord returns a stored record by SKU.
func (h *Handler) GetRecord(c *gin.Context) {
	sku := c.Param("sku")

	variant, err := h.store.FindBySKU(c.Request.Context(), sku)
	if err != nil {
		if errors.Is(err, backend.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		h.logger.Errorf("Store lookup failed for %s: %v", sku, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store lookup failed"})
		return
	}

	c.JSON(http.StatusOK, variant)
}

// SubmitRecord stores an extracted record.
func (h *Handler) SubmitRecord(c *gin.Context) {
	var variant types.ProductVariant
	if err := c.ShouldBindJSON(&variant); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if strings.TrimSpace(variant.SKU) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "sku is required"})
		return
	}

	if err := h.store.Submit(c.Request.Context(), variant); err != nil {
		h.logger.Errorf("Store submit failed for %s: %v", variant.SKU, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store submit failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"sku": variant.SKU})
}

// openLivePage launches a browser page for the requested URL.
func (h *Handler) openLivePage(ctx context.Context, pageURL string) (types.Page, func(), error) {
	pg, err := page.NewChromePage(ctx, pageURL, h.config, h.logger)
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}
