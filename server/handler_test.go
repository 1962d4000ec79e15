package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pozitronik/viscrapper/backend"
	"github.com/pozitronik/viscrapper/config"
	"github.com/pozitronik/viscrapper/engine"
	"github.com/pozitronik/viscrapper/internal/types"
)

const lacosteFixture = `<html><head>
<script type="application/ld+json">
{"@type":"Product","name":"Classic Fit Polo","sku":"L1212-001",
 "image":["https://img.lacoste.com/front.jpg","https://img.lacoste.com/back.jpg"],
 "offers":{"@type":"Offer","price":"98.00","priceCurrency":"USD","availability":"https://schema.org/InStock"}}
</script>
</head><body>
<div class="product-detail">
  <h1 class="product-detail__title">Classic Fit Polo</h1>
  <div class="product-detail__price">$98.00</div>
  <div class="product-detail__composition">100% Cotton</div>
  <ul class="breadcrumb"><li>Men</li><li>Polos</li></ul>
  <div class="product-detail__gallery">
    <img src="https://img.lacoste.com/front.jpg">
    <img src="https://img.lacoste.com/back.jpg">
  </div>
  <label for="size-select">Size</label>
  <select id="size-select">
    <option value="S">S</option>
    <option value="M" selected>M</option>
    <option value="L" disabled>L</option>
  </select>
</div>
</body></html>`

const lacosteURL = "https://www.lacoste.com/us/product/L1212?utm_source=mail"

func newTestRouter(t *testing.T) (*gin.Engine, *backend.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engineConfig := types.DefaultConfig()
	logger := logrus.New()
	store := backend.NewMemoryStore()
	handler := NewHandler(engine.New(engineConfig, logger), store, engineConfig, logger)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Environment:    "test",
			AllowedOrigins: []string{"chrome-extension://*"},
			RatePerClient:  100,
			RateBurst:      100,
		},
	}

	return SetupRouter(cfg, handler, logger), store
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestExtract_InlineHTML(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/api/v1/extract", gin.H{
		"html":     lacosteFixture,
		"page_url": lacosteURL,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp extractResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.IsValid)
	require.Len(t, resp.Data, 1)

	variant := resp.Data[0]
	assert.Equal(t, "L1212-001", variant.SKU)
	assert.Equal(t, "Classic Fit Polo", variant.Name)
	require.NotNil(t, variant.Price)
	assert.InDelta(t, 98.0, *variant.Price, 0.001)
	assert.Equal(t, "USD", variant.Currency)
	assert.Equal(t, types.AvailabilityInStock, variant.Availability)
	assert.Equal(t, []string{"S", "M"}, variant.AvailableSizes)
	assert.Equal(t, "https://img.lacoste.com/front.jpg", variant.MainImageURL)
	// Tracking parameters are stripped from the reported address.
	assert.Equal(t, "https://www.lacoste.com/us/product/L1212", variant.ProductURL)
	assert.Empty(t, resp.KnownSKUs)
}

func TestExtract_FlagsKnownSKUs(t *testing.T) {
	router, store := newTestRouter(t)

	require.NoError(t, store.Submit(context.Background(), types.ProductVariant{SKU: "L1212-001"}))

	w := postJSON(t, router, "/api/v1/extract", gin.H{
		"html":     lacosteFixture,
		"page_url": lacosteURL,
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp extractResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"L1212-001"}, resp.KnownSKUs)
}

func TestExtract_UnknownStore(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/api/v1/extract", gin.H{
		"html":     lacosteFixture,
		"page_url": "https://shop.example.com/product/1",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestExtract_MissingTarget(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/api/v1/extract", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtract_NotProductPage(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/api/v1/extract", gin.H{
		"html":     "<html><body><h1>Spring Collection</h1></body></html>",
		"page_url": lacosteURL,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRecords_SubmitAndGet(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/api/v1/products", types.ProductVariant{
		SKU:  "MW41326-HGF-DW5",
		Name: "Fresh Foam X",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/MW41326-HGF-DW5", nil)
	get := httptest.NewRecorder()
	router.ServeHTTP(get, req)

	require.Equal(t, http.StatusOK, get.Code)

	var variant types.ProductVariant
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &variant))
	assert.Equal(t, "Fresh Foam X", variant.Name)
}

func TestRecords_GetMissing(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/UNKNOWN-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecords_SubmitWithoutSKU(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/api/v1/products", types.ProductVariant{Name: "No SKU"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
