package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pozitronik/viscrapper/internal/types"
)

func testConfig() *types.Config {
	config := types.DefaultConfig()
	config.RequestDelay = 10 * time.Millisecond // Faster for testing
	return config
}

func TestNewClient(t *testing.T) {
	config := types.DefaultConfig()
	logger := logrus.New()

	client := NewClient("http://localhost:8080/", config, logger)

	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.NotNil(t, client.client)
	assert.NotNil(t, client.limiter)

	client.Close()
}

func TestClient_FindBySKU_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/products/MW41326-HGF-DW5", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sku":"MW41326-HGF-DW5","name":"Fresh Foam X","currency":"USD","availability":"InStock","color":"RED","composition":"","item":"","product_url":"https://example.com/p","comment":""}`))
	}))
	defer server.Close()

	logger := logrus.New()
	client := NewClient(server.URL, testConfig(), logger)
	defer client.Close()

	variant, err := client.FindBySKU(context.Background(), "MW41326-HGF-DW5")

	require.NoError(t, err)
	assert.Equal(t, "MW41326-HGF-DW5", variant.SKU)
	assert.Equal(t, "Fresh Foam X", variant.Name)
	assert.Equal(t, "RED", variant.Color)
}

func TestClient_FindBySKU_NotFound(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	logger := logrus.New()
	client := NewClient(server.URL, testConfig(), logger)
	defer client.Close()

	_, err := client.FindBySKU(context.Background(), "UNKNOWN-1")

	assert.ErrorIs(t, err, ErrRecordNotFound)
	// A missing record is an answer, not a failure; no retries.
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestClient_Submit_Success(t *testing.T) {
	var received types.ProductVariant
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/products", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	logger := logrus.New()
	client := NewClient(server.URL, testConfig(), logger)
	defer client.Close()

	err := client.Submit(context.Background(), types.ProductVariant{
		SKU:  "MW41326-HGF-DW6",
		Name: "Fresh Foam X",
	})

	require.NoError(t, err)
	assert.Equal(t, "MW41326-HGF-DW6", received.SKU)
	assert.Equal(t, "Fresh Foam X", received.Name)
}

func TestClient_Submit_RetriesServerErrors(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	logger := logrus.New()
	client := NewClient(server.URL, testConfig(), logger)
	defer client.Close()

	err := client.Submit(context.Background(), types.ProductVariant{SKU: "MW41326-HGF-DW5"})

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestClient_Submit_ClientErrorNotRetried(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("sku is required"))
	}))
	defer server.Close()

	logger := logrus.New()
	client := NewClient(server.URL, testConfig(), logger)
	defer client.Close()

	err := client.Submit(context.Background(), types.ProductVariant{})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "backend rejected request")
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestClient_ContextCancelled(t *testing.T) {
	config := types.DefaultConfig()
	config.RequestDelay = 100 * time.Millisecond
	logger := logrus.New()
	client := NewClient("http://localhost:1", config, logger)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := client.FindBySKU(ctx, "MW41326-HGF-DW5")

	assert.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}

func TestClient_Close(t *testing.T) {
	config := types.DefaultConfig()
	logger := logrus.New()
	client := NewClient("http://localhost:8080", config, logger)

	// Should not panic
	client.Close()
}
