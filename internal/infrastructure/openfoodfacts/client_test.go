package openfoodfacts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/allergenai/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestClient(baseURL string) *Client {
	client := NewClient(Config{BaseURL: baseURL, Timeout: time.Second})
	client.backoff = func(int) time.Duration { return time.Millisecond }
	return client
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{})

	assert.Equal(t, "https://world.openfoodfacts.org", client.baseURL)
	assert.Equal(t, "AllergenAI/1.0", client.userAgent)
	assert.Equal(t, 3, client.maxRetries)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
	assert.NotNil(t, client.rateLimiter)
}

func TestExponentialBackoff(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, exponentialBackoff(1))
	assert.Equal(t, time.Second, exponentialBackoff(2))
	assert.Equal(t, 2*time.Second, exponentialBackoff(3))
	assert.Equal(t, 500*time.Millisecond, exponentialBackoff(0))
}

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/product/3017620422003", r.URL.Path)
		assert.Equal(t, "ingredients_text,additives_tags,product_name", r.URL.Query().Get("fields"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "AllergenAI/1.0", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ProductResponse{
			Code:   "3017620422003",
			Status: 1,
			Product: &Product{
				ProductName:     "Nutella",
				IngredientsText: "Sugar, palm oil, hazelnuts 13%",
				AdditivesTags:   []string{"en:e322", "en:e322i"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	facts, err := client.Fetch(context.Background(), "3017620422003")

	require.NoError(t, err)
	assert.Equal(t, "3017620422003", facts.ProductCode)
	assert.Equal(t, "Nutella", facts.ProductName)
	assert.Equal(t, "Sugar, palm oil, hazelnuts 13%", facts.IngredientsText)
	assert.Equal(t, []string{"en:e322", "en:e322i"}, facts.AdditiveTags)
}

func TestFetch_NotFoundStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"000","status":0,"status_verbose":"product not found"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	facts, err := client.Fetch(context.Background(), "000")

	assert.Nil(t, facts)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestFetch_StatusZeroEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":"000","status":0,"status_verbose":"product not found"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	facts, err := client.Fetch(context.Background(), "000")

	assert.Nil(t, facts)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestFetch_RetriesOnServerError(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status":1,"product":{"product_name":"Snack","ingredients_text":"oats"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	facts, err := client.Fetch(context.Background(), "123")

	require.NoError(t, err)
	assert.Equal(t, "123", facts.ProductCode)
	assert.Equal(t, "oats", facts.IngredientsText)
	assert.Empty(t, facts.AdditiveTags)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestFetch_TooManyRequests_Retries(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"status":1,"product":{"ingredients_text":"water"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	facts, err := client.Fetch(context.Background(), "123")

	require.NoError(t, err)
	assert.Equal(t, "water", facts.IngredientsText)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestFetch_RetriesExhausted(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	facts, err := client.Fetch(context.Background(), "123")

	assert.Nil(t, facts)
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.Equal(t, domain.KindTransport, domain.KindOf(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestFetch_ClientError_NoRetry(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	facts, err := client.Fetch(context.Background(), "bad")

	assert.Nil(t, facts)
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestFetch_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	facts, err := client.Fetch(context.Background(), "123")

	assert.Nil(t, facts)
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestFetch_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	facts, err := client.Fetch(ctx, "123")

	assert.Nil(t, facts)
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
}

func TestFetch_EscapesCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/product/a%2Fb", r.URL.RawPath)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Fetch(context.Background(), "a/b")

	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}
