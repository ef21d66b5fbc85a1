package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdw/salesdw/internal/fileutil"
	"github.com/salesdw/salesdw/internal/raw"
)

var storePayloads = map[string]string{
	"/products/categories": `["electronics","jewelery"]`,
	"/products": `[{"id":1,"title":"Backpack","price":109.95,"description":"d","category":"electronics",` +
		`"image":"i","rating":{"rate":3.9,"count":120}}]`,
	"/users": `[{"id":1,"email":"john@gmail.com","username":"johnd","phone":"1-570-236-7033",` +
		`"name":{"firstname":"john","lastname":"doe"},` +
		`"address":{"street":"new road","number":7682,"city":"kilcoole","zipcode":"12926-3874",` +
		`"geolocation":{"lat":"-37.3159","long":"81.1496"}}}]`,
	"/carts": `[{"id":1,"userId":1,"date":"2020-03-02T00:00:00.000Z","products":[{"productId":1,"quantity":4}]}]`,
}

func newStoreServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			body, ok := storePayloads[r.URL.Path]
			if !ok {
				http.NotFound(w, r)

				return
			}

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}
	}

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()

	opts = append([]Option{WithRateLimit(1000, 10), WithRetry(3, time.Millisecond)}, opts...)

	client, err := NewClient(baseURL, opts...)
	require.NoError(t, err)

	return client
}

func TestNewClientRejectsInvalidBaseURL(t *testing.T) {
	for _, baseURL := range []string{"", "fakestoreapi.com", "ftp://fakestoreapi.com", "http://"} {
		_, err := NewClient(baseURL)
		require.ErrorIs(t, err, ErrInvalidBaseURL, baseURL)
	}
}

func TestIngestWritesPrettyJSON(t *testing.T) {
	server := newStoreServer(t, nil)
	dir := filepath.Join(t.TempDir(), "raw")

	results, err := newTestClient(t, server.URL).Ingest(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, Result{
		Collection: raw.CategoriesCollection,
		Path:       raw.Path(dir, raw.CategoriesCollection),
		Records:    2,
	}, results[0])

	categories, err := os.ReadFile(raw.Path(dir, raw.CategoriesCollection))
	require.NoError(t, err)
	assert.Equal(t, "[\n    \"electronics\",\n    \"jewelery\"\n]\n", string(categories))

	// The persisted snapshot is readable by the raw loader.
	collections, err := raw.LoadCollections(dir)
	require.NoError(t, err)
	assert.Len(t, collections.Products, 1)
	assert.Len(t, collections.Users, 1)
	assert.Len(t, collections.Carts, 1)
}

func TestIngestUsesOutputFilePermissions(t *testing.T) {
	server := newStoreServer(t, nil)
	dir := t.TempDir()

	results, err := newTestClient(t, server.URL).Ingest(context.Background(), dir)
	require.NoError(t, err)

	for _, result := range results {
		info, err := os.Stat(result.Path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(fileutil.FilePermissions), info.Mode().Perm(), result.Collection)
	}
}

func TestFetchStopsWaitingWhenContextEnds(t *testing.T) {
	var calls atomic.Int32

	server := newStoreServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, server.URL, WithRetry(5, time.Hour)).Fetch(ctx, "carts")

	require.ErrorIs(t, err, ErrFetchFailed)
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), calls.Load())
}

func TestIngestWithBaseURLPath(t *testing.T) {
	server := newStoreServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/products/categories" {
			http.NotFound(w, r)

			return
		}

		_, _ = w.Write([]byte(`[]`))
	})

	body, err := newTestClient(t, server.URL+"/api/v1/").Fetch(context.Background(), "products/categories")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	server := newStoreServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		_, _ = w.Write([]byte(`["electronics"]`))
	})

	body, err := newTestClient(t, server.URL).Fetch(context.Background(), "products/categories")
	require.NoError(t, err)
	assert.JSONEq(t, `["electronics"]`, string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32

	server := newStoreServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := newTestClient(t, server.URL).Fetch(context.Background(), "users")

	require.ErrorIs(t, err, ErrFetchFailed)
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "users")
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32

	server := newStoreServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := newTestClient(t, server.URL, WithRetry(2, time.Millisecond)).Fetch(context.Background(), "carts")

	require.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchTimesOut(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	server := newStoreServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	_, err := newTestClient(t, server.URL, WithTimeout(20*time.Millisecond), WithRetry(1, 0)).
		Fetch(context.Background(), "products")

	require.ErrorIs(t, err, ErrFetchFailed)
}

func TestIngestWritesNothingOnInvalidPayload(t *testing.T) {
	server := newStoreServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users" {
			_, _ = w.Write([]byte(`{"message": "not a list"}`))

			return
		}

		_, _ = w.Write([]byte(storePayloads[r.URL.Path]))
	})

	dir := t.TempDir()

	_, err := newTestClient(t, server.URL).Ingest(context.Background(), dir)

	require.ErrorIs(t, err, ErrUnexpectedShape)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidator(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name       string
		collection string
		payload    string
		records    int
		expectErr  error
	}{
		{name: "categories", collection: raw.CategoriesCollection, payload: `["a","b","c"]`, records: 3},
		{name: "empty list", collection: raw.CartsCollection, payload: `[]`, records: 0},
		{name: "empty body", collection: raw.UsersCollection, payload: "  ", expectErr: ErrEmptyPayload},
		{name: "truncated", collection: raw.ProductsCollection, payload: `[{"id":1`, expectErr: ErrInvalidJSON},
		{name: "object", collection: raw.ProductsCollection, payload: `{"id":1}`, expectErr: ErrUnexpectedShape},
		{name: "numeric category", collection: raw.CategoriesCollection, payload: `[1]`, expectErr: ErrUnexpectedShape},
		{name: "unknown", collection: "orders", payload: `[]`, expectErr: ErrUnknownCollection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := v.Validate(tt.collection, []byte(tt.payload))

			if tt.expectErr != nil {
				require.ErrorIs(t, err, tt.expectErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.records, records)
		})
	}
}
