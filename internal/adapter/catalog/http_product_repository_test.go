package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuddly/pkg/errors"
)

func TestHTTPProductRepository_GetByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/products/lamp":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"lamp","title":"Vintage lamp","images":["a.jpg","b.jpg"],"seller_id":"seller-1","price":12}`))
		case "/api/products/hidden":
			w.WriteHeader(http.StatusForbidden)
		case "/api/products/broken":
			w.WriteHeader(http.StatusBadGateway)
		case "/api/products/garbled":
			_, _ = w.Write([]byte(`{`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	repo := NewHTTPProductRepository(server.URL+"/api", server.Client())

	product, err := repo.GetByID(context.Background(), "lamp")
	require.NoError(t, err)
	assert.Equal(t, "Vintage lamp", product.Title)
	assert.Equal(t, "seller-1", product.SellerID)
	assert.Equal(t, "a.jpg", product.Summary().Image)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	_, err = repo.GetByID(context.Background(), "hidden")
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	_, err = repo.GetByID(context.Background(), "broken")
	assert.True(t, errors.Is(err, errors.CodeInternal))

	_, err = repo.GetByID(context.Background(), "garbled")
	assert.True(t, errors.Is(err, errors.CodeInternal))
}
