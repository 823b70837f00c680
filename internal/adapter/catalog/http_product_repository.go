package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fuddly/internal/domain/entity"
	"fuddly/internal/domain/repository"
	"fuddly/pkg/errors"
	"fuddly/pkg/logger"
)

// httpProductRepository reads products from the listing API
// (GET {base}/products/{id}).
type httpProductRepository struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProductRepository(baseURL string, client *http.Client) repository.ProductRepository {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &httpProductRepository{
		baseURL: baseURL,
		client:  client,
	}
}

type productPayload struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Images   []string `json:"images"`
	SellerID string   `json:"seller_id"`
}

func (r *httpProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	endpoint := fmt.Sprintf("%s/products/%s", r.baseURL, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Internal("Failed to build product request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.Internal("Product catalog unavailable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Internal("Failed to read product response", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusForbidden:
		// unapproved listings are hidden from everyone but their seller
		return nil, errors.NotFound("Product", nil)
	case resp.StatusCode != http.StatusOK:
		logger.Warn("Product catalog returned %d for product %s: %s", resp.StatusCode, id, string(body))
		return nil, errors.Internal("Product catalog error", fmt.Errorf("status %d", resp.StatusCode))
	}

	var payload productPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Internal("Failed to parse product response", err)
	}
	if payload.ID == "" {
		payload.ID = id
	}

	return &entity.Product{
		ID:       payload.ID,
		Title:    payload.Title,
		Images:   payload.Images,
		SellerID: payload.SellerID,
	}, nil
}
