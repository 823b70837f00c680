package repository

import (
	"context"

	"fuddly/internal/domain/entity"
)

// ProductRepository reads listings from the external catalog.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
}
