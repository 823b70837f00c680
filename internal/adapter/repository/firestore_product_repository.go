package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fuddly/internal/domain/entity"
	"fuddly/internal/domain/repository"
	"fuddly/pkg/errors"
)

const productsCollection = "products"

type productImageDoc struct {
	URL          string `firestore:"url"`
	DisplayOrder int    `firestore:"displayOrder"`
}

// productDoc mirrors the marketplace listing document. Only the fields chat
// needs are decoded.
type productDoc struct {
	Title     string            `firestore:"title"`
	SellerID  string            `firestore:"sellerId"`
	Images    []productImageDoc `firestore:"images"`
	DeletedAt *time.Time        `firestore:"deletedAt,omitempty"`
}

type firestoreProductRepository struct {
	client *firestore.Client
}

// NewFirestoreProductRepository reads listings straight from the marketplace
// products collection. It serves PRODUCT_SOURCE=firestore deployments that
// share a project with the catalog.
func NewFirestoreProductRepository(client *firestore.Client) repository.ProductRepository {
	return &firestoreProductRepository{
		client: client,
	}
}

func (r *firestoreProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	doc, err := r.client.Collection(productsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Product", err)
		}
		return nil, errors.Internal("Failed to get product", err)
	}

	var data productDoc
	if err := doc.DataTo(&data); err != nil {
		return nil, errors.Internal("Failed to parse product data", err)
	}

	return productFromDoc(id, data)
}

func productFromDoc(id string, data productDoc) (*entity.Product, error) {
	if data.DeletedAt != nil {
		return nil, errors.NotFound("Product", nil)
	}

	images := append([]productImageDoc(nil), data.Images...)
	sort.SliceStable(images, func(i, j int) bool { return images[i].DisplayOrder < images[j].DisplayOrder })

	product := &entity.Product{
		ID:       id,
		Title:    data.Title,
		SellerID: data.SellerID,
		Images:   make([]string, 0, len(images)),
	}
	for _, img := range images {
		if img.URL != "" {
			product.Images = append(product.Images, img.URL)
		}
	}
	return product, nil
}
