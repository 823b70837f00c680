package repository

import (
	"context"

	"fuddly/internal/domain/entity"
)

// UserRepository resolves user profiles from the identity provider.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}
