package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fuddly/internal/domain/entity"
	"fuddly/internal/domain/repository"
	"fuddly/pkg/errors"
)

const usersCollection = "users"

// userDoc is the subset of the marketplace profile document chat lists need.
type userDoc struct {
	Username  string `firestore:"username"`
	FullName  string `firestore:"fullName,omitempty"`
	AvatarURL string `firestore:"avatarURL,omitempty"`
	PhotoURL  string `firestore:"photoURL,omitempty"`
	Status    string `firestore:"status"`
}

type firestoreUserRepository struct {
	client   *firestore.Client
	fallback repository.UserRepository
}

// NewFirestoreUserRepository reads profiles from the users collection. Users
// without a profile document are resolved through fallback when it is set.
func NewFirestoreUserRepository(client *firestore.Client, fallback repository.UserRepository) repository.UserRepository {
	return &firestoreUserRepository{
		client:   client,
		fallback: fallback,
	}
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			if r.fallback != nil {
				return r.fallback.GetByID(ctx, id)
			}
			return nil, errors.NotFound("User", nil)
		}
		return nil, errors.Internal("Failed to get user", err)
	}

	var data userDoc
	if err := doc.DataTo(&data); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}

	return profileFromDoc(id, data), nil
}

func profileFromDoc(id string, data userDoc) *entity.User {
	user := &entity.User{
		ID:     id,
		Name:   data.Username,
		Avatar: data.AvatarURL,
		Status: entity.UserStatus(data.Status),
	}
	if user.Name == "" {
		user.Name = data.FullName
	}
	if user.Avatar == "" {
		user.Avatar = data.PhotoURL
	}
	if user.Status == "" {
		user.Status = entity.UserStatusActive
	}
	return user
}
