package firebase

import (
	"context"
	"strings"

	"firebase.google.com/go/v4/auth"

	"fuddly/internal/domain/entity"
	"fuddly/pkg/errors"
)

// idTokenClient is the part of *auth.Client this package depends on.
type idTokenClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
}

type FirebaseAuthClient struct {
	client idTokenClient
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// Validate verifies a Firebase ID token and returns its uid.
func (f *FirebaseAuthClient) Validate(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.Unauthorized("Authentication token required", nil)
	}

	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", errors.Unauthorized("Invalid or expired token", err)
	}
	if result.UID == "" {
		return "", errors.Unauthorized("Invalid or expired token", nil)
	}

	return result.UID, nil
}

// GetByID resolves a user profile from the Firebase user record.
func (f *FirebaseAuthClient) GetByID(ctx context.Context, id string) (*entity.User, error) {
	record, err := f.client.GetUser(ctx, id)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.Internal("Failed to get user", err)
	}

	user := &entity.User{
		ID:     id,
		Status: entity.UserStatusActive,
	}
	if record.UserInfo != nil {
		user.Name = record.DisplayName
		user.Avatar = record.PhotoURL
	}
	switch {
	case record.Disabled:
		user.Status = entity.UserStatusBlocked
	case !record.EmailVerified:
		user.Status = entity.UserStatusPendingVerification
	}

	return user, nil
}
