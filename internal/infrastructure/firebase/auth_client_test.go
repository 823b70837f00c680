package firebase

import (
	"context"
	"fmt"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuddly/internal/domain/entity"
	"fuddly/pkg/errors"
)

type fakeAuth struct {
	tokens map[string]string
	users  map[string]*auth.UserRecord
}

func (f *fakeAuth) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	uid, ok := f.tokens[idToken]
	if !ok {
		return nil, fmt.Errorf("id token has expired")
	}
	return &auth.Token{UID: uid}, nil
}

func (f *fakeAuth) GetUser(ctx context.Context, uid string) (*auth.UserRecord, error) {
	record, ok := f.users[uid]
	if !ok {
		return nil, fmt.Errorf("backend unavailable")
	}
	return record, nil
}

func newTestClient() *FirebaseAuthClient {
	return &FirebaseAuthClient{client: &fakeAuth{
		tokens: map[string]string{"valid": "uid-1", "blank": ""},
		users: map[string]*auth.UserRecord{
			"uid-1": {
				UserInfo:      &auth.UserInfo{UID: "uid-1", DisplayName: "Ada", PhotoURL: "https://img/ada.png"},
				EmailVerified: true,
			},
			"uid-2": {UserInfo: &auth.UserInfo{UID: "uid-2"}, Disabled: true},
			"uid-3": {UserInfo: &auth.UserInfo{UID: "uid-3"}},
		},
	}}
}

func TestValidate(t *testing.T) {
	client := newTestClient()

	uid, err := client.Validate(context.Background(), " valid ")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)

	for _, token := range []string{"", "   ", "expired", "blank"} {
		_, err := client.Validate(context.Background(), token)
		assert.True(t, errors.Is(err, errors.CodeUnauthorized), "token %q", token)
	}
}

func TestGetByID(t *testing.T) {
	client := newTestClient()

	user, err := client.GetByID(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "https://img/ada.png", user.Avatar)
	assert.Equal(t, entity.UserStatusActive, user.Status)

	user, err = client.GetByID(context.Background(), "uid-2")
	require.NoError(t, err)
	assert.Equal(t, entity.UserStatusBlocked, user.Status)

	user, err = client.GetByID(context.Background(), "uid-3")
	require.NoError(t, err)
	assert.Equal(t, entity.UserStatusPendingVerification, user.Status)

	_, err = client.GetByID(context.Background(), "uid-404")
	assert.True(t, errors.Is(err, errors.CodeInternal))
}
