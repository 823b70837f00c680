package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"fuddly/internal/domain/service"
	"fuddly/pkg/errors"
	"fuddly/pkg/response"
)

const UserIDKey = "uid"

type AuthMiddleware struct {
	validator service.TokenValidator
}

func NewAuthMiddleware(validator service.TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		token, ok := BearerToken(authHeader)
		if !ok {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}

		uid, err := m.validator.Validate(c.Request().Context(), token)
		if err != nil {
			return response.Error(c, err)
		}

		c.Set(UserIDKey, uid)
		return next(c)
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// UserID returns the authenticated user set by Authenticate.
func UserID(c echo.Context) string {
	uid, _ := c.Get(UserIDKey).(string)
	return uid
}
