package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 100
)

// LimitOffset is an offset-based page request.
type LimitOffset struct {
	Limit  int
	Offset int
}

// GetLimitOffset reads ?limit and ?offset. Missing or invalid values fall back
// to defaultLimit and 0; limit is clamped to maxLimit.
func GetLimitOffset(c echo.Context, defaultLimit, maxLimit int) LimitOffset {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	return LimitOffset{Limit: limit, Offset: offset}
}
