package constants

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	QueryParamPage   = "page"
	QueryParamLimit  = "limit"
	QueryParamOffset = "offset"
)

const (
	DefaultPage  = "1"
	DefaultLimit = "50"
)

const (
	MinPage  = 1
	MinLimit = 1
	MaxLimit = 200
)

type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// ParsePaginationParams clamps limit into [MinLimit, MaxLimit]. An explicit
// ?offset wins over ?page.
func ParsePaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery(QueryParamPage, DefaultPage))
	limit, _ := strconv.Atoi(c.DefaultQuery(QueryParamLimit, DefaultLimit))

	if page < MinPage {
		page = MinPage
	}
	limit = min(max(limit, MinLimit), MaxLimit)

	offset := (page - 1) * limit
	if raw, ok := c.GetQuery(QueryParamOffset); ok {
		offset, _ = strconv.Atoi(raw)
		offset = max(offset, 0)
		page = offset/limit + 1
	}

	return PaginationParams{Page: page, Limit: limit, Offset: offset}
}
