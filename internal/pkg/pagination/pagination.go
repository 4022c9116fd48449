package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/motohub/core/internal/pkg/response"
	"gorm.io/gorm"
)

const (
	DefaultPage = 1
	DefaultSize = 10
	MaxSize     = 100
)

// Query holds parsed pagination parameters.
type Query struct {
	Page int
	Size int
}

// FromContext extracts and validates pagination params from the request.
// The page size is read from "limit", with "size" kept as an alias.
func FromContext(c *gin.Context) Query {
	page := parseIntOr(c.DefaultQuery("page", "1"), DefaultPage)

	size := DefaultSize
	if v := c.Query("limit"); v != "" {
		size = parseIntOr(v, DefaultSize)
	} else if v := c.Query("size"); v != "" {
		size = parseIntOr(v, DefaultSize)
	}

	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	return Query{Page: page, Size: size}
}

// Paginate applies limit/offset to a GORM query and returns the pagination metadata.
func Paginate[T any](db *gorm.DB, q Query, dest *[]T) (response.Pagination, error) {
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return response.Pagination{}, err
	}

	offset := (q.Page - 1) * q.Size
	if err := db.Offset(offset).Limit(q.Size).Find(dest).Error; err != nil {
		return response.Pagination{}, err
	}

	totalPage := int((total + int64(q.Size) - 1) / int64(q.Size))

	return response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	}, nil
}

// Meta builds pagination metadata from a total count, for stores where the
// query itself is not a GORM chain (e.g. MongoDB collections).
func Meta(q Query, total int64) response.Pagination {
	totalPage := int((total + int64(q.Size) - 1) / int64(q.Size))
	return response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	}
}

// Offset returns the number of records to skip for the current page.
func (q Query) Offset() int64 { return int64((q.Page - 1) * q.Size) }

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
