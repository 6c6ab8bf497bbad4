package persistence

import (
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/maraline/backend/internal/domain/shared"
)

// orderByPattern restricts order columns to plain identifiers so filter input
// can never inject SQL
var orderByPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// applyPagination applies page, page size and ordering from a shared.Filter
func applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	orderBy := filter.OrderBy
	if !orderByPattern.MatchString(orderBy) {
		orderBy = "created_at"
	}
	orderDir := "DESC"
	if strings.EqualFold(filter.OrderDir, "asc") {
		orderDir = "ASC"
	}
	query = query.Order(orderBy + " " + orderDir)

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}
