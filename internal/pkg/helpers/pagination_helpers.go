package helpers

import (
	"github.com/helphive/servicehours/internal/app/models/dto"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultPage     = 1
)

// CalculateOffsetLimit turns a 1-based page and a requested size into an
// offset and a limit. Out of range sizes fall back to DefaultPageSize.
func CalculateOffsetLimit(page, size int) (offset, limit int) {
	limit = size
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	if page < DefaultPage {
		page = DefaultPage
	}
	return (page - 1) * limit, limit
}

// NewPaginationInfo describes one page of totalItems. An empty result still
// reports a single page; a page past the end is clamped to the last one.
func NewPaginationInfo(totalItems int, page, size int) dto.PaginationInfo {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < DefaultPage {
		page = DefaultPage
	}

	pages := (totalItems + size - 1) / size
	if pages == 0 && page == DefaultPage {
		pages = 1
	}
	if pages > 0 && page > pages {
		page = pages
	}

	return dto.PaginationInfo{
		CurrentPage: page,
		TotalPages:  pages,
		PageSize:    size,
		TotalItems:  totalItems,
	}
}

// Window returns items[offset:offset+limit], clipped to the slice. A limit
// of zero or less means no upper bound.
func Window[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
