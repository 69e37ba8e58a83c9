package shared

import "context"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter is the paging, ordering and free-text part of a listing query.
// OrderBy is checked against a per-table allow-list by the repository.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
}

// DefaultFilter is the first page, newest first.
func DefaultFilter() Filter {
	return Filter{Page: 1, PageSize: DefaultPageSize, OrderBy: "created_at", OrderDir: "desc"}
}

// Normalize clamps the page to >= 1 and the page size to [1, MaxPageSize];
// any direction other than "asc" becomes "desc".
func (f Filter) Normalize() Filter {
	f.Page = max(f.Page, 1)
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	f.PageSize = min(f.PageSize, MaxPageSize)
	if f.OrderDir != "asc" {
		f.OrderDir = "desc"
	}
	return f
}

func (f Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// Paginated is one page of a listing.
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	size := int64(pageSize)
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + size - 1) / size),
	}
}

// TxManager runs fn in one database transaction. Repositories called with
// the context handed to fn join it.
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
