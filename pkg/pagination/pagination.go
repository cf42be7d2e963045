package pagination

import (
	"fmt"
	"net/http"
	"strconv"

	apperrors "github.com/DeyanBora/ElasticSearch.API/pkg/errors"
)

// Paging bounds. Size zero is legal and yields an empty page with a total.
// MaxResultWindow caps offset+size, matching the store's default
// index.max_result_window.
const (
	DefaultPage     = 1
	DefaultSize     = 10
	MaxSize         = 100
	MaxResultWindow = 10000
)

// Params holds validated paging parameters.
type Params struct {
	Page   int `json:"page"`
	Size   int `json:"size"`
	Offset int `json:"-"`
}

// DefaultParams returns the paging used when the client sends none.
func DefaultParams() Params {
	return Params{Page: DefaultPage, Size: DefaultSize}
}

// New validates page and size and computes the offset. Out-of-range values
// are rejected rather than clamped.
func New(page, size int) (Params, error) {
	if page < 1 {
		return Params{}, apperrors.InvalidPagingParameter(fmt.Sprintf("page must be >= 1, got %d", page))
	}
	if size < 0 {
		return Params{}, apperrors.InvalidPagingParameter(fmt.Sprintf("size must be >= 0, got %d", size))
	}
	if size > MaxSize {
		return Params{}, apperrors.InvalidPagingParameter(fmt.Sprintf("size must be <= %d, got %d", MaxSize, size))
	}
	// Checked by division so that (page-1)*size cannot overflow.
	if size > 0 && page-1 > (MaxResultWindow-size)/size {
		return Params{}, apperrors.InvalidPagingParameter(fmt.Sprintf(
			"page %d with size %d is past the last reachable result (%d)", page, size, MaxResultWindow))
	}
	return Params{Page: page, Size: size, Offset: (page - 1) * size}, nil
}

// FromRequest reads the page and size query parameters, applying defaults
// for absent values.
func FromRequest(r *http.Request) (Params, error) {
	q := r.URL.Query()

	page, err := intParam(q.Get("page"), "page", DefaultPage)
	if err != nil {
		return Params{}, err
	}
	size, err := intParam(q.Get("size"), "size", DefaultSize)
	if err != nil {
		return Params{}, err
	}
	return New(page, size)
}

func intParam(raw, name string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidPagingParameter(fmt.Sprintf("%s must be an integer, got %q", name, raw))
	}
	return v, nil
}

// Result wraps one page of items with navigation metadata.
type Result[T any] struct {
	Items      []T  `json:"items"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	Size       int  `json:"size"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult builds a Result. A zero size reports zero pages.
func NewResult[T any](items []T, totalCount int, params Params) Result[T] {
	if items == nil {
		items = []T{}
	}

	totalPages := 0
	if params.Size > 0 {
		totalPages = totalCount / params.Size
		if totalCount%params.Size > 0 {
			totalPages++
		}
	}

	return Result[T]{
		Items:      items,
		TotalCount: totalCount,
		Page:       params.Page,
		Size:       params.Size,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}
