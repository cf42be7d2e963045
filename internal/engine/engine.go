package engine

import (
	"context"
	"fmt"

	"github.com/DeyanBora/ElasticSearch.API/internal/domain"
	"github.com/DeyanBora/ElasticSearch.API/internal/query"
	apperrors "github.com/DeyanBora/ElasticSearch.API/pkg/errors"
)

// DocumentStore indexes and searches product documents. Implementations map
// a missing document to apperrors.ErrNotFound and an existing id on create
// to apperrors.ErrAlreadyExists.
type DocumentStore interface {
	// Create indexes a new document and returns its id.
	Create(ctx context.Context, doc *domain.ProductDocument) (string, error)

	// Update replaces the stored fields of an existing document.
	Update(ctx context.Context, id string, doc *domain.ProductDocument) error

	Delete(ctx context.Context, id string) error

	Get(ctx context.Context, id string) (*domain.ProductDocument, error)

	// Search executes a request built by query.Build.
	Search(ctx context.Context, req *query.Request) (*SearchResult, error)

	// BulkIndex indexes docs in one round trip. When only some documents
	// fail, the returned error is a *BulkError and the result is still set.
	BulkIndex(ctx context.Context, docs []domain.ProductDocument) (*BulkResult, error)

	Ping(ctx context.Context) error
}

// SearchResult is one page of matching documents.
type SearchResult struct {
	Documents []domain.ProductDocument `json:"documents"`
	Total     int                      `json:"total"`
	TookMs    int64                    `json:"took_ms"`
}

// BulkResult summarises a bulk request.
type BulkResult struct {
	Indexed int             `json:"indexed"`
	Failed  []BulkItemError `json:"failed,omitempty"`
}

// BulkItemError describes one document the store refused.
type BulkItemError struct {
	ID     string `json:"id"`
	Status int    `json:"status"`
	Reason string `json:"reason"`
}

// BulkError reports a partially applied bulk request.
type BulkError struct {
	Result *BulkResult
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("bulk index: %d of %d documents failed",
		len(e.Result.Failed), e.Result.Indexed+len(e.Result.Failed))
}

func (e *BulkError) Unwrap() error {
	return apperrors.ErrPartialBulkFailure
}

// NewBulkResult builds the result for total documents of which failed were
// rejected, returning a *BulkError when failed is not empty.
func NewBulkResult(total int, failed []BulkItemError) (*BulkResult, error) {
	res := &BulkResult{Indexed: total - len(failed), Failed: failed}
	if len(failed) > 0 {
		return res, &BulkError{Result: res}
	}
	return res, nil
}
