package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DeyanBora/ElasticSearch.API/internal/domain"
	"github.com/DeyanBora/ElasticSearch.API/internal/engine"
	"github.com/DeyanBora/ElasticSearch.API/internal/query"
	apperrors "github.com/DeyanBora/ElasticSearch.API/pkg/errors"
)

// EventPublisher announces changes to the index. A failed publish never fails
// the operation that triggered it.
type EventPublisher interface {
	PublishIndexed(ctx context.Context, doc *domain.ProductDocument) error
	PublishRemoved(ctx context.Context, id string) error
}

// ProductService implements the product indexing and search operations on
// top of a DocumentStore.
type ProductService struct {
	store     engine.DocumentStore
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a ProductService.
type Option func(*ProductService)

// WithPublisher makes every mutation emit an index event.
func WithPublisher(p EventPublisher) Option {
	return func(s *ProductService) { s.publisher = p }
}

// WithClock overrides the time source used for document timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *ProductService) { s.now = now }
}

// NewProductService creates a new product service.
func NewProductService(store engine.DocumentStore, logger *slog.Logger, opts ...Option) *ProductService {
	s := &ProductService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProduct builds a document from fields and indexes it.
func (s *ProductService) CreateProduct(ctx context.Context, fields domain.ProductFields) (*domain.ProductDocument, error) {
	doc := domain.NewProductDocument(fields, s.now())

	if _, err := s.store.Create(ctx, &doc); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.publishIndexed(ctx, &doc)
	s.logger.InfoContext(ctx, "product created",
		slog.String("id", doc.ID),
		slog.String("slug", doc.Slug),
	)
	return &doc, nil
}

// UpdateProduct applies the present fields to the stored document with the
// given id. The document id itself cannot be changed.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, fields domain.ProductFields) (*domain.ProductDocument, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	fields.ID = nil
	doc.Apply(fields, s.now())

	if err := s.store.Update(ctx, id, doc); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.publishIndexed(ctx, doc)
	s.logger.InfoContext(ctx, "product updated",
		slog.String("id", id),
		slog.String("slug", doc.Slug),
	)
	return doc, nil
}

// UpsertProduct updates the document with fields.ID when it exists and
// creates it otherwise. It is used to replay change-feed events.
func (s *ProductService) UpsertProduct(ctx context.Context, fields domain.ProductFields) (*domain.ProductDocument, error) {
	if fields.ID == nil || *fields.ID == "" {
		return nil, apperrors.InvalidInput("product id is required for upsert")
	}

	doc, err := s.UpdateProduct(ctx, *fields.ID, fields)
	if !errors.Is(err, apperrors.ErrNotFound) {
		return doc, err
	}
	return s.CreateProduct(ctx, fields)
}

// DeleteProduct removes the document with the given id.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("product id is required")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishRemoved(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish search.removed event",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "product deleted", slog.String("id", id))
	return nil
}

// GetProduct returns the document with the given id.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.ProductDocument, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return doc, nil
}

// ListProducts returns one page of documents matching filter, ordered by
// title. An empty filter lists everything.
func (s *ProductService) ListProducts(ctx context.Context, filter string, page query.Page) (*engine.SearchResult, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}

	result, err := s.store.Search(ctx, query.Build(filter, page))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	s.logger.DebugContext(ctx, "products listed",
		slog.String("filter", filter),
		slog.Int("page", page.Number),
		slog.Int("size", page.Size),
		slog.Int("total", result.Total),
		slog.Int64("took_ms", result.TookMs),
	)
	return result, nil
}

// BulkAddProducts indexes one document per entry in a single store request.
// When only some documents are rejected the result is returned together with
// an error matching apperrors.ErrPartialBulkFailure.
func (s *ProductService) BulkAddProducts(ctx context.Context, items []domain.ProductFields) (*engine.BulkResult, error) {
	if len(items) == 0 {
		return nil, apperrors.InvalidInput("at least one product is required")
	}

	now := s.now()
	docs := make([]domain.ProductDocument, 0, len(items))
	for _, fields := range items {
		docs = append(docs, domain.NewProductDocument(fields, now))
	}

	result, err := s.store.BulkIndex(ctx, docs)
	if err != nil && (result == nil || !errors.Is(err, apperrors.ErrPartialBulkFailure)) {
		return nil, fmt.Errorf("bulk add products: %w", err)
	}

	failed := make(map[string]struct{}, len(result.Failed))
	for _, item := range result.Failed {
		failed[item.ID] = struct{}{}
	}
	for i := range docs {
		if _, ok := failed[docs[i].ID]; !ok {
			s.publishIndexed(ctx, &docs[i])
		}
	}

	s.logger.InfoContext(ctx, "bulk add completed",
		slog.Int("requested", len(docs)),
		slog.Int("indexed", result.Indexed),
		slog.Int("failed", len(result.Failed)),
	)

	if err != nil {
		return result, fmt.Errorf("bulk add products: %w", err)
	}
	return result, nil
}

func (s *ProductService) publishIndexed(ctx context.Context, doc *domain.ProductDocument) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishIndexed(ctx, doc); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish search.indexed event",
			slog.String("id", doc.ID),
			slog.String("error", err.Error()),
		)
	}
}
