package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DeyanBora/ElasticSearch.API/internal/domain"
	"github.com/DeyanBora/ElasticSearch.API/pkg/kafka"
	apperrors "github.com/DeyanBora/ElasticSearch.API/pkg/errors"
)

// Change-feed topics consumed from the catalogue.
var (
	TopicProductUpserted = kafka.Topic("product", "upserted")
	TopicProductDeleted  = kafka.Topic("product", "deleted")
)

// ReferenceData is a category, brand or manufacturer inside a change event.
type ReferenceData struct {
	ID          *int64     `json:"id,omitempty"`
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Slug        *string    `json:"slug,omitempty"`
	IsDeleted   *bool      `json:"is_deleted,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// ProductData is the payload of a product.upserted event. Absent fields keep
// their indexed value.
type ProductData struct {
	ID           string         `json:"id"`
	ProductID    *int64         `json:"product_id,omitempty"`
	Title        *string        `json:"title,omitempty"`
	Description  *string        `json:"description,omitempty"`
	Code         *string        `json:"code,omitempty"`
	Slug         *string        `json:"slug,omitempty"`
	Image        *string        `json:"image,omitempty"`
	Price        *int64         `json:"price,omitempty"`
	Stock        *int           `json:"stock,omitempty"`
	Category     *ReferenceData `json:"category,omitempty"`
	Brand        *ReferenceData `json:"brand,omitempty"`
	Manufacturer *ReferenceData `json:"manufacturer,omitempty"`
}

// Fields converts the payload to document inputs.
func (d ProductData) Fields() domain.ProductFields {
	id := d.ID
	return domain.ProductFields{
		ID:           &id,
		ProductID:    d.ProductID,
		Title:        d.Title,
		Description:  d.Description,
		Code:         d.Code,
		Slug:         d.Slug,
		Image:        d.Image,
		Price:        d.Price,
		Stock:        d.Stock,
		Category:     d.Category.fields(),
		Brand:        d.Brand.fields(),
		Manufacturer: d.Manufacturer.fields(),
	}
}

func (r *ReferenceData) fields() *domain.ReferenceFields {
	if r == nil {
		return nil
	}
	return &domain.ReferenceFields{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Slug:        r.Slug,
		IsDeleted:   r.IsDeleted,
		DeletedAt:   r.DeletedAt,
	}
}

// DeletedData is the payload of a product.deleted event.
type DeletedData struct {
	ID string `json:"id"`
}

// ProductIndexer is the part of the product service the consumer drives.
type ProductIndexer interface {
	UpsertProduct(ctx context.Context, fields domain.ProductFields) (*domain.ProductDocument, error)
	DeleteProduct(ctx context.Context, id string) error
}

// Consumer applies catalogue change events to the index.
type Consumer struct {
	indexer ProductIndexer
	logger  *slog.Logger
}

// NewConsumer creates a new change-feed consumer.
func NewConsumer(indexer ProductIndexer, logger *slog.Logger) *Consumer {
	return &Consumer{
		indexer: indexer,
		logger:  logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *kafka.Event) error {
	switch event.EventType {
	case TopicProductUpserted:
		return c.handleUpserted(ctx, event)
	case TopicProductDeleted:
		return c.handleDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleUpserted(ctx context.Context, event *kafka.Event) error {
	var data ProductData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal product.upserted data: %w", err)
	}
	if data.ID == "" {
		data.ID = event.AggregateID
	}

	doc, err := c.indexer.UpsertProduct(ctx, data.Fields())
	if err != nil {
		return fmt.Errorf("index product from upserted event: %w", err)
	}

	c.logger.InfoContext(ctx, "indexed product from upserted event",
		slog.String("id", doc.ID),
		slog.String("event_id", event.EventID),
	)
	return nil
}

func (c *Consumer) handleDeleted(ctx context.Context, event *kafka.Event) error {
	var data DeletedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal product.deleted data: %w", err)
	}
	if data.ID == "" {
		data.ID = event.AggregateID
	}

	err := c.indexer.DeleteProduct(ctx, data.ID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.logger.DebugContext(ctx, "product already absent from index",
			slog.String("id", data.ID),
		)
		return nil
	case err != nil:
		return fmt.Errorf("delete product from deleted event: %w", err)
	}

	c.logger.InfoContext(ctx, "removed product from deleted event",
		slog.String("id", data.ID),
		slog.String("event_id", event.EventID),
	)
	return nil
}

// Topics lists the topics Handle understands.
func Topics() []string {
	return []string{TopicProductUpserted, TopicProductDeleted}
}
