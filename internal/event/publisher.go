package event

import (
	"context"
	"fmt"

	"github.com/DeyanBora/ElasticSearch.API/internal/domain"
	"github.com/DeyanBora/ElasticSearch.API/pkg/kafka"
	"github.com/DeyanBora/ElasticSearch.API/pkg/logger"
)

// Topics written after the index changes.
var (
	TopicSearchIndexed = kafka.Topic("search", "indexed")
	TopicSearchRemoved = kafka.Topic("search", "removed")
)

// AggregateTypeProduct is the aggregate type of every catalog event.
const AggregateTypeProduct = "product"

// Source identifies events emitted by this service.
const Source = "catalog-search"

// IndexedData is the payload of a search.indexed event.
type IndexedData struct {
	ID        string `json:"id"`
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
}

// RemovedData is the payload of a search.removed event.
type RemovedData struct {
	ID string `json:"id"`
}

type eventWriter interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// Publisher emits index change notifications.
type Publisher struct {
	producer eventWriter
}

// NewPublisher creates a publisher writing through producer, normally a
// *kafka.Producer.
func NewPublisher(producer eventWriter) *Publisher {
	return &Publisher{producer: producer}
}

// PublishIndexed announces that doc is searchable.
func (p *Publisher) PublishIndexed(ctx context.Context, doc *domain.ProductDocument) error {
	return p.publish(ctx, TopicSearchIndexed, doc.ID, IndexedData{
		ID:        doc.ID,
		ProductID: doc.ProductID,
		Title:     doc.Title,
		Slug:      doc.Slug,
	})
}

// PublishRemoved announces that the document with id left the index.
func (p *Publisher) PublishRemoved(ctx context.Context, id string) error {
	return p.publish(ctx, TopicSearchRemoved, id, RemovedData{ID: id})
}

func (p *Publisher) publish(ctx context.Context, topic, id string, data any) error {
	evt, err := kafka.NewEvent(topic, id, AggregateTypeProduct, Source, data)
	if err != nil {
		return fmt.Errorf("build %s event: %w", topic, err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}
	return p.producer.Publish(ctx, topic, evt)
}
