package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeyanBora/ElasticSearch.API/internal/domain"
	"github.com/DeyanBora/ElasticSearch.API/internal/engine/memory"
	"github.com/DeyanBora/ElasticSearch.API/internal/service"
	"github.com/DeyanBora/ElasticSearch.API/pkg/kafka"
	"github.com/DeyanBora/ElasticSearch.API/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

type published struct {
	topic string
	event *kafka.Event
}

type fakeProducer struct {
	sent []published
	err  error
}

func (p *fakeProducer) Publish(_ context.Context, topic string, event *kafka.Event) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{topic: topic, event: event})
	return nil
}

func newEvent(t *testing.T, eventType, id string, data any) *kafka.Event {
	t.Helper()
	evt, err := kafka.NewEvent(eventType, id, AggregateTypeProduct, "catalog", data)
	require.NoError(t, err)
	return evt
}

func newConsumer() (*Consumer, *memory.Engine) {
	store := memory.New()
	svc := service.NewProductService(store, testLogger())
	return NewConsumer(svc, testLogger()), store
}

func TestConsumer_UpsertCreatesThenUpdates(t *testing.T) {
	consumer, store := newConsumer()
	ctx := context.Background()

	created := newEvent(t, TopicProductUpserted, "p-1", ProductData{
		ID:    "p-1",
		Title: ptr("Garden Hose"),
		Brand: &ReferenceData{Name: ptr("Aqua Flow")},
	})
	require.NoError(t, consumer.Handle(ctx, created))

	doc, err := store.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "garden-hose", doc.Slug)
	assert.Equal(t, "aqua-flow", doc.Brand.Slug)

	updated := newEvent(t, TopicProductUpserted, "p-1", ProductData{Stock: ptr(12)})
	require.NoError(t, consumer.Handle(ctx, updated))

	doc, err = store.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Garden Hose", doc.Title)
	assert.Equal(t, 12, doc.Stock)
	assert.Equal(t, 1, store.Len())
}

func TestConsumer_Delete(t *testing.T) {
	consumer, store := newConsumer()
	ctx := context.Background()

	require.NoError(t, consumer.Handle(ctx, newEvent(t, TopicProductUpserted, "p-2", ProductData{ID: "p-2"})))
	require.NoError(t, consumer.Handle(ctx, newEvent(t, TopicProductDeleted, "p-2", DeletedData{ID: "p-2"})))
	assert.Zero(t, store.Len())

	// Deleting again is not a failure.
	assert.NoError(t, consumer.Handle(ctx, newEvent(t, TopicProductDeleted, "p-2", DeletedData{})))
}

func TestConsumer_UnknownEventIsIgnored(t *testing.T) {
	consumer, _ := newConsumer()
	assert.NoError(t, consumer.Handle(context.Background(), newEvent(t, "catalog.order.placed", "o-1", struct{}{})))
}

func TestConsumer_BadPayload(t *testing.T) {
	consumer, _ := newConsumer()
	evt := newEvent(t, TopicProductUpserted, "p-3", nil)
	evt.Data = []byte(`{"title": 42}`)

	err := consumer.Handle(context.Background(), evt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal product.upserted data")
}

func TestConsumer_DuplicateEventsAppliedOnce(t *testing.T) {
	consumer, store := newConsumer()
	idem := kafka.NewMemoryIdempotencyStore(time.Hour)
	handler := kafka.IdempotentHandler(idem, consumer.Handle, testLogger())
	ctx := context.Background()

	evt := newEvent(t, TopicProductUpserted, "p-4", ProductData{ID: "p-4", Title: ptr("Rake")})
	require.NoError(t, handler(ctx, evt))

	require.NoError(t, store.Delete(ctx, "p-4"))
	require.NoError(t, handler(ctx, evt))

	assert.Zero(t, store.Len(), "replayed event must be skipped")
	assert.Equal(t, 1, idem.Len())
}

func TestPublisher_PublishIndexed(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewPublisher(producer)
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")

	doc := domain.NewProductDocument(domain.ProductFields{ID: ptr("p-5"), Title: ptr("Shovel")}, time.Now())
	require.NoError(t, pub.PublishIndexed(ctx, &doc))

	require.Len(t, producer.sent, 1)
	sent := producer.sent[0]
	assert.Equal(t, "catalog.search.indexed", sent.topic)
	assert.Equal(t, TopicSearchIndexed, sent.event.EventType)
	assert.Equal(t, "p-5", sent.event.AggregateID)
	assert.Equal(t, Source, sent.event.Source)
	assert.Equal(t, "corr-1", sent.event.CorrelationID)

	var data IndexedData
	require.NoError(t, sent.event.UnmarshalData(&data))
	assert.Equal(t, "shovel", data.Slug)
}

func TestPublisher_PublishRemoved(t *testing.T) {
	producer := &fakeProducer{}
	require.NoError(t, NewPublisher(producer).PublishRemoved(context.Background(), "p-6"))

	require.Len(t, producer.sent, 1)
	assert.Equal(t, "catalog.search.removed", producer.sent[0].topic)
	assert.Empty(t, producer.sent[0].event.CorrelationID)
}

func TestPublisher_Error(t *testing.T) {
	producer := &fakeProducer{err: errors.New("no brokers")}
	err := NewPublisher(producer).PublishRemoved(context.Background(), "p-7")
	assert.EqualError(t, err, "no brokers")
}
