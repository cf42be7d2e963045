package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/DeyanBora/ElasticSearch.API/internal/domain"
	"github.com/DeyanBora/ElasticSearch.API/internal/engine"
	"github.com/DeyanBora/ElasticSearch.API/internal/query"
	apperrors "github.com/DeyanBora/ElasticSearch.API/pkg/errors"
	"github.com/DeyanBora/ElasticSearch.API/pkg/tracing"
)

const (
	resource   = "product"
	tracerName = "github.com/DeyanBora/ElasticSearch.API/internal/engine/elasticsearch"
)

// Config holds the connection settings for the cluster.
type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
	// Refresh is passed to every write: "true", "false" or "wait_for".
	Refresh string
}

// Engine is the Elasticsearch-backed DocumentStore.
type Engine struct {
	client  *elasticsearch.Client
	index   string
	refresh string
	logger  *slog.Logger
}

var _ engine.DocumentStore = (*Engine)(nil)

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

type esGetResponse struct {
	ID     string                 `json:"_id"`
	Found  bool                   `json:"found"`
	Source domain.ProductDocument `json:"_source"`
}

type esSearchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string                 `json:"_id"`
			Source domain.ProductDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// New connects to the cluster and makes sure the index exists, creating it
// with the product mapping when it does not. It returns only once the index
// is usable.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Engine, error) {
	if cfg.Index == "" {
		cfg.Index = DefaultIndexName
	}
	if cfg.Refresh == "" {
		cfg.Refresh = "wait_for"
	}

	// Store calls are never retried; the breaker decides what happens to a
	// failing cluster.
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	e := &Engine{
		client:  client,
		index:   cfg.Index,
		refresh: cfg.Refresh,
		logger:  logger,
	}
	if err := e.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("elasticsearch: ensure index %q: %w", cfg.Index, err)
	}
	return e, nil
}

// Index returns the name of the index the engine writes to.
func (e *Engine) Index() string {
	return e.index
}

func (e *Engine) ensureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	_ = res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		e.logger.Info("elasticsearch index already exists", slog.String("index", e.index))
		return nil
	case http.StatusNotFound:
	default:
		return apperrors.StoreUnavailable(fmt.Errorf("index exists check: unexpected status %s", res.Status()))
	}

	res, err = e.client.Indices.Create(
		e.index,
		e.client.Indices.Create.WithBody(strings.NewReader(indexMapping())),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		esErr := decodeError(res)
		// Another instance may have created it between the two calls.
		if esErr.Error.Type == "resource_already_exists_exception" {
			return nil
		}
		return responseError("create index", res.StatusCode, esErr)
	}

	e.logger.Info("elasticsearch index created", slog.String("index", e.index))
	return nil
}

func (e *Engine) Create(ctx context.Context, doc *domain.ProductDocument) (id string, err error) {
	ctx, span := e.startSpan(ctx, "create", attribute.String("db.elasticsearch.doc_id", doc.ID))
	defer func() { endSpan(span, err) }()

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("elasticsearch create: marshal document: %w", err)
	}

	res, err := e.client.Create(e.index, doc.ID, bytes.NewReader(body),
		e.client.Create.WithRefresh(e.refresh),
		e.client.Create.WithContext(ctx),
	)
	if err != nil {
		return "", transportError(ctx, "create", err)
	}
	defer func() { _ = res.Body.Close() }()

	switch {
	case res.StatusCode == http.StatusConflict:
		return "", apperrors.AlreadyExists(resource, doc.ID)
	case res.IsError():
		return "", responseError("create", res.StatusCode, decodeError(res))
	}

	e.logger.DebugContext(ctx, "indexed product", slog.String("id", doc.ID), slog.String("title", doc.Title))
	return doc.ID, nil
}

func (e *Engine) Update(ctx context.Context, id string, doc *domain.ProductDocument) (err error) {
	ctx, span := e.startSpan(ctx, "update", attribute.String("db.elasticsearch.doc_id", id))
	defer func() { endSpan(span, err) }()

	updated := *doc
	updated.ID = id
	body, err := json.Marshal(map[string]any{"doc": updated})
	if err != nil {
		return fmt.Errorf("elasticsearch update: marshal document: %w", err)
	}

	res, err := e.client.Update(e.index, id, bytes.NewReader(body),
		e.client.Update.WithRefresh(e.refresh),
		e.client.Update.WithContext(ctx),
	)
	if err != nil {
		return transportError(ctx, "update", err)
	}
	defer func() { _ = res.Body.Close() }()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(resource, id)
	case res.IsError():
		return responseError("update", res.StatusCode, decodeError(res))
	}
	return nil
}

func (e *Engine) Delete(ctx context.Context, id string) (err error) {
	ctx, span := e.startSpan(ctx, "delete", attribute.String("db.elasticsearch.doc_id", id))
	defer func() { endSpan(span, err) }()

	res, err := e.client.Delete(e.index, id,
		e.client.Delete.WithRefresh(e.refresh),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return transportError(ctx, "delete", err)
	}
	defer func() { _ = res.Body.Close() }()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(resource, id)
	case res.IsError():
		return responseError("delete", res.StatusCode, decodeError(res))
	}

	e.logger.DebugContext(ctx, "deleted product", slog.String("id", id))
	return nil
}

func (e *Engine) Get(ctx context.Context, id string) (doc *domain.ProductDocument, err error) {
	ctx, span := e.startSpan(ctx, "get", attribute.String("db.elasticsearch.doc_id", id))
	defer func() { endSpan(span, err) }()

	res, err := e.client.Get(e.index, id, e.client.Get.WithContext(ctx))
	if err != nil {
		return nil, transportError(ctx, "get", err)
	}
	defer func() { _ = res.Body.Close() }()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, apperrors.NotFound(resource, id)
	case res.IsError():
		return nil, responseError("get", res.StatusCode, decodeError(res))
	}

	var got esGetResponse
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		return nil, fmt.Errorf("elasticsearch get: decode response: %w", err)
	}
	if !got.Found {
		return nil, apperrors.NotFound(resource, id)
	}
	got.Source.ID = got.ID
	return &got.Source, nil
}

func (e *Engine) Search(ctx context.Context, req *query.Request) (result *engine.SearchResult, err error) {
	ctx, span := e.startSpan(ctx, "search",
		attribute.Int("db.elasticsearch.from", req.From),
		attribute.Int("db.elasticsearch.size", req.Size),
	)
	defer func() { endSpan(span, err) }()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(body)),
		e.client.Search.WithTrackTotalHits(true),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, transportError(ctx, "search", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError("search", res.StatusCode, decodeError(res))
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	docs := make([]domain.ProductDocument, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		doc := hit.Source
		doc.ID = hit.ID
		docs = append(docs, doc)
	}

	return &engine.SearchResult{
		Documents: docs,
		Total:     esResp.Hits.Total.Value,
		TookMs:    esResp.Took,
	}, nil
}

// BulkIndex sends docs as one NDJSON bulk request of index actions, so
// existing documents with the same id are overwritten.
func (e *Engine) BulkIndex(ctx context.Context, docs []domain.ProductDocument) (result *engine.BulkResult, err error) {
	if len(docs) == 0 {
		return &engine.BulkResult{}, nil
	}

	ctx, span := e.startSpan(ctx, "bulk", attribute.Int("db.elasticsearch.documents", len(docs)))
	defer func() { endSpan(span, err) }()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range docs {
		action := map[string]any{"index": map[string]any{"_index": e.index, "_id": docs[i].ID}}
		if err := enc.Encode(action); err != nil {
			return nil, fmt.Errorf("elasticsearch bulk: encode action: %w", err)
		}
		if err := enc.Encode(docs[i]); err != nil {
			return nil, fmt.Errorf("elasticsearch bulk: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(e.index),
		e.client.Bulk.WithRefresh(e.refresh),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return nil, transportError(ctx, "bulk", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError("bulk", res.StatusCode, decodeError(res))
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return nil, fmt.Errorf("elasticsearch bulk: decode response: %w", err)
	}

	var failed []engine.BulkItemError
	if bulkResp.Errors {
		for _, item := range bulkResp.Items {
			for _, op := range item {
				if op.Error == nil {
					continue
				}
				failed = append(failed, engine.BulkItemError{
					ID:     op.ID,
					Status: op.Status,
					Reason: op.Error.Type + ": " + op.Error.Reason,
				})
			}
		}
	}

	result, err = engine.NewBulkResult(len(docs), failed)
	e.logger.InfoContext(ctx, "bulk indexed products",
		slog.Int("count", result.Indexed),
		slog.Int("failed", len(failed)),
	)
	return result, err
}

func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return transportError(ctx, "ping", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return apperrors.StoreUnavailable(fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status()))
	}
	return nil
}

// DeleteIndex drops the whole index. A missing index is not an error.
func (e *Engine) DeleteIndex(ctx context.Context) error {
	res, err := e.client.Indices.Delete([]string{e.index}, e.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return transportError(ctx, "delete index", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete index", res.StatusCode, decodeError(res))
	}

	e.logger.Info("elasticsearch index deleted", slog.String("index", e.index))
	return nil
}

func (e *Engine) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("db.system", "elasticsearch"),
		attribute.String("db.operation", op),
		attribute.String("db.elasticsearch.index", e.index),
	)
	return tracing.StartSpan(ctx, tracerName, "elasticsearch."+op, attrs...)
}

func endSpan(span trace.Span, err error) {
	tracing.RecordError(span, err)
	span.End()
}

func decodeError(res *esapi.Response) esErrorResponse {
	var esErr esErrorResponse
	body, _ := io.ReadAll(res.Body)
	if err := json.Unmarshal(body, &esErr); err != nil || esErr.Error.Type == "" {
		esErr.Error.Type = http.StatusText(res.StatusCode)
		esErr.Error.Reason = strings.TrimSpace(string(body))
	}
	return esErr
}

// responseError classifies an error response: 4xx means the request was
// rejected, anything else means the store is unhealthy.
func responseError(op string, status int, esErr esErrorResponse) error {
	err := fmt.Errorf("elasticsearch %s: %d %s: %s", op, status, esErr.Error.Type, esErr.Error.Reason)
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError && status != http.StatusTooManyRequests {
		return apperrors.InvalidInput(fmt.Sprintf("%s rejected by document store: %s", op, esErr.Error.Reason))
	}
	return apperrors.StoreUnavailable(err)
}

// transportError wraps a failure to reach the cluster. A cancelled caller is
// reported as-is so it does not count as an outage.
func transportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return fmt.Errorf("elasticsearch %s: %w", op, err)
	}
	return apperrors.StoreUnavailable(fmt.Errorf("elasticsearch %s: %w", op, err))
}
