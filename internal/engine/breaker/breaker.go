// Package breaker guards a DocumentStore with a circuit breaker so that an
// unreachable store fails fast instead of tying up request goroutines.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	"github.com/DeyanBora/ElasticSearch.API/internal/domain"
	"github.com/DeyanBora/ElasticSearch.API/internal/engine"
	"github.com/DeyanBora/ElasticSearch.API/internal/query"
	apperrors "github.com/DeyanBora/ElasticSearch.API/pkg/errors"
)

var breakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "document_store_circuit_breaker_state",
		Help: "Current state of the document store circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

// Config holds circuit breaker settings.
type Config struct {
	Name string
	// MaxRequests is the number of trial calls let through while half-open.
	MaxRequests uint32
	// Interval clears the failure counts while closed; 0 never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open before half-opening.
	Timeout time.Duration
	// FailureRatio trips the breaker once MinRequests calls have been seen.
	FailureRatio float64
	MinRequests  uint32
}

func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// Store is a DocumentStore decorator. Calls are never retried. Only
// infrastructure failures count against the breaker; not-found, conflicts,
// invalid input and partial bulk failures are answers from a healthy store.
type Store struct {
	inner   engine.DocumentStore
	breaker *gobreaker.CircuitBreaker[any]
}

var _ engine.DocumentStore = (*Store)(nil)

func New(inner engine.DocumentStore, cfg Config, logger *slog.Logger) *Store {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
		IsSuccessful: isHealthyAnswer,
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
	}

	breakerState.WithLabelValues(cfg.Name).Set(stateValue(gobreaker.StateClosed))

	return &Store{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

// State returns the current breaker state.
func (s *Store) State() gobreaker.State {
	return s.breaker.State()
}

func (s *Store) Create(ctx context.Context, doc *domain.ProductDocument) (string, error) {
	v, err := s.breaker.Execute(func() (any, error) {
		return s.inner.Create(ctx, doc)
	})
	if err != nil {
		return "", translate(err)
	}
	return v.(string), nil
}

func (s *Store) Update(ctx context.Context, id string, doc *domain.ProductDocument) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.inner.Update(ctx, id, doc)
	})
	return translate(err)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.inner.Delete(ctx, id)
	})
	return translate(err)
}

func (s *Store) Get(ctx context.Context, id string) (*domain.ProductDocument, error) {
	v, err := s.breaker.Execute(func() (any, error) {
		return s.inner.Get(ctx, id)
	})
	if err != nil {
		return nil, translate(err)
	}
	return v.(*domain.ProductDocument), nil
}

func (s *Store) Search(ctx context.Context, req *query.Request) (*engine.SearchResult, error) {
	v, err := s.breaker.Execute(func() (any, error) {
		return s.inner.Search(ctx, req)
	})
	if err != nil {
		return nil, translate(err)
	}
	return v.(*engine.SearchResult), nil
}

// BulkIndex keeps the partial result alongside a *engine.BulkError.
func (s *Store) BulkIndex(ctx context.Context, docs []domain.ProductDocument) (*engine.BulkResult, error) {
	var res *engine.BulkResult
	_, err := s.breaker.Execute(func() (any, error) {
		var err error
		res, err = s.inner.BulkIndex(ctx, docs)
		return nil, err
	})
	if err != nil {
		return res, translate(err)
	}
	return res, nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.inner.Ping(ctx)
	})
	return translate(err)
}

func isHealthyAnswer(err error) bool {
	return err == nil ||
		errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, apperrors.ErrAlreadyExists) ||
		errors.Is(err, apperrors.ErrInvalidInput) ||
		errors.Is(err, apperrors.ErrInvalidPaging) ||
		errors.Is(err, apperrors.ErrPartialBulkFailure)
}

// translate maps a rejection by the breaker itself to StoreUnavailable.
func translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.StoreUnavailable(err)
	}
	return err
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
