// Command seed bulk-indexes a deterministic synthetic catalogue into the
// configured document store. Document ids are stable, so running it twice
// overwrites the same documents.
//
// Run: go run ./cmd/seed
//
//	SEED_TOTAL       number of products (default 10000)
//	SEED_BATCH_SIZE  products per bulk request (default 500, max 500)
//	SEED_RAND_SEED   generator seed (default 42)
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeyanBora/ElasticSearch.API/internal/config"
	"github.com/DeyanBora/ElasticSearch.API/internal/domain"
	"github.com/DeyanBora/ElasticSearch.API/internal/engine"
	esengine "github.com/DeyanBora/ElasticSearch.API/internal/engine/elasticsearch"
	"github.com/DeyanBora/ElasticSearch.API/internal/service"
	pkgconfig "github.com/DeyanBora/ElasticSearch.API/pkg/config"
	"github.com/DeyanBora/ElasticSearch.API/pkg/logger"
)

const maxBatchSize = 500

type seedConfig struct {
	Total     int   `env:"TOTAL" envDefault:"10000"`
	BatchSize int   `env:"BATCH_SIZE" envDefault:"500"`
	RandSeed  int64 `env:"RAND_SEED" envDefault:"42"`
}

func (c seedConfig) validate() error {
	if c.Total < 1 {
		return fmt.Errorf("SEED_TOTAL must be positive, got %d", c.Total)
	}
	if c.BatchSize < 1 || c.BatchSize > maxBatchSize {
		return fmt.Errorf("SEED_BATCH_SIZE must be between 1 and %d, got %d", maxBatchSize, c.BatchSize)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	var seedCfg seedConfig
	if err := pkgconfig.LoadWithPrefix(&seedCfg, "SEED_"); err != nil {
		return fmt.Errorf("load seed config: %w", err)
	}
	if err := seedCfg.validate(); err != nil {
		return err
	}

	log := logger.New("catalog-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := esengine.New(ctx, esengine.Config{
		Addresses: cfg.ElasticsearchURLs,
		Index:     cfg.ElasticsearchIndex,
		Username:  cfg.ElasticsearchUsername,
		Password:  cfg.ElasticsearchPassword,
		Refresh:   "false",
	}, log)
	if err != nil {
		return fmt.Errorf("init elasticsearch engine: %w", err)
	}

	products := generateCatalogue(seedCfg.Total, seedCfg.RandSeed)
	log.Info("seeding catalogue",
		slog.String("index", store.Index()),
		slog.Int("total", len(products)),
		slog.Int("batch_size", seedCfg.BatchSize),
	)

	svc := service.NewProductService(store, log)
	start := time.Now()
	indexed, failed, err := seed(ctx, svc, products, seedCfg.BatchSize, log)
	if err != nil {
		return err
	}

	log.Info("seeding complete",
		slog.Int("indexed", indexed),
		slog.Int("failed", failed),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

type bulkAdder interface {
	BulkAddProducts(ctx context.Context, items []domain.ProductFields) (*engine.BulkResult, error)
}

// seed indexes products in batches. A partially failed batch is logged and
// seeding continues; any other error stops it.
func seed(ctx context.Context, svc bulkAdder, products []domain.ProductFields, batchSize int, log *slog.Logger) (indexed, failed int, err error) {
	for start := 0; start < len(products); start += batchSize {
		end := min(start+batchSize, len(products))

		res, err := svc.BulkAddProducts(ctx, products[start:end])
		var bulkErr *engine.BulkError
		switch {
		case errors.As(err, &bulkErr):
			log.Warn("batch partially indexed",
				slog.Int("from", start),
				slog.Int("failed", len(res.Failed)),
				slog.String("first_reason", res.Failed[0].Reason),
			)
		case err != nil:
			return indexed, failed, fmt.Errorf("index batch %d-%d: %w", start, end, err)
		}

		indexed += res.Indexed
		failed += len(res.Failed)
		if end%2000 == 0 || end == len(products) {
			log.Info("progress", slog.Int("indexed", indexed), slog.Int("of", len(products)))
		}
	}
	return indexed, failed, nil
}
