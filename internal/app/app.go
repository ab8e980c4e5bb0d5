// Package app wires configuration, storage and observability into the domain services.
// Every adapter (web, CLI) works through an *Application.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"coconut-erp/internal/config"
	"coconut-erp/internal/core"
	"coconut-erp/internal/db"
	"coconut-erp/internal/memstore"
	"coconut-erp/internal/observability/metrics"
)

type Application struct {
	Financial core.FinancialService
	Quality   core.QualityService
	Stock     core.StockService
	Reports   *Reports

	Store   core.Store
	Metrics *metrics.Collector
	Logger  *slog.Logger

	pool *pgxpool.Pool
}

// New opens the store named by cfg.StoreDriver and builds the services on it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		return NewWithStore(memstore.New(), logger, metrics.NewCollector()), nil
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a := NewWithStore(db.NewStore(pool), logger, metrics.NewCollector())
		a.pool = pool
		return a, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func NewWithStore(store core.Store, logger *slog.Logger, collector *metrics.Collector) *Application {
	a := &Application{
		Financial: core.NewFinancialService(store, logger, collector),
		Quality:   core.NewQualityService(store, logger, collector),
		Stock:     core.NewStockService(store, logger, collector),
		Store:     store,
		Metrics:   collector,
		Logger:    logger,
	}
	a.Reports = &Reports{financial: a.Financial, quality: a.Quality, stock: a.Stock}
	return a
}

// Pool is the PostgreSQL pool, or nil for the in-memory store.
func (a *Application) Pool() *pgxpool.Pool {
	return a.pool
}

// Ping reports whether the backing store is reachable.
func (a *Application) Ping(ctx context.Context) error {
	if a.pool == nil {
		return nil
	}
	return a.pool.Ping(ctx)
}

func (a *Application) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
