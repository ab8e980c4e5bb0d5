package core

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRecordNotFound is returned by Repository getters when no row matches.
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateRecord is returned by Repository writers on a unique-key conflict.
	ErrDuplicateRecord = errors.New("duplicate record")
)

// Repository is the data-access surface the services depend on.
// Create methods assign ID and timestamps on the passed record.
// Inside Store.WithinTx, getters lock the returned row until the transaction ends.
type Repository interface {
	// producers and loads
	GetProducer(ctx context.Context, id int) (*Producer, error)
	ListProducers(ctx context.Context) ([]Producer, error)
	CreateProducer(ctx context.Context, p *Producer) error
	ListLoads(ctx context.Context, f LoadFilter) ([]Load, error)
	CreateLoad(ctx context.Context, l *Load) error

	// financial
	GetPayable(ctx context.Context, id int) (*Payable, error)
	ListPayables(ctx context.Context, f PayableFilter) ([]Payable, error)
	CreatePayable(ctx context.Context, p *Payable) error
	UpdatePayable(ctx context.Context, p *Payable) error
	GetReceivable(ctx context.Context, id int) (*Receivable, error)
	ListReceivables(ctx context.Context, f ReceivableFilter) ([]Receivable, error)
	CreateReceivable(ctx context.Context, r *Receivable) error
	UpdateReceivable(ctx context.Context, r *Receivable) error
	GetDashboardStats(ctx context.Context, now time.Time) (*DashboardStats, error)

	// quality
	GetAnalysis(ctx context.Context, id int) (*QualityAnalysis, error)
	ListAnalyses(ctx context.Context, f AnalysisFilter) ([]QualityAnalysis, error)
	CreateAnalysis(ctx context.Context, a *QualityAnalysis) error
	NextNCSequence(ctx context.Context) (int64, error)
	GetNC(ctx context.Context, id int) (*NonConformity, error)
	ListNCs(ctx context.Context, f NCFilter) ([]NonConformity, error)
	CreateNC(ctx context.Context, nc *NonConformity) error
	UpdateNC(ctx context.Context, nc *NonConformity) error
	CreateCorrectiveAction(ctx context.Context, ca *CorrectiveAction) error

	// stock
	GetWarehouseItem(ctx context.Context, id int) (*WarehouseItem, error)
	GetWarehouseItemByCode(ctx context.Context, code string) (*WarehouseItem, error)
	ListWarehouseItems(ctx context.Context, f ItemFilter) ([]WarehouseItem, error)
	CreateWarehouseItem(ctx context.Context, item *WarehouseItem) error
	UpdateWarehouseItem(ctx context.Context, item *WarehouseItem) error
	CreateMovement(ctx context.Context, m *WarehouseMovement) error
	ListMovements(ctx context.Context, itemID int) ([]WarehouseMovement, error)
	GetBatch(ctx context.Context, id int) (*FinishedGoodsBatch, error)
	ListBatches(ctx context.Context, f BatchFilter) ([]FinishedGoodsBatch, error)
	CreateBatch(ctx context.Context, b *FinishedGoodsBatch) error
	UpdateBatch(ctx context.Context, b *FinishedGoodsBatch) error
}

// Store is a Repository that can run a function atomically.
// If fn returns an error every write made through repo is discarded.
type Store interface {
	Repository
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// MetricsCollector receives per-operation measurements from the services.
type MetricsCollector interface {
	RecordOperation(service, operation, outcome string, seconds float64)
	IncrementErrorCounter(code string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordOperation(string, string, string, float64) {}
func (NopMetrics) IncrementErrorCounter(string)                     {}
