package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"coconut-erp/internal/core"
)

// OverdueResult is returned by Reports.Overdue.
type OverdueResult struct {
	Payables    []core.Payable    `json:"payables"`
	Receivables []core.Receivable `json:"receivables"`
}

// QualityReport is returned by Reports.Quality.
type QualityReport struct {
	Metrics   *core.QualityMetrics        `json:"metrics"`
	Grades    *core.GradeDistribution     `json:"grades"`
	Producers []core.ProducerQualityScore `json:"producers"`
}

// Reports composes read-only views across services.
type Reports struct {
	financial core.FinancialService
	quality   core.QualityService
	stock     core.StockService
}

func (r *Reports) LowStock(ctx context.Context) ([]core.LowStockAlert, error) {
	return r.stock.GetLowStockAlerts(ctx)
}

func (r *Reports) Expiring(ctx context.Context, days int) ([]core.FinishedGoodsBatch, error) {
	return r.stock.GetExpiringProducts(ctx, days)
}

func (r *Reports) CashFlow(ctx context.Context) (*core.CashFlowSummary, error) {
	return r.financial.GetCashFlowSummary(ctx)
}

// Overdue lists overdue payables and receivables side by side.
func (r *Reports) Overdue(ctx context.Context) (*OverdueResult, error) {
	var res OverdueResult
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		res.Payables, err = r.financial.GetOverduePayables(ctx)
		return err
	})
	g.Go(func() (err error) {
		res.Receivables, err = r.financial.GetOverdueReceivables(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &res, nil
}

// Quality gathers metrics for [start, end] with the all-time grade distribution and producer ranking.
func (r *Reports) Quality(ctx context.Context, start, end *time.Time) (*QualityReport, error) {
	var res QualityReport
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		res.Metrics, err = r.quality.GetQualityMetrics(ctx, start, end)
		return err
	})
	g.Go(func() (err error) {
		res.Grades, err = r.quality.GetGradeDistribution(ctx)
		return err
	})
	g.Go(func() (err error) {
		res.Producers, err = r.quality.GetProducerQualityScores(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &res, nil
}
