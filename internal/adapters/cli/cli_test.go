package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coconut-erp/internal/adapters/cli"
	"coconut-erp/internal/app"
	"coconut-erp/internal/core"
	"coconut-erp/internal/memstore"
	"coconut-erp/internal/observability/metrics"
)

func newApp(t *testing.T) *app.Application {
	t.Helper()
	return app.NewWithStore(memstore.New(), slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.NewCollector())
}

func run(t *testing.T, a *app.Application, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := cli.Run(context.Background(), a, args, &out)
	return out.String(), err
}

func TestRun_LowStock(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	_, err := a.Stock.CreateItem(ctx, core.CreateItemInput{
		InternalCode: "EMB-PET-300", Name: "Garrafa PET 300ml", Unit: "un",
		MinimumStock: decimal.NewFromInt(1000), CurrentStock: decimal.NewFromInt(250),
	})
	require.NoError(t, err)

	out, err := run(t, a, "low-stock")
	require.NoError(t, err)
	assert.Contains(t, out, "LOW STOCK")
	assert.Contains(t, out, "EMB-PET-300")
	assert.Contains(t, out, "750")
}

func TestRun_LowStockJSON(t *testing.T) {
	a := newApp(t)
	_, err := a.Stock.CreateItem(context.Background(), core.CreateItemInput{
		InternalCode: "TAMPA-38", Name: "Tampa 38mm", Unit: "un",
		MinimumStock: decimal.NewFromInt(10), CurrentStock: decimal.NewFromInt(4),
	})
	require.NoError(t, err)

	out, err := run(t, a, "low", "--json")
	require.NoError(t, err)

	var alerts []core.LowStockAlert
	require.NoError(t, json.Unmarshal([]byte(out), &alerts))
	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].Deficit.Equal(decimal.NewFromInt(6)))
}

func TestRun_Expiring(t *testing.T) {
	a := newApp(t)
	now := time.Now()
	_, err := a.Stock.CreateBatch(context.Background(), core.CreateBatchInput{
		BatchCode: "AGUA-2026-001", SKUID: 1, Quantity: decimal.NewFromInt(120),
		ProductionDate: now.AddDate(0, 0, -5), ExpirationDate: now.AddDate(0, 0, 10),
	})
	require.NoError(t, err)

	out, err := run(t, a, "expiring", "15")
	require.NoError(t, err)
	assert.Contains(t, out, "BATCHES EXPIRING IN 15 DAYS")
	assert.Contains(t, out, "AGUA-2026-001")

	out, err = run(t, a, "expiring", "3")
	require.NoError(t, err)
	assert.NotContains(t, out, "AGUA-2026-001")

	_, err = run(t, a, "expiring", "soon")
	assert.ErrorContains(t, err, "invalid days")
}

func TestRun_CashFlowAndOverdue(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	producer := &core.Producer{Name: "Sítio Coqueiral", Active: true}
	require.NoError(t, a.Store.CreateProducer(ctx, producer))

	_, err := a.Financial.CreatePayable(ctx, core.CreatePayableInput{
		ProducerID: producer.ID, Description: "Carga atrasada", Amount: decimal.NewFromInt(800),
		DueDate: time.Now().AddDate(0, 0, -3),
	})
	require.NoError(t, err)

	out, err := run(t, a, "cash-flow")
	require.NoError(t, err)
	assert.Contains(t, out, "PROJECTED BALANCE")
	assert.Contains(t, out, "-800.00")

	out, err = run(t, a, "overdue")
	require.NoError(t, err)
	assert.Contains(t, out, "Carga atrasada")
	assert.Contains(t, out, "1 payables, 0 receivables overdue")
}

func TestRun_Quality(t *testing.T) {
	a := newApp(t)

	out, err := run(t, a, "quality", "2026-01-01", "2026-12-31")
	require.NoError(t, err)
	assert.Contains(t, out, "Approval rate : 0.00%")

	_, err = run(t, a, "quality", "01/01/2026")
	assert.ErrorContains(t, err, "invalid date")
}

func TestRun_QualitySameDayIncludesWholeDay(t *testing.T) {
	store := memstore.New()
	store.SetClock(func() time.Time { return time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC) })
	a := app.NewWithStore(store, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.NewCollector())
	ph := decimal.NewFromInt(5)
	_, err := a.Quality.CreateAnalysis(context.Background(), core.CreateAnalysisInput{
		AnalysisType: "fisico-quimica",
		Parameters:   []core.AnalysisParameterInput{{Name: "pH", Value: &ph, Result: core.Conforming}},
	})
	require.NoError(t, err)

	out, err := run(t, a, "quality", "2026-03-10", "2026-03-10", "--json")
	require.NoError(t, err)
	var report app.QualityReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Metrics.TotalAnalyses)

	out, err = run(t, a, "quality", "2026-03-11", "2026-03-11", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 0, report.Metrics.TotalAnalyses)
}

func TestRun_Errors(t *testing.T) {
	a := newApp(t)

	_, err := run(t, a)
	assert.ErrorContains(t, err, "missing command")

	_, err = run(t, a, "propose")
	assert.ErrorContains(t, err, "unknown command: propose")
}
