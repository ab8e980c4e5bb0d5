package core_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"coconut-erp/internal/apperror"
	"coconut-erp/internal/core"
	"coconut-erp/internal/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

type services struct {
	store     *memstore.Store
	financial core.FinancialService
	quality   core.QualityService
	stock     core.StockService
}

func setup(t *testing.T) (services, context.Context) {
	t.Helper()
	store := memstore.New()
	log := quietLogger()
	return services{
		store:     store,
		financial: core.NewFinancialService(store, log, core.NopMetrics{}),
		quality:   core.NewQualityService(store, log, core.NopMetrics{}),
		stock:     core.NewStockService(store, log, core.NopMetrics{}),
	}, context.Background()
}

func createProducer(t *testing.T, ctx context.Context, store core.Store, name string) core.Producer {
	t.Helper()
	p := core.Producer{Name: name, Active: true}
	require.NoError(t, store.CreateProducer(ctx, &p))
	return p
}

// requireRule asserts err is a BusinessError carrying rule.
func requireRule(t *testing.T, err error, rule string) {
	t.Helper()
	require.Error(t, err)
	var be *apperror.BusinessError
	require.ErrorAs(t, err, &be, "expected BusinessError, got %T: %v", err, err)
	require.Equal(t, rule, be.Rule)
	require.Equal(t, 422, be.StatusCode)
}

func requireValidation(t *testing.T, err error, field string) *apperror.ValidationError {
	t.Helper()
	require.Error(t, err)
	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve, "expected ValidationError, got %T: %v", err, err)
	if field != "" {
		require.True(t, ve.HasErrorForField(field), "no field error for %q in %+v", field, ve.FieldErrors)
	}
	return ve
}

func requireNotFound(t *testing.T, err error) {
	t.Helper()
	var nf *apperror.NotFoundError
	require.ErrorAs(t, err, &nf, "expected NotFoundError, got %T: %v", err, err)
}

// mockMetrics records what the services report.
type mockMetrics struct {
	mock.Mock
}

func (m *mockMetrics) RecordOperation(service, operation, outcome string, seconds float64) {
	m.Called(service, operation, outcome, seconds)
}

func (m *mockMetrics) IncrementErrorCounter(code string) {
	m.Called(code)
}
