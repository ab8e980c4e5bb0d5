package repl

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coconut-erp/internal/app"
	"coconut-erp/internal/core"
	"coconut-erp/internal/memstore"
	"coconut-erp/internal/observability/metrics"
)

func newApp(t *testing.T) *app.Application {
	t.Helper()
	return app.NewWithStore(memstore.New(), slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.NewCollector())
}

func runScript(t *testing.T, a *app.Application, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	err := Run(context.Background(), a, strings.NewReader(strings.Join(lines, "\n")+"\n"), &out, "joana")
	require.NoError(t, err)
	return out.String()
}

func TestRun_StockMovements(t *testing.T) {
	a := newApp(t)
	item, err := a.Stock.CreateItem(context.Background(), core.CreateItemInput{
		InternalCode: "EMB-PET-300", Name: "Garrafa PET 300ml", Unit: "un",
		MinimumStock: decimal.NewFromInt(100), CurrentStock: decimal.NewFromInt(40),
	})
	require.NoError(t, err)

	out := runScript(t, a,
		"/out 1 50",
		"/in 1 200 compra 881",
		"/out 1 15",
		"/item 1",
		"/exit",
	)

	assert.Contains(t, out, "Error [BUSINESS_RULE_VIOLATION]")
	assert.Contains(t, out, "stock 40 -> 240")
	assert.Contains(t, out, "stock 240 -> 225")
	assert.Contains(t, out, "compra 881")
	assert.Contains(t, out, "Goodbye!")

	got, err := a.Stock.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentStock.Equal(decimal.NewFromInt(225)))

	movements, err := a.Stock.ListMovements(context.Background(), item.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, "joana", movements[0].CreatedBy)
}

func TestRun_AnalysisWizardOpensNC(t *testing.T) {
	a := newApp(t)

	out := runScript(t, a,
		"/analysis microbiologica",
		"pH 3.9 4.5 5.5",
		"Brix abc",
		"Brix 6 5 -",
		"done",
		"/ncs aberta",
		"/nc 1 close",
		"/nc 1 analyze",
		"/nc 1 resolve",
		"Contaminação no envase",
		"Sanitizar linha 2",
		"/nc 1 close",
	)

	assert.Contains(t, out, "-> pH nao_conforme")
	assert.Contains(t, out, `invalid value "abc"`)
	assert.Contains(t, out, "-> Brix conforme")
	assert.Contains(t, out, "Analysis 1 recorded: nao_conforme")
	assert.Contains(t, out, "Non-conformity NC-")
	assert.Contains(t, out, "Error [BUSINESS_RULE_VIOLATION]")
	assert.Contains(t, out, "[fechada]")
	assert.Contains(t, out, "by joana")
}

func TestRun_SettlePayable(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	producer := &core.Producer{Name: "Fazenda Boa Vista", Active: true}
	require.NoError(t, a.Store.CreateProducer(ctx, producer))
	_, err := a.Financial.CreatePayable(ctx, core.CreatePayableInput{
		ProducerID: producer.ID, Description: "Carga 12", Amount: decimal.NewFromInt(1000),
		DueDate: time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)

	out := runScript(t, a, "/payables", "/pay 1 400 pix", "/pay 1")

	assert.Contains(t, out, "Carga 12")
	assert.Contains(t, out, "Payable 1 is now pago. Paid 400.00 of 1000.00.")
	assert.Contains(t, out, "Error [BUSINESS_RULE_VIOLATION]")
}

func TestRun_UnknownAndReports(t *testing.T) {
	a := newApp(t)

	out := runScript(t, a, "hello", "/frobnicate", "/low-stock", "/item x")

	assert.Contains(t, out, "Commands start with '/'")
	assert.Contains(t, out, "Unknown command: /frobnicate")
	assert.Contains(t, out, "No items below minimum stock.")
	assert.Contains(t, out, `invalid number "x"`)
}

func TestParseParameter(t *testing.T) {
	p, err := parseParameter("Acidez 0.12 - 0.10")
	require.NoError(t, err)
	assert.Nil(t, p.Min)
	assert.Equal(t, core.NonConforming, p.Result)

	p, err = parseParameter("Temperatura 4")
	require.NoError(t, err)
	assert.Equal(t, core.Conforming, p.Result)

	_, err = parseParameter("pH 5 6 4")
	assert.ErrorContains(t, err, "greater than max")
}
