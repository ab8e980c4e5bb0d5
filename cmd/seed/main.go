// seed loads demonstration data (producers, loads, stock, batches, titles and a
// quality analysis) into an empty database. It refuses to run when producers exist.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"coconut-erp/internal/app"
	"coconut-erp/internal/config"
	"coconut-erp/internal/core"
	"coconut-erp/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.StoreDriver == config.DriverMemory {
		log.Fatal("STORE_DRIVER=memory: nothing to seed")
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer a.Close()

	if err := seed(ctx, a, logger); err != nil {
		a.Close()
		log.Fatalf("Seed failed: %v", err)
	}
	logger.Info("seed data loaded")
}

func seed(ctx context.Context, a *app.Application, logger *slog.Logger) error {
	existing, err := a.Store.ListProducers(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Info("producers already present, skipping", "count", len(existing))
		return nil
	}

	now := time.Now()
	day := func(n int) time.Time { return now.AddDate(0, 0, n) }
	grade := func(g string) *string { return &g }

	logger.Info("creating producers and loads")
	producers := []*core.Producer{
		{Name: "Fazenda Boa Vista", Document: "12.345.678/0001-90", Active: true},
		{Name: "Sítio Coqueiral", Document: "123.456.789-09", Active: true},
		{Name: "Cooperativa Litoral Norte", Document: "98.765.432/0001-10", Active: true},
	}
	for _, p := range producers {
		if err := a.Store.CreateProducer(ctx, p); err != nil {
			return err
		}
	}
	loads := []*core.Load{
		{ProducerID: producers[0].ID, Status: core.LoadClosed, QualityGrade: grade("A"), NetWeight: decimal.NewFromInt(4200), ReceivedAt: day(-20)},
		{ProducerID: producers[0].ID, Status: core.LoadClosed, QualityGrade: grade("B"), NetWeight: decimal.NewFromInt(3900), ReceivedAt: day(-12)},
		{ProducerID: producers[1].ID, Status: core.LoadClosed, QualityGrade: grade("C"), NetWeight: decimal.NewFromInt(2100), ReceivedAt: day(-9)},
		{ProducerID: producers[2].ID, Status: core.LoadOpen, NetWeight: decimal.NewFromInt(5600), ReceivedAt: day(-1)},
	}
	for _, l := range loads {
		if err := a.Store.CreateLoad(ctx, l); err != nil {
			return err
		}
	}

	logger.Info("creating warehouse items")
	items := []core.CreateItemInput{
		{InternalCode: "EMB-PET-300", Name: "Garrafa PET 300ml", Unit: "un", WarehouseType: "embalagens",
			MinimumStock: decimal.NewFromInt(5000), CurrentStock: decimal.NewFromInt(3200)},
		{InternalCode: "EMB-TAMPA-28", Name: "Tampa rosca 28mm", Unit: "un", WarehouseType: "embalagens",
			MinimumStock: decimal.NewFromInt(5000), CurrentStock: decimal.NewFromInt(12000)},
		{InternalCode: "INS-METAB", Name: "Metabissulfito de sódio", Unit: "kg", WarehouseType: "insumos",
			MinimumStock: decimal.NewFromInt(25), CurrentStock: decimal.RequireFromString("18.5")},
	}
	for _, in := range items {
		if _, err := a.Stock.CreateItem(ctx, in); err != nil {
			return err
		}
	}

	logger.Info("creating finished goods batches")
	batches := []core.CreateBatchInput{
		{BatchCode: "AGUA300-" + day(-30).Format("060102"), SKUID: 1, Quantity: decimal.NewFromInt(1800),
			ProductionDate: day(-30), ExpirationDate: day(15)},
		{BatchCode: "AGUA300-" + day(-3).Format("060102"), SKUID: 1, Quantity: decimal.NewFromInt(2400),
			ProductionDate: day(-3), ExpirationDate: day(87)},
	}
	for _, in := range batches {
		if _, err := a.Stock.CreateBatch(ctx, in); err != nil {
			return err
		}
	}

	logger.Info("creating payables and receivables")
	loadID := loads[0].ID
	payables := []core.CreatePayableInput{
		{ProducerID: producers[0].ID, LoadID: &loadID, Description: "Carga de coco verde", Amount: decimal.NewFromInt(6300), DueDate: day(-5)},
		{ProducerID: producers[1].ID, Description: "Carga de coco verde", Amount: decimal.NewFromInt(2940), DueDate: day(10)},
	}
	for _, in := range payables {
		if _, err := a.Financial.CreatePayable(ctx, in); err != nil {
			return err
		}
	}
	if _, err := a.Financial.CreateReceivable(ctx, core.CreateReceivableInput{
		CustomerName: "Distribuidora Nordeste", Description: "Água de coco 300ml", Amount: decimal.NewFromInt(18400), DueDate: day(20),
	}); err != nil {
		return err
	}

	logger.Info("recording a quality analysis")
	brix := decimal.RequireFromString("4.8")
	ph := decimal.RequireFromString("5.1")
	minBrix, maxBrix := decimal.NewFromInt(5), decimal.NewFromInt(7)
	minPH, maxPH := decimal.RequireFromString("4.5"), decimal.RequireFromString("5.5")
	res, err := a.Quality.CreateAnalysis(ctx, core.CreateAnalysisInput{
		AnalysisType:  "fisico-quimica",
		ReferenceType: "carga",
		ReferenceID:   &loadID,
		AnalyzedBy:    "laboratorio",
		Parameters: []core.AnalysisParameterInput{
			{Name: "Brix", Value: &brix, Unit: "°Bx", Min: &minBrix, Max: &maxBrix, Result: core.NonConforming},
			{Name: "pH", Value: &ph, Min: &minPH, Max: &maxPH, Result: core.Conforming},
		},
	})
	if err != nil {
		return err
	}
	if res.NCID != nil {
		logger.Info("analysis opened a non-conformity", "nc_id", *res.NCID)
	}
	return nil
}
