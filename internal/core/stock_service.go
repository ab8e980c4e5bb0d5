package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"coconut-erp/internal/apperror"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// StockService manages warehouse items, their movement log and finished-goods batches.
type StockService interface {
	// CreateItem requires a unique internal code and a non-negative minimum stock.
	CreateItem(ctx context.Context, in CreateItemInput) (*WarehouseItem, error)
	GetItem(ctx context.Context, id int) (*WarehouseItem, error)
	ListItems(ctx context.Context, f ItemFilter) ([]WarehouseItem, error)
	UpdateItem(ctx context.Context, id int, in UpdateItemInput) (*WarehouseItem, error)
	// DeleteItem archives an item with no stock. Its movements are kept.
	DeleteItem(ctx context.Context, id int) error

	// CreateMovement applies a movement and returns it with the stock before and after.
	// entrada adds, saida subtracts and ajuste replaces the stock with Quantity.
	CreateMovement(ctx context.Context, in CreateMovementInput) (*WarehouseMovement, error)
	ListMovements(ctx context.Context, itemID int) ([]WarehouseMovement, error)
	GetLowStockAlerts(ctx context.Context) ([]LowStockAlert, error)

	CreateBatch(ctx context.Context, in CreateBatchInput) (*FinishedGoodsBatch, error)
	GetBatch(ctx context.Context, id int) (*FinishedGoodsBatch, error)
	ListBatches(ctx context.Context, f BatchFilter) ([]FinishedGoodsBatch, error)
	// ReserveFinishedGoods flags a whole available batch as reserved. The quantity is only checked.
	ReserveFinishedGoods(ctx context.Context, id int, quantity decimal.Decimal) (*FinishedGoodsBatch, error)
	// ShipFinishedGoods decrements the batch; it becomes expedido when it reaches zero.
	ShipFinishedGoods(ctx context.Context, id int, quantity decimal.Decimal) (*FinishedGoodsBatch, error)
	GetExpiringProducts(ctx context.Context, days int) ([]FinishedGoodsBatch, error)
}

type stockService struct {
	store Store
	in    instrument
	now   func() time.Time
}

func NewStockService(store Store, logger *slog.Logger, metrics MetricsCollector) StockService {
	return &stockService{
		store: store,
		in:    newInstrument("StockService", logger, metrics),
		now:   time.Now,
	}
}

// ── Items ─────────────────────────────────────────────────────────────────────

func (s *stockService) CreateItem(ctx context.Context, in CreateItemInput) (_ *WarehouseItem, err error) {
	ctx, done := s.in.start(ctx, "CreateItem", attribute.String("item.code", in.InternalCode))
	defer done(&err)

	code := strings.TrimSpace(in.InternalCode)
	v := apperror.NewValidation("Dados do item inválidos")
	for _, f := range [][2]string{{"internalCode", code}, {"name", in.Name}, {"unit", in.Unit}} {
		if strings.TrimSpace(f[1]) == "" {
			v.Add(f[0], fmt.Sprintf("O campo '%s' é obrigatório", f[0]))
		}
	}
	if in.MinimumStock.IsNegative() {
		v.AddFieldError(nonNegative("minimumStock", in.MinimumStock))
	}
	if in.CurrentStock.IsNegative() {
		v.AddFieldError(nonNegative("currentStock", in.CurrentStock))
	}
	if v.HasErrors() {
		return nil, v
	}

	item := WarehouseItem{
		InternalCode:  code,
		Name:          strings.TrimSpace(in.Name),
		Unit:          strings.TrimSpace(in.Unit),
		WarehouseType: in.WarehouseType,
		MinimumStock:  in.MinimumStock,
		CurrentStock:  in.CurrentStock,
	}
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		_, err := repo.GetWarehouseItemByCode(ctx, code)
		switch {
		case err == nil:
			return apperror.Duplicate("internalCode", code)
		case !errors.Is(err, ErrRecordNotFound):
			return fmt.Errorf("failed to look up item code: %w", err)
		}

		if err := repo.CreateWarehouseItem(ctx, &item); err != nil {
			if errors.Is(err, ErrDuplicateRecord) {
				return apperror.Duplicate("internalCode", code)
			}
			return fmt.Errorf("failed to insert item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.in.logger.InfoContext(ctx, "warehouse item created", "item_id", item.ID, "internal_code", item.InternalCode)
	return &item, nil
}

func (s *stockService) GetItem(ctx context.Context, id int) (_ *WarehouseItem, err error) {
	ctx, done := s.in.start(ctx, "GetItem", attribute.Int("item.id", id))
	defer done(&err)

	item, err := s.store.GetWarehouseItem(ctx, id)
	if err != nil {
		return nil, notFound(err, apperror.WarehouseItemNotFound(id))
	}
	return item, nil
}

func (s *stockService) ListItems(ctx context.Context, f ItemFilter) (_ []WarehouseItem, err error) {
	ctx, done := s.in.start(ctx, "ListItems")
	defer done(&err)

	items, err := s.store.ListWarehouseItems(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

func (s *stockService) UpdateItem(ctx context.Context, id int, in UpdateItemInput) (_ *WarehouseItem, err error) {
	ctx, done := s.in.start(ctx, "UpdateItem", attribute.Int("item.id", id))
	defer done(&err)

	v := apperror.NewValidation("Dados do item inválidos")
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		v.Add("name", "O campo 'name' não pode ser vazio")
	}
	if in.Unit != nil && strings.TrimSpace(*in.Unit) == "" {
		v.Add("unit", "O campo 'unit' não pode ser vazio")
	}
	if in.MinimumStock != nil && in.MinimumStock.IsNegative() {
		v.AddFieldError(nonNegative("minimumStock", *in.MinimumStock))
	}
	if v.HasErrors() {
		return nil, v
	}

	var updated *WarehouseItem
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		item, err := repo.GetWarehouseItem(ctx, id)
		if err != nil {
			return notFound(err, apperror.WarehouseItemNotFound(id))
		}
		if item.Archived {
			return apperror.OperationNotAllowed("atualizar item", "item arquivado")
		}
		if in.Name != nil {
			item.Name = strings.TrimSpace(*in.Name)
		}
		if in.Unit != nil {
			item.Unit = strings.TrimSpace(*in.Unit)
		}
		if in.WarehouseType != nil {
			item.WarehouseType = *in.WarehouseType
		}
		if in.MinimumStock != nil {
			item.MinimumStock = *in.MinimumStock
		}
		if err := repo.UpdateWarehouseItem(ctx, item); err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *stockService) DeleteItem(ctx context.Context, id int) (err error) {
	ctx, done := s.in.start(ctx, "DeleteItem", attribute.Int("item.id", id))
	defer done(&err)

	return s.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		item, err := repo.GetWarehouseItem(ctx, id)
		if err != nil {
			return notFound(err, apperror.WarehouseItemNotFound(id))
		}
		if item.CurrentStock.IsPositive() {
			return apperror.NewValidation("Não é possível excluir item com estoque", apperror.FieldError{
				Field:      "currentStock",
				Message:    fmt.Sprintf("O item %s possui %s %s em estoque", item.InternalCode, item.CurrentStock, item.Unit),
				Value:      item.CurrentStock.String(),
				Constraint: "eq:0",
			})
		}
		if item.Archived {
			return nil
		}

		item.Archived = true
		if err := repo.UpdateWarehouseItem(ctx, item); err != nil {
			return fmt.Errorf("failed to archive item: %w", err)
		}
		s.in.logger.InfoContext(ctx, "warehouse item archived", "item_id", item.ID, "internal_code", item.InternalCode)
		return nil
	})
}

// ── Movements ─────────────────────────────────────────────────────────────────

func (s *stockService) CreateMovement(ctx context.Context, in CreateMovementInput) (_ *WarehouseMovement, err error) {
	ctx, done := s.in.start(ctx, "CreateMovement",
		attribute.Int("item.id", in.ItemID), attribute.String("movement.type", string(in.MovementType)))
	defer done(&err)

	v := apperror.NewValidation("Movimentação inválida")
	switch in.MovementType {
	case MovementIn, MovementOut, MovementAdjustment:
	default:
		v.AddFieldError(apperror.FieldError{
			Field:      "movementType",
			Message:    "O tipo deve ser 'entrada', 'saida' ou 'ajuste'",
			Value:      string(in.MovementType),
			Constraint: "enum:entrada,saida,ajuste",
		})
	}
	if !in.Quantity.IsPositive() {
		v.AddFieldError(apperror.FieldError{
			Field:      "quantity",
			Message:    "A quantidade deve ser maior que zero",
			Value:      in.Quantity.String(),
			Constraint: "gt:0",
		})
	}
	if v.HasErrors() {
		return nil, v
	}

	var movement WarehouseMovement
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		item, err := repo.GetWarehouseItem(ctx, in.ItemID)
		if err != nil {
			return notFound(err, apperror.WarehouseItemNotFound(in.ItemID))
		}
		if item.Archived {
			return apperror.OperationNotAllowed("movimentar estoque", "item arquivado")
		}

		var newStock decimal.Decimal
		switch in.MovementType {
		case MovementIn:
			newStock = item.CurrentStock.Add(in.Quantity)
		case MovementOut:
			if in.Quantity.GreaterThan(item.CurrentStock) {
				return apperror.InsufficientStock(item.Name, in.Quantity.String(), item.CurrentStock.String())
			}
			newStock = item.CurrentStock.Sub(in.Quantity)
		case MovementAdjustment:
			newStock = in.Quantity
		}

		movement = WarehouseMovement{
			ItemID:        item.ID,
			MovementType:  in.MovementType,
			Quantity:      in.Quantity,
			PreviousStock: item.CurrentStock,
			NewStock:      newStock,
			Reason:        in.Reason,
			CreatedBy:     in.CreatedBy,
		}
		if err := repo.CreateMovement(ctx, &movement); err != nil {
			return fmt.Errorf("failed to insert movement: %w", err)
		}

		item.CurrentStock = newStock
		if err := repo.UpdateWarehouseItem(ctx, item); err != nil {
			return fmt.Errorf("failed to update item stock: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.in.logger.InfoContext(ctx, "stock movement applied", "item_id", movement.ItemID, "type", movement.MovementType,
		"previous_stock", movement.PreviousStock.String(), "new_stock", movement.NewStock.String())
	return &movement, nil
}

func (s *stockService) ListMovements(ctx context.Context, itemID int) (_ []WarehouseMovement, err error) {
	ctx, done := s.in.start(ctx, "ListMovements", attribute.Int("item.id", itemID))
	defer done(&err)

	if _, err := s.store.GetWarehouseItem(ctx, itemID); err != nil {
		return nil, notFound(err, apperror.WarehouseItemNotFound(itemID))
	}
	movements, err := s.store.ListMovements(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	return movements, nil
}

func (s *stockService) GetLowStockAlerts(ctx context.Context) (_ []LowStockAlert, err error) {
	ctx, done := s.in.start(ctx, "GetLowStockAlerts")
	defer done(&err)

	items, err := s.store.ListWarehouseItems(ctx, ItemFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	var alerts []LowStockAlert
	for _, item := range items {
		if !item.CurrentStock.LessThan(item.MinimumStock) {
			continue
		}
		alerts = append(alerts, LowStockAlert{
			ItemID:        item.ID,
			InternalCode:  item.InternalCode,
			Name:          item.Name,
			Unit:          item.Unit,
			WarehouseType: item.WarehouseType,
			MinimumStock:  item.MinimumStock,
			CurrentStock:  item.CurrentStock,
			Deficit:       item.MinimumStock.Sub(item.CurrentStock),
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Deficit.GreaterThan(alerts[j].Deficit)
	})
	return alerts, nil
}

// ── Finished goods ────────────────────────────────────────────────────────────

func (s *stockService) CreateBatch(ctx context.Context, in CreateBatchInput) (_ *FinishedGoodsBatch, err error) {
	ctx, done := s.in.start(ctx, "CreateBatch", attribute.String("batch.code", in.BatchCode))
	defer done(&err)

	code := strings.TrimSpace(in.BatchCode)
	v := apperror.NewValidation("Dados do lote inválidos")
	if code == "" {
		v.Add("batchCode", "O campo 'batchCode' é obrigatório")
	}
	if in.SKUID <= 0 {
		v.Add("skuId", "O campo 'skuId' é obrigatório")
	}
	if in.Quantity.IsNegative() {
		v.AddFieldError(nonNegative("quantity", in.Quantity))
	}
	switch {
	case in.ProductionDate.IsZero():
		v.Add("productionDate", "O campo 'productionDate' é obrigatório")
	case in.ExpirationDate.IsZero():
		v.Add("expirationDate", "O campo 'expirationDate' é obrigatório")
	case !in.ExpirationDate.After(in.ProductionDate):
		v.AddFieldError(apperror.FieldError{
			Field:      "expirationDate",
			Message:    "A data de validade deve ser posterior à data de produção",
			Value:      in.ExpirationDate.Format(time.DateOnly),
			Constraint: "after:productionDate",
		})
	}
	if v.HasErrors() {
		return nil, v
	}

	b := FinishedGoodsBatch{
		BatchCode:      code,
		SKUID:          in.SKUID,
		Quantity:       in.Quantity,
		ProductionDate: in.ProductionDate,
		ExpirationDate: in.ExpirationDate,
		Status:         BatchAvailable,
	}
	if err := s.store.CreateBatch(ctx, &b); err != nil {
		if errors.Is(err, ErrDuplicateRecord) {
			return nil, apperror.Duplicate("batchCode", code)
		}
		return nil, fmt.Errorf("failed to insert batch: %w", err)
	}

	s.in.logger.InfoContext(ctx, "batch created", "batch_id", b.ID, "batch_code", b.BatchCode)
	return &b, nil
}

func (s *stockService) GetBatch(ctx context.Context, id int) (_ *FinishedGoodsBatch, err error) {
	ctx, done := s.in.start(ctx, "GetBatch", attribute.Int("batch.id", id))
	defer done(&err)

	b, err := s.store.GetBatch(ctx, id)
	if err != nil {
		return nil, notFound(err, apperror.BatchNotFound(id))
	}
	return b, nil
}

func (s *stockService) ListBatches(ctx context.Context, f BatchFilter) (_ []FinishedGoodsBatch, err error) {
	ctx, done := s.in.start(ctx, "ListBatches")
	defer done(&err)

	batches, err := s.store.ListBatches(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return batches, nil
}

func (s *stockService) ReserveFinishedGoods(ctx context.Context, id int, quantity decimal.Decimal) (_ *FinishedGoodsBatch, err error) {
	ctx, done := s.in.start(ctx, "ReserveFinishedGoods", attribute.Int("batch.id", id))
	defer done(&err)

	if !quantity.IsPositive() {
		return nil, apperror.OutOfRange("quantity", 0, nil, quantity.String())
	}

	return s.updateBatch(ctx, id, func(b *FinishedGoodsBatch) error {
		if b.Status != BatchAvailable {
			return apperror.BatchNotAvailable(b.BatchCode, string(b.Status))
		}
		if quantity.GreaterThan(b.Quantity) {
			return apperror.BatchQuantityExceeded(b.BatchCode, quantity.String(), b.Quantity.String())
		}
		b.Status = BatchReserved
		return nil
	})
}

func (s *stockService) ShipFinishedGoods(ctx context.Context, id int, quantity decimal.Decimal) (_ *FinishedGoodsBatch, err error) {
	ctx, done := s.in.start(ctx, "ShipFinishedGoods", attribute.Int("batch.id", id))
	defer done(&err)

	if !quantity.IsPositive() {
		return nil, apperror.OutOfRange("quantity", 0, nil, quantity.String())
	}

	return s.updateBatch(ctx, id, func(b *FinishedGoodsBatch) error {
		if b.Status != BatchAvailable && b.Status != BatchReserved {
			return apperror.BatchNotAvailable(b.BatchCode, string(b.Status))
		}
		if quantity.GreaterThan(b.Quantity) {
			return apperror.BatchQuantityExceeded(b.BatchCode, quantity.String(), b.Quantity.String())
		}
		b.Quantity = b.Quantity.Sub(quantity)
		if b.Quantity.IsZero() {
			b.Status = BatchShipped
		}
		return nil
	})
}

// updateBatch locks a batch, lets apply check and mutate it, then persists it.
func (s *stockService) updateBatch(ctx context.Context, id int, apply func(b *FinishedGoodsBatch) error) (*FinishedGoodsBatch, error) {
	var updated *FinishedGoodsBatch
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo Repository) error {
		b, err := repo.GetBatch(ctx, id)
		if err != nil {
			return notFound(err, apperror.BatchNotFound(id))
		}
		from := b.Status
		if err := apply(b); err != nil {
			return err
		}
		if err := repo.UpdateBatch(ctx, b); err != nil {
			return fmt.Errorf("failed to update batch: %w", err)
		}
		s.in.logger.InfoContext(ctx, "batch updated", "batch_id", b.ID, "from", from, "to", b.Status,
			"quantity", b.Quantity.String())
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *stockService) GetExpiringProducts(ctx context.Context, days int) (_ []FinishedGoodsBatch, err error) {
	ctx, done := s.in.start(ctx, "GetExpiringProducts", attribute.Int("days", days))
	defer done(&err)

	if days < 0 {
		return nil, apperror.OutOfRange("days", 0, nil, days)
	}

	limit := s.now().AddDate(0, 0, days)
	batches, err := s.store.ListBatches(ctx, BatchFilter{Status: BatchAvailable, ExpiringBefore: &limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring batches: %w", err)
	}
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].ExpirationDate.Before(batches[j].ExpirationDate)
	})
	return batches, nil
}

func nonNegative(field string, value decimal.Decimal) apperror.FieldError {
	return apperror.FieldError{
		Field:      field,
		Message:    fmt.Sprintf("O campo '%s' não pode ser negativo", field),
		Value:      value.String(),
		Constraint: "min:0",
	}
}
