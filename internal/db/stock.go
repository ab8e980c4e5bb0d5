package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"coconut-erp/internal/core"
)

// ── warehouse items ───────────────────────────────────────────────────────────

const itemColumns = `id, internal_code, name, unit, warehouse_type, minimum_stock, current_stock,
	archived, created_at, updated_at`

func scanItem(row pgx.Row) (core.WarehouseItem, error) {
	var it core.WarehouseItem
	err := row.Scan(
		&it.ID, &it.InternalCode, &it.Name, &it.Unit, &it.WarehouseType, &it.MinimumStock, &it.CurrentStock,
		&it.Archived, &it.CreatedAt, &it.UpdatedAt,
	)
	return it, err
}

func (r *repo) GetWarehouseItem(ctx context.Context, id int) (*core.WarehouseItem, error) {
	it, err := scanItem(r.q.QueryRow(ctx,
		"SELECT "+itemColumns+" FROM warehouse_items WHERE id = $1"+r.forUpdate, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get warehouse item %d: %w", id, mapErr(err))
	}
	return &it, nil
}

func (r *repo) GetWarehouseItemByCode(ctx context.Context, code string) (*core.WarehouseItem, error) {
	it, err := scanItem(r.q.QueryRow(ctx,
		"SELECT "+itemColumns+" FROM warehouse_items WHERE internal_code = $1"+r.forUpdate, code))
	if err != nil {
		return nil, fmt.Errorf("failed to get warehouse item %q: %w", code, mapErr(err))
	}
	return &it, nil
}

func (r *repo) ListWarehouseItems(ctx context.Context, f core.ItemFilter) ([]core.WarehouseItem, error) {
	var w where
	if !f.IncludeArchived {
		w.raw("archived = false")
	}
	if f.WarehouseType != "" {
		w.add("warehouse_type = $%d", f.WarehouseType)
	}
	rows, err := r.q.Query(ctx, "SELECT "+itemColumns+" FROM warehouse_items"+w.String()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query warehouse items: %w", err)
	}
	out, err := collect(rows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("failed to scan warehouse item: %w", err)
	}
	return out, nil
}

func (r *repo) CreateWarehouseItem(ctx context.Context, it *core.WarehouseItem) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO warehouse_items (internal_code, name, unit, warehouse_type, minimum_stock,
		                             current_stock, archived)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		it.InternalCode, it.Name, it.Unit, it.WarehouseType, it.MinimumStock, it.CurrentStock, it.Archived,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create warehouse item %q: %w", it.InternalCode, mapErr(err))
	}
	return nil
}

func (r *repo) UpdateWarehouseItem(ctx context.Context, it *core.WarehouseItem) error {
	err := r.q.QueryRow(ctx, `
		UPDATE warehouse_items
		SET name = $2, unit = $3, warehouse_type = $4, minimum_stock = $5, current_stock = $6,
		    archived = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		it.ID, it.Name, it.Unit, it.WarehouseType, it.MinimumStock, it.CurrentStock, it.Archived,
	).Scan(&it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update warehouse item %d: %w", it.ID, mapErr(err))
	}
	return nil
}

// ── movements ─────────────────────────────────────────────────────────────────

func (r *repo) CreateMovement(ctx context.Context, m *core.WarehouseMovement) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO warehouse_movements (item_id, movement_type, quantity, previous_stock, new_stock,
		                                 reason, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		m.ItemID, string(m.MovementType), m.Quantity, m.PreviousStock, m.NewStock, m.Reason, m.CreatedBy,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record movement for item %d: %w", m.ItemID, mapErr(err))
	}
	return nil
}

func (r *repo) ListMovements(ctx context.Context, itemID int) ([]core.WarehouseMovement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, item_id, movement_type, quantity, previous_stock, new_stock, reason, created_by, created_at
		FROM warehouse_movements
		WHERE item_id = $1
		ORDER BY id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	out, err := collect(rows, func(row pgx.Row) (core.WarehouseMovement, error) {
		var m core.WarehouseMovement
		err := row.Scan(&m.ID, &m.ItemID, &m.MovementType, &m.Quantity, &m.PreviousStock, &m.NewStock,
			&m.Reason, &m.CreatedBy, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan movement: %w", err)
	}
	return out, nil
}

// ── finished goods batches ────────────────────────────────────────────────────

const batchColumns = `id, batch_code, sku_id, quantity, production_date, expiration_date, status,
	created_at, updated_at`

func scanBatch(row pgx.Row) (core.FinishedGoodsBatch, error) {
	var b core.FinishedGoodsBatch
	err := row.Scan(
		&b.ID, &b.BatchCode, &b.SKUID, &b.Quantity, &b.ProductionDate, &b.ExpirationDate, &b.Status,
		&b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

func (r *repo) GetBatch(ctx context.Context, id int) (*core.FinishedGoodsBatch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx,
		"SELECT "+batchColumns+" FROM finished_goods_batches WHERE id = $1"+r.forUpdate, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get batch %d: %w", id, mapErr(err))
	}
	return &b, nil
}

func (r *repo) ListBatches(ctx context.Context, f core.BatchFilter) ([]core.FinishedGoodsBatch, error) {
	var w where
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}
	if f.SKUID != 0 {
		w.add("sku_id = $%d", f.SKUID)
	}
	if f.ExpiringBefore != nil {
		w.add("expiration_date <= $%d", *f.ExpiringBefore)
	}
	rows, err := r.q.Query(ctx, "SELECT "+batchColumns+" FROM finished_goods_batches"+w.String()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	out, err := collect(rows, scanBatch)
	if err != nil {
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}
	return out, nil
}

func (r *repo) CreateBatch(ctx context.Context, b *core.FinishedGoodsBatch) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO finished_goods_batches (batch_code, sku_id, quantity, production_date,
		                                    expiration_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		b.BatchCode, b.SKUID, b.Quantity, b.ProductionDate, b.ExpirationDate, string(b.Status),
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create batch %q: %w", b.BatchCode, mapErr(err))
	}
	return nil
}

func (r *repo) UpdateBatch(ctx context.Context, b *core.FinishedGoodsBatch) error {
	err := r.q.QueryRow(ctx, `
		UPDATE finished_goods_batches
		SET quantity = $2, status = $3, expiration_date = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		b.ID, b.Quantity, string(b.Status), b.ExpirationDate,
	).Scan(&b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update batch %d: %w", b.ID, mapErr(err))
	}
	return nil
}
