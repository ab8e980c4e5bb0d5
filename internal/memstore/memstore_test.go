package memstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"coconut-erp/internal/core"
	"coconut-erp/internal/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	item := &core.WarehouseItem{InternalCode: "CX-01", Name: "Caixa", Unit: "un", CurrentStock: decimal.NewFromInt(10)}
	require.NoError(t, s.CreateWarehouseItem(ctx, item))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, repo core.Repository) error {
		it, err := repo.GetWarehouseItem(ctx, item.ID)
		require.NoError(t, err)
		it.CurrentStock = decimal.NewFromInt(99)
		require.NoError(t, repo.UpdateWarehouseItem(ctx, it))
		require.NoError(t, repo.CreateMovement(ctx, &core.WarehouseMovement{ItemID: it.ID, MovementType: core.MovementAdjustment}))
		_, err = repo.NextNCSequence(ctx)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetWarehouseItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentStock.Equal(decimal.NewFromInt(10)))

	movements, err := s.ListMovements(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)

	seq, err := s.NextNCSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	var id int
	err := s.WithinTx(ctx, func(ctx context.Context, repo core.Repository) error {
		p := &core.Producer{Name: "Sítio Boa Vista", Active: true}
		if err := repo.CreateProducer(ctx, p); err != nil {
			return err
		}
		id = p.ID
		return nil
	})
	require.NoError(t, err)

	p, err := s.GetProducer(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Sítio Boa Vista", p.Name)
}

func TestWithinTx_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := memstore.New().WithinTx(ctx, func(context.Context, core.Repository) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWithinTx_SerializesConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	item := &core.WarehouseItem{InternalCode: "AG-01", Name: "Água de coco", Unit: "L"}
	require.NoError(t, s.CreateWarehouseItem(ctx, item))

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithinTx(ctx, func(ctx context.Context, repo core.Repository) error {
				it, err := repo.GetWarehouseItem(ctx, item.ID)
				if err != nil {
					return err
				}
				it.CurrentStock = it.CurrentStock.Add(decimal.NewFromInt(1))
				return repo.UpdateWarehouseItem(ctx, it)
			})
		}()
	}
	wg.Wait()

	got, err := s.GetWarehouseItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentStock.Equal(decimal.NewFromInt(workers)), "got %s", got.CurrentStock)
}

func TestUniqueCodes(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	require.NoError(t, s.CreateWarehouseItem(ctx, &core.WarehouseItem{InternalCode: "X"}))
	assert.ErrorIs(t, s.CreateWarehouseItem(ctx, &core.WarehouseItem{InternalCode: "X"}), core.ErrDuplicateRecord)

	require.NoError(t, s.CreateBatch(ctx, &core.FinishedGoodsBatch{BatchCode: "L1"}))
	assert.ErrorIs(t, s.CreateBatch(ctx, &core.FinishedGoodsBatch{BatchCode: "L1"}), core.ErrDuplicateRecord)
}

func TestListWarehouseItems_HidesArchived(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	active := &core.WarehouseItem{InternalCode: "A"}
	archived := &core.WarehouseItem{InternalCode: "B", Archived: true}
	require.NoError(t, s.CreateWarehouseItem(ctx, active))
	require.NoError(t, s.CreateWarehouseItem(ctx, archived))

	items, err := s.ListWarehouseItems(ctx, core.ItemFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].InternalCode)

	items, err = s.ListWarehouseItems(ctx, core.ItemFilter{IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestGetMissingRecord(t *testing.T) {
	_, err := memstore.New().GetPayable(context.Background(), 404)
	assert.ErrorIs(t, err, core.ErrRecordNotFound)
}
