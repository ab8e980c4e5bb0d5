package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// WarehouseItem is a stocked material. InternalCode is unique across all items, archived included.
type WarehouseItem struct {
	ID            int             `json:"id"`
	InternalCode  string          `json:"internalCode"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	WarehouseType string          `json:"warehouseType"`
	MinimumStock  decimal.Decimal `json:"minimumStock"`
	CurrentStock  decimal.Decimal `json:"currentStock"`
	Archived      bool            `json:"archived"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type ItemFilter struct {
	WarehouseType   string
	IncludeArchived bool
}

type MovementType string

const (
	MovementIn         MovementType = "entrada"
	MovementOut        MovementType = "saida"
	MovementAdjustment MovementType = "ajuste" // sets stock to Quantity
)

// WarehouseMovement is an append-only stock change record.
type WarehouseMovement struct {
	ID            int             `json:"id"`
	ItemID        int             `json:"itemId"`
	MovementType  MovementType    `json:"movementType"`
	Quantity      decimal.Decimal `json:"quantity"`
	PreviousStock decimal.Decimal `json:"previousStock"`
	NewStock      decimal.Decimal `json:"newStock"`
	Reason        string          `json:"reason,omitempty"`
	CreatedBy     string          `json:"createdBy,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type BatchStatus string

const (
	BatchAvailable BatchStatus = "disponivel"
	BatchReserved  BatchStatus = "reservado"
	BatchShipped   BatchStatus = "expedido"
)

// FinishedGoodsBatch is a dated lot of a SKU. ExpirationDate is always after ProductionDate.
type FinishedGoodsBatch struct {
	ID             int             `json:"id"`
	BatchCode      string          `json:"batchCode"`
	SKUID          int             `json:"skuId"`
	Quantity       decimal.Decimal `json:"quantity"`
	ProductionDate time.Time       `json:"productionDate"`
	ExpirationDate time.Time       `json:"expirationDate"`
	Status         BatchStatus     `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type BatchFilter struct {
	Status         BatchStatus
	SKUID          int
	ExpiringBefore *time.Time // inclusive
}

type CreateItemInput struct {
	InternalCode  string          `json:"internalCode"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	WarehouseType string          `json:"warehouseType"`
	MinimumStock  decimal.Decimal `json:"minimumStock"`
	CurrentStock  decimal.Decimal `json:"currentStock"`
}

// UpdateItemInput changes descriptive fields only. Stock changes go through movements.
type UpdateItemInput struct {
	Name          *string          `json:"name,omitempty"`
	Unit          *string          `json:"unit,omitempty"`
	WarehouseType *string          `json:"warehouseType,omitempty"`
	MinimumStock  *decimal.Decimal `json:"minimumStock,omitempty"`
}

type CreateMovementInput struct {
	ItemID       int             `json:"itemId"`
	MovementType MovementType    `json:"movementType"`
	Quantity     decimal.Decimal `json:"quantity"`
	Reason       string          `json:"reason"`
	CreatedBy    string          `json:"createdBy"`
}

type CreateBatchInput struct {
	BatchCode      string          `json:"batchCode"`
	SKUID          int             `json:"skuId"`
	Quantity       decimal.Decimal `json:"quantity"`
	ProductionDate time.Time       `json:"productionDate"`
	ExpirationDate time.Time       `json:"expirationDate"`
}

type LowStockAlert struct {
	ItemID        int             `json:"itemId"`
	InternalCode  string          `json:"internalCode"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	WarehouseType string          `json:"warehouseType"`
	MinimumStock  decimal.Decimal `json:"minimumStock"`
	CurrentStock  decimal.Decimal `json:"currentStock"`
	Deficit       decimal.Decimal `json:"deficit"`
}
