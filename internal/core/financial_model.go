package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Producer is a coconut supplier. Producers are maintained by the receiving module;
// this layer only reads them.
type Producer struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Document  string    `json:"document"` // CPF or CNPJ
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoadStatus is the lifecycle state of a coconut receiving load.
type LoadStatus string

const (
	LoadOpen      LoadStatus = "aberta"
	LoadClosed    LoadStatus = "fechada"
	LoadCancelled LoadStatus = "cancelada"
)

// Load is one receiving of raw coconuts from a producer.
type Load struct {
	ID           int             `json:"id"`
	ProducerID   int             `json:"producerId"`
	Status       LoadStatus      `json:"status"`
	QualityGrade *string         `json:"qualityGrade,omitempty"` // A, B, C or D
	NetWeight    decimal.Decimal `json:"netWeight"`
	ReceivedAt   time.Time       `json:"receivedAt"`
}

// LoadFilter narrows ListLoads. Zero values mean "any".
type LoadFilter struct {
	ProducerID int
	Status     LoadStatus
}

type PayableStatus string

const (
	PayablePending   PayableStatus = "pendente"
	PayablePaid      PayableStatus = "pago"
	PayableCancelled PayableStatus = "cancelado"
)

// Payable is an amount owed to a producer.
// PaidAmount never exceeds Amount and status only moves pendente→pago or pendente→cancelado.
type Payable struct {
	ID            int             `json:"id"`
	ProducerID    int             `json:"producerId"`
	LoadID        *int            `json:"loadId,omitempty"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	Status        PayableStatus   `json:"status"`
	DueDate       time.Time       `json:"dueDate"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	Observations  string          `json:"observations,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// PendingAmount is Amount minus what has already been paid.
func (p Payable) PendingAmount() decimal.Decimal {
	return p.Amount.Sub(p.PaidAmount)
}

type PayableFilter struct {
	Status     PayableStatus
	ProducerID int
	DueBefore  *time.Time // strictly before
}

type ReceivableStatus string

const (
	ReceivablePending   ReceivableStatus = "pendente"
	ReceivableReceived  ReceivableStatus = "recebido"
	ReceivableCancelled ReceivableStatus = "cancelado"
)

// Receivable is an amount owed to the company by a customer.
type Receivable struct {
	ID             int              `json:"id"`
	CustomerName   string           `json:"customerName"`
	Description    string           `json:"description"`
	Amount         decimal.Decimal  `json:"amount"`
	ReceivedAmount decimal.Decimal  `json:"receivedAmount"`
	Status         ReceivableStatus `json:"status"`
	DueDate        time.Time        `json:"dueDate"`
	ReceivedAt     *time.Time       `json:"receivedAt,omitempty"`
	PaymentMethod  string           `json:"paymentMethod,omitempty"`
	Observations   string           `json:"observations,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

func (r Receivable) PendingAmount() decimal.Decimal {
	return r.Amount.Sub(r.ReceivedAmount)
}

type ReceivableFilter struct {
	Status    ReceivableStatus
	DueBefore *time.Time
}

// DashboardStats is the aggregate read behind the cash-flow summary.
// Amounts are pending amounts (Amount - PaidAmount) of pendente payables.
type DashboardStats struct {
	PendingPayablesTotal decimal.Decimal
	PendingPayablesCount int
	OverduePayablesTotal decimal.Decimal
	OverduePayablesCount int
	PayablesNext30Days   decimal.Decimal
}

// CashFlowSummary is returned by FinancialService.GetCashFlowSummary.
// The receivable fields are not aggregated yet and are always zero.
type CashFlowSummary struct {
	TotalPayables         decimal.Decimal `json:"totalPayables"`
	OverduePayables       decimal.Decimal `json:"overduePayables"`
	PayablesNext30Days    decimal.Decimal `json:"payablesNext30Days"`
	PendingPayablesCount  int             `json:"pendingPayablesCount"`
	OverduePayablesCount  int             `json:"overduePayablesCount"`
	TotalReceivables      decimal.Decimal `json:"totalReceivables"`
	OverdueReceivables    decimal.Decimal `json:"overdueReceivables"`
	ReceivablesNext30Days decimal.Decimal `json:"receivablesNext30Days"`
	ProjectedBalance      decimal.Decimal `json:"projectedBalance"`
}

// CreatePayableInput is the payload of FinancialService.CreatePayable.
type CreatePayableInput struct {
	ProducerID    int             `json:"producerId"`
	LoadID        *int            `json:"loadId,omitempty"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"dueDate"`
	PaymentMethod string          `json:"paymentMethod"`
	Observations  string          `json:"observations"`
}

type CreateReceivableInput struct {
	CustomerName  string          `json:"customerName"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"dueDate"`
	PaymentMethod string          `json:"paymentMethod"`
	Observations  string          `json:"observations"`
}

// PaymentInput settles a payable or receivable. A zero PaidAmount settles the full pending amount.
type PaymentInput struct {
	ID            int             `json:"id"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	PaymentMethod string          `json:"paymentMethod"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
}
