package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Business rule identifiers. They are stable and safe to match on.
const (
	// load
	RuleLoadAlreadyClosed    = "LOAD_ALREADY_CLOSED"
	RuleLoadAlreadyCancelled = "LOAD_ALREADY_CANCELLED"

	// payment
	RulePaymentAlreadyPaid      = "PAYMENT_ALREADY_PAID"
	RulePaymentAlreadyCancelled = "PAYMENT_ALREADY_CANCELLED"

	// stock
	RuleInsufficientStock = "INSUFFICIENT_STOCK"
	RuleNegativeStock     = "NEGATIVE_STOCK"

	// production
	RuleProductionOrderAlreadyCompleted = "PRODUCTION_ORDER_ALREADY_COMPLETED"
	RuleProductionOrderNotStarted       = "PRODUCTION_ORDER_NOT_STARTED"

	// batch
	RuleBatchExpired          = "BATCH_EXPIRED"
	RuleBatchNotAvailable     = "BATCH_NOT_AVAILABLE"
	RuleBatchQuantityExceeded = "BATCH_QUANTITY_EXCEEDED"

	// quality
	RuleNCAlreadyClosed = "NC_ALREADY_CLOSED"

	// purchase
	RulePurchaseOrderAlreadyApproved = "PURCHASE_ORDER_ALREADY_APPROVED"
	RulePurchaseBudgetExceeded       = "PURCHASE_BUDGET_EXCEEDED"

	// general
	RuleInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	RuleOperationNotAllowed     = "OPERATION_NOT_ALLOWED"
)

// BusinessError reports well-formed input that violates a domain rule.
// Always 422 / BUSINESS_RULE_VIOLATION.
type BusinessError struct {
	*AppError
	Rule    string
	Context map[string]any
}

// NewBusiness builds a BusinessError. Rule and context are copied into Details.
func NewBusiness(message, rule string, context map[string]any) *BusinessError {
	details := map[string]any{"rule": rule}
	for k, v := range context {
		details[k] = v
	}
	return &BusinessError{
		AppError: New(message, http.StatusUnprocessableEntity, CodeBusinessRule, true, details),
		Rule:     rule,
		Context:  context,
	}
}

// IsRule reports whether err carries a BusinessError with the given rule.
func IsRule(err error, rule string) bool {
	var be *BusinessError
	if !errors.As(err, &be) {
		return false
	}
	return be.Rule == rule
}

// ── load ─────────────────────────────────────────────────────────────────────

func LoadAlreadyClosed(loadID any) *BusinessError {
	return NewBusiness(fmt.Sprintf("A carga %v já está fechada", loadID), RuleLoadAlreadyClosed,
		map[string]any{"loadId": loadID})
}

func LoadAlreadyCancelled(loadID any) *BusinessError {
	return NewBusiness(fmt.Sprintf("A carga %v está cancelada", loadID), RuleLoadAlreadyCancelled,
		map[string]any{"loadId": loadID})
}

// ── payment ──────────────────────────────────────────────────────────────────

func PaymentAlreadyPaid(paymentID any) *BusinessError {
	return NewBusiness(fmt.Sprintf("O pagamento %v já foi realizado", paymentID), RulePaymentAlreadyPaid,
		map[string]any{"paymentId": paymentID})
}

func PaymentAlreadyCancelled(paymentID any) *BusinessError {
	return NewBusiness(fmt.Sprintf("O pagamento %v está cancelado", paymentID), RulePaymentAlreadyCancelled,
		map[string]any{"paymentId": paymentID})
}

// ── stock ────────────────────────────────────────────────────────────────────

// InsufficientStock reports a withdrawal of requested units when only available remain.
func InsufficientStock(itemName string, requested, available any) *BusinessError {
	return NewBusiness(
		fmt.Sprintf("Estoque insuficiente para %s: solicitado %v, disponível %v", itemName, requested, available),
		RuleInsufficientStock,
		map[string]any{"itemName": itemName, "requested": requested, "available": available},
	)
}

func NegativeStock(itemName string, resulting any) *BusinessError {
	return NewBusiness(fmt.Sprintf("A operação deixaria o estoque de %s negativo (%v)", itemName, resulting),
		RuleNegativeStock, map[string]any{"itemName": itemName, "resultingStock": resulting})
}

// ── production ───────────────────────────────────────────────────────────────

func ProductionOrderAlreadyCompleted(orderID any) *BusinessError {
	return NewBusiness(fmt.Sprintf("A ordem de produção %v já foi concluída", orderID),
		RuleProductionOrderAlreadyCompleted, map[string]any{"productionOrderId": orderID})
}

func ProductionOrderNotStarted(orderID any) *BusinessError {
	return NewBusiness(fmt.Sprintf("A ordem de produção %v ainda não foi iniciada", orderID),
		RuleProductionOrderNotStarted, map[string]any{"productionOrderId": orderID})
}

// ── batch ────────────────────────────────────────────────────────────────────

func BatchExpired(batchCode string, expiredAt any) *BusinessError {
	return NewBusiness(fmt.Sprintf("O lote %s está vencido", batchCode), RuleBatchExpired,
		map[string]any{"batchCode": batchCode, "expirationDate": expiredAt})
}

func BatchNotAvailable(batchCode, status string) *BusinessError {
	return NewBusiness(fmt.Sprintf("O lote %s não está disponível (status: %s)", batchCode, status),
		RuleBatchNotAvailable, map[string]any{"batchCode": batchCode, "status": status})
}

func BatchQuantityExceeded(batchCode string, requested, available any) *BusinessError {
	return NewBusiness(
		fmt.Sprintf("Quantidade solicitada (%v) excede a disponível no lote %s (%v)", requested, batchCode, available),
		RuleBatchQuantityExceeded,
		map[string]any{"batchCode": batchCode, "requested": requested, "available": available},
	)
}

// ── quality ──────────────────────────────────────────────────────────────────

func NCAlreadyClosed(ncNumber string) *BusinessError {
	return NewBusiness(fmt.Sprintf("A não conformidade %s já está fechada", ncNumber), RuleNCAlreadyClosed,
		map[string]any{"ncNumber": ncNumber})
}

// ── purchase ─────────────────────────────────────────────────────────────────

func PurchaseOrderAlreadyApproved(orderID any) *BusinessError {
	return NewBusiness(fmt.Sprintf("O pedido de compra %v já foi aprovado", orderID),
		RulePurchaseOrderAlreadyApproved, map[string]any{"purchaseOrderId": orderID})
}

func PurchaseBudgetExceeded(requested, budget any) *BusinessError {
	return NewBusiness(fmt.Sprintf("Valor da compra (%v) excede o orçamento disponível (%v)", requested, budget),
		RulePurchaseBudgetExceeded, map[string]any{"requested": requested, "budget": budget})
}

// ── general ──────────────────────────────────────────────────────────────────

func InvalidStatusTransition(entity, from, to string) *BusinessError {
	return NewBusiness(
		fmt.Sprintf("Transição de status inválida para %s: %s → %s", entity, from, to),
		RuleInvalidStatusTransition,
		map[string]any{"entity": entity, "currentStatus": from, "targetStatus": to},
	)
}

func OperationNotAllowed(operation, reason string) *BusinessError {
	msg := fmt.Sprintf("Operação não permitida: %s", operation)
	if reason != "" {
		msg += " (" + reason + ")"
	}
	return NewBusiness(msg, RuleOperationNotAllowed, map[string]any{"operation": operation, "reason": reason})
}
