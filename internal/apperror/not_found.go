package apperror

import (
	"fmt"
	"net/http"
)

// NotFoundError reports a missing entity. Always 404 / NOT_FOUND.
type NotFoundError struct {
	*AppError
	EntityType string
	EntityID   string
}

// NewNotFound builds a NotFoundError. entityID may be empty; message overrides the default text.
func NewNotFound(entityType string, entityID any, message ...string) *NotFoundError {
	id := ""
	if entityID != nil {
		id = fmt.Sprint(entityID)
	}

	msg := fmt.Sprintf("%s não encontrado", entityType)
	if id != "" {
		msg = fmt.Sprintf("%s com ID '%s' não encontrado", entityType, id)
	}
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}

	details := map[string]any{"entityType": entityType}
	if id != "" {
		details["entityId"] = id
	}

	return &NotFoundError{
		AppError:   New(msg, http.StatusNotFound, CodeNotFound, true, details),
		EntityType: entityType,
		EntityID:   id,
	}
}

func ProducerNotFound(id any) *NotFoundError        { return NewNotFound("Produtor", id) }
func LoadNotFound(id any) *NotFoundError            { return NewNotFound("Carga", id) }
func BatchNotFound(id any) *NotFoundError           { return NewNotFound("Lote", id) }
func SKUNotFound(id any) *NotFoundError             { return NewNotFound("SKU", id) }
func UserNotFound(id any) *NotFoundError            { return NewNotFound("Usuário", id) }
func WarehouseItemNotFound(id any) *NotFoundError   { return NewNotFound("Item de almoxarifado", id) }
func PaymentNotFound(id any) *NotFoundError         { return NewNotFound("Pagamento", id) }
func ProductionOrderNotFound(id any) *NotFoundError { return NewNotFound("Ordem de produção", id) }
func NonConformityNotFound(id any) *NotFoundError   { return NewNotFound("Não conformidade", id) }
func AnalysisNotFound(id any) *NotFoundError        { return NewNotFound("Análise de qualidade", id) }
