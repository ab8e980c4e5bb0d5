package apperror_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"coconut-erp/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusAndCodeFixedPerType(t *testing.T) {
	tests := []struct {
		name   string
		err    apperror.Error
		status int
		code   string
	}{
		{"not found with id", apperror.NewNotFound("Produtor", 7), http.StatusNotFound, apperror.CodeNotFound},
		{"not found custom message", apperror.NewNotFound("Lote", nil, "sumiu"), http.StatusNotFound, apperror.CodeNotFound},
		{"not found factory", apperror.WarehouseItemNotFound(3), http.StatusNotFound, apperror.CodeNotFound},
		{"unauthorized", apperror.NewUnauthorized("", ""), http.StatusUnauthorized, apperror.CodeUnauthorized},
		{"token expired", apperror.TokenExpired(), http.StatusUnauthorized, apperror.CodeUnauthorized},
		{"forbidden", apperror.NewForbidden("x", "perm", "role"), http.StatusForbidden, apperror.CodeForbidden},
		{"role required", apperror.RoleRequired("admin", "operador"), http.StatusForbidden, apperror.CodeForbidden},
		{"validation", apperror.NewValidation("bad"), http.StatusBadRequest, apperror.CodeValidation},
		{"required", apperror.Required("title"), http.StatusBadRequest, apperror.CodeValidation},
		{"out of range", apperror.OutOfRange("amount", 0, nil, -1), http.StatusBadRequest, apperror.CodeValidation},
		{"business", apperror.NewBusiness("no", "X", nil), http.StatusUnprocessableEntity, apperror.CodeBusinessRule},
		{"insufficient stock", apperror.InsufficientStock("Coco", 10, 5), http.StatusUnprocessableEntity, apperror.CodeBusinessRule},
		{"internal", apperror.Internal("boom"), http.StatusInternalServerError, apperror.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ae := tt.err.AppErr()
			assert.Equal(t, tt.status, ae.StatusCode)
			assert.Equal(t, tt.code, ae.Code)
			assert.True(t, ae.Operational)
			assert.False(t, ae.Timestamp.IsZero())
		})
	}
}

func TestNotFound_DefaultMessage(t *testing.T) {
	e := apperror.ProducerNotFound(42)
	assert.Equal(t, "Produtor com ID '42' não encontrado", e.Message)
	assert.Equal(t, "42", e.EntityID)
	assert.Equal(t, "Produtor", e.Details["entityType"])

	e = apperror.NewNotFound("SKU", nil)
	assert.Equal(t, "SKU não encontrado", e.Message)
	assert.NotContains(t, e.Details, "entityId")
}

func TestValidation_AccumulatesFieldErrors(t *testing.T) {
	v := apperror.NewValidation("Análise inválida")
	assert.False(t, v.HasErrors())

	v.Add("parameters[0].name", "obrigatório")
	v.AddFieldError(apperror.FieldError{Field: "parameters[0].value", Message: "fora da faixa", Value: 12, Constraint: "max:10"})
	v.Add("parameters[0].name", "muito curto")

	require.True(t, v.HasErrors())
	assert.True(t, v.HasErrorForField("parameters[0].name"))
	assert.False(t, v.HasErrorForField("parameters[1].name"))
	assert.Len(t, v.GetErrorsForField("parameters[0].name"), 2)
	assert.Len(t, v.Details["fieldErrors"], 3)
}

func TestRequiredFields(t *testing.T) {
	v := apperror.RequiredFields("title", "description")
	assert.Len(t, v.FieldErrors, 2)
	assert.Equal(t, "required", v.FieldErrors[1].Constraint)
	assert.Contains(t, v.Message, "title, description")
}

func TestBusiness_RuleAndContext(t *testing.T) {
	e := apperror.InsufficientStock("Coco verde", 150, 100)
	assert.Equal(t, apperror.RuleInsufficientStock, e.Rule)
	assert.Equal(t, 150, e.Context["requested"])
	assert.Equal(t, 100, e.Context["available"])
	assert.Equal(t, apperror.RuleInsufficientStock, e.Details["rule"])

	wrapped := fmt.Errorf("create movement: %w", apperror.InvalidStatusTransition("NC", "fechada", "em_analise"))
	assert.True(t, apperror.IsRule(wrapped, apperror.RuleInvalidStatusTransition))
	assert.False(t, apperror.IsRule(wrapped, apperror.RulePaymentAlreadyPaid))
	assert.False(t, apperror.IsRule(errors.New("plain"), apperror.RulePaymentAlreadyPaid))
}

func TestAs_FindsBaseThroughWrapping(t *testing.T) {
	nf := apperror.PaymentNotFound(9)
	wrapped := fmt.Errorf("mark paid: %w", nf)

	ae, ok := apperror.As(wrapped)
	require.True(t, ok)
	assert.Same(t, nf.AppError, ae)
	assert.True(t, apperror.IsAppError(wrapped))
	assert.False(t, apperror.IsAppError(errors.New("plain")))

	var target *apperror.NotFoundError
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "Pagamento", target.EntityType)
}

func TestToAppError_Idempotent(t *testing.T) {
	inputs := []error{
		errors.New("connection reset"),
		apperror.Required("amount"),
		fmt.Errorf("wrapped: %w", apperror.PaymentAlreadyPaid(1)),
		apperror.Internal("boom"),
	}
	for _, in := range inputs {
		once := apperror.ToAppError(in)
		twice := apperror.ToAppError(once)
		assert.Same(t, once, twice, "input %v", in)
	}
	assert.Nil(t, apperror.ToAppError(nil))
}

func TestToAppError_WrapsForeignErrorsAsNonOperational(t *testing.T) {
	cause := errors.New("pq: deadlock detected")
	ae := apperror.ToAppError(cause)

	assert.Equal(t, http.StatusInternalServerError, ae.StatusCode)
	assert.Equal(t, apperror.CodeInternal, ae.Code)
	assert.False(t, ae.Operational)
	assert.ErrorIs(t, ae, cause)
	assert.False(t, apperror.IsOperational(cause))
	assert.True(t, apperror.IsOperational(apperror.Required("x")))
}

func TestHandleError_HidesNonOperationalMessages(t *testing.T) {
	status, resp := apperror.HandleError(errors.New("sql: secret table missing"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, resp.Success)
	assert.Equal(t, apperror.GenericMessage, resp.Error.Message)

	status, resp = apperror.HandleError(apperror.PaymentAlreadyPaid(5))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "O pagamento 5 já foi realizado", resp.Error.Message)
	assert.Equal(t, apperror.RulePaymentAlreadyPaid, resp.Error.Details["rule"])
}

func TestToJSON_Envelope(t *testing.T) {
	raw, err := json.Marshal(apperror.Required("title").ToJSON())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, false, got["success"])
	body := got["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Equal(t, float64(400), body["statusCode"])
	assert.NotEmpty(t, body["timestamp"])
	assert.Contains(t, body["details"], "fieldErrors")
}
