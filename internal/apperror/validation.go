package apperror

import (
	"fmt"
	"net/http"
	"strings"
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field      string `json:"field"`
	Message    string `json:"message"`
	Value      any    `json:"value,omitempty"`
	Constraint string `json:"constraint,omitempty"`
}

// ValidationError reports malformed or out-of-contract input. Always 400 / VALIDATION_ERROR.
// Field errors can be accumulated with AddFieldError and returned once.
type ValidationError struct {
	*AppError
	FieldErrors []FieldError
}

// NewValidation builds a ValidationError.
func NewValidation(message string, fieldErrors ...FieldError) *ValidationError {
	if message == "" {
		message = "Dados inválidos"
	}
	e := &ValidationError{
		AppError: New(message, http.StatusBadRequest, CodeValidation, true, nil),
	}
	for _, fe := range fieldErrors {
		e.AddFieldError(fe)
	}
	return e
}

// AddFieldError appends fe and keeps Details in sync.
func (e *ValidationError) AddFieldError(fe FieldError) *ValidationError {
	e.FieldErrors = append(e.FieldErrors, fe)
	e.WithDetail("fieldErrors", e.FieldErrors)
	return e
}

// Add is shorthand for AddFieldError without value or constraint.
func (e *ValidationError) Add(field, message string) *ValidationError {
	return e.AddFieldError(FieldError{Field: field, Message: message})
}

// HasErrors reports whether any field error was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.FieldErrors) > 0
}

func (e *ValidationError) HasErrorForField(field string) bool {
	for _, fe := range e.FieldErrors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) GetErrorsForField(field string) []FieldError {
	var out []FieldError
	for _, fe := range e.FieldErrors {
		if fe.Field == field {
			out = append(out, fe)
		}
	}
	return out
}

// ── Factories ────────────────────────────────────────────────────────────────

func Required(field string) *ValidationError {
	msg := fmt.Sprintf("O campo '%s' é obrigatório", field)
	return NewValidation(msg, FieldError{Field: field, Message: msg, Constraint: "required"})
}

func RequiredFields(fields ...string) *ValidationError {
	e := NewValidation("Campos obrigatórios não informados: " + strings.Join(fields, ", "))
	for _, f := range fields {
		e.AddFieldError(FieldError{
			Field:      f,
			Message:    fmt.Sprintf("O campo '%s' é obrigatório", f),
			Constraint: "required",
		})
	}
	return e
}

func InvalidFormat(field, expectedFormat string, value any) *ValidationError {
	msg := fmt.Sprintf("O campo '%s' deve estar no formato %s", field, expectedFormat)
	return NewValidation(msg, FieldError{Field: field, Message: msg, Value: value, Constraint: "format:" + expectedFormat})
}

// OutOfRange reports value outside [min, max]. Either bound may be nil.
func OutOfRange(field string, min, max, value any) *ValidationError {
	var msg, constraint string
	switch {
	case min != nil && max != nil:
		msg = fmt.Sprintf("O campo '%s' deve estar entre %v e %v", field, min, max)
		constraint = fmt.Sprintf("range:%v..%v", min, max)
	case min != nil:
		msg = fmt.Sprintf("O campo '%s' deve ser maior ou igual a %v", field, min)
		constraint = fmt.Sprintf("min:%v", min)
	case max != nil:
		msg = fmt.Sprintf("O campo '%s' deve ser menor ou igual a %v", field, max)
		constraint = fmt.Sprintf("max:%v", max)
	default:
		msg = fmt.Sprintf("O campo '%s' está fora do intervalo permitido", field)
		constraint = "range"
	}
	return NewValidation(msg, FieldError{Field: field, Message: msg, Value: value, Constraint: constraint})
}

func Duplicate(field string, value any) *ValidationError {
	msg := fmt.Sprintf("Já existe um registro com %s '%v'", field, value)
	return NewValidation(msg, FieldError{Field: field, Message: msg, Value: value, Constraint: "unique"})
}

func InvalidType(field, expectedType string, value any) *ValidationError {
	msg := fmt.Sprintf("O campo '%s' deve ser do tipo %s", field, expectedType)
	return NewValidation(msg, FieldError{Field: field, Message: msg, Value: value, Constraint: "type:" + expectedType})
}

func InvalidLength(field string, min, max int, value any) *ValidationError {
	msg := fmt.Sprintf("O campo '%s' deve ter entre %d e %d caracteres", field, min, max)
	return NewValidation(msg, FieldError{Field: field, Message: msg, Value: value, Constraint: fmt.Sprintf("length:%d..%d", min, max)})
}

func InvalidEmail(value string) *ValidationError {
	msg := "E-mail inválido"
	return NewValidation(msg, FieldError{Field: "email", Message: msg, Value: value, Constraint: "email"})
}

// InvalidDocument reports an invalid CPF/CNPJ (documentType names which one).
func InvalidDocument(documentType, value string) *ValidationError {
	msg := fmt.Sprintf("%s inválido", strings.ToUpper(documentType))
	return NewValidation(msg, FieldError{Field: strings.ToLower(documentType), Message: msg, Value: value, Constraint: "document"})
}

func InvalidDate(field string, value any) *ValidationError {
	msg := fmt.Sprintf("O campo '%s' contém uma data inválida", field)
	return NewValidation(msg, FieldError{Field: field, Message: msg, Value: value, Constraint: "date"})
}
