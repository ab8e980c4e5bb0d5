package apperror

import "net/http"

// Reasons carried by UnauthorizedError.
const (
	ReasonTokenExpired       = "token_expired"
	ReasonInvalidToken       = "invalid_token"
	ReasonMissingToken       = "missing_token"
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonInvalidSession     = "invalid_session"
)

// UnauthorizedError means no or invalid credentials. Always 401 / UNAUTHORIZED.
type UnauthorizedError struct {
	*AppError
	Reason string
}

// NewUnauthorized builds an UnauthorizedError with an optional reason.
func NewUnauthorized(message, reason string) *UnauthorizedError {
	if message == "" {
		message = "Não autorizado"
	}
	var details map[string]any
	if reason != "" {
		details = map[string]any{"reason": reason}
	}
	return &UnauthorizedError{
		AppError: New(message, http.StatusUnauthorized, CodeUnauthorized, true, details),
		Reason:   reason,
	}
}

func TokenExpired() *UnauthorizedError {
	return NewUnauthorized("Token de acesso expirado", ReasonTokenExpired)
}

func InvalidToken() *UnauthorizedError {
	return NewUnauthorized("Token de acesso inválido", ReasonInvalidToken)
}

func MissingToken() *UnauthorizedError {
	return NewUnauthorized("Token de acesso não fornecido", ReasonMissingToken)
}

func InvalidCredentials() *UnauthorizedError {
	return NewUnauthorized("Credenciais inválidas", ReasonInvalidCredentials)
}

func InvalidSession() *UnauthorizedError {
	return NewUnauthorized("Sessão inválida ou expirada", ReasonInvalidSession)
}

// ForbiddenError means the caller is authenticated but lacks permission. Always 403 / FORBIDDEN.
type ForbiddenError struct {
	*AppError
	RequiredPermission string
	UserRole           string
}

// NewForbidden builds a ForbiddenError. requiredPermission and userRole are optional.
func NewForbidden(message, requiredPermission, userRole string) *ForbiddenError {
	if message == "" {
		message = "Acesso negado"
	}
	details := map[string]any{}
	if requiredPermission != "" {
		details["requiredPermission"] = requiredPermission
	}
	if userRole != "" {
		details["userRole"] = userRole
	}
	if len(details) == 0 {
		details = nil
	}
	return &ForbiddenError{
		AppError:           New(message, http.StatusForbidden, CodeForbidden, true, details),
		RequiredPermission: requiredPermission,
		UserRole:           userRole,
	}
}

// InsufficientPermission is returned when userRole does not grant permission.
func InsufficientPermission(permission, userRole string) *ForbiddenError {
	return NewForbidden("Permissão insuficiente para executar esta operação", permission, userRole)
}

// RoleRequired is returned when an operation is limited to a specific role.
func RoleRequired(role, userRole string) *ForbiddenError {
	return NewForbidden("Operação restrita ao perfil "+role, "role:"+role, userRole)
}
