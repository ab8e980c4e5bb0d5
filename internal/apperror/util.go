package apperror

import "net/http"

// GenericMessage replaces the text of non-operational errors before they reach a client.
const GenericMessage = "Erro interno do servidor"

// IsOperational reports whether err is an expected, user-facing failure.
// Errors outside the taxonomy are never operational.
func IsOperational(err error) bool {
	ae, ok := As(err)
	return ok && ae.Operational
}

// ToAppError normalizes err into the taxonomy. An error that already is, or wraps, an
// AppError yields that same base value; anything else becomes a non-operational 500
// keeping the original as its cause.
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	if ae, ok := As(err); ok {
		return ae
	}
	ae := New(err.Error(), http.StatusInternalServerError, CodeInternal, false, nil)
	ae.Err = err
	return ae
}

// HandleError resolves err to the status and body a transport should write.
func HandleError(err error) (int, Response) {
	ae := ToAppError(err)
	if ae == nil {
		ae = Internal(GenericMessage)
	}
	resp := ae.ToJSON()
	if !ae.Operational {
		resp.Error.Message = GenericMessage
		resp.Error.Details = nil
	}
	return ae.StatusCode, resp
}
