package contract

// Error codes carried in ErrorBody.Code.
const (
	CodeValidation            = "validation_error"
	CodeUnauthorized          = "unauthorized"
	CodeTokenExpired          = "token_expired"
	CodeNotFound              = "not_found"
	CodeProfileNotInitialized = "profile_not_initialized"
	CodeMethodNotAllowed      = "method_not_allowed"
	CodeConflict              = "conflict"
	CodeInternal              = "internal_error"
)

// DataEnvelope wraps every successful response body.
type DataEnvelope struct {
	Data any `json:"data"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorEnvelope wraps every error response body.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}
