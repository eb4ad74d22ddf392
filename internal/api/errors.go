package api

// ErrorResponse is the standard error body shape for the admin API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

const (
	TagValidationFailed = "validation_failed"
	TagBadRequest       = "bad_request"
	TagNotFound         = "not_found"
	TagInternalError    = "internal_error"
)
