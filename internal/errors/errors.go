package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError is the error a handler returns to a client. Sentinels below are
// shared values; use WithDetails or WithMessage to derive a variant.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Is matches any APIError carrying the same error code, so derived
// variants still compare equal to their sentinel under errors.Is.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.ErrorCode == e.ErrorCode
}

// Render implements render.Renderer
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// WithDetails returns a copy of e carrying details
func (e *APIError) WithDetails(details interface{}) *APIError {
	c := *e
	c.Details = details
	return &c
}

// WithMessage returns a copy of e with a different client message
func (e *APIError) WithMessage(message string) *APIError {
	c := *e
	c.Message = message
	return &c
}

// ValidationError describes one rejected selector or request field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new APIError
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

var (
	ErrInvalidRequest   = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")

	ErrNotFound     = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrUnknownChart = New(http.StatusNotFound, "UNKNOWN_CHART", "Chart not found")
	ErrNoData       = New(http.StatusNotFound, "NO_DATA", "No data available for the selected filters")

	ErrRateLimitExceeded = New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")

	ErrInternalServer   = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
	ErrWebSocketUpgrade = New(http.StatusInternalServerError, "WEBSOCKET_UPGRADE_FAILED", "WebSocket upgrade failed")

	ErrDatasetUnavailable = New(http.StatusServiceUnavailable, "DATASET_UNAVAILABLE", "No dataset is loaded")
)

// problemTypes maps error codes onto RFC 7807 problem types
var problemTypes = map[string]string{
	ErrInvalidRequest.ErrorCode:     TypeValidation,
	ErrValidationFailed.ErrorCode:   TypeValidation,
	ErrNotFound.ErrorCode:           TypeNotFound,
	ErrUnknownChart.ErrorCode:       TypeUnknownChart,
	ErrNoData.ErrorCode:             TypeNoData,
	ErrRateLimitExceeded.ErrorCode:  TypeRateLimit,
	ErrWebSocketUpgrade.ErrorCode:   TypeWebSocketUpgrade,
	ErrDatasetUnavailable.ErrorCode: TypeServiceDown,
}

// NoDataError reports an empty series for the named chart. It carries the
// dashboard's own wording so clients can show it verbatim.
func NoDataError(chart, message string) *APIError {
	return ErrNoData.WithMessage(message).WithDetails(map[string]string{"chart": chart})
}

// NewValidationErrors lists every rejected field
func NewValidationErrors(fields []ValidationError) *APIError {
	return ErrValidationFailed.WithDetails(fields)
}
