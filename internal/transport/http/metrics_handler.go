package http

import (
	"net/http"

	apierrors "eventdash/internal/errors"
)

// MetricsHandler serves the Prometheus exposition produced by the OTel
// exporter. With metrics disabled it answers 404.
type MetricsHandler struct {
	exposition   http.Handler
	errorHandler *apierrors.ErrorHandler
}

// NewMetricsHandler wraps exposition, which may be nil
func NewMetricsHandler(exposition http.Handler, errorHandler *apierrors.ErrorHandler) *MetricsHandler {
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(nil, false)
	}
	return &MetricsHandler{exposition: exposition, errorHandler: errorHandler}
}

// Enabled reports whether a metrics exposition is available
func (h *MetricsHandler) Enabled() bool {
	return h.exposition != nil
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exposition == nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrNotFound.WithMessage("Metrics are disabled"))
		return
	}
	h.exposition.ServeHTTP(w, r)
}
