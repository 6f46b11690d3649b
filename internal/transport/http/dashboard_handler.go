package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "eventdash/internal/errors"
	custommw "eventdash/internal/middleware"
	"eventdash/internal/services"
	"eventdash/pkg/contracts/domain"
)

// CSVFilename is the attachment name of the table download
const CSVFilename = "patient_events.csv"

type filtersKey struct{}

// DashboardQuery is the raw filter selection taken from the query string.
// Each field holds a choice as listed by the options endpoint: the "All"
// label or empty for no restriction, otherwise an encoded dimension value
// (see domain.EncodeChoice).
type DashboardQuery struct {
	Month     string `query:"month" json:"month" validate:"omitempty,yearmonth"`
	Diagnosis string `query:"diagnosis" json:"diagnosis"`
	AgeGroup  string `query:"age_group" json:"age_group"`
	OrgUnit   string `query:"org_unit" json:"org_unit"`
}

// Filters decodes the choices into selectors
func (q DashboardQuery) Filters() domain.Filters {
	return domain.Filters{
		Month:     domain.DecodeChoice(q.Month, domain.AnyMonthLabel),
		Diagnosis: domain.DecodeChoice(q.Diagnosis, domain.AnyDiagnosisLabel),
		AgeGroup:  domain.DecodeChoice(q.AgeGroup, domain.AnyAgeGroupLabel),
		OrgUnit:   domain.DecodeChoice(q.OrgUnit, domain.AnyOrgUnitLabel),
	}
}

// Resolve validates the selection and converts it into selectors. Only the
// month has a format; other dimensions accept any value.
func (q DashboardQuery) Resolve(v *custommw.Validator) (domain.Filters, error) {
	filters := q.Filters()
	month, _ := filters.Month.Value()
	if err := v.Struct(DashboardQuery{Month: month}); err != nil {
		return domain.Filters{}, err
	}
	return filters, nil
}

// ChartRequest is the chart path parameter
type ChartRequest struct {
	Name string `json:"chart" validate:"chartname"`
}

// Response is the success envelope of the JSON endpoints
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
	Count  *int        `json:"count,omitempty"`
}

func success(data interface{}) Response {
	return Response{Status: "success", Data: data}
}

func successCount(data interface{}, count int) Response {
	return Response{Status: "success", Data: data, Count: &count}
}

// DashboardHandler handles the dashboard HTTP requests with RFC 7807 errors
type DashboardHandler struct {
	service      DashboardServiceInterface
	validator    *custommw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, validator *custommw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = custommw.NewValidator()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &DashboardHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/options", h.GetOptions)
	r.Get("/stats", h.GetStats)

	r.Group(func(r chi.Router) {
		r.Use(h.FiltersCtx)
		r.Get("/", h.GetDashboard)
		r.Get("/table", h.GetTable)
		r.Get("/table.csv", h.DownloadTableCSV)
		r.Get("/charts/{chart}.png", h.GetChart)
	})

	return r
}

// FiltersCtx middleware validates the filter query and loads the selectors
// into the request context
func (h *DashboardHandler) FiltersCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		values := r.URL.Query()
		q := DashboardQuery{
			Month:     values.Get("month"),
			Diagnosis: values.Get("diagnosis"),
			AgeGroup:  values.Get("age_group"),
			OrgUnit:   values.Get("org_unit"),
		}

		filters, err := q.Resolve(h.validator)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), filtersKey{}, filters)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FiltersFromContext returns the selectors loaded by FiltersCtx
func FiltersFromContext(ctx context.Context) domain.Filters {
	if f, ok := ctx.Value(filtersKey{}).(domain.Filters); ok {
		return f
	}
	return domain.NoRestriction()
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	filters := FiltersFromContext(r.Context())

	dashboard, err := h.service.Query(r.Context(), filters, services.SourceHTTP)
	if err != nil {
		h.fail(w, r, "dashboard query failed", err)
		return
	}

	render.JSON(w, r, success(dashboard))
}

// GetOptions handles GET /api/dashboard/options
func (h *DashboardHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.service.Options(r.Context())
	if err != nil {
		h.fail(w, r, "failed to list selector options", err)
		return
	}

	render.JSON(w, r, success(options))
}

// GetTable handles GET /api/dashboard/table
func (h *DashboardHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	table, err := h.service.Table(r.Context(), FiltersFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, "failed to build table", err)
		return
	}

	render.JSON(w, r, successCount(table, len(table.Rows)))
}

// DownloadTableCSV handles GET /api/dashboard/table.csv
func (h *DashboardHandler) DownloadTableCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	rows, err := h.service.ExportCSV(r.Context(), FiltersFromContext(r.Context()), &buf)
	if err != nil {
		h.fail(w, r, "csv export failed", err)
		return
	}

	h.logger.InfoContext(r.Context(), "table exported",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("rows", rows))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+CSVFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// GetChart handles GET /api/dashboard/charts/{chart}.png
func (h *DashboardHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "chart")
	if err := h.validator.Struct(ChartRequest{Name: name}); err != nil {
		var apiErr *apierrors.APIError
		if errors.As(err, &apiErr) {
			err = apierrors.ErrUnknownChart.WithDetails(apiErr.Details)
		}
		h.fail(w, r, "invalid chart name", err, slog.String("chart", name))
		return
	}

	png, err := h.service.RenderChart(r.Context(), name, FiltersFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, "chart render failed", err, slog.String("chart", name))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// GetStats handles GET /api/dashboard/stats
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, r, "failed to read load statistics", err)
		return
	}

	render.JSON(w, r, success(stats))
}

func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error, attrs ...slog.Attr) {
	attrs = append(attrs,
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	h.logger.LogAttrs(r.Context(), slog.LevelDebug, msg, attrs...)
	h.errorHandler.HandleError(w, r, err)
}
