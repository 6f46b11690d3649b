package http

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5/middleware"

	"eventdash/internal/charts"
	apierrors "eventdash/internal/errors"
	"eventdash/internal/services"
	"eventdash/pkg/contracts/domain"
)

// maxPageRows caps the table shown on the HTML page; the CSV has every row
const maxPageRows = 500

var pageTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Patient Event Dashboard</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 32px; }
        form select { margin-right: 12px; }
        .summary { padding: 10px; margin: 12px 0; background-color: #d1ecf1; color: #0c5460; }
        .nodata { padding: 10px; background-color: #fff3cd; color: #856404; }
        table { border-collapse: collapse; font-size: 13px; }
        td, th { border: 1px solid #ccc; padding: 4px 8px; }
        img { display: block; margin: 16px 0; max-width: 100%; }
    </style>
</head>
<body>
    <h1>Patient Event Dashboard</h1>
    <form method="get" action="/">
        {{range .Selectors}}
        <label>{{.Label}}
            <select name="{{.Key}}">
                {{$selected := .Selected}}{{range .Choices}}<option value="{{.}}"{{if eq . $selected}} selected{{end}}>{{.}}</option>{{end}}
            </select>
        </label>
        {{end}}
        <button type="submit">Apply</button>
    </form>
    <div class="summary">{{.Dashboard.MatchedRecords}} of {{.Dashboard.TotalRecords}} events match.
        <a href="/api/dashboard/table.csv?{{.Query}}">Download CSV</a></div>
    {{if .Dashboard.Table.NoData}}
    <p class="nodata">{{.Dashboard.Table.Message}}</p>
    {{else}}
    <table>
        <tr><th>#</th><th>Sex</th><th>Age</th><th>Age Group</th><th>Primary Diagnosis</th><th>Organisation Unit</th><th>Length of Stay (days)</th></tr>
        {{range .Rows}}<tr><td>{{.Index}}</td><td>{{.Sex}}</td><td>{{.DisplayAge}}</td><td>{{.AgeGroup}}</td><td>{{.PrimaryDiagnosis}}</td><td>{{.OrganisationUnit}}</td><td>{{printf "%.2f" .LengthOfStayDays}}</td></tr>
        {{end}}
    </table>
    {{if .Truncated}}<p>Showing the first {{len .Rows}} rows.</p>{{end}}
    {{range .Charts}}<img src="/api/dashboard/charts/{{.}}.png?{{$.Query}}" alt="{{.}}">
    {{end}}
    {{end}}
</body>
</html>
`))

type pageSelector struct {
	domain.SelectorDomain
	Selected string
}

type pageData struct {
	Selectors []pageSelector
	Dashboard *domain.Dashboard
	Rows      []domain.TableRow
	Truncated bool
	Charts    []string
	Query     template.URL
}

// PageHandler renders the dashboard as a single HTML page
type PageHandler struct {
	service      DashboardServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPageHandler creates a new page handler
func NewPageHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &PageHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "page")),
		errorHandler: errorHandler,
	}
}

// ServeDashboard handles GET /. Mount it behind DashboardHandler.FiltersCtx.
func (h *PageHandler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filters := FiltersFromContext(ctx)

	options, err := h.service.Options(ctx)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	dashboard, err := h.service.Query(ctx, filters, services.SourceHTTP)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data := pageData{
		Selectors: []pageSelector{
			{SelectorDomain: options.Month, Selected: selectedLabel(filters.Month, options.Month)},
			{SelectorDomain: options.Diagnosis, Selected: selectedLabel(filters.Diagnosis, options.Diagnosis)},
			{SelectorDomain: options.AgeGroup, Selected: selectedLabel(filters.AgeGroup, options.AgeGroup)},
			{SelectorDomain: options.OrgUnit, Selected: selectedLabel(filters.OrgUnit, options.OrgUnit)},
		},
		Dashboard: dashboard,
		Rows:      dashboard.Table.Rows,
		Charts:    charts.Names,
		Query:     template.URL(filterQuery(filters).Encode()),
	}
	if len(data.Rows) > maxPageRows {
		data.Rows = data.Rows[:maxPageRows]
		data.Truncated = true
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.ErrorContext(ctx, "page render failed",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(ctx)))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func selectedLabel(s domain.Selector, d domain.SelectorDomain) string {
	if v, ok := s.Value(); ok {
		return d.Encode(v)
	}
	return d.AnyLabel
}

// filterQuery encodes the restricting selectors back into query parameters
func filterQuery(f domain.Filters) url.Values {
	q := url.Values{}
	for _, d := range []struct {
		key, anyLabel string
		s             domain.Selector
	}{
		{"month", domain.AnyMonthLabel, f.Month},
		{"diagnosis", domain.AnyDiagnosisLabel, f.Diagnosis},
		{"age_group", domain.AnyAgeGroupLabel, f.AgeGroup},
		{"org_unit", domain.AnyOrgUnitLabel, f.OrgUnit},
	} {
		if v, ok := d.s.Value(); ok {
			q.Set(d.key, domain.EncodeChoice(v, d.anyLabel))
		}
	}
	return q
}
