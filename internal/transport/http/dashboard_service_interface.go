package http

import (
	"context"
	"io"

	"eventdash/pkg/contracts/domain"
)

// DashboardServiceInterface defines the dashboard operations the handlers use
type DashboardServiceInterface interface {
	Options(ctx context.Context) (domain.SelectorDomains, error)
	Query(ctx context.Context, filters domain.Filters, source string) (*domain.Dashboard, error)
	Table(ctx context.Context, filters domain.Filters) (domain.Table, error)
	RenderChart(ctx context.Context, name string, filters domain.Filters) ([]byte, error)
	ExportCSV(ctx context.Context, filters domain.Filters, w io.Writer) (int, error)
	Stats(ctx context.Context) (domain.LoadStats, error)
}
