package http

import (
	"context"
	"io"

	"banvicdash/internal/charts"
	"banvicdash/internal/dataprocessing"
	"banvicdash/pkg/contracts/domain"
)

// DashboardService is what the dashboard handlers need from the service layer.
type DashboardService interface {
	Options(ctx context.Context, q dataprocessing.Query) (domain.FilterOptions, error)
	Report(ctx context.Context, q dataprocessing.Query) (*domain.Report, error)
	Summary(ctx context.Context) (domain.DatasetSummary, error)
	Reload(ctx context.Context) (domain.DatasetSummary, error)
	Export(ctx context.Context, w io.Writer, q dataprocessing.Query, table, format string) error
	Chart(ctx context.Context, q dataprocessing.Query, name string) (charts.BarChart, error)
}
