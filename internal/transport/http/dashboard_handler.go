package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"banvicdash/internal/dataprocessing"
	apierrors "banvicdash/internal/errors"
	"banvicdash/internal/exporter"
	"banvicdash/internal/middleware"
	"banvicdash/internal/services"
	api "banvicdash/pkg/contracts/api/v1"
)

const svgContentType = "image/svg+xml; charset=utf-8"

// DashboardHandler serves the report API: filter options, the report itself,
// table exports, SVG charts and the dataset lifecycle.
type DashboardHandler struct {
	service      DashboardService
	validator    *middleware.QueryValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardService, validator *middleware.QueryValidator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "dashboard")),
	}
}

// Routes returns the dashboard routes, mounted under /api/dashboard.
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/options", h.GetOptions)
	r.Get("/report", h.GetReport)
	r.Get("/export/{table}", h.ExportTable)
	r.Get("/charts/{chart}.svg", h.GetChart)
	r.Get("/dataset", h.GetDataset)
	r.Post("/reload", h.Reload)

	return r
}

// GetOptions handles GET /api/dashboard/options
func (h *DashboardHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	opts, err := h.service.Options(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, api.Success(opts))
}

// GetReport handles GET /api/dashboard/report
func (h *DashboardHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	report, err := h.service.Report(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, api.Success(report))
}

// ExportTable handles GET /api/dashboard/export/{table}
func (h *DashboardHandler) ExportTable(w http.ResponseWriter, r *http.Request) {
	eq, err := h.validator.ExportQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q, err := toQuery(eq.DashboardQuery)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	format := eq.Format
	if format == "" {
		format = services.FormatCSV
	}
	table := chi.URLParam(r, "table")

	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), &buf, q, table, format); err != nil {
		h.fail(w, r, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == services.FormatXLSX {
		contentType = exporter.XLSXContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", table+"."+format))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.WarnContext(r.Context(), "export write failed",
			slog.String("table", table),
			slog.String("error", err.Error()))
	}
}

// GetChart handles GET /api/dashboard/charts/{chart}.svg
func (h *DashboardHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	chart, err := h.service.Chart(r.Context(), q, chi.URLParam(r, "chart"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", svgContentType)
	w.Write(buf.Bytes())
}

// GetDataset handles GET /api/dashboard/dataset
func (h *DashboardHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, api.Success(summary))
}

// Reload handles POST /api/dashboard/reload
func (h *DashboardHandler) Reload(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Reload(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "dataset reload requested",
		slog.String("fingerprint", summary.Fingerprint))
	render.JSON(w, r, api.Success(summary))
}

func (h *DashboardHandler) query(w http.ResponseWriter, r *http.Request) (dataprocessing.Query, bool) {
	dq, err := h.validator.DashboardQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return dataprocessing.Query{}, false
	}
	q, err := toQuery(dq)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return dataprocessing.Query{}, false
	}
	return q, true
}

func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.errorHandler.HandleError(w, r, serviceError(err))
}

// serviceError maps service sentinels onto API errors. Other errors pass
// through to the error handler unchanged.
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrDatasetUnavailable):
		return apierrors.DatasetUnavailable(err)
	case errors.Is(err, services.ErrUnknownFormat):
		return apierrors.ErrValidation("format", err.Error())
	}
	return err
}

// toQuery converts a validated query into pipeline input.
func toQuery(dq api.DashboardQuery) (dataprocessing.Query, error) {
	q := dataprocessing.Query{Branches: dq.Branches, Customers: dq.Customers}
	if dq.Start != "" {
		d, err := civil.ParseDate(dq.Start)
		if err != nil {
			return q, apierrors.ErrValidation("start", "start must be a date formatted YYYY-MM-DD")
		}
		q.Start = &d
	}
	if dq.End != "" {
		d, err := civil.ParseDate(dq.End)
		if err != nil {
			return q, apierrors.ErrValidation("end", "end must be a date formatted YYYY-MM-DD")
		}
		q.End = &d
	}
	return q, nil
}
