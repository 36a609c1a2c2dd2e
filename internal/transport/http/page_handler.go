package http

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"banvicdash/internal/charts"
	apierrors "banvicdash/internal/errors"
	"banvicdash/internal/exporter"
	"banvicdash/internal/middleware"
	"banvicdash/pkg/contracts/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}).ParseFS(templateFS, "templates/dashboard.html"))

// PageHandler renders the HTML dashboard at GET /.
type PageHandler struct {
	service      DashboardService
	validator    *middleware.QueryValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

type choice struct {
	Value    string
	Selected bool
}

type pageData struct {
	Title       string
	Error       string
	Options     domain.FilterOptions
	Branches    []choice
	Customers   []choice
	Summary     domain.DatasetSummary
	Report      *domain.Report
	Tables      []exporter.Table
	Charts      []template.HTML
	ExportQuery template.URL
}

// NewPageHandler creates the dashboard page handler
func NewPageHandler(service DashboardService, validator *middleware.QueryValidator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "page")),
	}
}

// ServeHTTP handles GET /
func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := pageData{Title: "BanVic dashboard"}
	err := h.load(r, &data)

	status := http.StatusOK
	if err != nil {
		problem := h.errorHandler.ErrorToProblem(serviceError(err), r)
		status, data.Error = problem.Status, problemMessage(problem)
		h.logger.WarnContext(ctx, "dashboard page rendered with error",
			slog.Int("status", status),
			slog.String("error", err.Error()))
		data.Report = nil
		data.Tables, data.Charts = nil, nil
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (h *PageHandler) load(r *http.Request, data *pageData) error {
	ctx := r.Context()
	dq, err := h.validator.DashboardQuery(r)
	if err != nil {
		return err
	}
	q, err := toQuery(dq)
	if err != nil {
		return err
	}

	if data.Options, err = h.service.Options(ctx, q); err != nil {
		return err
	}
	if data.Report, err = h.service.Report(ctx, q); err != nil {
		return err
	}
	if data.Summary, err = h.service.Summary(ctx); err != nil {
		return err
	}

	data.Branches = choices(data.Options.Branches, dq.Branches)
	if len(dq.Branches) == 0 {
		// No branch parameter filters nothing, so the form shows every branch picked.
		for i := range data.Branches {
			data.Branches[i].Selected = true
		}
	}
	data.Customers = choices(data.Options.Customers, dq.Customers)
	if len(dq.Customers) == 0 && len(data.Customers) > 0 {
		data.Customers[0].Selected = true
	}
	data.Tables = exporter.ReportTables(data.Report)
	data.ExportQuery = template.URL(exportQuery(r.URL.Query()))
	data.Charts, err = renderCharts(data.Report)
	return err
}

func choices(values, selected []string) []choice {
	picked := make(map[string]bool, len(selected))
	for _, s := range selected {
		picked[s] = true
	}
	out := make([]choice, len(values))
	for i, v := range values {
		out[i] = choice{Value: v, Selected: picked[v]}
	}
	return out
}

func renderCharts(report *domain.Report) ([]template.HTML, error) {
	all := charts.All(report)
	out := make([]template.HTML, 0, len(all))
	for _, c := range all {
		var buf bytes.Buffer
		if err := c.Render(&buf); err != nil {
			return nil, err
		}
		// The SVG canvas escapes every text node it writes.
		out = append(out, template.HTML(buf.String()))
	}
	return out, nil
}

// exportQuery keeps the filter parameters for export links.
func exportQuery(values url.Values) string {
	keep := url.Values{}
	for _, key := range []string{"start", "end", "branch", "customer"} {
		for _, v := range values[key] {
			if v != "" {
				keep.Add(key, v)
			}
		}
	}
	return keep.Encode()
}

// problemMessage picks the most specific text a problem carries.
func problemMessage(problem *apierrors.ProblemDetails) string {
	switch details := problem.Extensions["details"].(type) {
	case apierrors.ValidationErrors:
		if len(details.Errors) > 0 {
			return details.Errors[0].Message
		}
	case string:
		return problem.Detail + ": " + details
	}
	return problem.Detail
}
