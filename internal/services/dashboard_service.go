package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"banvicdash/internal/charts"
	"banvicdash/internal/dataprocessing"
	"banvicdash/internal/exporter"
	"banvicdash/internal/infrastructure"
	"banvicdash/internal/websocket"
	"banvicdash/pkg/contracts/domain"
	"banvicdash/pkg/contracts/events"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// DashboardService serves reports from a memoized dataset. The dataset is
// rebuilt only when the fingerprint of the source files changes, and
// concurrent callers share a single rebuild.
type DashboardService struct {
	pipeline *dataprocessing.Pipeline
	notifier websocket.Notifier
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger

	mu      sync.RWMutex
	current *dataprocessing.Dataset

	group singleflight.Group
}

// NewDashboardService creates the service. notifier and metrics may be nil.
func NewDashboardService(pipeline *dataprocessing.Pipeline, notifier websocket.Notifier, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		pipeline: pipeline,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "dashboard_service")),
	}
}

// Current returns the cached dataset without checking the source files.
func (s *DashboardService) Current() *dataprocessing.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Dataset returns the dataset for the current source files, rebuilding it
// when their fingerprint changed. If a rebuild fails and a dataset is cached,
// the cached one is returned.
func (s *DashboardService) Dataset(ctx context.Context) (*dataprocessing.Dataset, error) {
	current := s.Current()

	fingerprint, err := s.pipeline.Fingerprint(ctx)
	if err != nil {
		if current != nil {
			s.logger.WarnContext(ctx, "source files unreadable, serving cached dataset",
				slog.String("fingerprint", current.Fingerprint),
				slog.String("error", err.Error()))
			return current, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrDatasetUnavailable, err)
	}

	if current != nil && current.Fingerprint == fingerprint {
		return current, nil
	}

	ds, err := s.rebuild(ctx)
	if err != nil {
		if current != nil {
			return current, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrDatasetUnavailable, err)
	}
	return ds, nil
}

// Reload forces a rebuild. The cached dataset stays in service on failure.
func (s *DashboardService) Reload(ctx context.Context) (domain.DatasetSummary, error) {
	ds, err := s.rebuild(ctx)
	if err != nil {
		return domain.DatasetSummary{}, fmt.Errorf("%w: %w", ErrDatasetUnavailable, err)
	}
	return ds.Summary(), nil
}

// rebuild runs one shared build detached from the caller's cancellation, so a
// client that goes away cannot fail the rebuild for everyone joined on it. The
// caller still stops waiting when its own context ends.
func (s *DashboardService) rebuild(ctx context.Context) (*dataprocessing.Dataset, error) {
	select {
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	default:
	}

	ch := s.group.DoChan("dataset", func() (any, error) {
		return s.build(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.DebugContext(ctx, "joined in-flight dataset rebuild")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*dataprocessing.Dataset), nil
	}
}

func (s *DashboardService) build(ctx context.Context) (*dataprocessing.Dataset, error) {
	start := time.Now()
	ds, err := s.pipeline.Build(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.WarnContext(ctx, "dataset rebuild interrupted", slog.String("error", err.Error()))
		return nil, err
	}
	if err != nil {
		s.metrics.RecordDatasetLoad(ctx, time.Since(start), nil, err)
		infrastructure.RecordError(ctx, err)
		s.logger.ErrorContext(ctx, "dataset rebuild failed", slog.String("error", err.Error()))
		if s.notifier != nil {
			s.notifier.BroadcastDatasetFailed(ctx, err)
		}
		return nil, err
	}

	summary := ds.Summary()
	s.metrics.RecordDatasetLoad(ctx, time.Since(start), summary.Rows, nil)
	s.metrics.RecordUnmatched(ctx, "account", ds.Join.UnmatchedAccount)
	s.metrics.RecordUnmatched(ctx, "branch", ds.Join.UnmatchedBranch)
	s.metrics.RecordUnmatched(ctx, "customer", ds.Join.UnmatchedCustomer)

	s.mu.Lock()
	previous := s.current
	s.current = ds
	s.mu.Unlock()

	previousFingerprint := ""
	if previous != nil {
		previousFingerprint = previous.Fingerprint
	}
	if previousFingerprint != ds.Fingerprint {
		s.logger.InfoContext(ctx, "dataset replaced",
			slog.String("fingerprint", ds.Fingerprint),
			slog.String("previous_fingerprint", previousFingerprint))
		if s.notifier != nil {
			s.notifier.BroadcastDatasetReloaded(ctx, events.DatasetReloaded{
				Fingerprint:         ds.Fingerprint,
				PreviousFingerprint: previousFingerprint,
				Rows:                summary.Rows,
				MinDate:             summary.MinDate,
				MaxDate:             summary.MaxDate,
			})
		}
	}
	return ds, nil
}

// Summary describes the current dataset.
func (s *DashboardService) Summary(ctx context.Context) (domain.DatasetSummary, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return domain.DatasetSummary{}, err
	}
	return ds.Summary(), nil
}

// Options returns the filter choices for q.
func (s *DashboardService) Options(ctx context.Context, q dataprocessing.Query) (domain.FilterOptions, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return domain.FilterOptions{}, err
	}
	return s.pipeline.Options(ds, q), nil
}

// Report runs the filter and aggregation stages for q.
func (s *DashboardService) Report(ctx context.Context, q dataprocessing.Query) (*domain.Report, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report := s.pipeline.Run(ds, q)
	s.metrics.RecordPipelineRun(ctx, time.Since(start), report.TransactionCount)

	infrastructure.LoggerWithContext(ctx).DebugContext(ctx, "report computed",
		slog.String("fingerprint", report.Fingerprint),
		slog.Int("transactions", report.TransactionCount),
		slog.Int("proposals", report.ProposalCount),
		slog.Duration("duration", time.Since(start)))
	return report, nil
}

// Table returns one named report table for q.
func (s *DashboardService) Table(ctx context.Context, q dataprocessing.Query, name string) (exporter.Table, error) {
	report, err := s.Report(ctx, q)
	if err != nil {
		return exporter.Table{}, err
	}
	return exporter.ReportTable(report, name)
}

// Export writes one report table to w in format.
func (s *DashboardService) Export(ctx context.Context, w io.Writer, q dataprocessing.Query, name, format string) error {
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	table, err := s.Table(ctx, q, name)
	if err != nil {
		return err
	}

	switch format {
	case FormatXLSX:
		err = exporter.EncodeXLSX(w, table)
	default:
		err = exporter.EncodeCSV(w, table)
	}
	if err != nil {
		return err
	}

	s.metrics.RecordExport(ctx, name, format)
	return nil
}

// Chart builds one named bar chart for q.
func (s *DashboardService) Chart(ctx context.Context, q dataprocessing.Query, name string) (charts.BarChart, error) {
	report, err := s.Report(ctx, q)
	if err != nil {
		return charts.BarChart{}, err
	}
	return charts.FromReport(report, name)
}
