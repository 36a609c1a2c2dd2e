package dataprocessing

import (
	"context"
	"log/slog"
	"time"

	"banvicdash/internal/config"
	"banvicdash/pkg/contracts/domain"
)

// Pipeline runs load, join, derive, filter and aggregate. Build produces an
// immutable Dataset; Options and Run are pure functions of a Dataset and a
// Query.
type Pipeline struct {
	loader     *Loader
	joiner     *Joiner
	calendar   *Calendar
	aggregator *Aggregator
	locale     config.LocaleConfig
	logger     *slog.Logger
}

// NewPipeline wires the pipeline stages from configuration.
func NewPipeline(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	locale := cfg.Locale.Normalized()
	calendar, err := NewCalendar(locale)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		loader:     NewLoader(cfg.Data, logger),
		joiner:     NewJoiner(locale.Unknown, logger),
		calendar:   calendar,
		aggregator: NewAggregator(calendar, cfg.Report.TopN, locale.Unknown),
		locale:     locale,
		logger:     logger.With(slog.String("component", "pipeline")),
	}, nil
}

// Calendar returns the calendar used for derived features.
func (p *Pipeline) Calendar() *Calendar {
	return p.calendar
}

// Locale returns the label configuration.
func (p *Pipeline) Locale() config.LocaleConfig {
	return p.locale
}

// Fingerprint hashes the source files without parsing them.
func (p *Pipeline) Fingerprint(ctx context.Context) (string, error) {
	return p.loader.Fingerprint(ctx)
}

// Build loads the source files, joins them and derives calendar features.
func (p *Pipeline) Build(ctx context.Context) (*Dataset, error) {
	start := time.Now()

	loaded, err := p.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	txs, proposals, stats := p.joiner.Join(ctx, loaded.Tables)
	txs = p.calendar.Derive(txs)

	ds := NewDataset(loaded.Fingerprint, loaded.Tables, txs, proposals, stats, loaded.Parse)

	p.logger.InfoContext(ctx, "dataset built",
		slog.String("fingerprint", ds.Fingerprint),
		slog.Int("transactions", len(ds.Transactions)),
		slog.Int("proposals", len(ds.Proposals)),
		slog.Int("parse_errors", ds.Parse.Total()),
		slog.Duration("duration", time.Since(start)))

	return ds, nil
}

// Options returns the filter choices for q.
func (p *Pipeline) Options(ds *Dataset, q Query) domain.FilterOptions {
	return Options(ds, q, p.locale.AllCustomers)
}

// Run filters ds by q and aggregates the result. Identical inputs always
// produce identical reports.
func (p *Pipeline) Run(ds *Dataset, q Query) *domain.Report {
	sel := Resolve(ds, q, p.locale.AllCustomers)
	txs := FilterTransactions(ds.Transactions, sel)
	proposals := FilterProposals(ds, sel, txs)
	return p.aggregator.Aggregate(ds, sel, txs, proposals)
}
