// Command report runs the dashboard pipeline once and writes every report
// table to CSV files or a single XLSX workbook.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/joho/godotenv"

	"banvicdash/internal/config"
	"banvicdash/internal/dataprocessing"
	"banvicdash/internal/exporter"
	"banvicdash/internal/infrastructure"
	"banvicdash/internal/validation"
	"banvicdash/pkg/contracts"
)

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	if v = strings.TrimSpace(v); v != "" {
		*s = append(*s, v)
	}
	return nil
}

type options struct {
	start, end string
	branches   stringList
	customers  stringList
	out        string
	format     string
	prefix     string
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx = infrastructure.EnsureTraceID(ctx)
	logger.InfoContext(ctx, "Starting report", slog.String("version", contracts.GetFullVersionString()))
	err = run(ctx, cfg, os.Args[1:], os.Stdout, logger)
	stop()
	infrastructure.CloseLogFile()

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Error("Report failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func parseFlags(cfg *config.Config, args []string, stderr io.Writer) (options, error) {
	var opts options
	fset := flag.NewFlagSet("report", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.StringVar(&opts.start, "start", "", "first day to include (YYYY-MM-DD); defaults to the first transaction date")
	fset.StringVar(&opts.end, "end", "", "last day to include (YYYY-MM-DD); defaults to the last transaction date")
	fset.Var(&opts.branches, "branch", "branch name to include (repeatable); defaults to all branches")
	fset.Var(&opts.customers, "customer", "customer full name to include (repeatable); defaults to all customers")
	fset.StringVar(&opts.out, "out", cfg.Report.ExportsDir, "output directory")
	fset.StringVar(&opts.format, "format", "csv", "output format: csv or xlsx")
	fset.StringVar(&opts.prefix, "prefix", "banvic_", "file name prefix")

	if err := fset.Parse(args); err != nil {
		return opts, err
	}
	opts.format = strings.ToLower(opts.format)
	if opts.format != "csv" && opts.format != "xlsx" {
		return opts, fmt.Errorf("unknown format %q: must be csv or xlsx", opts.format)
	}
	return opts, nil
}

func (o options) query() (dataprocessing.Query, error) {
	q := dataprocessing.Query{Branches: o.branches, Customers: o.customers}
	if o.start != "" {
		d, err := civil.ParseDate(o.start)
		if err != nil {
			return q, fmt.Errorf("invalid -start %q: %w", o.start, err)
		}
		q.Start = &d
	}
	if o.end != "" {
		d, err := civil.ParseDate(o.end)
		if err != nil {
			return q, fmt.Errorf("invalid -end %q: %w", o.end, err)
		}
		q.End = &d
	}
	return q, nil
}

func run(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer, logger *slog.Logger) error {
	opts, err := parseFlags(cfg, args, stdout)
	if err != nil {
		return err
	}
	q, err := opts.query()
	if err != nil {
		return err
	}

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateDataDirectory(cfg.Data); err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	if err := validator.ValidateOutputDirectory(opts.out); err != nil {
		return err
	}

	pipeline, err := dataprocessing.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}
	ds, err := pipeline.Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	report := pipeline.Run(ds, q)
	tables := exporter.ReportTables(report)

	var written []string
	switch opts.format {
	case "xlsx":
		path := filepath.Join(opts.out, opts.prefix+"report.xlsx")
		if err := exporter.WriteWorkbook(path, tables); err != nil {
			return err
		}
		if err := validator.ValidateWorkbook(path, exporter.TableNames); err != nil {
			return err
		}
		written = []string{path}
	default:
		if written, err = exporter.NewCSVWriter(opts.out, logger).WriteTables(opts.prefix, tables); err != nil {
			return err
		}
	}

	fmt.Fprintf(stdout, "%s to %s: %d transactions, %d proposals\n",
		report.Selection.Start, report.Selection.End, report.TransactionCount, report.ProposalCount)
	for _, path := range written {
		fmt.Fprintln(stdout, path)
	}
	return nil
}
