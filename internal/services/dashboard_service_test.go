package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"banvicdash/internal/charts"
	"banvicdash/internal/config"
	"banvicdash/internal/dataprocessing"
	apperrors "banvicdash/internal/errors"
	"banvicdash/internal/exporter"
	"banvicdash/internal/shared/testutil"
	"banvicdash/pkg/contracts/events"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) BroadcastDatasetReloaded(_ context.Context, payload events.DatasetReloaded) {
	m.Called(payload)
}

func (m *mockNotifier) BroadcastDatasetFailed(_ context.Context, err error) {
	m.Called(err)
}

func newTestDashboard(t *testing.T, overrides map[string]string) (*DashboardService, *mockNotifier, config.DataConfig) {
	t.Helper()

	cfg := config.Default()
	cfg.Data = testutil.WriteFixtures(t, overrides)

	logger, _ := testutil.NewTestLogger(t)
	pipeline, err := dataprocessing.NewPipeline(cfg, logger)
	require.NoError(t, err)

	notifier := &mockNotifier{}
	return NewDashboardService(pipeline, notifier, nil, logger), notifier, cfg.Data
}

func firstLoad(previous string) any {
	return mock.MatchedBy(func(p events.DatasetReloaded) bool {
		return p.Fingerprint != "" && p.PreviousFingerprint == previous
	})
}

func TestDatasetIsMemoized(t *testing.T) {
	svc, notifier, _ := newTestDashboard(t, nil)
	notifier.On("BroadcastDatasetReloaded", firstLoad("")).Once()

	ctx := context.Background()
	first, err := svc.Dataset(ctx)
	require.NoError(t, err)
	second, err := svc.Dataset(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first, svc.Current())
	notifier.AssertExpectations(t)
}

func TestDatasetRebuildsWhenFilesChange(t *testing.T) {
	svc, notifier, data := newTestDashboard(t, nil)
	ctx := context.Background()

	notifier.On("BroadcastDatasetReloaded", firstLoad("")).Once()
	first, err := svc.Dataset(ctx)
	require.NoError(t, err)

	extra := testutil.TransactionsCSV + "9,1000,2024-01-22 10:00:00 UTC,Pix - Recebido,1.00\n"
	require.NoError(t, os.WriteFile(filepath.Join(data.Dir, "transacoes.csv"), []byte(extra), 0644))

	notifier.On("BroadcastDatasetReloaded", firstLoad(first.Fingerprint)).Once()
	second, err := svc.Dataset(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first.Fingerprint, second.Fingerprint)
	assert.Len(t, second.Transactions, len(first.Transactions)+1)
	notifier.AssertExpectations(t)
}

func TestDatasetConcurrentCallers(t *testing.T) {
	svc, notifier, _ := newTestDashboard(t, nil)
	notifier.On("BroadcastDatasetReloaded", firstLoad("")).Once()

	const callers = 8
	fingerprints := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ds, err := svc.Dataset(context.Background())
			if assert.NoError(t, err) {
				fingerprints[i] = ds.Fingerprint
			}
		}(i)
	}
	wg.Wait()

	for _, fp := range fingerprints {
		assert.Equal(t, fingerprints[0], fp)
	}
	notifier.AssertNumberOfCalls(t, "BroadcastDatasetReloaded", 1)
}

func TestDatasetFailureKeepsPrevious(t *testing.T) {
	svc, notifier, data := newTestDashboard(t, nil)
	ctx := context.Background()

	notifier.On("BroadcastDatasetReloaded", firstLoad("")).Once()
	first, err := svc.Dataset(ctx)
	require.NoError(t, err)

	broken := "cod_transacao,num_conta,data_transacao\n1,1000,2024-01-10 09:30:00 UTC\n"
	require.NoError(t, os.WriteFile(filepath.Join(data.Dir, "transacoes.csv"), []byte(broken), 0644))
	notifier.On("BroadcastDatasetFailed", mock.Anything)

	served, err := svc.Dataset(ctx)
	require.NoError(t, err)
	assert.Same(t, first, served)

	_, err = svc.Reload(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDatasetUnavailable)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
	assert.Same(t, first, svc.Current())

	notifier.AssertNumberOfCalls(t, "BroadcastDatasetFailed", 2)
}

// cancelsAfter reports cancellation once Err has been consulted more than n times.
type cancelsAfter struct {
	context.Context
	mu    sync.Mutex
	calls int
	n     int
}

func (c *cancelsAfter) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls > c.n {
		return context.Canceled
	}
	return nil
}

func TestDatasetRebuildSurvivesCallerCancellation(t *testing.T) {
	svc, notifier, _ := newTestDashboard(t, nil)
	notifier.On("BroadcastDatasetReloaded", firstLoad("")).Once()

	// The seven fingerprint reads pass; the caller is gone by the time the
	// tables are loaded.
	ctx := &cancelsAfter{Context: context.Background(), n: 7}

	ds, err := svc.Dataset(ctx)
	require.NoError(t, err)
	assert.Same(t, ds, svc.Current())

	notifier.AssertExpectations(t)
	notifier.AssertNotCalled(t, "BroadcastDatasetFailed", mock.Anything)
}

func TestReloadReturnsWhenCallerCancels(t *testing.T) {
	svc, notifier, _ := newTestDashboard(t, nil)
	notifier.On("BroadcastDatasetReloaded", mock.Anything).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Reload(ctx)
	assert.ErrorIs(t, err, ErrDatasetUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	notifier.AssertNotCalled(t, "BroadcastDatasetFailed", mock.Anything)
}

func TestDatasetUnavailableWithoutCache(t *testing.T) {
	svc, _, _ := newTestDashboard(t, map[string]string{"contas.csv": ""})

	_, err := svc.Report(context.Background(), dataprocessing.Query{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDatasetUnavailable)
	assert.Nil(t, svc.Current())
}

func TestReloadReturnsSummary(t *testing.T) {
	svc, notifier, _ := newTestDashboard(t, nil)
	notifier.On("BroadcastDatasetReloaded", firstLoad("")).Once()

	ctx := context.Background()
	summary, err := svc.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, summary.Rows[config.TableTransactions])

	// Same files: no second broadcast.
	_, err = svc.Reload(ctx)
	require.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestReportAndOptions(t *testing.T) {
	svc, notifier, _ := newTestDashboard(t, nil)
	notifier.On("BroadcastDatasetReloaded", mock.Anything)
	ctx := context.Background()

	report, err := svc.Report(ctx, dataprocessing.Query{})
	require.NoError(t, err)
	// Transaction 8 has a null amount and still counts.
	assert.Equal(t, 6, report.TransactionCount)

	opts, err := svc.Options(ctx, dataprocessing.Query{})
	require.NoError(t, err)
	assert.Equal(t, "All Customers", opts.Customers[0])
	assert.False(t, opts.Empty)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.Fingerprint, summary.Fingerprint)
}

func TestExport(t *testing.T) {
	svc, notifier, _ := newTestDashboard(t, nil)
	notifier.On("BroadcastDatasetReloaded", mock.Anything)
	ctx := context.Background()

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, svc.Export(ctx, &buf, dataprocessing.Query{}, exporter.TableByPeriod, ""))
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\xEF\xBB\xBFmonth_period,count,mean,sum\n")))
		assert.Contains(t, buf.String(), "start,3,36.50,109.50")
	})

	t.Run("xlsx", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, svc.Export(ctx, &buf, dataprocessing.Query{}, exporter.TableByPeriod, FormatXLSX))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, []string{exporter.TableByPeriod}, f.GetSheetList())
	})

	t.Run("unknown format", func(t *testing.T) {
		err := svc.Export(ctx, &bytes.Buffer{}, dataprocessing.Query{}, exporter.TableByPeriod, "pdf")
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})

	t.Run("unknown table", func(t *testing.T) {
		err := svc.Export(ctx, &bytes.Buffer{}, dataprocessing.Query{}, "nope", FormatCSV)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
	})
}

func TestChart(t *testing.T) {
	svc, notifier, _ := newTestDashboard(t, nil)
	notifier.On("BroadcastDatasetReloaded", mock.Anything)

	chart, err := svc.Chart(context.Background(), dataprocessing.Query{}, charts.PeriodCount)
	require.NoError(t, err)
	require.Len(t, chart.Bars, 2)
	assert.Equal(t, "start", chart.Bars[0].Label)

	_, err = svc.Chart(context.Background(), dataprocessing.Query{}, "pie")
	var appErr *apperrors.AppError
	assert.True(t, errors.As(err, &appErr))
}
