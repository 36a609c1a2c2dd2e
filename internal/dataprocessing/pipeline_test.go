package dataprocessing

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banvicdash/internal/config"
	"banvicdash/internal/errors"
	"banvicdash/internal/shared/testutil"
)

func newFixturePipeline(t *testing.T) (*Pipeline, *Dataset) {
	t.Helper()

	cfg := config.Default()
	cfg.Data = testutil.WriteFixtures(t, nil)

	logger, _ := testutil.NewTestLogger(t)
	p, err := NewPipeline(cfg, logger)
	require.NoError(t, err)

	ds, err := p.Build(context.Background())
	require.NoError(t, err)
	return p, ds
}

func TestPipelineBuild(t *testing.T) {
	_, ds := newFixturePipeline(t)

	minDate, maxDate, ok := ds.DateRange()
	require.True(t, ok)
	assert.Equal(t, date(2024, 1, 10), minDate)
	assert.Equal(t, date(2024, 1, 21), maxDate)

	for _, tx := range ds.Transactions {
		if tx.Dated() {
			assert.NotEmpty(t, tx.Weekday, tx.Code)
			assert.NotEmpty(t, tx.MonthPeriod, tx.Code)
		}
	}

	summary := ds.Summary()
	assert.Equal(t, ds.Fingerprint, summary.Fingerprint)
	assert.Equal(t, 8, summary.Rows[config.TableTransactions])
	assert.Equal(t, 3, summary.Rows[config.TableBranches])
	assert.Equal(t, 2, summary.Join.UnmatchedCustomer)
	assert.Equal(t, 2, summary.ParseErrors.Total())
	require.NotNil(t, summary.MinDate)
	assert.Equal(t, "2024-01-10", summary.MinDate.String())
	assert.Equal(t, "2024-01-21", summary.MaxDate.String())
}

func TestPipelineBuildSchemaError(t *testing.T) {
	cfg := config.Default()
	cfg.Data = testutil.WriteFixtures(t, map[string]string{"clientes.csv": "cod_cliente,primeiro_nome\n10,Ana\n"})

	p, err := NewPipeline(cfg, nil)
	require.NoError(t, err)

	_, err = p.Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeSchema))
}

func TestNewPipelineRejectsBadLocale(t *testing.T) {
	cfg := config.Default()
	cfg.Locale.Weekdays = []string{"Mon"}

	_, err := NewPipeline(cfg, nil)
	require.Error(t, err)
}

func TestPipelineRunIsDeterministic(t *testing.T) {
	p, ds := newFixturePipeline(t)
	q := Query{Branches: []string{"Agência Centro", "Agência Norte"}}

	first, err := json.Marshal(p.Run(ds, q))
	require.NoError(t, err)
	second, err := json.Marshal(p.Run(ds, q))
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, first, second)
}

func TestPipelineEmptySelectionJSON(t *testing.T) {
	p, ds := newFixturePipeline(t)
	start, end := date(2024, 1, 20), date(2024, 1, 12)

	report := p.Run(ds, Query{Start: &start, End: &end})
	assert.True(t, report.Empty())
	assert.Nil(t, report.ProposalStatus)

	raw, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"by_date", "by_branch", "by_customer", "by_weekday", "by_period", "by_branch_period", "by_collaborator", "top_by_count", "top_by_sum"} {
		assert.Equal(t, []any{}, decoded[key], key)
	}
	assert.Nil(t, decoded["proposal_status"])
}

func TestPipelineOptions(t *testing.T) {
	p, ds := newFixturePipeline(t)

	opts := p.Options(ds, Query{})
	assert.Equal(t, "All Customers", opts.AllCustomers)
	assert.Equal(t, []string{"All Customers", "Ana Silva", "Bruno Costa", "Carla Souza"}, opts.Customers)
	assert.Equal(t, []string{"Agência Centro", "Agência Norte"}, opts.Branches)
}
