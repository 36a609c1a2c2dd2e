package dataprocessing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banvicdash/pkg/contracts/domain"
)

type kpi struct {
	group string
	key   string
	count int
	mean  string
	sum   string
}

func assertRows(t *testing.T, want []kpi, got []domain.KPIRow) {
	t.Helper()
	require.Len(t, got, len(want))
	for i, w := range want {
		g := got[i]
		assert.Equal(t, w.group, g.Group, "row %d group", i)
		assert.Equal(t, w.key, g.Key, "row %d key", i)
		assert.Equal(t, w.count, g.Count, "%s count", w.key)
		assert.True(t, decimal.RequireFromString(w.mean).Equal(g.Mean), "%s mean: want %s got %s", w.key, w.mean, g.Mean)
		assert.True(t, decimal.RequireFromString(w.sum).Equal(g.Sum), "%s sum: want %s got %s", w.key, w.sum, g.Sum)
	}
}

func TestPipelineRunFixtureReport(t *testing.T) {
	p, ds := newFixturePipeline(t)
	report := p.Run(ds, Query{})

	assert.Equal(t, ds.Fingerprint, report.Fingerprint)
	assert.Equal(t, 6, report.TransactionCount)
	assert.Equal(t, 2, report.ProposalCount)
	assert.False(t, report.Empty())

	assertRows(t, []kpi{{"", "total", 5, "91.95", "459.75"}}, []domain.KPIRow{report.Totals})

	assertRows(t, []kpi{
		{"", "2024-01-10", 2, "49.75", "99.50"},
		{"", "2024-01-15", 1, "10", "10"},
		{"", "2024-01-16", 1, "50.25", "50.25"},
		{"", "2024-01-20", 1, "300", "300"},
	}, report.ByDate)

	assertRows(t, []kpi{
		{"", "Agência Centro", 3, "49.92", "149.75"},
		{"", "Agência Norte", 2, "155", "310"},
	}, report.ByBranch)

	assertRows(t, []kpi{
		{"", "Ana Silva", 2, "49.75", "99.50"},
		{"", "Bruno Costa", 1, "50.25", "50.25"},
		{"", "Carla Souza", 1, "300", "300"},
	}, report.ByCustomer)

	assertRows(t, []kpi{
		{"", "Seg", 1, "10", "10"},
		{"", "Ter", 1, "50.25", "50.25"},
		{"", "Qua", 2, "49.75", "99.50"},
		{"", "Sáb", 1, "300", "300"},
	}, report.ByWeekday)

	assertRows(t, []kpi{
		{"", "start", 3, "36.50", "109.50"},
		{"", "end", 2, "175.13", "350.25"},
	}, report.ByPeriod)

	assertRows(t, []kpi{
		{"Agência Centro", "start", 2, "49.75", "99.50"},
		{"Agência Centro", "end", 1, "50.25", "50.25"},
		{"Agência Norte", "start", 1, "10", "10"},
		{"Agência Norte", "end", 1, "300", "300"},
	}, report.ByBranchPeriod)

	assertRows(t, []kpi{
		{"", "Paula Lima", 3, "49.92", "149.75"},
		{"", "Rafael Dias", 1, "300", "300"},
		{"", "unknown", 1, "10", "10"},
	}, report.ByCollaborator)

	assertRows(t, []kpi{
		{"", "Ana Silva", 2, "49.75", "99.50"},
		{"", "Bruno Costa", 1, "50.25", "50.25"},
		{"", "Carla Souza", 1, "300", "300"},
	}, report.TopByCount)

	assertRows(t, []kpi{
		{"", "Carla Souza", 1, "300", "300"},
		{"", "Ana Silva", 2, "49.75", "99.50"},
		{"", "Bruno Costa", 1, "50.25", "50.25"},
	}, report.TopBySum)

	require.NotNil(t, report.ProposalStatus)
	assert.Equal(t, 2, report.ProposalStatus.Total)
	assert.Equal(t, []domain.StatusCount{
		{Status: "Em análise", Count: 1},
		{Status: "unknown", Count: 1},
	}, report.ProposalStatus.Rows)
}

// periodDataset builds a one-branch dataset from (date, amount) pairs.
func periodDataset(t *testing.T, cal *Calendar, rows map[string]string) *Dataset {
	t.Helper()

	tables := &domain.Tables{
		Branches:  []domain.Branch{{Code: "1", Name: "Agência Centro"}},
		Customers: []domain.Customer{{Code: "10", FirstName: "Ana", LastName: "Silva"}},
		Accounts:  []domain.Account{{Number: "1000", CustomerCode: "10", BranchCode: "1", CollaboratorCode: "100"}},
	}
	i := 0
	for day, amount := range rows {
		ts, err := time.Parse("2006-01-02", day)
		require.NoError(t, err)
		i++
		tables.Transactions = append(tables.Transactions, domain.Transaction{
			Code:          fmt.Sprint(i),
			AccountNumber: "1000",
			Timestamp:     ts,
			Amount:        decimal.NewNullDecimal(decimal.RequireFromString(amount)),
		})
	}

	txs, proposals, stats := NewJoiner("unknown", nil).Join(context.Background(), tables)
	return NewDataset("fp", tables, cal.Derive(txs), proposals, stats, domain.ParseStats{})
}

func TestAggregatePeriodExample(t *testing.T) {
	cal := newTestCalendar(t)
	ds := periodDataset(t, cal, map[string]string{
		"2024-01-10": "100",
		"2024-01-20": "300",
	})
	agg := NewAggregator(cal, 10, "unknown")

	sel := Resolve(ds, Query{}, allCustomers)
	report := agg.Aggregate(ds, sel, FilterTransactions(ds.Transactions, sel), nil)

	assertRows(t, []kpi{
		{"", "start", 1, "100", "100"},
		{"", "end", 1, "300", "300"},
	}, report.ByPeriod)
	assert.Nil(t, report.ProposalStatus)
}

func TestAggregateConsistency(t *testing.T) {
	p, ds := newFixturePipeline(t)

	queries := []Query{
		{},
		{Branches: []string{"Agência Centro"}},
		{Customers: []string{"Ana Silva", "Carla Souza"}},
	}
	for _, q := range queries {
		report := p.Run(ds, q)

		groupings := map[string][]domain.KPIRow{
			"by_date":          report.ByDate,
			"by_branch":        report.ByBranch,
			"by_weekday":       report.ByWeekday,
			"by_period":        report.ByPeriod,
			"by_branch_period": report.ByBranchPeriod,
			"by_collaborator":  report.ByCollaborator,
		}
		for name, rows := range groupings {
			sum := decimal.Zero
			count := 0
			for _, r := range rows {
				sum = sum.Add(r.Sum)
				count += r.Count

				want := r.Sum.Div(decimal.NewFromInt(int64(r.Count)))
				assert.True(t, want.Sub(r.Mean).Abs().LessThanOrEqual(decimal.RequireFromString("0.01")),
					"%s %s: mean %s vs sum/count %s", name, r.Key, r.Mean, want)
			}
			assert.True(t, report.Totals.Sum.Equal(sum), "%s sums partition the total", name)
			assert.Equal(t, report.Totals.Count, count, "%s counts partition the total", name)
		}
	}
}

func TestTopRowsIndependentRankings(t *testing.T) {
	rows := []domain.KPIRow{
		{Key: "A", Count: 5, Sum: decimal.NewFromInt(10)},
		{Key: "B", Count: 1, Sum: decimal.NewFromInt(1000)},
		{Key: "C", Count: 5, Sum: decimal.NewFromInt(20)},
		{Key: "D", Count: 3, Sum: decimal.NewFromInt(20)},
	}

	byCount := topRows(rows, 3, func(x, y domain.KPIRow) int { return x.Count - y.Count })
	bySum := topRows(rows, 3, func(x, y domain.KPIRow) int { return x.Sum.Cmp(y.Sum) })

	keys := func(rs []domain.KPIRow) []string {
		out := make([]string, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.Key)
		}
		return out
	}
	assert.Equal(t, []string{"A", "C", "D"}, keys(byCount))
	assert.Equal(t, []string{"B", "C", "D"}, keys(bySum))
	assert.Equal(t, "A", rows[0].Key, "input order is preserved")
	assert.Equal(t, []domain.KPIRow{}, topRows(nil, 3, func(x, y domain.KPIRow) int { return 0 }))
}

func TestTopNLimit(t *testing.T) {
	cal := newTestCalendar(t)
	agg := NewAggregator(cal, 0, "unknown")
	assert.Equal(t, 10, agg.topN)

	var txs []domain.EnrichedTransaction
	for i := 0; i < 12; i++ {
		txs = append(txs, domain.EnrichedTransaction{
			Transaction: domain.Transaction{
				Code:      fmt.Sprint(i),
				Timestamp: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
				Amount:    decimal.NewNullDecimal(decimal.NewFromInt(int64(i))),
			},
			CustomerMatched: true,
			CustomerFirst:   fmt.Sprintf("C%02d", i),
			CustomerLast:    "X",
		})
	}
	txs = cal.Derive(txs)
	ds := NewDataset("fp", &domain.Tables{}, txs, nil, domain.JoinStats{}, domain.ParseStats{})

	report := agg.Aggregate(ds, domain.Selection{}, txs, nil)
	require.Len(t, report.TopBySum, 10)
	assert.Equal(t, "C11 X", report.TopBySum[0].Key)
	require.Len(t, report.TopByCount, 10)
	assert.Equal(t, "C00 X", report.TopByCount[0].Key, "count ties break by name")
}

func TestAggregateSkipsNullAmounts(t *testing.T) {
	cal := newTestCalendar(t)
	agg := NewAggregator(cal, 10, "unknown")

	txs := cal.Derive([]domain.EnrichedTransaction{
		{
			Transaction:   domain.Transaction{Code: "1", Timestamp: time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC)},
			BranchMatched: true,
			BranchName:    "Agência Norte",
		},
	})
	ds := NewDataset("fp", &domain.Tables{}, txs, nil, domain.JoinStats{}, domain.ParseStats{})

	report := agg.Aggregate(ds, domain.Selection{}, txs, nil)
	assert.Equal(t, 1, report.TransactionCount)
	assert.Equal(t, 0, report.Totals.Count)
	assert.True(t, report.Totals.Mean.IsZero())
	assert.Empty(t, report.ByBranch)
	assert.Empty(t, report.ByWeekday)
	assert.NotNil(t, report.ByBranch)
}

func TestStatusDistribution(t *testing.T) {
	assert.Nil(t, StatusDistribution(nil))

	dist := StatusDistribution([]domain.CreditProposal{
		{Status: "Recusada"},
		{Status: "Aprovada"},
		{Status: "Aprovada"},
		{Status: "Em análise"},
	})
	require.NotNil(t, dist)
	assert.Equal(t, 4, dist.Total)
	assert.Equal(t, []domain.StatusCount{
		{Status: "Aprovada", Count: 2},
		{Status: "Em análise", Count: 1},
		{Status: "Recusada", Count: 1},
	}, dist.Rows)
}
