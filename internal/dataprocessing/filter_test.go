package dataprocessing

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banvicdash/pkg/contracts/domain"
)

const allCustomers = "All Customers"

func codes(txs []domain.EnrichedTransaction) []string {
	out := make([]string, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.Code)
	}
	return out
}

func proposalCodes(ps []domain.CreditProposal) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Code)
	}
	return out
}

func datePtr(d civil.Date) *civil.Date {
	return &d
}

func TestResolve(t *testing.T) {
	_, ds := newFixturePipeline(t)

	tests := []struct {
		name          string
		query         Query
		wantStart     civil.Date
		wantEnd       civil.Date
		wantBranches  []string
		wantCustomers []string
		wantAll       bool
	}{
		{
			name:         "defaults",
			query:        Query{},
			wantStart:    date(2024, 1, 10),
			wantEnd:      date(2024, 1, 21),
			wantBranches: []string{"Agência Centro", "Agência Norte"},
			wantAll:      true,
		},
		{
			name:         "bounds are clamped to observed range",
			query:        Query{Start: datePtr(date(2023, 1, 1)), End: datePtr(date(2025, 1, 1))},
			wantStart:    date(2024, 1, 10),
			wantEnd:      date(2024, 1, 21),
			wantBranches: []string{"Agência Centro", "Agência Norte"},
			wantAll:      true,
		},
		{
			name:         "narrow range limits default branches",
			query:        Query{Start: datePtr(date(2024, 1, 10)), End: datePtr(date(2024, 1, 10))},
			wantStart:    date(2024, 1, 10),
			wantEnd:      date(2024, 1, 10),
			wantBranches: []string{"Agência Centro"},
			wantAll:      true,
		},
		{
			name:          "sentinel dropped when names are selected",
			query:         Query{Customers: []string{allCustomers, "Bruno Costa"}},
			wantStart:     date(2024, 1, 10),
			wantEnd:       date(2024, 1, 21),
			wantBranches:  []string{"Agência Centro", "Agência Norte"},
			wantCustomers: []string{"Bruno Costa"},
		},
		{
			name:         "sentinel alone disables the customer filter",
			query:        Query{Customers: []string{allCustomers}},
			wantStart:    date(2024, 1, 10),
			wantEnd:      date(2024, 1, 21),
			wantBranches: []string{"Agência Centro", "Agência Norte"},
			wantAll:      true,
		},
		{
			name:         "explicit branches are deduplicated and sorted",
			query:        Query{Branches: []string{"Agência Norte", "Agência Centro", "Agência Norte"}},
			wantStart:    date(2024, 1, 10),
			wantEnd:      date(2024, 1, 21),
			wantBranches: []string{"Agência Centro", "Agência Norte"},
			wantAll:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := Resolve(ds, tt.query, allCustomers)
			assert.Equal(t, tt.wantStart, sel.Start)
			assert.Equal(t, tt.wantEnd, sel.End)
			assert.Equal(t, tt.wantBranches, sel.Branches)
			if tt.wantCustomers == nil {
				tt.wantCustomers = []string{}
			}
			assert.Equal(t, tt.wantCustomers, sel.Customers)
			assert.Equal(t, tt.wantAll, sel.AllCustomers)
		})
	}
}

func TestFilterTransactions(t *testing.T) {
	_, ds := newFixturePipeline(t)

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{
			name:  "defaults drop undated and unmatched branch rows",
			query: Query{},
			want:  []string{"1", "2", "3", "4", "5", "8"},
		},
		{
			name:  "inclusive date range on date portion",
			query: Query{Start: datePtr(date(2024, 1, 15)), End: datePtr(date(2024, 1, 16))},
			want:  []string{"3", "5"},
		},
		{
			name:  "branch filter",
			query: Query{Branches: []string{"Agência Norte"}},
			want:  []string{"4", "5", "8"},
		},
		{
			name:  "customer filter",
			query: Query{Customers: []string{allCustomers, "Ana Silva"}},
			want:  []string{"1", "2"},
		},
		{
			name:  "customer outside selected branches",
			query: Query{Branches: []string{"Agência Norte"}, Customers: []string{"Ana Silva"}},
			want:  []string{},
		},
		{
			name:  "unknown branch",
			query: Query{Branches: []string{"Agência Sul"}},
			want:  []string{},
		},
		{
			name:  "start after end",
			query: Query{Start: datePtr(date(2024, 1, 20)), End: datePtr(date(2024, 1, 12))},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := Resolve(ds, tt.query, allCustomers)
			got := FilterTransactions(ds.Transactions, sel)
			assert.Equal(t, tt.want, codes(got))
		})
	}
}

func TestFilterTransactionsIdempotent(t *testing.T) {
	_, ds := newFixturePipeline(t)

	queries := []Query{
		{},
		{Branches: []string{"Agência Centro"}},
		{Customers: []string{"Carla Souza"}, Start: datePtr(date(2024, 1, 18))},
	}
	for _, q := range queries {
		sel := Resolve(ds, q, allCustomers)
		once := FilterTransactions(ds.Transactions, sel)
		twice := FilterTransactions(once, sel)
		assert.Equal(t, once, twice)
	}
}

func TestFilterProposals(t *testing.T) {
	_, ds := newFixturePipeline(t)

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{
			name:  "date range on entry date",
			query: Query{},
			want:  []string{"501", "504"},
		},
		{
			name:  "branch filter goes through accounts",
			query: Query{Branches: []string{"Agência Norte"}},
			want:  []string{},
		},
		{
			name:  "customer filter keeps customers present in transactions",
			query: Query{Customers: []string{"Bruno Costa"}},
			want:  []string{"501", "504"},
		},
		{
			name:  "customer filter excludes other customers",
			query: Query{Customers: []string{"Ana Silva"}},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := Resolve(ds, tt.query, allCustomers)
			txs := FilterTransactions(ds.Transactions, sel)
			got := FilterProposals(ds, sel, txs)
			assert.Equal(t, tt.want, proposalCodes(got))
		})
	}
}

func TestFilterProposalsRetainedOnce(t *testing.T) {
	tables := &domain.Tables{
		Branches:  []domain.Branch{{Code: "1", Name: "A"}, {Code: "2", Name: "B"}},
		Customers: []domain.Customer{{Code: "10", FirstName: "Ana", LastName: "Silva"}},
		Accounts: []domain.Account{
			{Number: "1000", CustomerCode: "10", BranchCode: "1"},
			{Number: "1001", CustomerCode: "10", BranchCode: "2"},
		},
		Proposals: []domain.CreditProposal{
			{Code: "500", CustomerCode: "10", EnteredAt: date(2024, 1, 10).In(time.UTC), Status: "Aprovada"},
		},
	}
	ds := NewDataset("fp", tables, nil, tables.Proposals, domain.JoinStats{}, domain.ParseStats{})

	sel := domain.Selection{
		Start:        date(2024, 1, 1),
		End:          date(2024, 1, 31),
		Branches:     []string{"A", "B"},
		AllCustomers: true,
	}
	got := FilterProposals(ds, sel, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "500", got[0].Code)
}

func TestOptions(t *testing.T) {
	_, ds := newFixturePipeline(t)

	t.Run("customers follow the selected branches", func(t *testing.T) {
		opts := Options(ds, Query{Branches: []string{"Agência Norte"}}, allCustomers)
		assert.Equal(t, []string{allCustomers, "Carla Souza"}, opts.Customers)
		assert.Equal(t, []string{"Agência Centro", "Agência Norte"}, opts.Branches)
		assert.False(t, opts.Empty)
	})

	t.Run("branches follow the date range", func(t *testing.T) {
		opts := Options(ds, Query{Start: datePtr(date(2024, 1, 20))}, allCustomers)
		assert.Equal(t, []string{"Agência Norte"}, opts.Branches)
		assert.Equal(t, date(2024, 1, 10), opts.MinDate)
		assert.Equal(t, date(2024, 1, 21), opts.MaxDate)
		assert.Equal(t, date(2024, 1, 20), opts.Start)
	})

	t.Run("dataset without dated transactions", func(t *testing.T) {
		empty := NewDataset("fp", &domain.Tables{}, nil, nil, domain.JoinStats{}, domain.ParseStats{})
		opts := Options(empty, Query{}, allCustomers)
		assert.True(t, opts.Empty)
		assert.Equal(t, []string{allCustomers}, opts.Customers)
		assert.Equal(t, []string{}, opts.Branches)
	})
}
