package dataprocessing

import (
	"sort"

	"github.com/shopspring/decimal"

	"banvicdash/pkg/contracts/domain"
)

// TotalKey is the key of the report's overall totals row.
const TotalKey = "total"

// accumulator sums the non-null amounts of one group.
type accumulator struct {
	count int
	sum   decimal.Decimal
}

func (a *accumulator) add(v decimal.Decimal) {
	a.count++
	a.sum = a.sum.Add(v)
}

func (a *accumulator) row(group, key string) domain.KPIRow {
	r := domain.KPIRow{Group: group, Key: key, Count: a.count, Sum: a.sum.Round(2), Mean: decimal.Zero}
	if a.count > 0 {
		r.Mean = a.sum.Div(decimal.NewFromInt(int64(a.count))).Round(2)
	}
	return r
}

// grouping accumulates amounts per key. Keys only appear once a non-null
// amount has been added.
type grouping map[string]*accumulator

func (g grouping) add(key string, v decimal.Decimal) {
	acc, ok := g[key]
	if !ok {
		acc = &accumulator{}
		g[key] = acc
	}
	acc.add(v)
}

// sorted returns the rows in ascending key order.
func (g grouping) sorted(group string) []domain.KPIRow {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return g.ordered(group, keys)
}

// ordered returns the rows following order, skipping absent keys.
func (g grouping) ordered(group string, order []string) []domain.KPIRow {
	rows := make([]domain.KPIRow, 0, len(g))
	for _, k := range order {
		if acc, ok := g[k]; ok {
			rows = append(rows, acc.row(group, k))
		}
	}
	return rows
}

// Aggregator computes the report tables from filtered views.
type Aggregator struct {
	calendar *Calendar
	topN     int
	unknown  string
}

// NewAggregator creates an aggregator. topN values below 1 fall back to 10.
func NewAggregator(calendar *Calendar, topN int, unknown string) *Aggregator {
	if topN < 1 {
		topN = 10
	}
	return &Aggregator{calendar: calendar, topN: topN, unknown: unknown}
}

// Aggregate builds the report for sel. txs must carry derived calendar
// features. Rows with a null amount count toward TransactionCount but are
// excluded from every count, mean and sum.
func (a *Aggregator) Aggregate(ds *Dataset, sel domain.Selection, txs []domain.EnrichedTransaction, proposals []domain.CreditProposal) *domain.Report {
	total := &accumulator{}
	byDate := grouping{}
	byBranch := grouping{}
	byCustomer := grouping{}
	byWeekday := grouping{}
	byPeriod := grouping{}
	byBranchPeriod := map[string]grouping{}
	byCollaborator := grouping{}

	for _, tx := range txs {
		if !tx.Amount.Valid {
			continue
		}
		v := tx.Amount.Decimal
		total.add(v)

		if tx.Dated() {
			byDate.add(tx.Date().String(), v)
			byWeekday.add(tx.Weekday, v)
			byPeriod.add(tx.MonthPeriod, v)
		}
		if tx.BranchMatched {
			byBranch.add(tx.BranchName, v)
			if tx.Dated() {
				g, ok := byBranchPeriod[tx.BranchName]
				if !ok {
					g = grouping{}
					byBranchPeriod[tx.BranchName] = g
				}
				g.add(tx.MonthPeriod, v)
			}
		}
		if tx.CustomerMatched {
			byCustomer.add(tx.CustomerName(), v)
		}
		byCollaborator.add(a.collaboratorKey(ds, tx.CollaboratorCode), v)
	}

	report := &domain.Report{
		Fingerprint:      ds.Fingerprint,
		Selection:        sel,
		TransactionCount: len(txs),
		ProposalCount:    len(proposals),
		Totals:           total.row("", TotalKey),
		ByDate:           byDate.sorted(""),
		ByBranch:         byBranch.sorted(""),
		ByCustomer:       byCustomer.sorted(""),
		ByWeekday:        byWeekday.ordered("", a.calendar.WeekdayOrder()),
		ByPeriod:         byPeriod.ordered("", a.calendar.PeriodOrder()),
		ByBranchPeriod:   []domain.KPIRow{},
		ByCollaborator:   byCollaborator.sorted(""),
	}

	branches := make([]string, 0, len(byBranchPeriod))
	for b := range byBranchPeriod {
		branches = append(branches, b)
	}
	sort.Strings(branches)
	for _, b := range branches {
		report.ByBranchPeriod = append(report.ByBranchPeriod, byBranchPeriod[b].ordered(b, a.calendar.PeriodOrder())...)
	}

	report.TopByCount = topRows(report.ByCustomer, a.topN, func(x, y domain.KPIRow) int {
		return x.Count - y.Count
	})
	report.TopBySum = topRows(report.ByCustomer, a.topN, func(x, y domain.KPIRow) int {
		return x.Sum.Cmp(y.Sum)
	})
	report.ProposalStatus = StatusDistribution(proposals)

	return report
}

func (a *Aggregator) collaboratorKey(ds *Dataset, code string) string {
	if code == "" || code == a.unknown {
		return a.unknown
	}
	return ds.CollaboratorName(code)
}

// topRows ranks rows descending by cmp, breaking ties by key ascending, and
// keeps the first n.
func topRows(rows []domain.KPIRow, n int, cmp func(x, y domain.KPIRow) int) []domain.KPIRow {
	ranked := append([]domain.KPIRow(nil), rows...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if c := cmp(ranked[i], ranked[j]); c != 0 {
			return c > 0
		}
		return ranked[i].Key < ranked[j].Key
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	if ranked == nil {
		ranked = []domain.KPIRow{}
	}
	return ranked
}

// StatusDistribution counts proposals per status. It returns nil when there
// are no proposals.
func StatusDistribution(proposals []domain.CreditProposal) *domain.StatusDistribution {
	if len(proposals) == 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, p := range proposals {
		counts[p.Status]++
	}

	dist := &domain.StatusDistribution{Rows: make([]domain.StatusCount, 0, len(counts)), Total: len(proposals)}
	for status, n := range counts {
		dist.Rows = append(dist.Rows, domain.StatusCount{Status: status, Count: n})
	}
	sort.Slice(dist.Rows, func(i, j int) bool {
		if dist.Rows[i].Count != dist.Rows[j].Count {
			return dist.Rows[i].Count > dist.Rows[j].Count
		}
		return dist.Rows[i].Status < dist.Rows[j].Status
	})
	return dist
}
