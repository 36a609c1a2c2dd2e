package dataprocessing

import (
	"sort"

	"cloud.google.com/go/civil"

	"banvicdash/pkg/contracts/domain"
)

// Query is a filter request as supplied by a user. Nil bounds default to the
// observed date range of the dataset.
type Query struct {
	Start     *civil.Date
	End       *civil.Date
	Branches  []string
	Customers []string
}

// bounds clamps the requested interval to the observed date range. A
// request can narrow the range but never widen it.
func bounds(ds *Dataset, q Query) (start, end civil.Date, ok bool) {
	minDate, maxDate, ok := ds.DateRange()
	if !ok {
		return civil.Date{}, civil.Date{}, false
	}
	start, end = minDate, maxDate
	if q.Start != nil && q.Start.After(start) {
		start = *q.Start
	}
	if q.End != nil && q.End.Before(end) {
		end = *q.End
	}
	return start, end, true
}

func inRange(d, start, end civil.Date) bool {
	return !d.Before(start) && !d.After(end)
}

// dateView returns the dated transactions inside [start, end].
func dateView(txs []domain.EnrichedTransaction, start, end civil.Date) []domain.EnrichedTransaction {
	out := make([]domain.EnrichedTransaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Dated() && inRange(tx.Date(), start, end) {
			out = append(out, tx)
		}
	}
	return out
}

func branchNames(txs []domain.EnrichedTransaction) []string {
	seen := make(map[string]struct{})
	for _, tx := range txs {
		if tx.BranchMatched {
			seen[tx.BranchName] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func customerNames(txs []domain.EnrichedTransaction) []string {
	seen := make(map[string]struct{})
	for _, tx := range txs {
		if tx.CustomerMatched {
			seen[tx.CustomerName()] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func keepBranches(txs []domain.EnrichedTransaction, branches map[string]struct{}) []domain.EnrichedTransaction {
	out := make([]domain.EnrichedTransaction, 0, len(txs))
	for _, tx := range txs {
		if _, ok := branches[tx.BranchName]; ok && tx.BranchMatched {
			out = append(out, tx)
		}
	}
	return out
}

// Options returns the selectable filter values for a date range and branch
// selection. The customer list is limited to customers with transactions in
// the selected branches and starts with the all-customers sentinel.
func Options(ds *Dataset, q Query, allCustomers string) domain.FilterOptions {
	opts := domain.FilterOptions{
		Branches:     []string{},
		Customers:    []string{allCustomers},
		AllCustomers: allCustomers,
	}

	start, end, ok := bounds(ds, q)
	if !ok {
		opts.Empty = true
		return opts
	}
	opts.MinDate, opts.MaxDate, _ = ds.DateRange()
	opts.Start, opts.End = start, end

	view := dateView(ds.Transactions, start, end)
	opts.Branches = branchNames(view)

	selected := opts.Branches
	if len(q.Branches) > 0 {
		selected = q.Branches
	}
	view = keepBranches(view, toSet(selected))
	opts.Customers = append(opts.Customers, customerNames(view)...)
	opts.Empty = len(view) == 0

	return opts
}

// Resolve turns a query into the effective selection. An empty branch list
// selects every branch present in the date range. The all-customers sentinel
// is dropped when real names are also selected; alone or with nothing else
// it disables the customer filter.
func Resolve(ds *Dataset, q Query, allCustomers string) domain.Selection {
	sel := domain.Selection{Branches: []string{}, Customers: []string{}}

	start, end, ok := bounds(ds, q)
	if !ok {
		sel.AllCustomers = true
		return sel
	}
	sel.Start, sel.End = start, end

	if len(q.Branches) == 0 {
		sel.Branches = branchNames(dateView(ds.Transactions, start, end))
	} else {
		sel.Branches = sortedKeys(toSet(q.Branches))
	}

	names := make(map[string]struct{}, len(q.Customers))
	for _, c := range q.Customers {
		if c != allCustomers {
			names[c] = struct{}{}
		}
	}
	sel.Customers = sortedKeys(names)
	sel.AllCustomers = len(sel.Customers) == 0

	return sel
}

// FilterTransactions applies the date, branch and customer filters of sel.
// Transactions without a usable date never pass.
func FilterTransactions(txs []domain.EnrichedTransaction, sel domain.Selection) []domain.EnrichedTransaction {
	if sel.End.Before(sel.Start) {
		return []domain.EnrichedTransaction{}
	}

	view := keepBranches(dateView(txs, sel.Start, sel.End), toSet(sel.Branches))
	if sel.AllCustomers {
		return view
	}

	codes := selectedCustomerCodes(view, toSet(sel.Customers))
	out := make([]domain.EnrichedTransaction, 0, len(view))
	for _, tx := range view {
		if _, ok := codes[tx.CustomerCode]; ok && tx.CustomerMatched {
			out = append(out, tx)
		}
	}
	return out
}

// selectedCustomerCodes collects the customer codes whose full name is in
// names. Customers sharing a name are all selected.
func selectedCustomerCodes(txs []domain.EnrichedTransaction, names map[string]struct{}) map[string]struct{} {
	codes := make(map[string]struct{})
	for _, tx := range txs {
		if !tx.CustomerMatched {
			continue
		}
		if _, ok := names[tx.CustomerName()]; ok {
			codes[tx.CustomerCode] = struct{}{}
		}
	}
	return codes
}

// FilterProposals applies sel to the proposals of ds. The branch filter goes
// through the customer's accounts and each proposal is kept at most once.
// When the customer filter is active, only proposals of customers present in
// filteredTxs are kept.
func FilterProposals(ds *Dataset, sel domain.Selection, filteredTxs []domain.EnrichedTransaction) []domain.CreditProposal {
	out := []domain.CreditProposal{}
	if sel.End.Before(sel.Start) {
		return out
	}

	branches := toSet(sel.Branches)
	var customers map[string]struct{}
	if !sel.AllCustomers {
		customers = make(map[string]struct{}, len(filteredTxs))
		for _, tx := range filteredTxs {
			customers[tx.CustomerCode] = struct{}{}
		}
	}

	for _, p := range ds.Proposals {
		if !p.Dated() || !inRange(p.Date(), sel.Start, sel.End) {
			continue
		}
		if !ds.CustomerInBranches(p.CustomerCode, branches) {
			continue
		}
		if customers != nil {
			if _, ok := customers[p.CustomerCode]; !ok {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}
