package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Selection is the effective filter a report was computed for.
type Selection struct {
	Start        civil.Date `json:"start"`
	End          civil.Date `json:"end"`
	Branches     []string   `json:"branches"`
	Customers    []string   `json:"customers"`
	AllCustomers bool       `json:"all_customers"`
}

// FilterOptions are the values a user can pick from for a given date range
// and branch selection.
type FilterOptions struct {
	MinDate   civil.Date `json:"min_date"`
	MaxDate   civil.Date `json:"max_date"`
	Start     civil.Date `json:"start"`
	End       civil.Date `json:"end"`
	Branches  []string   `json:"branches"`
	Customers []string   `json:"customers"`
	// AllCustomers is the sentinel label, always Customers[0].
	AllCustomers string `json:"all_customers"`
	Empty        bool   `json:"empty"`
}

// KPIRow holds count, mean and sum of transaction amounts for one group.
// Group is set only for two-level groupings such as branch by month period.
type KPIRow struct {
	Group string          `json:"group,omitempty"`
	Key   string          `json:"key"`
	Count int             `json:"count"`
	Mean  decimal.Decimal `json:"mean"`
	Sum   decimal.Decimal `json:"sum"`
}

// StatusCount is the number of proposals with one status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// StatusDistribution is the proposal status breakdown, sorted by count
// descending then status ascending.
type StatusDistribution struct {
	Rows  []StatusCount `json:"rows"`
	Total int           `json:"total"`
}

// Report is every aggregate computed for one selection.
type Report struct {
	Fingerprint string    `json:"dataset_fingerprint"`
	Selection   Selection `json:"selection"`

	TransactionCount int    `json:"transaction_count"`
	ProposalCount    int    `json:"proposal_count"`
	Totals           KPIRow `json:"totals"`

	ByDate         []KPIRow `json:"by_date"`
	ByBranch       []KPIRow `json:"by_branch"`
	ByCustomer     []KPIRow `json:"by_customer"`
	ByWeekday      []KPIRow `json:"by_weekday"`
	ByPeriod       []KPIRow `json:"by_period"`
	ByBranchPeriod []KPIRow `json:"by_branch_period"`
	ByCollaborator []KPIRow `json:"by_collaborator"`
	TopByCount     []KPIRow `json:"top_by_count"`
	TopBySum       []KPIRow `json:"top_by_sum"`

	// ProposalStatus is nil when no proposal falls inside the selection.
	ProposalStatus *StatusDistribution `json:"proposal_status"`
}

// Empty reports whether the selection matched no transactions.
func (r *Report) Empty() bool {
	return r.TransactionCount == 0
}
