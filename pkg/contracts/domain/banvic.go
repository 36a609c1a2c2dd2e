package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Branch is one row of the branches table (agencias).
type Branch struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Customer is one row of the customers table (clientes).
type Customer struct {
	Code      string `json:"code"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FullName is the display name used by the customer filter.
func (c Customer) FullName() string {
	return FullName(c.FirstName, c.LastName)
}

// FullName joins first and last name with a single space.
func FullName(first, last string) string {
	return first + " " + last
}

// Employee is one row of the employees table (colaboradores).
type Employee struct {
	Code      string `json:"code"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FullName returns first and last name joined by a space.
func (e Employee) FullName() string {
	return FullName(e.FirstName, e.LastName)
}

// EmployeeBranch links an employee to the branch they work at.
type EmployeeBranch struct {
	EmployeeCode string `json:"employee_code"`
	BranchCode   string `json:"branch_code"`
}

// Account is one row of the accounts table (contas).
type Account struct {
	Number           string `json:"number"`
	CustomerCode     string `json:"customer_code"`
	BranchCode       string `json:"branch_code"`
	CollaboratorCode string `json:"collaborator_code"`
}

// Transaction is one row of the transactions table (transacoes).
// Timestamp is UTC with the zone dropped; it is zero when the source value
// could not be parsed. Amount is invalid when the source value was not numeric.
type Transaction struct {
	Code          string              `json:"code"`
	AccountNumber string              `json:"account_number"`
	Timestamp     time.Time           `json:"timestamp"`
	Description   string              `json:"description,omitempty"`
	Amount        decimal.NullDecimal `json:"amount"`
}

// Dated reports whether the transaction has a usable timestamp.
func (t Transaction) Dated() bool {
	return !t.Timestamp.IsZero()
}

// Date is the calendar day of the transaction. Only meaningful when Dated.
func (t Transaction) Date() civil.Date {
	return civil.DateOf(t.Timestamp)
}

// EnrichedTransaction is a transaction joined with its account, branch and
// customer, plus the derived calendar features. Enrichment fields are empty
// when the corresponding join found no match.
type EnrichedTransaction struct {
	Transaction

	BranchCode       string `json:"branch_code"`
	CustomerCode     string `json:"customer_code"`
	CollaboratorCode string `json:"collaborator_code"`
	BranchName       string `json:"branch_name"`
	CustomerFirst    string `json:"customer_first"`
	CustomerLast     string `json:"customer_last"`

	AccountMatched  bool `json:"account_matched"`
	BranchMatched   bool `json:"branch_matched"`
	CustomerMatched bool `json:"customer_matched"`

	Weekday     string `json:"weekday,omitempty"`
	MonthPeriod string `json:"month_period,omitempty"`
}

// CustomerName is the full name used by the customer filter and groupings.
func (t EnrichedTransaction) CustomerName() string {
	return FullName(t.CustomerFirst, t.CustomerLast)
}

// CreditProposal is one row of the credit proposals table (propostas_credito).
// EnteredAt is zero when the entry date could not be parsed.
type CreditProposal struct {
	Code             string              `json:"code"`
	CustomerCode     string              `json:"customer_code"`
	CollaboratorCode string              `json:"collaborator_code,omitempty"`
	EnteredAt        time.Time           `json:"entered_at"`
	Status           string              `json:"status"`
	Amount           decimal.NullDecimal `json:"amount"`
}

// Dated reports whether the proposal has a usable entry date.
func (p CreditProposal) Dated() bool {
	return !p.EnteredAt.IsZero()
}

// Date is the calendar day the proposal was entered.
func (p CreditProposal) Date() civil.Date {
	return civil.DateOf(p.EnteredAt)
}

// Tables holds the seven base tables exactly as loaded.
type Tables struct {
	Branches         []Branch
	Customers        []Customer
	EmployeeBranches []EmployeeBranch
	Employees        []Employee
	Accounts         []Account
	Proposals        []CreditProposal
	Transactions     []Transaction
}

// JoinStats counts transactions whose joins found no match. Unmatched rows are
// kept with empty enrichment.
type JoinStats struct {
	Transactions        int `json:"transactions"`
	UnmatchedAccount    int `json:"unmatched_account"`
	UnmatchedBranch     int `json:"unmatched_branch"`
	UnmatchedCustomer   int `json:"unmatched_customer"`
	UnknownCollaborator int `json:"unknown_collaborator"`
}

// ParseStats counts source values that were coerced to null.
type ParseStats struct {
	InvalidTimestamps    int `json:"invalid_timestamps"`
	InvalidAmounts       int `json:"invalid_amounts"`
	InvalidProposalDates int `json:"invalid_proposal_dates"`
}

// Total is the number of coerced values across all columns.
func (p ParseStats) Total() int {
	return p.InvalidTimestamps + p.InvalidAmounts + p.InvalidProposalDates
}

// DatasetSummary describes the currently loaded dataset.
type DatasetSummary struct {
	Fingerprint string         `json:"fingerprint"`
	LoadedAt    time.Time      `json:"loaded_at"`
	Rows        map[string]int `json:"rows"`
	Join        JoinStats      `json:"join"`
	ParseErrors ParseStats     `json:"parse_errors"`
	MinDate     *civil.Date    `json:"min_date,omitempty"`
	MaxDate     *civil.Date    `json:"max_date,omitempty"`
}
