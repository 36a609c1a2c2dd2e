package dataprocessing

import (
	"time"

	"cloud.google.com/go/civil"

	"banvicdash/internal/config"
	"banvicdash/pkg/contracts/domain"
)

// Dataset is the joined and feature-enriched snapshot of one set of source
// files. It is never mutated after construction and is safe to share
// between goroutines.
type Dataset struct {
	Fingerprint  string
	LoadedAt     time.Time
	Tables       *domain.Tables
	Transactions []domain.EnrichedTransaction
	Proposals    []domain.CreditProposal
	Join         domain.JoinStats
	Parse        domain.ParseStats

	minDate, maxDate civil.Date
	dated            bool

	// customerBranches maps a customer code to the names of the branches
	// holding at least one of the customer's accounts.
	customerBranches map[string]map[string]struct{}
	employees        map[string]domain.Employee
}

// NewDataset indexes an already joined view.
func NewDataset(fingerprint string, tables *domain.Tables, txs []domain.EnrichedTransaction, proposals []domain.CreditProposal, join domain.JoinStats, parse domain.ParseStats) *Dataset {
	ds := &Dataset{
		Fingerprint:      fingerprint,
		LoadedAt:         time.Now().UTC(),
		Tables:           tables,
		Transactions:     txs,
		Proposals:        proposals,
		Join:             join,
		Parse:            parse,
		customerBranches: make(map[string]map[string]struct{}),
		employees:        make(map[string]domain.Employee, len(tables.Employees)),
	}

	for _, tx := range txs {
		if !tx.Dated() {
			continue
		}
		d := tx.Date()
		if !ds.dated || d.Before(ds.minDate) {
			ds.minDate = d
		}
		if !ds.dated || d.After(ds.maxDate) {
			ds.maxDate = d
		}
		ds.dated = true
	}

	branchNames := make(map[string]string, len(tables.Branches))
	for _, b := range tables.Branches {
		if _, ok := branchNames[b.Code]; !ok {
			branchNames[b.Code] = b.Name
		}
	}
	for _, a := range tables.Accounts {
		name, ok := branchNames[a.BranchCode]
		if !ok {
			continue
		}
		set, ok := ds.customerBranches[a.CustomerCode]
		if !ok {
			set = make(map[string]struct{})
			ds.customerBranches[a.CustomerCode] = set
		}
		set[name] = struct{}{}
	}

	for _, e := range tables.Employees {
		if _, ok := ds.employees[e.Code]; !ok {
			ds.employees[e.Code] = e
		}
	}

	return ds
}

// DateRange returns the first and last transaction dates. ok is false when
// no transaction has a usable timestamp.
func (ds *Dataset) DateRange() (minDate, maxDate civil.Date, ok bool) {
	return ds.minDate, ds.maxDate, ds.dated
}

// CustomerInBranches reports whether any account of the customer belongs to
// one of the named branches.
func (ds *Dataset) CustomerInBranches(customerCode string, branches map[string]struct{}) bool {
	for name := range ds.customerBranches[customerCode] {
		if _, ok := branches[name]; ok {
			return true
		}
	}
	return false
}

// CollaboratorName returns the employee's full name, or the code itself when
// the employee is not in the employees table.
func (ds *Dataset) CollaboratorName(code string) string {
	if e, ok := ds.employees[code]; ok {
		return e.FullName()
	}
	return code
}

// Summary describes the dataset for the dataset endpoint and reload events.
func (ds *Dataset) Summary() domain.DatasetSummary {
	s := domain.DatasetSummary{
		Fingerprint: ds.Fingerprint,
		LoadedAt:    ds.LoadedAt,
		Rows: map[string]int{
			config.TableBranches:         len(ds.Tables.Branches),
			config.TableCustomers:        len(ds.Tables.Customers),
			config.TableEmployeeBranches: len(ds.Tables.EmployeeBranches),
			config.TableEmployees:        len(ds.Tables.Employees),
			config.TableAccounts:         len(ds.Tables.Accounts),
			config.TableProposals:        len(ds.Tables.Proposals),
			config.TableTransactions:     len(ds.Tables.Transactions),
		},
		Join:        ds.Join,
		ParseErrors: ds.Parse,
	}
	if ds.dated {
		minDate, maxDate := ds.minDate, ds.maxDate
		s.MinDate = &minDate
		s.MaxDate = &maxDate
	}
	return s
}
