package config

// Application constants
const (
	AppName    = "banvic-dashboard"
	AppVersion = "1.0.0"

	DefaultDataDir = "data"
	DefaultTopN    = 10
)

// Source table identifiers, used in logs, errors and the dataset summary.
const (
	TableBranches         = "branches"
	TableCustomers        = "customers"
	TableEmployeeBranches = "employee_branches"
	TableEmployees        = "employees"
	TableAccounts         = "accounts"
	TableProposals        = "proposals"
	TableTransactions     = "transactions"
)

// DefaultWeekdays are the Portuguese short weekday labels, Monday first.
var DefaultWeekdays = []string{"Seg", "Ter", "Qua", "Qui", "Sex", "Sáb", "Dom"}
