package exporter

import (
	"fmt"

	"banvicdash/internal/errors"
	"banvicdash/pkg/contracts/domain"
)

// Report table names, as used in export URLs, file names and sheet names.
const (
	TableByDate         = "by_date"
	TableByBranch       = "by_branch"
	TableByCustomer     = "by_customer"
	TableByWeekday      = "by_weekday"
	TableByPeriod       = "by_period"
	TableByBranchPeriod = "by_branch_period"
	TableByCollaborator = "by_collaborator"
	TableTopByCount     = "top_by_count"
	TableTopBySum       = "top_by_sum"
	TableProposalStatus = "proposal_status"
)

// TableNames lists every exportable table in display order.
var TableNames = []string{
	TableByDate,
	TableByBranch,
	TableByCustomer,
	TableByWeekday,
	TableByPeriod,
	TableByBranchPeriod,
	TableByCollaborator,
	TableTopByCount,
	TableTopBySum,
	TableProposalStatus,
}

// Table is one report table flattened for export. Cells hold string, int,
// decimal.Decimal or civil.Date values.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]any
}

var kpiKeyHeader = map[string]string{
	TableByDate:         "date",
	TableByBranch:       "branch",
	TableByCustomer:     "customer",
	TableByWeekday:      "weekday",
	TableByPeriod:       "month_period",
	TableByCollaborator: "collaborator",
	TableTopByCount:     "customer",
	TableTopBySum:       "customer",
}

// ReportTable flattens the named table of report. Unknown names are a
// not-found error.
func ReportTable(report *domain.Report, name string) (Table, error) {
	switch name {
	case TableByDate:
		return kpiTable(name, report.ByDate), nil
	case TableByBranch:
		return kpiTable(name, report.ByBranch), nil
	case TableByCustomer:
		return kpiTable(name, report.ByCustomer), nil
	case TableByWeekday:
		return kpiTable(name, report.ByWeekday), nil
	case TableByPeriod:
		return kpiTable(name, report.ByPeriod), nil
	case TableByCollaborator:
		return kpiTable(name, report.ByCollaborator), nil
	case TableTopByCount:
		return kpiTable(name, report.TopByCount), nil
	case TableTopBySum:
		return kpiTable(name, report.TopBySum), nil
	case TableByBranchPeriod:
		t := Table{Name: name, Headers: []string{"branch", "month_period", "count", "mean", "sum"}, Rows: [][]any{}}
		for _, r := range report.ByBranchPeriod {
			t.Rows = append(t.Rows, []any{r.Group, r.Key, r.Count, r.Mean, r.Sum})
		}
		return t, nil
	case TableProposalStatus:
		t := Table{Name: name, Headers: []string{"status", "count"}, Rows: [][]any{}}
		if report.ProposalStatus != nil {
			for _, s := range report.ProposalStatus.Rows {
				t.Rows = append(t.Rows, []any{s.Status, s.Count})
			}
		}
		return t, nil
	}
	return Table{}, errors.NewNotFoundError(fmt.Sprintf("report table %q", name)).
		WithContext("table", name)
}

// ReportTables flattens every table of report in TableNames order.
func ReportTables(report *domain.Report) []Table {
	tables := make([]Table, 0, len(TableNames))
	for _, name := range TableNames {
		t, _ := ReportTable(report, name)
		tables = append(tables, t)
	}
	return tables
}

func kpiTable(name string, rows []domain.KPIRow) Table {
	t := Table{
		Name:    name,
		Headers: []string{kpiKeyHeader[name], "count", "mean", "sum"},
		Rows:    make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Key, r.Count, r.Mean, r.Sum})
	}
	return t
}

// Records renders the rows as CSV text.
func (t Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = formatCell(v)
		}
		out = append(out, rec)
	}
	return out
}
