package charts

import (
	"fmt"
	"strconv"

	"banvicdash/internal/errors"
	"banvicdash/pkg/contracts/domain"
)

// Chart names served by the dashboard.
const (
	PeriodCount       = "period_count"
	PeriodMean        = "period_mean"
	BranchPeriodCount = "branch_period_count"
	BranchPeriodMean  = "branch_period_mean"
	WeekdaySum        = "weekday_sum"
	ProposalStatus    = "proposal_status"
	TopCustomersCount = "top_customers_count"
	TopCustomersSum   = "top_customers_sum"
)

// Names lists every chart in dashboard order.
var Names = []string{
	PeriodCount,
	PeriodMean,
	BranchPeriodCount,
	BranchPeriodMean,
	WeekdaySum,
	ProposalStatus,
	TopCustomersCount,
	TopCustomersSum,
}

var titles = map[string]string{
	PeriodCount:       "Transactions per month period",
	PeriodMean:        "Mean transaction value per month period",
	BranchPeriodCount: "Transactions per branch and month period",
	BranchPeriodMean:  "Mean transaction value per branch and month period",
	WeekdaySum:        "Transaction value per weekday",
	ProposalStatus:    "Credit proposals by status",
	TopCustomersCount: "Customers with the most transactions",
	TopCustomersSum:   "Customers with the highest transaction value",
}

// FromReport builds the named chart from report. Unknown names are a
// not-found error.
func FromReport(report *domain.Report, name string) (BarChart, error) {
	title, ok := titles[name]
	if !ok {
		return BarChart{}, errors.NewNotFoundError(fmt.Sprintf("chart %q", name)).
			WithContext("chart", name)
	}

	chart := BarChart{Name: name, Title: title, Bars: []Bar{}}

	switch name {
	case PeriodCount:
		chart.Bars = countBars(report.ByPeriod, false)
	case PeriodMean:
		chart.Bars = meanBars(report.ByPeriod, false)
	case BranchPeriodCount:
		chart.Bars = countBars(report.ByBranchPeriod, true)
	case BranchPeriodMean:
		chart.Bars = meanBars(report.ByBranchPeriod, true)
	case WeekdaySum:
		for _, r := range report.ByWeekday {
			chart.Bars = append(chart.Bars, Bar{Label: r.Key, Value: r.Sum.InexactFloat64(), Text: r.Sum.StringFixed(2)})
		}
	case ProposalStatus:
		if report.ProposalStatus != nil {
			for _, s := range report.ProposalStatus.Rows {
				chart.Bars = append(chart.Bars, Bar{Label: s.Status, Value: float64(s.Count), Text: strconv.Itoa(s.Count)})
			}
		}
	case TopCustomersCount:
		chart.Bars = countBars(report.TopByCount, false)
	case TopCustomersSum:
		for _, r := range report.TopBySum {
			chart.Bars = append(chart.Bars, Bar{Label: r.Key, Value: r.Sum.InexactFloat64(), Text: r.Sum.StringFixed(2)})
		}
	}

	return chart, nil
}

// All builds every chart of report in Names order.
func All(report *domain.Report) []BarChart {
	out := make([]BarChart, 0, len(Names))
	for _, name := range Names {
		c, _ := FromReport(report, name)
		out = append(out, c)
	}
	return out
}

func label(r domain.KPIRow, grouped bool) string {
	if grouped {
		return r.Group + " / " + r.Key
	}
	return r.Key
}

func countBars(rows []domain.KPIRow, grouped bool) []Bar {
	bars := make([]Bar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, Bar{Label: label(r, grouped), Value: float64(r.Count), Text: strconv.Itoa(r.Count)})
	}
	return bars
}

func meanBars(rows []domain.KPIRow, grouped bool) []Bar {
	bars := make([]Bar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, Bar{Label: label(r, grouped), Value: r.Mean.InexactFloat64(), Text: r.Mean.StringFixed(2)})
	}
	return bars
}
