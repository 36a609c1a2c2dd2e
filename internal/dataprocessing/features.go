package dataprocessing

import (
	"time"

	"cloud.google.com/go/civil"

	"banvicdash/internal/config"
	"banvicdash/internal/errors"
	"banvicdash/pkg/contracts/domain"
)

// Calendar derives the weekday label and month period of a date from a
// configured label table.
type Calendar struct {
	weekdays    [7]string // Monday first
	periodStart string
	periodEnd   string
}

// NewCalendar trims and validates the locale labels and builds a calendar
// from them.
func NewCalendar(locale config.LocaleConfig) (*Calendar, error) {
	locale = locale.Normalized()
	if err := locale.Validate(); err != nil {
		return nil, errors.NewConfigError("invalid locale labels", err)
	}

	c := &Calendar{periodStart: locale.PeriodStart, periodEnd: locale.PeriodEnd}
	copy(c.weekdays[:], locale.Weekdays)
	return c, nil
}

// WeekdayLabel maps the weekday of d through the label table.
func (c *Calendar) WeekdayLabel(d civil.Date) string {
	wd := d.In(time.UTC).Weekday()
	return c.weekdays[(int(wd)+6)%7]
}

// MonthPeriod returns the start label for days 1 to 15 and the end label otherwise.
func (c *Calendar) MonthPeriod(d civil.Date) string {
	if d.Day <= 15 {
		return c.periodStart
	}
	return c.periodEnd
}

// WeekdayOrder returns the labels Monday through Sunday.
func (c *Calendar) WeekdayOrder() []string {
	return append([]string(nil), c.weekdays[:]...)
}

// PeriodOrder returns the period labels in calendar order.
func (c *Calendar) PeriodOrder() []string {
	return []string{c.periodStart, c.periodEnd}
}

// Derive returns a copy of txs with weekday and month period filled in.
// Undated rows keep empty features.
func (c *Calendar) Derive(txs []domain.EnrichedTransaction) []domain.EnrichedTransaction {
	out := make([]domain.EnrichedTransaction, len(txs))
	for i, tx := range txs {
		if tx.Dated() {
			d := tx.Date()
			tx.Weekday = c.WeekdayLabel(d)
			tx.MonthPeriod = c.MonthPeriod(d)
		} else {
			tx.Weekday = ""
			tx.MonthPeriod = ""
		}
		out[i] = tx
	}
	return out
}
