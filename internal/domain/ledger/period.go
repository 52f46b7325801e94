package ledger

import (
	"fmt"
	"time"
)

// Period is a billing month (periodo_mes / periodo_anio)
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// NewPeriod validates and builds a Period
func NewPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, ErrInvalidPeriod
	}
	if year < 1900 || year > 9999 {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Year: year, Month: month}, nil
}

// PeriodOf returns the calendar period a moment falls in
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// Compare orders periods by (year, month).
// Returns -1 if p is earlier than o, 0 if equal, 1 if later.
func (p Period) Compare(o Period) int {
	switch {
	case p.Year < o.Year:
		return -1
	case p.Year > o.Year:
		return 1
	case p.Month < o.Month:
		return -1
	case p.Month > o.Month:
		return 1
	}
	return 0
}

// Before reports whether p is earlier than o
func (p Period) Before(o Period) bool {
	return p.Compare(o) < 0
}

// AddMonths shifts the period by n calendar months (n may be negative)
func (p Period) AddMonths(n int) Period {
	idx := p.Year*12 + (p.Month - 1) + n
	return Period{Year: idx / 12, Month: idx%12 + 1}
}

// Next returns the following period
func (p Period) Next() Period {
	return p.AddMonths(1)
}

// Prev returns the preceding period
func (p Period) Prev() Period {
	return p.AddMonths(-1)
}

// FirstDay returns the first day of the period in loc
func (p Period) FirstDay(loc *time.Location) time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, loc)
}

// DaysIn returns the number of days in the period
func (p Period) DaysIn() int {
	return p.FirstDay(time.UTC).AddDate(0, 1, -1).Day()
}

// DueDate returns the day-th of the period, clamped to the month end
func (p Period) DueDate(day int, loc *time.Location) time.Time {
	if day < 1 {
		day = 1
	}
	if last := p.DaysIn(); day > last {
		day = last
	}
	return time.Date(p.Year, time.Month(p.Month), day, 0, 0, 0, 0, loc)
}

// String formats the period as YYYY-MM
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Classification is the derived bucket of a maintenance payment
type Classification string

const (
	ClassificationOnTime    Classification = "on_time"
	ClassificationRecovered Classification = "recovered" // past period paid late
	ClassificationAdvance   Classification = "advance"   // future period paid early
)

// String returns the string representation of Classification
func (c Classification) String() string {
	return string(c)
}

// Classify buckets a maintenance payment by comparing its billing period to
// the calendar period of the payment date. Calendar order is used, not
// elapsed time: a January period of next year paid in December is advance.
func Classify(period Period, paidAt time.Time) Classification {
	switch period.Compare(PeriodOf(paidAt)) {
	case 0:
		return ClassificationOnTime
	case -1:
		return ClassificationRecovered
	default:
		return ClassificationAdvance
	}
}

// IsAnnuity reports whether a period of the target year was prepaid, that is
// paid in an earlier calendar period. Annuities are grouped by periodo_mes.
func IsAnnuity(period Period, paidAt time.Time, year int) bool {
	return period.Year == year && Classify(period, paidAt) == ClassificationAdvance
}
