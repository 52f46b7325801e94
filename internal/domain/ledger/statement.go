package ledger

import "github.com/shopspring/decimal"

// Category is one income line of the financial statement
type Category string

const (
	CategoryMaintenance Category = "maintenance" // current-period dues paid on time
	CategoryRecovered   Category = "recovered"
	CategoryAdvance     Category = "advance"
	CategoryAnnualities Category = "annualities" // prepaid dues of the year, by periodo_mes
	CategoryFines       Category = "fines"
	CategoryAgreements  Category = "agreements"
	CategoryCommonAreas Category = "commonAreas"
	CategoryOthers      Category = "others"
)

// AllCategories lists the statement categories in display order
func AllCategories() []Category {
	return []Category{
		CategoryMaintenance, CategoryRecovered, CategoryAdvance, CategoryFines,
		CategoryAgreements, CategoryCommonAreas, CategoryOthers, CategoryAnnualities,
	}
}

// MonthlyTotal is one aggregated row returned by a category query
type MonthlyTotal struct {
	Month int
	Total decimal.Decimal
	Count int
}

// MonthlySeries holds one amount per calendar month, index 0 = January.
// The zero value is twelve zeros, never sparse.
type MonthlySeries [12]decimal.Decimal

// MonthIndex converts a 1-based month into a series index clamped to [0,11]
func MonthIndex(month int) int {
	idx := month - 1
	if idx < 0 {
		return 0
	}
	if idx > 11 {
		return 11
	}
	return idx
}

// Add accumulates amount into the given 1-based month
func (s *MonthlySeries) Add(month int, amount decimal.Decimal) {
	idx := MonthIndex(month)
	s[idx] = s[idx].Add(amount)
}

// Fold adds every row into the series
func (s *MonthlySeries) Fold(rows []MonthlyTotal) {
	for _, r := range rows {
		s.Add(r.Month, r.Total)
	}
}

// Total returns the sum of the twelve months
func (s *MonthlySeries) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range s {
		sum = sum.Add(v)
	}
	return sum
}

// Floats converts the series for JSON output, two decimals per month
func (s *MonthlySeries) Floats() []float64 {
	out := make([]float64, 12)
	for i, v := range s {
		out[i] = v.Round(2).InexactFloat64()
	}
	return out
}

// MonthlyCounts holds one counter per calendar month
type MonthlyCounts [12]int

// Fold adds row counts into the counters
func (c *MonthlyCounts) Fold(rows []MonthlyTotal) {
	for _, r := range rows {
		c[MonthIndex(r.Month)] += r.Count
	}
}

// IncomeStatement is the income-by-category report of one year
type IncomeStatement struct {
	Year          int
	CondominiumID *int64
	Series        map[Category]*MonthlySeries
	AdvanceCount  MonthlyCounts
	// Degraded lists categories whose query failed and were zeroed
	Degraded []Category
}

// NewIncomeStatement returns a statement with every category zeroed
func NewIncomeStatement(year int, condominiumID *int64) *IncomeStatement {
	st := &IncomeStatement{
		Year:          year,
		CondominiumID: condominiumID,
		Series:        make(map[Category]*MonthlySeries, len(AllCategories())),
	}
	for _, c := range AllCategories() {
		st.Series[c] = &MonthlySeries{}
	}
	return st
}

// Get returns the series of a category
func (st *IncomeStatement) Get(c Category) *MonthlySeries {
	if s, ok := st.Series[c]; ok {
		return s
	}
	s := &MonthlySeries{}
	st.Series[c] = s
	return s
}

// GrandTotal returns the income of the year across categories.
// Annualities re-group advance payments and are not added twice.
func (st *IncomeStatement) GrandTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, c := range AllCategories() {
		if c == CategoryAnnualities {
			continue
		}
		sum = sum.Add(st.Get(c).Total())
	}
	return sum
}
