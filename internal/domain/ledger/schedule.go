package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FineCharge is a fine folded into an agreement
type FineCharge struct {
	FineID int64           `json:"id"`
	Amount decimal.Decimal `json:"monto"`
}

// QuoteInput holds everything needed to price an agreement
type QuoteInput struct {
	Charges          []MaintenanceCharge
	Fines            []FineCharge
	NumInstallments  int
	SurchargePercent decimal.Decimal
	FirstDueDate     time.Time
	DueDay           int // condominium due day, 0 when not configured
}

// InstallmentPlan is one line of a generated schedule
type InstallmentPlan struct {
	Number  int             `json:"numero_pago"`
	Amount  decimal.Decimal `json:"monto"`
	DueDate time.Time       `json:"fecha_vencimiento"`
}

// Quote is a priced agreement before it is persisted
type Quote struct {
	Base         decimal.Decimal     `json:"base"`
	Surcharge    decimal.Decimal     `json:"recargo"`
	Total        decimal.Decimal     `json:"total"`
	Charges      []MaintenanceCharge `json:"periodos"`
	Fines        []FineCharge        `json:"multas,omitempty"`
	Installments []InstallmentPlan   `json:"cuotas"`
}

// EstimatedCount returns how many charges were priced at the flat fee
func (q *Quote) EstimatedCount() int {
	n := 0
	for _, c := range q.Charges {
		if c.Estimated {
			n++
		}
	}
	return n
}

// QuoteAgreement prices an agreement:
//
//	surcharge = round(base * pct / 100, 2)
//	total     = round(base + surcharge, 2)
//
// and splits the total into installments whose sum is exactly the total.
func QuoteAgreement(in QuoteInput) (*Quote, error) {
	if in.NumInstallments <= 0 {
		return nil, ErrInvalidInstallments
	}
	if in.SurchargePercent.IsNegative() {
		return nil, ErrInvalidSurcharge
	}
	if len(in.Charges) == 0 && len(in.Fines) == 0 {
		return nil, ErrNothingToSettle
	}

	base := decimal.Zero
	for _, c := range in.Charges {
		base = base.Add(c.Amount)
	}
	for _, f := range in.Fines {
		base = base.Add(f.Amount)
	}
	base = base.Round(2)
	if !base.IsPositive() {
		return nil, ErrInvalidAmount
	}

	surcharge := base.Mul(in.SurchargePercent).Div(hundred).Round(2)
	total := base.Add(surcharge).Round(2)

	amounts := SplitInstallments(total, in.NumInstallments)
	dates := InstallmentDueDates(in.FirstDueDate, in.NumInstallments, in.DueDay)

	plans := make([]InstallmentPlan, in.NumInstallments)
	for i := range plans {
		plans[i] = InstallmentPlan{Number: i + 1, Amount: amounts[i], DueDate: dates[i]}
	}

	return &Quote{
		Base:         base,
		Surcharge:    surcharge,
		Total:        total,
		Charges:      in.Charges,
		Fines:        in.Fines,
		Installments: plans,
	}, nil
}

// SplitInstallments divides total into n shares rounded to cents. The first
// n-1 shares are round(total/n, 2); the last absorbs the rounding drift so
// the shares always add up to total.
func SplitInstallments(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	share := total.Div(decimal.NewFromInt(int64(n))).Round(2)
	out := make([]decimal.Decimal, n)
	sum := decimal.Zero
	for i := 0; i < n-1; i++ {
		out[i] = share
		sum = sum.Add(share)
	}
	out[n-1] = total.Sub(sum)
	return out
}

// InstallmentDueDates returns first + i months for i in [0, n). The first
// date is kept as given. Later dates keep its day-of-month, capped at the
// condominium due day when one is configured, and clamped to the month end
// (a schedule starting Jan 31 falls on Feb 28/29).
func InstallmentDueDates(first time.Time, n int, dueDay int) []time.Time {
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, n)
	out[0] = first
	day := first.Day()
	if dueDay >= 1 && dueDay < day {
		day = dueDay
	}
	start := PeriodOf(first)
	for i := 1; i < n; i++ {
		p := start.AddMonths(i)
		d := p.DueDate(day, first.Location())
		out[i] = time.Date(d.Year(), d.Month(), d.Day(),
			first.Hour(), first.Minute(), first.Second(), 0, first.Location())
	}
	return out
}

// RescheduleFrom re-derives every due date of a plan from a new first date
func RescheduleFrom(plans []InstallmentPlan, first time.Time, dueDay int) []InstallmentPlan {
	dates := InstallmentDueDates(first, len(plans), dueDay)
	out := make([]InstallmentPlan, len(plans))
	for i, p := range plans {
		p.DueDate = dates[i]
		out[i] = p
	}
	return out
}

// MissingPeriods walks backwards from the month before asOf and collects the
// n most recent periods with no ledger row at all, returned oldest first.
// The walk stops after lookback months even if fewer than n were found.
func MissingPeriods(existing map[Period]bool, asOf time.Time, n, lookback int) []Period {
	if n <= 0 {
		return nil
	}
	found := make([]Period, 0, n)
	p := PeriodOf(asOf).Prev()
	for i := 0; i < lookback && len(found) < n; i++ {
		if !existing[p] {
			found = append(found, p)
		}
		p = p.Prev()
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Before(found[j]) })
	return found
}

// SelectPeriods picks up to count outstanding charges oldest first. When
// fewer pending rows exist than requested, the remainder comes from the
// missing periods priced at the current flat fee. Historical pricing is not
// reconstructed for those.
func SelectPeriods(pending []MaintenanceCharge, count int, missing []Period, flatFee decimal.Decimal) []MaintenanceCharge {
	if count <= 0 {
		return nil
	}
	sorted := make([]MaintenanceCharge, len(pending))
	copy(sorted, pending)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Period.Before(sorted[j].Period) })

	selected := make([]MaintenanceCharge, 0, count)
	for _, c := range sorted {
		if len(selected) == count {
			break
		}
		selected = append(selected, c)
	}

	for _, p := range missing {
		if len(selected) == count {
			break
		}
		selected = append(selected, MaintenanceCharge{Period: p, Amount: flatFee.Round(2), Estimated: true})
	}

	sort.SliceStable(selected, func(i, j int) bool { return selected[i].Period.Before(selected[j].Period) })
	return selected
}
