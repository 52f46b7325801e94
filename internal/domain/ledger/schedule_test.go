package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestQuoteAgreement_EvenSplit(t *testing.T) {
	q, err := QuoteAgreement(QuoteInput{
		Charges:          []MaintenanceCharge{{Period: Period{2024, 1}, Amount: dec("1000")}},
		NumInstallments:  4,
		SurchargePercent: dec("10"),
		FirstDueDate:     day(2025, 1, 15),
	})
	require.NoError(t, err)

	assert.True(t, q.Base.Equal(dec("1000")))
	assert.True(t, q.Surcharge.Equal(dec("100")))
	assert.True(t, q.Total.Equal(dec("1100")))
	require.Len(t, q.Installments, 4)
	sum := decimal.Zero
	for i, inst := range q.Installments {
		assert.Equal(t, i+1, inst.Number)
		assert.True(t, inst.Amount.Equal(dec("275.00")), "installment %d = %s", i+1, inst.Amount)
		sum = sum.Add(inst.Amount)
	}
	assert.True(t, sum.Equal(q.Total))
}

func TestQuoteAgreement_LastInstallmentAbsorbsDrift(t *testing.T) {
	q, err := QuoteAgreement(QuoteInput{
		Charges:          []MaintenanceCharge{{Period: Period{2024, 1}, Amount: dec("100")}},
		NumInstallments:  3,
		SurchargePercent: decimal.Zero,
		FirstDueDate:     day(2025, 1, 15),
	})
	require.NoError(t, err)

	assert.True(t, q.Installments[0].Amount.Equal(dec("33.33")))
	assert.True(t, q.Installments[1].Amount.Equal(dec("33.33")))
	assert.True(t, q.Installments[2].Amount.Equal(dec("33.34")))
}

func TestQuoteAgreement_RoundsSurcharge(t *testing.T) {
	q, err := QuoteAgreement(QuoteInput{
		Charges: []MaintenanceCharge{
			{Period: Period{2024, 1}, Amount: dec("950")},
			{Period: Period{2024, 2}, Amount: dec("950")},
			{Period: Period{2024, 3}, Amount: dec("975.50")},
		},
		Fines:            []FineCharge{{FineID: 4, Amount: dec("250")}},
		NumInstallments:  6,
		SurchargePercent: dec("7.5"),
		FirstDueDate:     day(2025, 3, 1),
	})
	require.NoError(t, err)

	assert.True(t, q.Base.Equal(dec("3125.50")))
	assert.True(t, q.Surcharge.Equal(dec("234.41")), q.Surcharge.String())
	assert.True(t, q.Total.Equal(dec("3359.91")))

	sum := decimal.Zero
	for _, inst := range q.Installments {
		sum = sum.Add(inst.Amount)
	}
	assert.True(t, sum.Equal(q.Total))
}

func TestQuoteAgreement_Validation(t *testing.T) {
	charges := []MaintenanceCharge{{Period: Period{2024, 1}, Amount: dec("100")}}

	_, err := QuoteAgreement(QuoteInput{Charges: charges, NumInstallments: 0})
	assert.ErrorIs(t, err, ErrInvalidInstallments)

	_, err = QuoteAgreement(QuoteInput{Charges: charges, NumInstallments: 2, SurchargePercent: dec("-1")})
	assert.ErrorIs(t, err, ErrInvalidSurcharge)

	_, err = QuoteAgreement(QuoteInput{NumInstallments: 2})
	assert.ErrorIs(t, err, ErrNothingToSettle)
}

func TestSplitInstallments(t *testing.T) {
	tests := []struct {
		total string
		n     int
	}{
		{"1100", 4}, {"100", 3}, {"0.05", 3}, {"2850", 7}, {"999.99", 12},
	}
	for _, tt := range tests {
		shares := SplitInstallments(dec(tt.total), tt.n)
		require.Len(t, shares, tt.n)
		sum := decimal.Zero
		for _, s := range shares {
			sum = sum.Add(s)
		}
		assert.True(t, sum.Equal(dec(tt.total)), "total %s over %d", tt.total, tt.n)
	}
	assert.Nil(t, SplitInstallments(dec("10"), 0))
}

func TestInstallmentDueDates(t *testing.T) {
	t.Run("monthly from the first date", func(t *testing.T) {
		dates := InstallmentDueDates(day(2025, 1, 15), 3, 0)
		assert.Equal(t, []time.Time{day(2025, 1, 15), day(2025, 2, 15), day(2025, 3, 15)}, dates)
	})

	t.Run("clamps to month end", func(t *testing.T) {
		dates := InstallmentDueDates(day(2025, 1, 31), 4, 0)
		assert.Equal(t, []time.Time{day(2025, 1, 31), day(2025, 2, 28), day(2025, 3, 31), day(2025, 4, 30)}, dates)
	})

	t.Run("later dates capped at the due day", func(t *testing.T) {
		dates := InstallmentDueDates(day(2025, 1, 20), 3, 10)
		assert.Equal(t, []time.Time{day(2025, 1, 20), day(2025, 2, 10), day(2025, 3, 10)}, dates)
	})

	t.Run("due day later than the first day does not push dates", func(t *testing.T) {
		dates := InstallmentDueDates(day(2025, 1, 5), 2, 10)
		assert.Equal(t, []time.Time{day(2025, 1, 5), day(2025, 2, 5)}, dates)
	})

	t.Run("crosses the year", func(t *testing.T) {
		dates := InstallmentDueDates(day(2024, 11, 15), 3, 0)
		assert.Equal(t, day(2025, 1, 15), dates[2])
	})
}

func TestRescheduleFrom(t *testing.T) {
	plans := []InstallmentPlan{{Number: 1}, {Number: 2}, {Number: 3}}
	out := RescheduleFrom(plans, day(2025, 5, 1), 0)
	assert.Equal(t, day(2025, 5, 1), out[0].DueDate)
	assert.Equal(t, day(2025, 7, 1), out[2].DueDate)
	assert.True(t, plans[0].DueDate.IsZero(), "input is not mutated")
}

func TestMissingPeriods(t *testing.T) {
	existing := map[Period]bool{
		{2025, 2}: true,
		{2024, 12}: true,
	}
	asOf := day(2025, 3, 10)

	got := MissingPeriods(existing, asOf, 3, 24)
	assert.Equal(t, []Period{{2024, 10}, {2024, 11}, {2025, 1}}, got)

	assert.Len(t, MissingPeriods(existing, asOf, 5, 2), 1, "lookback bounds the walk")
	assert.Nil(t, MissingPeriods(existing, asOf, 0, 24))
}

func TestSelectPeriods(t *testing.T) {
	pending := []MaintenanceCharge{
		{RowID: 3, Period: Period{2024, 9}, Amount: dec("900")},
		{RowID: 1, Period: Period{2024, 3}, Amount: dec("850")},
		{RowID: 2, Period: Period{2024, 6}, Amount: dec("850")},
	}

	t.Run("oldest first up to count", func(t *testing.T) {
		got := SelectPeriods(pending, 2, nil, dec("950"))
		require.Len(t, got, 2)
		assert.Equal(t, int64(1), got[0].RowID)
		assert.Equal(t, int64(2), got[1].RowID)
	})

	t.Run("remainder estimated at the flat fee", func(t *testing.T) {
		missing := []Period{{2025, 1}, {2025, 2}}
		got := SelectPeriods(pending, 5, missing, dec("950"))
		require.Len(t, got, 5)
		assert.Equal(t, Period{2024, 3}, got[0].Period)
		assert.Equal(t, Period{2025, 2}, got[4].Period)
		assert.True(t, got[4].Estimated)
		assert.True(t, got[4].Amount.Equal(dec("950")))
		assert.False(t, got[0].Estimated)
	})

	t.Run("does not exceed what exists", func(t *testing.T) {
		got := SelectPeriods(pending, 10, []Period{{2025, 1}}, dec("950"))
		assert.Len(t, got, 4)
	})
}
