package ledger

import (
	"testing"
	"time"

	"github.com/condoportal/backend/internal/domain/community"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFine_ClassificationDateFallback(t *testing.T) {
	due := day(2024, 3, 1)
	issued := day(2024, 2, 10)
	paid := day(2024, 6, 10)

	f := Fine{DueDate: due}
	assert.Equal(t, due, f.ClassificationDate(time.UTC))

	f.IssuedAt = &issued
	assert.Equal(t, issued, f.ClassificationDate(time.UTC))

	f.PaidAt = &paid
	assert.Equal(t, paid, f.ClassificationDate(time.UTC))
}

func TestFine_AttributedPropertyUsesPaymentDate(t *testing.T) {
	movedOut := day(2024, 8, 31)
	history := []community.Assignment{
		{UserID: 5, PropertyID: 11, StartDate: day(2022, 1, 1), EndDate: &movedOut},
		{UserID: 5, PropertyID: 22, StartDate: day(2024, 9, 1)},
	}
	paid := day(2024, 6, 10)
	f := Fine{UserID: 5, PaidAt: &paid, DueDate: day(2024, 5, 1)}

	prop, ok := f.AttributedProperty(history, time.UTC)
	require.True(t, ok)
	assert.Equal(t, int64(11), prop, "attributed to the property held when paid, not the current one")

	explicit := int64(99)
	f.PropertyID = &explicit
	prop, ok = f.AttributedProperty(history, time.UTC)
	require.True(t, ok)
	assert.Equal(t, int64(99), prop)
}

func TestFine_ClassificationDateInLedgerZone(t *testing.T) {
	mexico, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)

	due := day(2024, 3, 1)
	f := Fine{DueDate: due}
	y, m, d := f.ClassificationDate(mexico).Date()
	assert.Equal(t, []int{2024, 3, 1}, []int{y, int(m), d}, "a DATE keeps its calendar day")

	paid := time.Date(2024, 9, 1, 3, 0, 0, 0, time.UTC)
	f.PaidAt = &paid
	y, m, d = f.ClassificationDate(mexico).Date()
	assert.Equal(t, []int{2024, 8, 31}, []int{y, int(m), d}, "a timestamp is read in the ledger zone")
}

func TestFine_AttributedPropertyAcrossMidnightUTC(t *testing.T) {
	mexico, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)

	movedOut := day(2024, 8, 31)
	history := []community.Assignment{
		{UserID: 5, PropertyID: 11, StartDate: day(2022, 1, 1), EndDate: &movedOut},
		{UserID: 5, PropertyID: 22, StartDate: day(2024, 9, 1)},
	}
	// 21:00 on Aug 31 in Mexico City, already Sep 1 in UTC
	paid := time.Date(2024, 9, 1, 3, 0, 0, 0, time.UTC)
	f := Fine{UserID: 5, PaidAt: &paid}

	prop, ok := f.AttributedProperty(history, mexico)
	require.True(t, ok)
	assert.Equal(t, int64(11), prop)

	prop, ok = f.AttributedProperty(history, time.UTC)
	require.True(t, ok)
	assert.Equal(t, int64(22), prop)
}

func TestFine_ApplyPayment(t *testing.T) {
	f := Fine{Status: FineStatusPending}
	at := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, f.ApplyPayment(40, FineStatusProcessing, at))
	assert.Equal(t, FineStatusProcessing, f.Status)
	require.NotNil(t, f.PaymentID)
	assert.Equal(t, int64(40), *f.PaymentID)
	assert.Equal(t, at, *f.PaidAt)

	assert.ErrorIs(t, f.ApplyPayment(40, FineStatus("pagado"), at), ErrInvalidStatus)
}

func TestFineDateColumns(t *testing.T) {
	assert.Equal(t, []string{"fecha_vencimiento"}, FineDateColumns{}.Columns())
	assert.Equal(t, []string{"fecha_pago", "fecha_emision", "fecha_vencimiento"},
		FineDateColumns{PaidAt: true, IssuedAt: true}.Columns())
	assert.Equal(t, []string{"fecha_emision", "fecha_vencimiento"},
		FineDateColumns{IssuedAt: true}.Columns())
}

func TestFine_Reopen(t *testing.T) {
	f := Fine{Status: FineStatusPending}
	require.NoError(t, f.ApplyPayment(41, FineStatusProcessing, time.Now()))

	f.Reopen()

	assert.Equal(t, FineStatusPending, f.Status)
	assert.Nil(t, f.PaymentID)
	assert.Nil(t, f.PaidAt)
	assert.True(t, f.IsPayable())
}
