package event

import (
	"context"
	"testing"

	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordPayment(ctx context.Context, method, status string, amount float64) {
	m.Called(ctx, method, status, amount)
}

func (m *mockRecorder) RecordReview(ctx context.Context, status string) {
	m.Called(ctx, status)
}

func (m *mockRecorder) RecordAgreement(ctx context.Context, installments int, total float64) {
	m.Called(ctx, installments, total)
}

func (m *mockRecorder) RecordAgreementCompleted(ctx context.Context) {
	m.Called(ctx)
}

func recordedPayment(t *testing.T) *ledger.Payment {
	t.Helper()
	p, err := ledger.NewPayment(3, ledger.PaymentTypeMaintenance, decimal.NewFromInt(2850), ledger.PaymentMethodCard, "101-M-AB12", "")
	require.NoError(t, err)
	p.ID = 40
	return p
}

func TestAuditLogHandler_LogsPaymentFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := NewAuditLogHandler(zap.New(core))

	p := recordedPayment(t)
	settled := ledger.Settlement{Periods: []ledger.Period{{Year: 2025, Month: 1}, {Year: 2025, Month: 2}, {Year: 2025, Month: 3}}}
	require.NoError(t, handler.Handle(context.Background(), ledger.NewPaymentRecordedEvent(p, settled)))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "PaymentRecorded", fields["event_type"])
	assert.Equal(t, int64(40), fields["aggregate_id"])
	assert.Equal(t, "2850.00", fields["monto"])
	assert.Equal(t, "completado", fields["estado"])
	assert.Equal(t, int64(3), fields["periodos"])
}

func TestMetricsHandler_ForwardsLedgerEvents(t *testing.T) {
	recorder := new(mockRecorder)
	handler := NewMetricsHandler(recorder)
	ctx := context.Background()

	p := recordedPayment(t)
	recorder.On("RecordPayment", ctx, "tarjeta", "completado", 2850.0).Once()
	recorder.On("RecordReview", ctx, "rechazado").Once()

	require.NoError(t, handler.Handle(ctx, ledger.NewPaymentRecordedEvent(p, ledger.Settlement{})))
	require.NoError(t, handler.Handle(ctx, ledger.NewPaymentRejectedEvent(p, "comprobante ilegible")))

	recorder.AssertExpectations(t)
	assert.Contains(t, handler.EventTypes(), ledger.EventTypeAgreementCompleted)
}
