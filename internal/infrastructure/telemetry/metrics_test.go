package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func newTestLedgerMetrics(t *testing.T) (*LedgerMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	lm, err := NewLedgerMetrics(provider.Meter("test"), zap.NewNop())
	require.NoError(t, err)
	return lm, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{ServiceName: "condo-backend"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestLedgerMetrics_Payments(t *testing.T) {
	lm, reader := newTestLedgerMetrics(t)
	ctx := context.Background()

	lm.RecordPayment(ctx, "tarjeta", "completado", 950)
	lm.RecordPayment(ctx, "tarjeta", "completado", 1900)
	lm.RecordPayment(ctx, "transferencia", "procesando", 300)
	lm.RecordReview(ctx, "rechazado")

	data := collect(t, reader)

	payments := data["condo_payments_total"].(metricdata.Sum[int64])
	require.Len(t, payments.DataPoints, 2)
	for _, dp := range payments.DataPoints {
		method, _ := dp.Attributes.Value(AttrPaymentMethod)
		if method.AsString() == "tarjeta" {
			assert.Equal(t, int64(2), dp.Value)
		} else {
			assert.Equal(t, int64(1), dp.Value)
		}
	}

	amount := data["condo_payment_amount_total"].(metricdata.Sum[float64])
	var total float64
	for _, dp := range amount.DataPoints {
		total += dp.Value
	}
	assert.InDelta(t, 3150, total, 0.001)

	reviews := data["condo_payment_reviews_total"].(metricdata.Sum[int64])
	require.Len(t, reviews.DataPoints, 1)
	status, _ := reviews.DataPoints[0].Attributes.Value(AttrPaymentStatus)
	assert.Equal(t, "rechazado", status.AsString())
}

func TestLedgerMetrics_AgreementsAndStatements(t *testing.T) {
	lm, reader := newTestLedgerMetrics(t)
	ctx := context.Background()

	lm.RecordAgreement(ctx, 6, 6600)
	lm.RecordAgreementCompleted(ctx)
	lm.RecordCategoryFailure(ctx, "otros")
	lm.RecordStatementDuration(ctx, "global", 120*time.Millisecond)

	data := collect(t, reader)

	created := data["condo_agreements_created_total"].(metricdata.Sum[int64])
	assert.Equal(t, int64(1), created.DataPoints[0].Value)

	size := data["condo_agreement_installments"].(metricdata.Histogram[float64])
	require.Len(t, size.DataPoints, 1)
	assert.Equal(t, uint64(1), size.DataPoints[0].Count)
	assert.Equal(t, 6.0, size.DataPoints[0].Sum)

	failures := data["condo_statement_category_failures_total"].(metricdata.Sum[int64])
	require.Len(t, failures.DataPoints, 1)
	assert.Equal(t, attribute.NewSet(AttrStatementCategory.String("otros")), failures.DataPoints[0].Attributes)

	duration := data["condo_statement_duration_seconds"].(metricdata.Histogram[float64])
	assert.InDelta(t, 0.12, duration.DataPoints[0].Sum, 0.0001)
}

func TestSum_IgnoresNegative(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	s, err := NewSum(provider.Meter("test"), "refunds", "", "MXN")
	require.NoError(t, err)
	s.Add(context.Background(), -10)
	s.Add(context.Background(), 5)

	sum := collect(t, reader)["refunds"].(metricdata.Sum[float64])
	assert.Equal(t, 5.0, sum.DataPoints[0].Value)
}
