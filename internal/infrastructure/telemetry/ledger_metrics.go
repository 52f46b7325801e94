package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics records payment, agreement and statement activity.
type LedgerMetrics struct {
	paymentsTotal       *Counter
	paymentAmount       *Sum
	reviewsTotal        *Counter
	agreementsCreated   *Counter
	agreementAmount     *Sum
	agreementSize       *Histogram
	agreementsCompleted *Counter
	categoryFailures    *Counter
	statementDuration   *Histogram

	logger *zap.Logger
}

// NewLedgerMetrics creates the ledger instruments on the given meter.
func NewLedgerMetrics(meter metric.Meter, logger *zap.Logger) (*LedgerMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	lm := &LedgerMetrics{logger: logger}

	var err error
	if lm.paymentsTotal, err = NewCounter(meter,
		"condo_payments_total", "Payments recorded by method and initial status", "{payment}"); err != nil {
		return nil, err
	}
	if lm.paymentAmount, err = NewSum(meter,
		"condo_payment_amount_total", "Amount of recorded payments", "MXN"); err != nil {
		return nil, err
	}
	if lm.reviewsTotal, err = NewCounter(meter,
		"condo_payment_reviews_total", "Administrator reviews by outcome", "{review}"); err != nil {
		return nil, err
	}
	if lm.agreementsCreated, err = NewCounter(meter,
		"condo_agreements_created_total", "Payment agreements created", "{agreement}"); err != nil {
		return nil, err
	}
	if lm.agreementAmount, err = NewSum(meter,
		"condo_agreement_amount_total", "Total owed under new agreements", "MXN"); err != nil {
		return nil, err
	}
	if lm.agreementSize, err = NewHistogram(meter, HistogramOpts{
		Name:        "condo_agreement_installments",
		Description: "Installments per agreement",
		Unit:        "{installment}",
		Boundaries:  InstallmentCountBuckets,
	}); err != nil {
		return nil, err
	}
	if lm.agreementsCompleted, err = NewCounter(meter,
		"condo_agreements_completed_total", "Agreements with every installment paid", "{agreement}"); err != nil {
		return nil, err
	}
	if lm.categoryFailures, err = NewCounter(meter,
		"condo_statement_category_failures_total", "Income statement categories that degraded to zero", "{failure}"); err != nil {
		return nil, err
	}
	if lm.statementDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "condo_statement_duration_seconds",
		Description: "Time to build an income statement",
		Unit:        "s",
		Boundaries:  StatementDurationBuckets,
	}); err != nil {
		return nil, err
	}

	logger.Debug("Ledger metrics registered")
	return lm, nil
}

// RecordPayment counts a booked payment
func (lm *LedgerMetrics) RecordPayment(ctx context.Context, method, status string, amount float64) {
	lm.paymentsTotal.Inc(ctx, AttrPaymentMethod.String(method), AttrPaymentStatus.String(status))
	lm.paymentAmount.Add(ctx, amount, AttrPaymentMethod.String(method))
}

// RecordReview counts an approval or rejection
func (lm *LedgerMetrics) RecordReview(ctx context.Context, status string) {
	lm.reviewsTotal.Inc(ctx, AttrPaymentStatus.String(status))
}

// RecordAgreement counts a new agreement
func (lm *LedgerMetrics) RecordAgreement(ctx context.Context, installments int, total float64) {
	lm.agreementsCreated.Inc(ctx)
	lm.agreementAmount.Add(ctx, total)
	lm.agreementSize.Record(ctx, float64(installments))
}

// RecordAgreementCompleted counts an agreement whose installments are all paid
func (lm *LedgerMetrics) RecordAgreementCompleted(ctx context.Context) {
	lm.agreementsCompleted.Inc(ctx)
}

// RecordCategoryFailure counts a statement category that fell back to zeros
func (lm *LedgerMetrics) RecordCategoryFailure(ctx context.Context, category string) {
	lm.categoryFailures.Inc(ctx, AttrStatementCategory.String(category))
}

// RecordStatementDuration records how long a statement took; scope is
// "global" or "condominio"
func (lm *LedgerMetrics) RecordStatementDuration(ctx context.Context, scope string, d time.Duration) {
	lm.statementDuration.RecordDuration(ctx, d, AttrStatementScope.String(scope))
}
