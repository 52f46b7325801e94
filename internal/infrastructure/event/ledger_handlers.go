package event

import (
	"context"

	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/condoportal/backend/internal/domain/shared"
	"github.com/condoportal/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LedgerRecorder receives ledger activity for metrics
type LedgerRecorder interface {
	RecordPayment(ctx context.Context, method, status string, amount float64)
	RecordReview(ctx context.Context, status string)
	RecordAgreement(ctx context.Context, installments int, total float64)
	RecordAgreementCompleted(ctx context.Context)
}

var ledgerEventTypes = []string{
	ledger.EventTypePaymentRecorded,
	ledger.EventTypePaymentApproved,
	ledger.EventTypePaymentRejected,
	ledger.EventTypeAgreementCreated,
	ledger.EventTypeAgreementCompleted,
}

// AuditLogHandler writes one structured log line per ledger event
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(l *zap.Logger) *AuditLogHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &AuditLogHandler{logger: l.Named("audit")}
}

// EventTypes returns the ledger event types
func (h *AuditLogHandler) EventTypes() []string {
	return ledgerEventTypes
}

// Handle logs the event with its business fields
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.Int64("aggregate_id", event.AggregateID()),
	}

	switch e := event.(type) {
	case *ledger.PaymentRecordedEvent:
		fields = append(fields,
			zap.Int64("usuario_id", e.UserID),
			zap.String("monto", e.Amount.StringFixed(2)),
			zap.String("metodo_pago", e.Method.String()),
			zap.String("estado", e.Status.String()),
			zap.String("referencia_id", e.ReferenceID),
			zap.Int("periodos", len(e.Settlement.Periods)),
			zap.Int("multas", len(e.Settlement.FineIDs)),
			zap.Int("cuotas", len(e.Settlement.InstallmentIDs)),
		)
	case *ledger.PaymentApprovedEvent:
		fields = append(fields, zap.Int64("usuario_id", e.UserID), zap.String("monto", e.Amount.StringFixed(2)))
	case *ledger.PaymentRejectedEvent:
		fields = append(fields, zap.Int64("usuario_id", e.UserID), zap.String("motivo", e.Reason))
	case *ledger.AgreementCreatedEvent:
		fields = append(fields,
			zap.Int64("usuario_id", e.UserID),
			zap.Int64("propiedad_id", e.PropertyID),
			zap.String("total", e.Total.StringFixed(2)),
			zap.Int("num_pagos", e.NumInstallments),
		)
	case *ledger.AgreementCompletedEvent:
		fields = append(fields, zap.Int64("usuario_id", e.UserID))
	}

	logger.WithLogger(ctx, h.logger).Info("ledger event", fields...)
	return nil
}

// MetricsHandler forwards ledger events to a LedgerRecorder
type MetricsHandler struct {
	recorder LedgerRecorder
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(recorder LedgerRecorder) *MetricsHandler {
	return &MetricsHandler{recorder: recorder}
}

// EventTypes returns the ledger event types
func (h *MetricsHandler) EventTypes() []string {
	return ledgerEventTypes
}

// Handle records the event
func (h *MetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *ledger.PaymentRecordedEvent:
		h.recorder.RecordPayment(ctx, e.Method.String(), e.Status.String(), e.Amount.InexactFloat64())
	case *ledger.PaymentApprovedEvent:
		h.recorder.RecordReview(ctx, ledger.PaymentStatusCompleted.String())
	case *ledger.PaymentRejectedEvent:
		h.recorder.RecordReview(ctx, ledger.PaymentStatusRejected.String())
	case *ledger.AgreementCreatedEvent:
		h.recorder.RecordAgreement(ctx, e.NumInstallments, e.Total.InexactFloat64())
	case *ledger.AgreementCompletedEvent:
		h.recorder.RecordAgreementCompleted(ctx)
	}
	return nil
}

var (
	_ shared.EventHandler = (*AuditLogHandler)(nil)
	_ shared.EventHandler = (*MetricsHandler)(nil)
)
