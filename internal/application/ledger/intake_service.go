package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/condoportal/backend/internal/domain/community"
	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/condoportal/backend/internal/domain/shared"
	"github.com/condoportal/backend/internal/infrastructure/logger"
	"github.com/condoportal/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// IntakeConfig holds the settings of the payment intake orchestrator
type IntakeConfig struct {
	// DefaultMaintenanceFee prices a period when the condominium has no fee
	DefaultMaintenanceFee decimal.Decimal
	// CascadeReview propagates approve/reject to the rows linked by pago_id
	CascadeReview bool
	// Location derives payment periods from timestamps
	Location *time.Location
}

// IntakeService records payments and the obligations they settle
type IntakeService struct {
	uow       ledger.UnitOfWork
	repos     ledger.Repositories
	publisher shared.EventPublisher
	cfg       IntakeConfig
	now       func() time.Time
	suffix    func() string
}

// NewIntakeService creates a new IntakeService. repos serves reads outside
// a transaction; writes go through uow.
func NewIntakeService(
	uow ledger.UnitOfWork,
	repos ledger.Repositories,
	publisher shared.EventPublisher,
	cfg IntakeConfig,
) *IntakeService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &IntakeService{
		uow:       uow,
		repos:     repos,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		suffix:    newReferenceSuffix,
	}
}

func (s *IntakeService) clock() time.Time {
	return s.now().In(s.cfg.Location)
}

// CreatePayment records a standalone general-ledger payment. An explicit
// estado overrides the status implied by the method.
func (s *IntakeService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "intake", "create_payment")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrUserID, req.UserID,
		telemetry.SpanAttrMethod, req.Method,
		telemetry.SpanAttrAmount, req.Amount,
	)

	payment, err := ledger.NewPayment(req.UserID, ledger.PaymentType(req.Type), req.Amount,
		ledger.PaymentMethod(req.Method), req.ReferenceID, req.Notes)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	payment.PaidAt = s.clock()
	if req.Status != "" {
		if err := payment.WithStatus(ledger.PaymentStatus(req.Status)); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	if err := s.repos.Payments.Save(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}
	payment.Recorded(ledger.Settlement{})
	publishEvents(ctx, s.publisher, payment)

	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, payment.ID)
	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// RecordMaintenance writes maintenance rows for the periods in the request
// against the property the user holds today. Rows already settled by a
// different payment are refused. A referencia_id must match the linked
// payment's reference; without a linked payment it is only recorded in the
// trace and the log.
func (s *IntakeService) RecordMaintenance(ctx context.Context, req RecordMaintenanceRequest) (*RecordMaintenanceResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "intake", "record_maintenance")
	defer span.End()

	reference := strings.TrimSpace(req.ReferenceID)
	telemetry.SetAttributes(span, telemetry.SpanAttrUserID, req.UserID, "items", len(req.Items))
	if reference != "" {
		telemetry.SetAttributes(span, telemetry.SpanAttrReference, reference)
	}

	periods := make([]ledger.Period, 0, len(req.Items))
	amounts := make(map[ledger.Period]decimal.Decimal, len(req.Items))
	for _, item := range req.Items {
		p, err := ledger.NewPeriod(item.Year, item.Month)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if item.Amount.IsNegative() {
			return nil, ledger.ErrInvalidAmount
		}
		if _, dup := amounts[p]; !dup {
			periods = append(periods, p)
		}
		amounts[p] = item.Amount.Round(2)
	}
	if len(periods) == 0 {
		return nil, ledger.ErrNothingToSettle
	}

	now := s.clock()
	var result *RecordMaintenanceResult
	err := s.uow.Execute(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		property, err := repos.Properties.FindCurrentForUser(ctx, req.UserID, now)
		if err != nil {
			return fmt.Errorf("failed to resolve property: %w", err)
		}
		if property == nil {
			return ledger.ErrPropertyNotFound
		}

		status, paymentID, err := maintenanceStatus(ctx, repos, req)
		if err != nil {
			return err
		}

		_, dueDay, err := billingTerms(ctx, repos.Properties, property, s.cfg.DefaultMaintenanceFee)
		if err != nil {
			return err
		}
		if req.DueDay > 0 {
			dueDay = req.DueDay
		}

		existing, err := repos.Maintenance.FindByPeriods(ctx, property.ID, periods)
		if err != nil {
			return fmt.Errorf("failed to load maintenance rows: %w", err)
		}
		byPeriod := indexByPeriod(existing)

		rows := make([]ledger.MaintenancePayment, 0, len(periods))
		for _, p := range periods {
			row := byPeriod[p]
			switch {
			case row == nil:
				row, err = ledger.NewMaintenancePayment(property.ID, p, amounts[p])
				if err != nil {
					return err
				}
			case row.Status.IsSettled() && !linkedTo(row.PaymentID, paymentID):
				return ledger.ErrPeriodAlreadySettled
			case amounts[p].IsPositive():
				row.Amount = amounts[p]
			}
			if dueDay > 0 {
				due := p.DueDate(dueDay, s.cfg.Location)
				row.DueDate = &due
			}
			if err := row.ApplyPayment(paymentID, status, now); err != nil {
				return err
			}
			if err := repos.Maintenance.Save(ctx, row); err != nil {
				return fmt.Errorf("failed to save maintenance row %s: %w", p, err)
			}
			rows = append(rows, *row)
		}

		result = &RecordMaintenanceResult{PropertyID: property.ID, Rows: ToMaintenanceResponses(rows)}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrPropertyID, result.PropertyID)
	if reference != "" {
		logger.L(ctx).Info("maintenance rows recorded",
			zap.Int64("propiedad_id", result.PropertyID),
			zap.String("referencia_id", reference),
			zap.Int("registros", len(result.Rows)),
		)
	}
	return result, nil
}

// maintenanceStatus resolves the status rows take: the explicit estado, else
// the one implied by the linked payment, else pagado for manual entries
func maintenanceStatus(ctx context.Context, repos ledger.Repositories, req RecordMaintenanceRequest) (ledger.MaintenanceStatus, int64, error) {
	var payment *ledger.Payment
	if req.PaymentID != nil {
		p, err := repos.Payments.FindByID(ctx, *req.PaymentID)
		if err != nil {
			return "", 0, err
		}
		if p.UserID != req.UserID {
			return "", 0, ledger.ErrPaymentNotFound
		}
		if ref := strings.TrimSpace(req.ReferenceID); ref != "" && !strings.EqualFold(ref, p.ReferenceID) {
			return "", 0, ledger.ErrReferenceMismatch
		}
		payment = p
	}

	var paymentID int64
	if payment != nil {
		paymentID = payment.ID
	}

	if req.Status != "" {
		status := ledger.MaintenanceStatus(req.Status)
		if !status.IsValid() {
			return "", 0, ledger.ErrInvalidStatus
		}
		return status, paymentID, nil
	}
	if payment == nil {
		return ledger.MaintenanceStatusPaid, 0, nil
	}
	switch payment.Status {
	case ledger.PaymentStatusCompleted:
		return ledger.MaintenanceStatusPaid, paymentID, nil
	case ledger.PaymentStatusProcessing, ledger.PaymentStatusPending:
		return ledger.MaintenanceStatusProcessing, paymentID, nil
	}
	return "", 0, ledger.ErrNotReviewable
}

// UpdateFines sets the status of several fines at once. Moving a fine back
// to pendiente clears its payment link.
func (s *IntakeService) UpdateFines(ctx context.Context, req UpdateFinesRequest) ([]FineResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "intake", "update_fines")
	defer span.End()

	status := ledger.FineStatus(req.Status)
	if !status.IsValid() {
		return nil, ledger.ErrInvalidStatus
	}
	ids := uniqueIDs(req.IDs)
	if len(ids) == 0 {
		return nil, ledger.ErrNothingToSettle
	}
	telemetry.SetAttributes(span, "multas_ids", ids, "estado", req.Status)

	now := s.clock()
	var updated []ledger.Fine
	err := s.uow.Execute(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		paymentID, err := resolvePaymentID(ctx, repos, req.PaymentID)
		if err != nil {
			return err
		}

		fines, err := repos.Fines.FindByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to load fines: %w", err)
		}
		if len(fines) != len(ids) {
			return ledger.ErrFineNotFound
		}

		for i := range fines {
			fine := &fines[i]
			if status == ledger.FineStatusPending {
				fine.Reopen()
			} else if err := fine.ApplyPayment(paymentID, status, now); err != nil {
				return err
			}
			if err := repos.Fines.Save(ctx, fine); err != nil {
				return fmt.Errorf("failed to save fine %d: %w", fine.ID, err)
			}
		}
		updated = fines
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	out := make([]FineResponse, len(updated))
	for i := range updated {
		out[i] = ToFineResponse(&updated[i], nil, s.cfg.Location)
	}
	return out, nil
}

// InstallmentUpdateResult is an installment after a status change and the
// status of its agreement
type InstallmentUpdateResult struct {
	Installment     InstallmentResponse `json:"cuota"`
	AgreementStatus string              `json:"estado_convenio"`
}

// UpdateInstallment sets the status of one agreement installment and
// completes the agreement once every installment is paid
func (s *IntakeService) UpdateInstallment(ctx context.Context, id int64, req UpdateInstallmentRequest) (*InstallmentUpdateResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "intake", "update_installment", "cuota_id", id)
	defer span.End()

	status := ledger.InstallmentStatus(req.Status)
	if !status.IsValid() {
		return nil, ledger.ErrInvalidStatus
	}
	paidAt := s.clock()
	if req.PaidAt != nil && *req.PaidAt != "" {
		t, err := parseDate(*req.PaidAt, s.cfg.Location)
		if err != nil {
			return nil, err
		}
		paidAt = t
	}

	var (
		installment *ledger.Installment
		agreement   *ledger.Agreement
	)
	err := s.uow.Execute(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		paymentID, err := resolvePaymentID(ctx, repos, req.PaymentID)
		if err != nil {
			return err
		}

		installment, err = repos.Agreements.FindInstallment(ctx, id)
		if err != nil {
			return err
		}
		if status == ledger.InstallmentStatusPending {
			installment.Reopen()
		} else if err := installment.ApplyPayment(paymentID, status, &paidAt); err != nil {
			return err
		}
		if err := repos.Agreements.SaveInstallment(ctx, installment); err != nil {
			return fmt.Errorf("failed to save installment: %w", err)
		}

		completed, err := completeAgreements(ctx, repos, []ledger.Installment{*installment}, nil)
		if err != nil {
			return err
		}
		if len(completed) > 0 {
			agreement = completed[0]
			return nil
		}
		agreement, err = repos.Agreements.FindByID(ctx, installment.AgreementID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	publishEvents(ctx, s.publisher, agreement)
	return &InstallmentUpdateResult{
		Installment:     ToInstallmentResponse(installment),
		AgreementStatus: agreement.Status.String(),
	}, nil
}

// checkoutPlan is what a checkout will settle, priced and validated
type checkoutPlan struct {
	property     *community.Property
	rows         []*ledger.MaintenancePayment
	fines        []ledger.Fine
	installments []ledger.Installment
	agreements   map[int64]*ledger.Agreement
	total        decimal.Decimal
}

func (p *checkoutPlan) settlement() ledger.Settlement {
	var s ledger.Settlement
	for _, row := range p.rows {
		s.Periods = append(s.Periods, row.Period)
	}
	for _, f := range p.fines {
		s.FineIDs = append(s.FineIDs, f.ID)
	}
	for _, inst := range p.installments {
		s.InstallmentIDs = append(s.InstallmentIDs, inst.ID)
	}
	return s
}

func (p *checkoutPlan) propertyNumber() string {
	if p.property == nil {
		return ""
	}
	return p.property.Number
}

// Checkout settles maintenance (current period plus advance months), fines
// and agreement installments with a single payment. The ledger row and every
// settled row are written in one transaction; the amount sent by the client
// must match the server-side total.
func (s *IntakeService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "intake", "checkout")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrUserID, req.UserID,
		telemetry.SpanAttrMethod, req.Method,
		telemetry.SpanAttrAmount, req.Amount,
	)

	method := ledger.PaymentMethod(req.Method)
	if !method.IsValid() {
		return nil, ledger.ErrInvalidMethod
	}
	cats := req.Categories
	if cats.AdvanceMonths < 0 {
		return nil, ledger.ErrInvalidPeriod
	}
	if cats.AdvanceMonths > 0 && !cats.Maintenance {
		return nil, shared.NewDomainError("INVALID_INPUT", "Los meses adelantados requieren seleccionar mantenimiento")
	}
	fineIDs := uniqueIDs(cats.FineIDs)
	installmentIDs := uniqueIDs(cats.InstallmentIDs)
	if !cats.Maintenance && len(fineIDs) == 0 && len(installmentIDs) == 0 {
		return nil, ledger.ErrNothingToSettle
	}

	now := s.clock()
	var (
		payment   *ledger.Payment
		settled   ledger.Settlement
		completed []*ledger.Agreement
	)
	err := s.uow.Execute(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		plan, err := s.planCheckout(ctx, repos, req.UserID, cats.Maintenance, cats.AdvanceMonths, fineIDs, installmentIDs, now)
		if err != nil {
			return err
		}
		if !req.Amount.Round(2).Equal(plan.total) {
			return ledger.ErrAmountMismatch
		}

		settled = plan.settlement()
		reference := ledger.NewReferenceCode(plan.propertyNumber(), settled.Categories(), s.suffix())
		payment, err = ledger.NewPayment(req.UserID, settled.PaymentType(), plan.total, method,
			reference, checkoutNotes(settled, plan.total, req.Notes))
		if err != nil {
			return err
		}
		payment.PaidAt = now
		if err := repos.Payments.Save(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}

		for _, row := range plan.rows {
			if err := row.ApplyPayment(payment.ID, method.MaintenanceStatus(), now); err != nil {
				return err
			}
			if err := repos.Maintenance.Save(ctx, row); err != nil {
				return fmt.Errorf("failed to save maintenance row %s: %w", row.Period, err)
			}
		}
		for i := range plan.fines {
			fine := &plan.fines[i]
			if err := fine.ApplyPayment(payment.ID, method.FineStatus(), now); err != nil {
				return err
			}
			if err := repos.Fines.Save(ctx, fine); err != nil {
				return fmt.Errorf("failed to save fine %d: %w", fine.ID, err)
			}
		}
		for i := range plan.installments {
			inst := &plan.installments[i]
			if err := inst.ApplyPayment(payment.ID, method.InstallmentStatus(), &now); err != nil {
				return err
			}
			if err := repos.Agreements.SaveInstallment(ctx, inst); err != nil {
				return fmt.Errorf("failed to save installment %d: %w", inst.ID, err)
			}
		}
		if method == ledger.PaymentMethodCard && len(plan.installments) > 0 {
			completed, err = completeAgreements(ctx, repos, plan.installments, plan.agreements)
			if err != nil {
				return err
			}
		}

		payment.Recorded(settled)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	sources := []eventSource{payment}
	for _, a := range completed {
		sources = append(sources, a)
	}
	publishEvents(ctx, s.publisher, sources...)

	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, payment.ID)
	telemetry.AddEvent(span, "checkout_recorded",
		"periodos", len(settled.Periods),
		"multas", len(settled.FineIDs),
		"cuotas", len(settled.InstallmentIDs),
	)

	result := &CheckoutResult{
		Payment:        ToPaymentResponse(payment),
		ReferenceID:    payment.ReferenceID,
		Total:          payment.Amount,
		Periods:        make([]string, len(settled.Periods)),
		FineIDs:        settled.FineIDs,
		InstallmentIDs: settled.InstallmentIDs,
	}
	for i, p := range settled.Periods {
		result.Periods[i] = p.String()
	}
	for _, a := range completed {
		result.CompletedAgreements = append(result.CompletedAgreements, a.ID)
	}
	return result, nil
}

// planCheckout loads and validates every selected obligation and prices
// the checkout. Nothing is written.
func (s *IntakeService) planCheckout(
	ctx context.Context,
	repos ledger.Repositories,
	userID int64,
	maintenance bool,
	advanceMonths int,
	fineIDs, installmentIDs []int64,
	now time.Time,
) (*checkoutPlan, error) {
	plan := &checkoutPlan{total: decimal.Zero, agreements: make(map[int64]*ledger.Agreement)}

	property, err := repos.Properties.FindCurrentForUser(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve property: %w", err)
	}
	plan.property = property

	if maintenance {
		if property == nil {
			return nil, ledger.ErrPropertyNotFound
		}
		fee, dueDay, err := billingTerms(ctx, repos.Properties, property, s.cfg.DefaultMaintenanceFee)
		if err != nil {
			return nil, err
		}

		current := ledger.PeriodOf(now)
		periods := make([]ledger.Period, advanceMonths+1)
		for i := range periods {
			periods[i] = current.AddMonths(i)
		}
		existing, err := repos.Maintenance.FindByPeriods(ctx, property.ID, periods)
		if err != nil {
			return nil, fmt.Errorf("failed to load maintenance rows: %w", err)
		}
		byPeriod := indexByPeriod(existing)

		for _, p := range periods {
			row := byPeriod[p]
			if row != nil && row.Status.IsSettled() {
				return nil, ledger.ErrPeriodAlreadySettled
			}
			if row == nil {
				row, err = ledger.NewMaintenancePayment(property.ID, p, fee)
				if err != nil {
					return nil, err
				}
				if dueDay > 0 {
					due := p.DueDate(dueDay, s.cfg.Location)
					row.DueDate = &due
				}
			}
			plan.rows = append(plan.rows, row)
			plan.total = plan.total.Add(row.Amount)
		}
	}

	if len(fineIDs) > 0 {
		fines, err := repos.Fines.FindByIDs(ctx, fineIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load fines: %w", err)
		}
		if len(fines) != len(fineIDs) {
			return nil, ledger.ErrFineNotFound
		}
		for i := range fines {
			if fines[i].UserID != userID {
				return nil, ledger.ErrFineNotFound
			}
			if !fines[i].IsPayable() {
				return nil, ledger.ErrAlreadySettled
			}
			plan.total = plan.total.Add(fines[i].Amount)
		}
		plan.fines = fines
	}

	if len(installmentIDs) > 0 {
		installments, err := repos.Agreements.FindInstallmentsByIDs(ctx, installmentIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load installments: %w", err)
		}
		if len(installments) != len(installmentIDs) {
			return nil, ledger.ErrInstallmentNotFound
		}
		for i := range installments {
			inst := &installments[i]
			agreement, ok := plan.agreements[inst.AgreementID]
			if !ok {
				agreement, err = repos.Agreements.FindByID(ctx, inst.AgreementID)
				if err != nil {
					return nil, err
				}
				plan.agreements[inst.AgreementID] = agreement
			}
			if agreement.UserID != userID {
				return nil, ledger.ErrInstallmentNotFound
			}
			if agreement.Status != ledger.AgreementStatusActive || !inst.IsPayable() {
				return nil, ledger.ErrAlreadySettled
			}
			plan.total = plan.total.Add(inst.Amount)
		}
		plan.installments = installments
	}

	plan.total = plan.total.Round(2)
	return plan, nil
}

// Review approves or rejects a payment awaiting verification. With cascade
// enabled the rows it settled follow in the same transaction: approval marks
// them paid, rejection returns them to pendiente without a payment link.
func (s *IntakeService) Review(ctx context.Context, id int64, req ReviewRequest) (*ReviewResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "intake", "review", telemetry.SpanAttrPaymentID, id)
	defer span.End()

	status := ledger.PaymentStatus(req.Status)
	if status != ledger.PaymentStatusCompleted && status != ledger.PaymentStatusRejected {
		return nil, ledger.ErrInvalidStatus
	}
	approve := status == ledger.PaymentStatusCompleted

	now := s.clock()
	var (
		payment   *ledger.Payment
		result    ReviewResult
		completed []*ledger.Agreement
	)
	err := s.uow.Execute(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		var err error
		payment, err = repos.Payments.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if approve {
			err = payment.Approve()
		} else {
			err = payment.Reject(req.Reason)
		}
		if err != nil {
			return err
		}
		if err := repos.Payments.Save(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if !s.cfg.CascadeReview {
			return nil
		}

		rows, err := repos.Maintenance.FindByPaymentID(ctx, payment.ID)
		if err != nil {
			return fmt.Errorf("failed to load maintenance rows: %w", err)
		}
		for i := range rows {
			row := &rows[i]
			if row.Status != ledger.MaintenanceStatusProcessing && row.Status != ledger.MaintenanceStatusPending {
				continue
			}
			if approve {
				if err := row.ApplyPayment(payment.ID, ledger.MaintenanceStatusPaid, paidAtOr(row.PaidAt, now)); err != nil {
					return err
				}
			} else {
				row.Reopen()
			}
			if err := repos.Maintenance.Save(ctx, row); err != nil {
				return fmt.Errorf("failed to save maintenance row %s: %w", row.Period, err)
			}
			result.Maintenance++
		}

		fines, err := repos.Fines.FindByPaymentID(ctx, payment.ID)
		if err != nil {
			return fmt.Errorf("failed to load fines: %w", err)
		}
		for i := range fines {
			fine := &fines[i]
			if fine.Status != ledger.FineStatusProcessing && fine.Status != ledger.FineStatusPending {
				continue
			}
			if approve {
				if err := fine.ApplyPayment(payment.ID, ledger.FineStatusPaid, paidAtOr(fine.PaidAt, now)); err != nil {
					return err
				}
			} else {
				fine.Reopen()
			}
			if err := repos.Fines.Save(ctx, fine); err != nil {
				return fmt.Errorf("failed to save fine %d: %w", fine.ID, err)
			}
			result.Fines++
		}

		installments, err := repos.Agreements.FindInstallmentsByPaymentID(ctx, payment.ID)
		if err != nil {
			return fmt.Errorf("failed to load installments: %w", err)
		}
		touched := make([]ledger.Installment, 0, len(installments))
		for i := range installments {
			inst := &installments[i]
			if inst.Status != ledger.InstallmentStatusProcessing && inst.Status != ledger.InstallmentStatusPending {
				continue
			}
			if approve {
				paid := paidAtOr(inst.PaidAt, now)
				if err := inst.ApplyPayment(payment.ID, ledger.InstallmentStatusPaid, &paid); err != nil {
					return err
				}
			} else {
				inst.Reopen()
			}
			if err := repos.Agreements.SaveInstallment(ctx, inst); err != nil {
				return fmt.Errorf("failed to save installment %d: %w", inst.ID, err)
			}
			touched = append(touched, *inst)
			result.Installments++
		}
		if approve && len(touched) > 0 {
			completed, err = completeAgreements(ctx, repos, touched, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	sources := []eventSource{payment}
	for _, a := range completed {
		sources = append(sources, a)
		result.CompletedAgreements = append(result.CompletedAgreements, a.ID)
	}
	publishEvents(ctx, s.publisher, sources...)

	result.Payment = ToPaymentResponse(payment)
	return &result, nil
}

// ListPayments returns a page of general-ledger payments
func (s *IntakeService) ListPayments(ctx context.Context, q PaymentListQuery) (shared.Paginated[PaymentResponse], error) {
	filter := ledger.PaymentFilter{Filter: shared.DefaultFilter(), UserID: q.UserID}
	if q.Page > 0 {
		filter.Page = q.Page
	}
	if q.PageSize > 0 {
		filter.PageSize = q.PageSize
	}
	if q.Status != "" {
		status := ledger.PaymentStatus(q.Status)
		filter.Status = &status
	}
	if q.Method != "" {
		method := ledger.PaymentMethod(q.Method)
		filter.Method = &method
	}
	if q.Type != "" {
		t := ledger.PaymentType(q.Type)
		filter.Type = &t
	}

	payments, total, err := s.repos.Payments.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[PaymentResponse]{}, fmt.Errorf("failed to list payments: %w", err)
	}
	return shared.NewPaginated(ToPaymentResponses(payments), total, filter.Page, filter.PageSize), nil
}

// GetPayment returns a payment with the maintenance rows, fines and
// installments linked to it
func (s *IntakeService) GetPayment(ctx context.Context, id int64) (*PaymentDetailResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "intake", "get_payment", telemetry.SpanAttrPaymentID, id)
	defer span.End()

	payment, err := s.repos.Payments.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		rows         []ledger.MaintenancePayment
		fines        []ledger.Fine
		installments []ledger.Installment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.repos.Maintenance.FindByPaymentID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		fines, err = s.repos.Fines.FindByPaymentID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		installments, err = s.repos.Agreements.FindInstallmentsByPaymentID(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load linked rows: %w", err)
	}

	detail := &PaymentDetailResponse{
		PaymentResponse: ToPaymentResponse(payment),
		Maintenance:     ToMaintenanceResponses(rows),
		Fines:           make([]FineResponse, len(fines)),
		Installments:    ToInstallmentResponses(installments),
	}
	for i := range fines {
		detail.Fines[i] = ToFineResponse(&fines[i], nil, s.cfg.Location)
	}
	return detail, nil
}

// ListMaintenance lists the maintenance rows of the property the user holds
// today, each with its derived classification
func (s *IntakeService) ListMaintenance(ctx context.Context, q MaintenanceListQuery) ([]MaintenanceResponse, error) {
	property, err := s.repos.Properties.FindCurrentForUser(ctx, q.UserID, s.clock())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve property: %w", err)
	}
	if property == nil {
		return nil, ledger.ErrPropertyNotFound
	}
	rows, err := s.repos.Maintenance.FindByProperty(ctx, property.ID, q.Year)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance rows: %w", err)
	}
	return ToMaintenanceResponses(rows), nil
}

// ListFines lists fines, attributing each to the property its owner held
// on the fine's classification date
func (s *IntakeService) ListFines(ctx context.Context, q FineListQuery) ([]FineResponse, error) {
	filter := ledger.FineFilter{UserID: q.UserID}
	if q.Status != "" {
		status := ledger.FineStatus(q.Status)
		filter.Status = &status
	}
	fines, err := s.repos.Fines.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list fines: %w", err)
	}

	history := make(map[int64][]community.Assignment)
	out := make([]FineResponse, len(fines))
	for i := range fines {
		f := &fines[i]
		assignments, ok := history[f.UserID]
		if !ok && f.PropertyID == nil {
			assignments, err = s.repos.Properties.FindAssignments(ctx, f.UserID)
			if err != nil {
				return nil, fmt.Errorf("failed to load assignments: %w", err)
			}
			history[f.UserID] = assignments
		}
		out[i] = ToFineResponse(f, assignments, s.cfg.Location)
	}
	return out, nil
}

// billingTerms returns the maintenance fee and due day of the property's
// condominium, falling back to the configured fee
func billingTerms(ctx context.Context, props community.PropertyRepository, property *community.Property, fallback decimal.Decimal) (decimal.Decimal, int, error) {
	condo, err := props.FindCondominium(ctx, property.CondominiumID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fallback.Round(2), 0, nil
		}
		return decimal.Zero, 0, fmt.Errorf("failed to load condominium: %w", err)
	}
	fee := condo.MaintenanceFee
	if !fee.IsPositive() {
		fee = fallback
	}
	dueDay := 0
	if condo.HasDueDay() {
		dueDay = condo.DueDay
	}
	return fee.Round(2), dueDay, nil
}

// resolvePaymentID checks that a referenced payment exists
func resolvePaymentID(ctx context.Context, repos ledger.Repositories, id *int64) (int64, error) {
	if id == nil || *id <= 0 {
		return 0, nil
	}
	payment, err := repos.Payments.FindByID(ctx, *id)
	if err != nil {
		return 0, err
	}
	return payment.ID, nil
}

// completeAgreements completes the agreements of the given installments
// once all their installments are paid. known may hold agreements already
// loaded in the transaction.
func completeAgreements(ctx context.Context, repos ledger.Repositories, updated []ledger.Installment, known map[int64]*ledger.Agreement) ([]*ledger.Agreement, error) {
	ids := make([]int64, 0, len(updated))
	seen := make(map[int64]bool, len(updated))
	for _, inst := range updated {
		if !seen[inst.AgreementID] {
			seen[inst.AgreementID] = true
			ids = append(ids, inst.AgreementID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var completed []*ledger.Agreement
	for _, id := range ids {
		agreement := known[id]
		if agreement == nil {
			var err error
			agreement, err = repos.Agreements.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
		}
		syncInstallments(agreement, updated)
		if !agreement.CompleteIfSettled() {
			continue
		}
		if err := repos.Agreements.UpdateStatus(ctx, agreement); err != nil {
			return nil, fmt.Errorf("failed to complete agreement %d: %w", agreement.ID, err)
		}
		completed = append(completed, agreement)
	}
	return completed, nil
}

// syncInstallments overlays installments changed in this transaction on an
// agreement loaded before or without them
func syncInstallments(a *ledger.Agreement, updated []ledger.Installment) {
	for i := range a.Installments {
		for _, u := range updated {
			if u.ID == a.Installments[i].ID {
				a.Installments[i] = u
			}
		}
	}
}

func indexByPeriod(rows []ledger.MaintenancePayment) map[ledger.Period]*ledger.MaintenancePayment {
	out := make(map[ledger.Period]*ledger.MaintenancePayment, len(rows))
	for i := range rows {
		out[rows[i].Period] = &rows[i]
	}
	return out
}

func linkedTo(current *int64, paymentID int64) bool {
	return current != nil && paymentID > 0 && *current == paymentID
}

func paidAtOr(at *time.Time, fallback time.Time) time.Time {
	if at != nil {
		return *at
	}
	return fallback
}
