package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/condoportal/backend/internal/domain/community"
	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/condoportal/backend/internal/domain/shared"
	"github.com/condoportal/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

var errInstallmentCount = shared.NewDomainError("INVALID_INSTALLMENTS", "El número de cuotas enviadas no coincide con num_pagos")

// AgreementConfig holds the settings of the agreement generator
type AgreementConfig struct {
	DefaultMaintenanceFee decimal.Decimal
	// LookbackMonths bounds the search for periods that were never billed
	LookbackMonths int
	Location       *time.Location
}

// AgreementService prices and creates payment agreements (convenios)
type AgreementService struct {
	uow       ledger.UnitOfWork
	repos     ledger.Repositories
	publisher shared.EventPublisher
	cfg       AgreementConfig
	now       func() time.Time
}

// NewAgreementService creates a new AgreementService
func NewAgreementService(
	uow ledger.UnitOfWork,
	repos ledger.Repositories,
	publisher shared.EventPublisher,
	cfg AgreementConfig,
) *AgreementService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LookbackMonths <= 0 {
		cfg.LookbackMonths = 24
	}
	return &AgreementService{
		uow:       uow,
		repos:     repos,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// agreementPlan is a priced agreement with the rows it will supersede
type agreementPlan struct {
	property *community.Property
	quote    *ledger.Quote
	rows     map[int64]*ledger.MaintenancePayment
	fines    []ledger.Fine
}

// Quote prices an agreement without writing anything
func (s *AgreementService) Quote(ctx context.Context, req AgreementRequest) (*AgreementQuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "agreement", "quote", telemetry.SpanAttrUserID, req.UserID)
	defer span.End()

	plan, err := s.prepare(ctx, s.repos, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	q := plan.quote
	return &AgreementQuoteResponse{
		PropertyID:   plan.property.ID,
		Base:         q.Base,
		Surcharge:    q.Surcharge,
		Total:        q.Total,
		Periods:      q.Charges,
		Fines:        q.Fines,
		Installments: q.Installments,
		Estimated:    q.EstimatedCount(),
	}, nil
}

// Create consolidates overdue maintenance and selected fines into an
// agreement. Selected rows are cancelled, missing periods are inserted
// already cancelled, and the agreement with its installments is written,
// all in one transaction.
func (s *AgreementService) Create(ctx context.Context, req AgreementRequest) (*AgreementResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "agreement", "create", telemetry.SpanAttrUserID, req.UserID)
	defer span.End()

	now := s.now().In(s.cfg.Location)
	var (
		agreement *ledger.Agreement
		summary   AgreementSummary
	)
	err := s.uow.Execute(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		plan, err := s.prepare(ctx, repos, req)
		if err != nil {
			return err
		}

		for _, charge := range plan.quote.Charges {
			if charge.Estimated {
				row, err := ledger.NewMaintenancePayment(plan.property.ID, charge.Period, charge.Amount)
				if err != nil {
					return err
				}
				row.Supersede()
				if err := repos.Maintenance.Save(ctx, row); err != nil {
					return fmt.Errorf("failed to insert cancelled period %s: %w", charge.Period, err)
				}
				summary.CreatedCancelled++
				continue
			}
			row, ok := plan.rows[charge.RowID]
			if !ok {
				return fmt.Errorf("pending row %d not loaded", charge.RowID)
			}
			row.Supersede()
			if err := repos.Maintenance.Save(ctx, row); err != nil {
				return fmt.Errorf("failed to cancel period %s: %w", charge.Period, err)
			}
			summary.CancelledExisting++
		}

		for i := range plan.fines {
			fine := &plan.fines[i]
			if err := fine.ApplyPayment(0, ledger.FineStatusCancelled, now); err != nil {
				return err
			}
			if err := repos.Fines.Save(ctx, fine); err != nil {
				return fmt.Errorf("failed to cancel fine %d: %w", fine.ID, err)
			}
			summary.CancelledFines++
		}

		agreement, err = ledger.NewAgreement(req.UserID, plan.property.ID, req.SurchargePercent.Round(2), plan.quote)
		if err != nil {
			return err
		}
		if err := repos.Agreements.Create(ctx, agreement); err != nil {
			return fmt.Errorf("failed to create agreement: %w", err)
		}
		agreement.Created()
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	publishEvents(ctx, s.publisher, agreement)

	telemetry.SetAttributes(span,
		"convenio_id", agreement.ID,
		telemetry.SpanAttrPropertyID, agreement.PropertyID,
		telemetry.SpanAttrAmount, agreement.TotalAmount,
	)
	summary.Total = agreement.TotalAmount
	summary.Base = agreement.BaseAmount
	summary.Surcharge = agreement.SurchargeAmount
	return &AgreementResult{Agreement: ToAgreementResponse(agreement), Summary: summary}, nil
}

// GetAgreement returns an agreement with its installments
func (s *AgreementService) GetAgreement(ctx context.Context, id int64) (*AgreementResponse, error) {
	agreement, err := s.repos.Agreements.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToAgreementResponse(agreement)
	return &resp, nil
}

// prepare selects the periods and fines an agreement consolidates and
// prices it. Overdue pending rows come first, oldest first; when fewer exist
// than requested the gap is filled with never-billed periods at the flat fee.
func (s *AgreementService) prepare(ctx context.Context, repos ledger.Repositories, req AgreementRequest) (*agreementPlan, error) {
	if req.NumInstallments <= 0 {
		return nil, ledger.ErrInvalidInstallments
	}
	if req.MonthsToInclude < 0 {
		return nil, ledger.ErrInvalidPeriod
	}
	if req.SurchargePercent.IsNegative() {
		return nil, ledger.ErrInvalidSurcharge
	}
	if len(req.Installments) > 0 && len(req.Installments) != req.NumInstallments {
		return nil, errInstallmentCount
	}

	now := s.now().In(s.cfg.Location)
	property, err := repos.Properties.FindCurrentForUser(ctx, req.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve property: %w", err)
	}
	if property == nil {
		return nil, ledger.ErrPropertyNotFound
	}
	fee, dueDay, err := billingTerms(ctx, repos.Properties, property, s.cfg.DefaultMaintenanceFee)
	if err != nil {
		return nil, err
	}

	plan := &agreementPlan{property: property, rows: make(map[int64]*ledger.MaintenancePayment)}

	var selected []ledger.MaintenanceCharge
	if req.MonthsToInclude > 0 {
		pending, err := repos.Maintenance.FindPending(ctx, property.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load pending periods: %w", err)
		}
		current := ledger.PeriodOf(now)
		charges := make([]ledger.MaintenanceCharge, 0, len(pending))
		for i := range pending {
			row := &pending[i]
			if !row.Period.Before(current) {
				continue
			}
			amount := row.Amount
			if !amount.IsPositive() {
				amount = fee
			}
			charges = append(charges, ledger.MaintenanceCharge{RowID: row.ID, Period: row.Period, Amount: amount})
			plan.rows[row.ID] = row
		}

		var missing []ledger.Period
		if len(charges) < req.MonthsToInclude {
			existing, err := repos.Maintenance.ExistingPeriods(ctx, property.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load billed periods: %w", err)
			}
			missing = ledger.MissingPeriods(existing, now, req.MonthsToInclude-len(charges), s.cfg.LookbackMonths)
		}
		selected = ledger.SelectPeriods(charges, req.MonthsToInclude, missing, fee)
	}

	fineCharges, err := s.selectFines(ctx, repos, req.UserID, req.FineIDs, plan)
	if err != nil {
		return nil, err
	}

	first := ledger.PeriodOf(now).Next().DueDate(max(dueDay, 1), s.cfg.Location)
	if req.FirstDueDate != "" {
		if first, err = parseDate(req.FirstDueDate, s.cfg.Location); err != nil {
			return nil, err
		}
	}

	quote, err := ledger.QuoteAgreement(ledger.QuoteInput{
		Charges:          selected,
		Fines:            fineCharges,
		NumInstallments:  req.NumInstallments,
		SurchargePercent: req.SurchargePercent,
		FirstDueDate:     first,
		DueDay:           dueDay,
	})
	if err != nil {
		return nil, err
	}

	if len(req.Installments) > 0 {
		if err := s.applyClientDates(quote, req, dueDay); err != nil {
			return nil, err
		}
	}
	plan.quote = quote
	return plan, nil
}

func (s *AgreementService) selectFines(ctx context.Context, repos ledger.Repositories, userID int64, ids []int64, plan *agreementPlan) ([]ledger.FineCharge, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	fines, err := repos.Fines.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load fines: %w", err)
	}
	if len(fines) != len(ids) {
		return nil, ledger.ErrFineNotFound
	}
	out := make([]ledger.FineCharge, 0, len(fines))
	for i := range fines {
		if fines[i].UserID != userID {
			return nil, ledger.ErrFineNotFound
		}
		if !fines[i].IsPayable() {
			return nil, ledger.ErrAlreadySettled
		}
		out = append(out, ledger.FineCharge{FineID: fines[i].ID, Amount: fines[i].Amount})
	}
	plan.fines = fines
	return out, nil
}

// applyClientDates honors the due dates of client-sent installments. When
// the client also moved fecha_inicio_cuotas away from its first line, the
// whole schedule is re-derived from the new first date instead.
func (s *AgreementService) applyClientDates(q *ledger.Quote, req AgreementRequest, dueDay int) error {
	lines := make([]ClientInstallment, len(req.Installments))
	copy(lines, req.Installments)
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Number < lines[j].Number })

	dates := make([]time.Time, len(lines))
	for i, line := range lines {
		if line.Number != i+1 {
			return errInstallmentCount
		}
		d, err := parseDate(line.DueDate, s.cfg.Location)
		if err != nil {
			return err
		}
		dates[i] = d
	}

	if req.FirstDueDate != "" && !sameDay(dates[0], q.Installments[0].DueDate) {
		q.Installments = ledger.RescheduleFrom(q.Installments, q.Installments[0].DueDate, dueDay)
		return nil
	}
	for i := range q.Installments {
		q.Installments[i].DueDate = dates[i]
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
