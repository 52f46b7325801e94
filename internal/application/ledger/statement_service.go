package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/condoportal/backend/internal/domain/shared"
	"github.com/condoportal/backend/internal/infrastructure/logger"
	"github.com/condoportal/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StatementObserver receives statement timings and category failures
type StatementObserver interface {
	RecordCategoryFailure(ctx context.Context, category string)
	RecordStatementDuration(ctx context.Context, scope string, d time.Duration)
}

// StatementService builds the yearly income statement. Every category is an
// independent query; a failing one is zeroed and reported instead of
// failing the whole statement.
type StatementService struct {
	reader   ledger.StatementReader
	observer StatementObserver
	parallel bool
	now      func() time.Time
}

// NewStatementService creates a new StatementService. observer may be nil.
func NewStatementService(reader ledger.StatementReader, observer StatementObserver, parallel bool) *StatementService {
	return &StatementService{
		reader:   reader,
		observer: observer,
		parallel: parallel,
		now:      time.Now,
	}
}

// categoryJob fills one category of the statement
type categoryJob struct {
	category ledger.Category
	run      func(ctx context.Context, st *ledger.IncomeStatement) error
}

func (s *StatementService) jobs(year int, condominiumID *int64) []categoryJob {
	fold := func(c ledger.Category, query func(context.Context, int, *int64) ([]ledger.MonthlyTotal, error)) categoryJob {
		return categoryJob{category: c, run: func(ctx context.Context, st *ledger.IncomeStatement) error {
			rows, err := query(ctx, year, condominiumID)
			if err != nil {
				return err
			}
			st.Get(c).Fold(rows)
			return nil
		}}
	}
	byClass := func(class ledger.Classification) func(context.Context, int, *int64) ([]ledger.MonthlyTotal, error) {
		return func(ctx context.Context, year int, condominiumID *int64) ([]ledger.MonthlyTotal, error) {
			return s.reader.MaintenanceByClassification(ctx, year, condominiumID, class)
		}
	}

	return []categoryJob{
		fold(ledger.CategoryMaintenance, byClass(ledger.ClassificationOnTime)),
		fold(ledger.CategoryRecovered, byClass(ledger.ClassificationRecovered)),
		{category: ledger.CategoryAdvance, run: func(ctx context.Context, st *ledger.IncomeStatement) error {
			rows, err := s.reader.MaintenanceByClassification(ctx, year, condominiumID, ledger.ClassificationAdvance)
			if err != nil {
				return err
			}
			st.Get(ledger.CategoryAdvance).Fold(rows)
			st.AdvanceCount.Fold(rows)
			return nil
		}},
		fold(ledger.CategoryAnnualities, s.reader.Annualities),
		fold(ledger.CategoryFines, s.reader.Fines),
		fold(ledger.CategoryAgreements, s.reader.AgreementInstallments),
		fold(ledger.CategoryCommonAreas, s.reader.CommonAreas),
		fold(ledger.CategoryOthers, s.reader.OtherIncome),
	}
}

// Build returns the income statement of a year, optionally scoped to one
// condominium
func (s *StatementService) Build(ctx context.Context, year int, condominiumID *int64) (*ledger.IncomeStatement, error) {
	if year < 2000 || year > 2100 {
		return nil, shared.NewDomainError("INVALID_YEAR", fmt.Sprintf("Año inválido: %d", year))
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "statement", "build",
		telemetry.SpanAttrYear, year,
		telemetry.SpanAttrCondominiumID, condominiumID,
	)
	defer span.End()

	scope := "all"
	if condominiumID != nil {
		scope = "condominium"
	}
	start := s.now()

	st := ledger.NewIncomeStatement(year, condominiumID)
	var mu sync.Mutex
	degraded := make(map[ledger.Category]bool)

	runJob := func(ctx context.Context, job categoryJob) {
		labels := telemetry.OperationLabels("income_statement", map[string]string{
			telemetry.ProfilingLabelCategory: string(job.category),
		})
		telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
			if err := s.runIsolated(ctx, job, st); err != nil {
				mu.Lock()
				degraded[job.category] = true
				mu.Unlock()

				logger.L(ctx).Warn("income statement category failed, reporting zero",
					zap.String("category", string(job.category)),
					zap.Int("year", year),
					zap.Error(err),
				)
				telemetry.AddEvent(span, "category_degraded", telemetry.SpanAttrCategory, string(job.category))
				if s.observer != nil {
					s.observer.RecordCategoryFailure(ctx, string(job.category))
				}
			}
		})
	}

	jobs := s.jobs(year, condominiumID)
	if s.parallel {
		var g errgroup.Group
		for _, job := range jobs {
			g.Go(func() error {
				runJob(ctx, job)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, job := range jobs {
			runJob(ctx, job)
		}
	}

	for _, c := range ledger.AllCategories() {
		if degraded[c] {
			st.Degraded = append(st.Degraded, c)
		}
	}

	if s.observer != nil {
		s.observer.RecordStatementDuration(ctx, scope, s.now().Sub(start))
	}
	telemetry.SetAttributes(span, "degradadas", len(st.Degraded))
	return st, nil
}

// runIsolated runs one category job into a scratch statement so a job that
// fails halfway leaves its series zeroed. A panic is reported as an error.
func (s *StatementService) runIsolated(ctx context.Context, job categoryJob, st *ledger.IncomeStatement) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in category %s: %v", job.category, r)
		}
	}()

	scratch := ledger.NewIncomeStatement(st.Year, st.CondominiumID)
	if err := job.run(ctx, scratch); err != nil {
		return err
	}

	*st.Get(job.category) = *scratch.Get(job.category)
	if job.category == ledger.CategoryAdvance {
		st.AdvanceCount = scratch.AdvanceCount
	}
	return nil
}
