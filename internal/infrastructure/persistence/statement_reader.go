package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormStatementReader implements ledger.StatementReader with one aggregate
// query per income category. Payment timestamps are converted to the ledger
// timezone before month and year are extracted.
type GormStatementReader struct {
	db       *gorm.DB
	timezone string
	fines    ledger.FineDateColumns
}

// NewGormStatementReader creates a statement reader for the given timezone
// name and fine date columns
func NewGormStatementReader(db *gorm.DB, timezone string, fines ledger.FineDateColumns) *GormStatementReader {
	if timezone == "" {
		timezone = "UTC"
	}
	return &GormStatementReader{db: db, timezone: timezone, fines: fines}
}

type monthlyRow struct {
	Month int
	Total decimal.Decimal
	Count int
}

const aggregateColumns = "COALESCE(SUM(%s), 0) AS total, COUNT(*) AS count"

// localized returns an expression converting a timestamptz column to the
// ledger timezone. It consumes one argument.
func localized(column string) string {
	return fmt.Sprintf("(%s AT TIME ZONE ?)", column)
}

func classOperator(class ledger.Classification) (string, error) {
	switch class {
	case ledger.ClassificationOnTime:
		return "=", nil
	case ledger.ClassificationRecovered:
		return "<", nil
	case ledger.ClassificationAdvance:
		return ">", nil
	}
	return "", fmt.Errorf("unknown classification %q", class)
}

// MaintenanceByClassification sums paid maintenance rows whose period
// compares to the payment period as the class requires
func (r *GormStatementReader) MaintenanceByClassification(ctx context.Context, year int, condominiumID *int64, class ledger.Classification) ([]ledger.MonthlyTotal, error) {
	op, err := classOperator(class)
	if err != nil {
		return nil, err
	}
	paid := localized("pm.fecha_pago")
	tz := r.timezone

	query := r.db.WithContext(ctx).Table("pagos_mantenimiento pm").
		Select("EXTRACT(MONTH FROM "+paid+")::int AS month, "+fmt.Sprintf(aggregateColumns, "pm.monto"), tz).
		Joins("JOIN propiedades p ON p.id = pm.propiedad_id").
		Where("pm.estado = ?", ledger.MaintenanceStatusPaid).
		Where("pm.fecha_pago IS NOT NULL").
		Where("EXTRACT(YEAR FROM "+paid+") = ?", tz, year).
		Where(fmt.Sprintf("(pm.periodo_anio * 12 + pm.periodo_mes) %s (EXTRACT(YEAR FROM %s) * 12 + EXTRACT(MONTH FROM %s))", op, paid, paid), tz, tz).
		Scopes(CondominiumScope(condominiumID, "p")).
		Group("month").
		Order("month")
	return scanMonthly(query)
}

// Annualities sums periods of the year that were paid in an earlier period,
// grouped by the period month instead of the payment month
func (r *GormStatementReader) Annualities(ctx context.Context, year int, condominiumID *int64) ([]ledger.MonthlyTotal, error) {
	paid := localized("pm.fecha_pago")
	tz := r.timezone

	query := r.db.WithContext(ctx).Table("pagos_mantenimiento pm").
		Select("pm.periodo_mes AS month, "+fmt.Sprintf(aggregateColumns, "pm.monto")).
		Joins("JOIN propiedades p ON p.id = pm.propiedad_id").
		Where("pm.estado = ?", ledger.MaintenanceStatusPaid).
		Where("pm.fecha_pago IS NOT NULL").
		Where("pm.periodo_anio = ?", year).
		Where(fmt.Sprintf("(pm.periodo_anio * 12 + pm.periodo_mes) > (EXTRACT(YEAR FROM %s) * 12 + EXTRACT(MONTH FROM %s))", paid, paid), tz, tz).
		Scopes(CondominiumScope(condominiumID, "p")).
		Group("pm.periodo_mes").
		Order("month")
	return scanMonthly(query)
}

// fineDate builds the classification date of a fine from the columns the
// schema has, most accurate first, and returns the arguments it consumes
func (r *GormStatementReader) fineDate() (string, []any) {
	parts := make([]string, 0, 3)
	args := make([]any, 0, 2)
	for _, col := range r.fines.Columns() {
		if col == "fecha_vencimiento" {
			parts = append(parts, "m.fecha_vencimiento::timestamp")
			continue
		}
		parts = append(parts, localized("m."+col))
		args = append(args, r.timezone)
	}
	return "COALESCE(" + strings.Join(parts, ", ") + ")", args
}

// Fines sums paid fines by the month of their classification date. Fines
// without a property are attributed through the assignment valid on that date.
func (r *GormStatementReader) Fines(ctx context.Context, year int, condominiumID *int64) ([]ledger.MonthlyTotal, error) {
	date, dateArgs := r.fineDate()

	query := r.db.WithContext(ctx).Table("multas m").
		Select("EXTRACT(MONTH FROM "+date+")::int AS month, "+fmt.Sprintf(aggregateColumns, "m.monto"), dateArgs...).
		Where("m.estado = ?", ledger.FineStatusPaid).
		Where("EXTRACT(YEAR FROM "+date+") = ?", append(append([]any{}, dateArgs...), year)...)

	if condominiumID != nil {
		joinArgs := append(append([]any{}, dateArgs...), dateArgs...)
		query = query.
			Joins(`LEFT JOIN LATERAL (
				SELECT up.propiedad_id FROM usuario_propiedad up
				WHERE up.usuario_id = m.usuario_id
				  AND up.fecha_inicio <= (`+date+`)::date
				  AND (up.fecha_fin IS NULL OR up.fecha_fin >= (`+date+`)::date)
				ORDER BY up.fecha_inicio DESC, up.id DESC
				LIMIT 1
			) att ON m.propiedad_id IS NULL`, joinArgs...).
			Joins("JOIN propiedades p ON p.id = COALESCE(m.propiedad_id, att.propiedad_id)").
			Scopes(CondominiumScope(condominiumID, "p"))
	}

	return scanMonthly(query.Group("month").Order("month"))
}

// AgreementInstallments sums paid installments by month of payment
func (r *GormStatementReader) AgreementInstallments(ctx context.Context, year int, condominiumID *int64) ([]ledger.MonthlyTotal, error) {
	paid := localized("pc.fecha_pago")
	tz := r.timezone

	query := r.db.WithContext(ctx).Table("pagos_convenio pc").
		Select("EXTRACT(MONTH FROM "+paid+")::int AS month, "+fmt.Sprintf(aggregateColumns, "pc.monto"), tz).
		Joins("JOIN convenios c ON c.id = pc.convenio_id").
		Joins("JOIN propiedades p ON p.id = c.propiedad_id").
		Where("pc.estado = ?", ledger.InstallmentStatusPaid).
		Where("pc.fecha_pago IS NOT NULL").
		Where("EXTRACT(YEAR FROM "+paid+") = ?", tz, year).
		Scopes(CondominiumScope(condominiumID, "p")).
		Group("month").
		Order("month")
	return scanMonthly(query)
}

// CommonAreas sums completed reservation payments by month of payment.
// The condominium is the one of the resident's assignment on the payment date.
func (r *GormStatementReader) CommonAreas(ctx context.Context, year int, condominiumID *int64) ([]ledger.MonthlyTotal, error) {
	paid := localized("pg.fecha_pago")
	tz := r.timezone

	query := r.db.WithContext(ctx).Table("pagos pg").
		Select("EXTRACT(MONTH FROM "+paid+")::int AS month, "+fmt.Sprintf(aggregateColumns, "pg.monto"), tz).
		Where("pg.tipo = ?", ledger.PaymentTypeReservation).
		Where("pg.estado = ?", ledger.PaymentStatusCompleted).
		Where("EXTRACT(YEAR FROM "+paid+") = ?", tz, year)

	if condominiumID != nil {
		query = query.
			Joins(`JOIN LATERAL (
				SELECT up.propiedad_id FROM usuario_propiedad up
				WHERE up.usuario_id = pg.usuario_id
				  AND up.fecha_inicio <= `+paid+`::date
				  AND (up.fecha_fin IS NULL OR up.fecha_fin >= `+paid+`::date)
				ORDER BY up.fecha_inicio DESC, up.id DESC
				LIMIT 1
			) att ON TRUE`, tz, tz).
			Joins("JOIN propiedades p ON p.id = att.propiedad_id").
			Scopes(CondominiumScope(condominiumID, "p"))
	}

	return scanMonthly(query.Group("month").Order("month"))
}

// OtherIncome sums otros_ingresos by month of fecha
func (r *GormStatementReader) OtherIncome(ctx context.Context, year int, condominiumID *int64) ([]ledger.MonthlyTotal, error) {
	query := r.db.WithContext(ctx).Table("otros_ingresos oi").
		Select("EXTRACT(MONTH FROM oi.fecha)::int AS month, "+fmt.Sprintf(aggregateColumns, "oi.monto")).
		Where("EXTRACT(YEAR FROM oi.fecha) = ?", year).
		Scopes(CondominiumScope(condominiumID, "oi")).
		Group("month").
		Order("month")
	return scanMonthly(query)
}

func scanMonthly(query *gorm.DB) ([]ledger.MonthlyTotal, error) {
	var rows []monthlyRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ledger.MonthlyTotal, len(rows))
	for i, row := range rows {
		out[i] = ledger.MonthlyTotal{Month: row.Month, Total: row.Total, Count: row.Count}
	}
	return out, nil
}
