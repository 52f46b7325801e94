package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/condoportal/backend/internal/domain/shared"
	"github.com/condoportal/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const dateLayout = "2006-01-02"

var (
	notePrinter = message.NewPrinter(language.LatinAmericanSpanish)
	peso        = currency.MustParseISO("MXN")
)

// parseDate accepts a calendar date or an RFC 3339 timestamp. Calendar dates
// are midnight in loc.
func parseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation(dateLayout, value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, shared.NewDomainError("INVALID_DATE", "Fecha inválida: "+value)
	}
	return t.In(loc), nil
}

// newReferenceSuffix returns the random part of a transfer reference code
func newReferenceSuffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

// formatAmount renders an amount the way residents read it on receipts
func formatAmount(amount decimal.Decimal) string {
	f, _ := amount.Float64()
	return notePrinter.Sprint(currency.Symbol(peso.Amount(f)))
}

// checkoutNotes describes what a checkout settled
func checkoutNotes(settled ledger.Settlement, total decimal.Decimal, extra string) string {
	parts := make([]string, 0, 4)
	if n := len(settled.Periods); n > 0 {
		parts = append(parts, notePrinter.Sprintf("%d periodo(s) de mantenimiento", n))
	}
	if n := len(settled.FineIDs); n > 0 {
		parts = append(parts, notePrinter.Sprintf("%d multa(s)", n))
	}
	if n := len(settled.InstallmentIDs); n > 0 {
		parts = append(parts, notePrinter.Sprintf("%d cuota(s) de convenio", n))
	}
	note := "Pago en línea: " + strings.Join(parts, ", ") + "; total " + formatAmount(total)
	if extra = strings.TrimSpace(extra); extra != "" {
		note += " | " + extra
	}
	return note
}

// eventSource is an aggregate holding events raised during a transaction
type eventSource interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}

// publishEvents hands the collected events to the bus once the transaction
// committed. A publish failure is logged; the write already happened.
func publishEvents(ctx context.Context, publisher shared.EventPublisher, sources ...eventSource) {
	var events []shared.DomainEvent
	for _, src := range sources {
		events = append(events, src.GetDomainEvents()...)
		src.ClearDomainEvents()
	}
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.L(ctx).Warn("failed to publish ledger events",
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
}

// uniqueIDs drops duplicates and non-positive ids, keeping the first order
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
