package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLabels(t *testing.T) {
	pairs := sanitizeLabels(map[string]string{
		"operation":  "income_statement",
		"Category":   "multas",
		"usuario_id": "42",
		"route":      "",
		"my key":     strings.Repeat("x", 200),
	})

	assert.Equal(t, []string{
		"category", "multas",
		"my_key", strings.Repeat("x", MaxLabelValueLength),
		"operation", "income_statement",
	}, pairs)
}

func TestSanitizeLabelKey(t *testing.T) {
	assert.Equal(t, "statement_category", sanitizeLabelKey("Statement-Category"))
	assert.Equal(t, "ab1", sanitizeLabelKey("a.b!1"))
	assert.Empty(t, sanitizeLabelKey("!!"))
}

func TestWithProfilingLabels(t *testing.T) {
	var got string
	WithProfilingLabels(context.Background(),
		OperationLabels("income_statement", map[string]string{ProfilingLabelCategory: "convenios"}),
		func(ctx context.Context) {
			got, _ = pprof.Label(ctx, ProfilingLabelCategory)
		})
	assert.Equal(t, "convenios", got)

	called := false
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}

func TestOperationLabels_OperationWins(t *testing.T) {
	labels := OperationLabels("checkout", map[string]string{ProfilingLabelOperation: "other", "route": "/api/pagos"})
	assert.Equal(t, "checkout", labels[ProfilingLabelOperation])
	assert.Equal(t, "/api/pagos", labels["route"])
}
