package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/condoportal/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string, aggregateID int64) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Payment", aggregateID)}
}

type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicMsg   string
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, event)
	err, panicMsg := h.err, h.panicMsg
	h.mu.Unlock()
	if panicMsg != "" {
		panic(panicMsg)
	}
	return err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("PaymentRecorded")
	bus.Subscribe(handler)

	event := newTestEvent("PaymentRecorded", 1)
	require.NoError(t, bus.Publish(context.Background(), event))

	require.Equal(t, 1, handler.count())
	assert.Equal(t, event, handler.handled[0])
}

func TestInMemoryEventBus_PublishMany(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	first := newTestHandler("PaymentRecorded")
	second := newTestHandler("PaymentRecorded")
	bus.Subscribe(first)
	bus.Subscribe(second)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent("PaymentRecorded", 1),
		newTestEvent("PaymentRecorded", 2),
	))

	assert.Equal(t, 2, first.count())
	assert.Equal(t, 2, second.count())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("PaymentRecorded")
	bus.Subscribe(handler, "AgreementCreated")

	_ = bus.Publish(context.Background(), newTestEvent("PaymentRecorded", 1))
	_ = bus.Publish(context.Background(), newTestEvent("AgreementCreated", 2))

	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler()
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("Anything", 1)))
	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_FailingHandlersDoNotStopDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newTestHandler("PaymentRecorded")
	failing.err = errors.New("smtp down")
	panicking := newTestHandler("PaymentRecorded")
	panicking.panicMsg = "nil map"
	healthy := newTestHandler("PaymentRecorded")

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("PaymentRecorded", 1))

	require.NoError(t, err)
	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, panicking.count())
	assert.Equal(t, 1, healthy.count())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("PaymentRecorded")
	bus.Subscribe(handler)
	_ = bus.Publish(context.Background(), newTestEvent("PaymentRecorded", 1))

	bus.Unsubscribe(handler)
	_ = bus.Publish(context.Background(), newTestEvent("PaymentRecorded", 2))

	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(nil)

	require.NoError(t, bus.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
}
