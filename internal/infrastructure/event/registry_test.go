package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_RegisterAndGet(t *testing.T) {
	registry := NewHandlerRegistry()

	h1 := newTestHandler("StockMovementRecorded")
	h2 := newTestHandler("StockMovementRecorded", "PaymentCreated")
	registry.Register(h1, "StockMovementRecorded")
	registry.Register(h2, "StockMovementRecorded", "PaymentCreated")

	assert.Len(t, registry.GetHandlers("StockMovementRecorded"), 2)
	assert.Len(t, registry.GetHandlers("PaymentCreated"), 1)
	assert.Empty(t, registry.GetHandlers("DocumentConfirmed"))
}

func TestHandlerRegistry_WildcardIncludedForEveryType(t *testing.T) {
	registry := NewHandlerRegistry()

	wildcard := newTestHandler()
	specific := newTestHandler("PaymentReversed")
	registry.Register(wildcard)
	registry.Register(specific, "PaymentReversed")

	assert.Len(t, registry.GetHandlers("PaymentReversed"), 2)
	assert.Len(t, registry.GetHandlers("anything-else"), 1)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()

	h := newTestHandler("DocumentCreated", "DocumentVoided")
	registry.Register(h, "DocumentCreated", "DocumentVoided")
	registry.Unregister(h)

	assert.Empty(t, registry.GetHandlers("DocumentCreated"))
	assert.Empty(t, registry.GetHandlers("DocumentVoided"))
	assert.Empty(t, registry.GetAllHandlers())
}

func TestHandlerRegistry_GetAllHandlersDeduplicates(t *testing.T) {
	registry := NewHandlerRegistry()

	h := newTestHandler("DocumentCreated", "DocumentConfirmed")
	registry.Register(h, "DocumentCreated", "DocumentConfirmed")

	assert.Len(t, registry.GetAllHandlers(), 1)
}
