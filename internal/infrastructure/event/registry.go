package event

import (
	"slices"
	"sync"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// HandlerRegistry tracks which handlers are interested in which event
// types. Handlers registered without any type are wildcards and match
// everything. Safe for concurrent use.
type HandlerRegistry struct {
	mu       sync.RWMutex
	byType   map[string][]shared.EventHandler
	wildcard []shared.EventHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		byType: make(map[string][]shared.EventHandler),
	}
}

// Register adds a handler for the given event types, or as a wildcard
// when none are given.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(eventTypes) == 0 {
		r.wildcard = append(r.wildcard, handler)
		return
	}
	for _, eventType := range eventTypes {
		r.byType[eventType] = append(r.byType[eventType], handler)
	}
}

// Unregister removes every registration of the handler, wildcard
// included.
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wildcard = slices.DeleteFunc(slices.Clone(r.wildcard), func(h shared.EventHandler) bool {
		return h == handler
	})
	for eventType, handlers := range r.byType {
		remaining := slices.DeleteFunc(slices.Clone(handlers), func(h shared.EventHandler) bool {
			return h == handler
		})
		if len(remaining) == 0 {
			delete(r.byType, eventType)
		} else {
			r.byType[eventType] = remaining
		}
	}
}

// GetHandlers returns the handlers subscribed to eventType, followed
// by the wildcard handlers.
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typed := r.byType[eventType]
	result := make([]shared.EventHandler, 0, len(typed)+len(r.wildcard))
	result = append(result, typed...)
	return append(result, r.wildcard...)
}

// GetAllHandlers returns every distinct registered handler.
func (r *HandlerRegistry) GetAllHandlers() []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[shared.EventHandler]struct{})
	result := make([]shared.EventHandler, 0, len(r.wildcard))
	collect := func(handlers []shared.EventHandler) {
		for _, h := range handlers {
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}
			result = append(result, h)
		}
	}

	collect(r.wildcard)
	for _, handlers := range r.byType {
		collect(handlers)
	}
	return result
}
