package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session lifecycle event names.
const (
	ChargingStarted  = "charging_started"
	ChargingFinished = "charging_finished"
)

// SessionEvent is the payload delivered to lifecycle observers.
type SessionEvent struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	At              time.Time `json:"at"`
	TagID           string    `json:"tagId"`
	ContractIdent   string    `json:"contractIdent,omitempty"`
	DebtorIdent     string    `json:"debtorIdent,omitempty"`
	DurationMinutes float64   `json:"durationMinutes,omitempty"`
	TotalCost       float64   `json:"totalCost,omitempty"`
	Currency        string    `json:"currency,omitempty"`
}

// Handler observes session events. Delivery is at-most-once and best
// effort; handlers must tolerate being the last to hear about an event.
type Handler func(ctx context.Context, ev SessionEvent)

// Emitter fan-outs session lifecycle events to registered handlers. Each
// handler runs isolated: a panicking or slow subscriber cannot block the
// session transition that emitted the event.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *zap.Logger
}

// NewEmitter builds an emitter.
func NewEmitter(logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// On registers a handler for the named event.
func (e *Emitter) On(name string, h Handler) {
	if h == nil {
		return
	}
	e.mu.Lock()
	e.handlers[name] = append(e.handlers[name], h)
	e.mu.Unlock()
}

// Emit delivers ev to every handler registered for ev.Name. Handlers run
// synchronously in registration order; panics are recovered per handler.
func (e *Emitter) Emit(ctx context.Context, ev SessionEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers[ev.Name]))
	copy(handlers, e.handlers[ev.Name])
	e.mu.RUnlock()

	for _, h := range handlers {
		e.dispatch(ctx, h, ev)
	}
}

func (e *Emitter) dispatch(ctx context.Context, h Handler, ev SessionEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event handler panicked",
				zap.String("event", ev.Name),
				zap.Any("panic", r),
			)
		}
	}()
	h(ctx, ev)
}
