package events

import (
	"context"
	"sync"

	"coinpool/models"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange   EventType = "balance_change"
	EventTypeAccountCreated  EventType = "account_created"
	EventTypeBetPlaced       EventType = "bet_placed"
	EventTypePoolSettled     EventType = "pool_settled"
	EventTypeRequestResolved EventType = "request_resolved"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID          int64
	OldBalance      int64
	NewBalance      int64
	TransactionType models.TransactionType
	ChangeAmount    int64
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// AccountCreatedEvent represents a new account creation
type AccountCreatedEvent struct {
	UserID      int64
	DisplayName string
	ReferrerID  *int64
	SignupBonus int64
}

func (e AccountCreatedEvent) Type() EventType {
	return EventTypeAccountCreated
}

// BetPlacedEvent represents a bet accepted into the open pool
type BetPlacedEvent struct {
	UserID int64
	BetID  int64
	Amount int64
	Side   models.BetSide
}

func (e BetPlacedEvent) Type() EventType {
	return EventTypeBetPlaced
}

// PoolSettledEvent carries the winner and loser lists out of a settlement
// so a front end can notify users after the transaction has committed
type PoolSettledEvent struct {
	WinningSide models.BetSide
	Winners     []models.SettledBet
	Losers      []models.SettledBet
	ProfitDelta int64
}

func (e PoolSettledEvent) Type() EventType {
	return EventTypePoolSettled
}

// RequestResolvedEvent represents a deposit or withdrawal leaving the
// pending state
type RequestResolvedEvent struct {
	RequestID int64
	UserID    int64
	Kind      models.RequestKind
	Status    models.RequestStatus
	Amount    int64
}

func (e RequestResolvedEvent) Type() EventType {
	return EventTypeRequestResolved
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// TransactionalBus holds pending events coupled to a unit of work and
// flushes them to the underlying bus only after a successful commit.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	// Events are processed independently of the transaction lifecycle, so
	// emission uses a background context rather than the (possibly expired)
	// transaction context.
	eventCtx := context.Background()

	for _, ev := range b.pending {
		log.WithField("eventType", ev.Type()).Debug("Emitting buffered event")
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard is called after rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
