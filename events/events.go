package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBetPlaced       EventType = "bet_placed"
	EventTypeOddsGenerated   EventType = "odds_generated"
	EventTypeSessionResolved EventType = "session_resolved"
	EventTypeNightStarted    EventType = "night_started"
	EventTypeCreditRetried   EventType = "credit_retried"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BetPlacedEvent represents a bet accepted by the ledger
type BetPlacedEvent struct {
	BetID        int64
	SessionID    int64
	MemberID     int64
	CandidateID  int64
	Amount       int64
	OddsTimes100 int64
}

func (e BetPlacedEvent) Type() EventType {
	return EventTypeBetPlaced
}

// OddsGeneratedEvent represents a fresh odds sheet for a confirmed session
type OddsGeneratedEvent struct {
	SessionID int64
	BoardGame string
	// OddsTimes100 keyed by candidate member ID
	Odds map[int64]int64
}

func (e OddsGeneratedEvent) Type() EventType {
	return EventTypeOddsGenerated
}

// SessionResolvedEvent represents a completed settlement
type SessionResolvedEvent struct {
	SessionID      int64
	BoardGame      string
	WinnerMemberID *int64
	WinnerTeamName *string
	WinningBets    int
	LosingBets     int
	TotalPaidOut   int64
	// Rating deltas keyed by member ID
	RatingDeltas map[int64]int
}

func (e SessionResolvedEvent) Type() EventType {
	return EventTypeSessionResolved
}

// NightStartedEvent represents a game night flipping to started
type NightStartedEvent struct {
	GameNightID int64
	Attendees   int
}

func (e NightStartedEvent) Type() EventType {
	return EventTypeNightStarted
}

// CreditRetriedEvent represents a wallet credit delivered by the retry worker
type CreditRetriedEvent struct {
	SessionID int64
	MemberID  int64
	Amount    int64
	Attempts  int
}

func (e CreditRetriedEvent) Type() EventType {
	return EventTypeCreditRetried
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

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking the emitting transaction
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds pending events coupled to a unit of work and flushes
// them to the underlying bus only after the transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

// NewTransactionalBus creates a transactional wrapper around a bus
func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes an event until Flush
func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events. Called after a successful commit.
func (b *TransactionalBus) Flush(ctx context.Context) {
	// Events outlive the transaction context that produced them
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops pending events. Called after rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
