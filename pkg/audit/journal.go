// Package audit records what happened to orders and carts after the fact.
// Writes go through an actor mailbox so that request handlers never wait on
// the audit store and events of one process are persisted in send order.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ActionOrderPlaced        = "order.placed"
	ActionOrderStatusChanged = "order.status_changed"
	ActionOrderShipping      = "order.shipping_updated"
	ActionStockAdjusted      = "inventory.adjusted"
	ActionCartReconciled     = "cart.reconciled"
)

type Event struct {
	ID        string                 `json:"id"`
	Action    string                 `json:"action"`
	EntityID  string                 `json:"entity_id"`
	ActorID   string                 `json:"actor_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Sink persists events.
type Sink interface {
	WriteAudit(ctx context.Context, evt Event) error
}

// Reader returns the trail of one entity, newest first.
type Reader interface {
	AuditTrail(ctx context.Context, entityID string, limit int64) ([]Event, error)
}

// Recorder is what the services depend on.
type Recorder interface {
	Record(evt Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Record(Event) {}

// Journal is a Recorder backed by a single actor that drains events into a
// Sink.
type Journal struct {
	system *actor.ActorSystem
	pid    *actor.PID
	logger *zap.Logger
}

func NewJournal(sink Sink, logger *zap.Logger, writeTimeout time.Duration) (*Journal, error) {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return &journalActor{sink: sink, logger: logger, timeout: writeTimeout}
	})

	pid, err := system.Root.SpawnNamed(props, "audit-journal")
	if err != nil {
		system.Shutdown()
		return nil, fmt.Errorf("failed to spawn audit journal: %w", err)
	}

	return &Journal{system: system, pid: pid, logger: logger}, nil
}

func (j *Journal) Record(evt Event) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	j.system.Root.Send(j.pid, &evt)
}

// Close waits for queued events to be written, then stops the actor system.
func (j *Journal) Close() error {
	err := j.system.Root.PoisonFuture(j.pid).Wait()
	j.system.Shutdown()
	if err != nil {
		return fmt.Errorf("audit journal drain: %w", err)
	}
	return nil
}

type journalActor struct {
	sink    Sink
	logger  *zap.Logger
	timeout time.Duration
}

func (a *journalActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *Event:
		wctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := a.sink.WriteAudit(wctx, *msg); err != nil {
			a.logger.Error("Failed to write audit event",
				zap.String("action", msg.Action),
				zap.String("entity_id", msg.EntityID),
				zap.Error(err))
		}

	case *actor.Started:
		a.logger.Info("Audit journal started")

	case *actor.Stopping:
		a.logger.Info("Audit journal stopping")
	}
}
