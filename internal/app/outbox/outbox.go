package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"deskrent/internal/domain/shared/events"
)

type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// Outbox stores event records inside the caller's unit of work.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	idGen := e.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	return EventRecord{
		ID:         idGen(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{"content-type": "application/json"},
	}, nil
}

func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Drainer is implemented by aggregates embedding events.EventRecorder.
type Drainer interface {
	DrainEvents() []events.DomainEvent
}

// RecordAggregates drains the pending events of every aggregate, in order, into the outbox.
func RecordAggregates(ctx context.Context, box Outbox, encoder EventEncoder, aggregates ...Drainer) error {
	var evs []events.DomainEvent
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		evs = append(evs, agg.DrainEvents()...)
	}
	return RecordDomainEvents(ctx, box, encoder, evs)
}
