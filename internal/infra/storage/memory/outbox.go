package memory

import (
	"context"
	"time"

	appoutbox "deskrent/internal/app/outbox"
	"deskrent/internal/app/uow"
	infraoutbox "deskrent/internal/infra/outbox"
)

type outboxEntry struct {
	doc infraoutbox.EventDocument
}

func newOutboxEntry(rec appoutbox.EventRecord) *outboxEntry {
	headers := make(map[string]string, len(rec.Headers))
	for k, v := range rec.Headers {
		headers[k] = v
	}
	return &outboxEntry{doc: infraoutbox.EventDocument{
		ID:         rec.ID,
		Name:       rec.Name,
		Payload:    append([]byte(nil), rec.Payload...),
		OccurredAt: rec.OccurredAt,
		Aggregate:  rec.Aggregate,
		Headers:    headers,
		State:      infraoutbox.StateNew,
	}}
}

// Outbox stages records on the unit of work found in ctx; they reach the store on Commit.
// Outside a unit records are appended immediately.
type Outbox struct {
	store *Store
	now   func() time.Time
}

func NewOutbox(store *Store) *Outbox {
	return &Outbox{store: store, now: time.Now}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok && mu.store == o.store {
			if err := mu.writable(); err != nil {
				return err
			}
			mu.events = append(mu.events, record)
			return nil
		}
	}
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	o.store.outbox = append(o.store.outbox, newOutboxEntry(record))
	return nil
}

func (o *Outbox) Flush(context.Context) error {
	return nil
}

func (o *Outbox) Claim(_ context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	now := o.now()
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	for _, entry := range o.store.outbox {
		if entry.doc.State != infraoutbox.StateNew && entry.doc.State != infraoutbox.StateFailed {
			continue
		}
		if entry.doc.NextAttempt.After(now) {
			continue
		}
		entry.doc.State = infraoutbox.StateClaimed
		entry.doc.ClaimedBy = workerID
		entry.doc.ClaimedAt = now
		doc := entry.doc
		return &doc, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(_ context.Context, id string) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	if entry := o.find(id); entry != nil {
		entry.doc.State = infraoutbox.StateSent
		entry.doc.SentAt = o.now()
	}
	return nil
}

func (o *Outbox) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	if entry := o.find(id); entry != nil {
		entry.doc.State = infraoutbox.StateFailed
		entry.doc.NextAttempt = next
		entry.doc.LastError = errMsg
		entry.doc.Attempts++
	}
	return nil
}

// Events returns a snapshot of every committed outbox row in insertion order.
func (o *Outbox) Events() []infraoutbox.EventDocument {
	o.store.mu.RLock()
	defer o.store.mu.RUnlock()
	out := make([]infraoutbox.EventDocument, 0, len(o.store.outbox))
	for _, entry := range o.store.outbox {
		out = append(out, entry.doc)
	}
	return out
}

func (o *Outbox) find(id string) *outboxEntry {
	for _, entry := range o.store.outbox {
		if entry.doc.ID == id {
			return entry
		}
	}
	return nil
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Store = (*Outbox)(nil)
)
