package audit

import (
	"context"
	"time"

	id "crest/pkg/domain"
)

// Publisher captures structured audit events. It is append-only and uses the
// store for persistence so tests can swap sinks easily. An optional sink
// mirrors events to an external stream (Kafka) without blocking the caller's
// happy path: sink failures are the sink's problem, not the emitter's.
//
// With an inbox configured, Emit hands the event to the channel Worker
// instead of writing the store inline; a full inbox falls back to the inline
// write so events are never dropped.
type Publisher struct {
	store Store
	sink  Sink
	inbox chan<- Event
}

// Sink mirrors events to an external system.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

type PublisherOption func(*Publisher)

func WithSink(sink Sink) PublisherOption {
	return func(p *Publisher) { p.sink = sink }
}

// WithInbox makes Emit asynchronous through the given channel. A Worker must
// be draining it.
func WithInbox(inbox chan<- Event) PublisherOption {
	return func(p *Publisher) { p.inbox = inbox }
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := p.persist(ctx, event); err != nil {
		return err
	}
	if p.sink != nil {
		_ = p.sink.Publish(ctx, event)
	}
	return nil
}

func (p *Publisher) persist(ctx context.Context, event Event) error {
	if p.inbox != nil {
		select {
		case p.inbox <- event:
			return nil
		default:
		}
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]Event, error) {
	return p.store.ListByUser(ctx, userID)
}
