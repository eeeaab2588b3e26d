// Package consumers drives Pub/Sub subscriptions for the worker. A Runner owns the
// receive loop, decoding and per-consumer event dedupe, and hands decoded envelopes to a Handler.
package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/brewcart/brewcart-backend/pkg/logger"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/outbox/idempotency"
	"github.com/google/uuid"
)

// Envelope is a decoded domain event as delivered by the outbox publisher.
type Envelope struct {
	EventID       uuid.UUID
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	Actor         *outbox.ActorRef
	Data          json.RawMessage
}

// Decode unmarshals the event payload into out.
func (e Envelope) Decode(out any) error {
	if len(e.Data) == 0 {
		return errors.New("event payload empty")
	}
	return json.Unmarshal(e.Data, out)
}

// Handler processes one event type family. Events lists the event types it accepts;
// everything else is acked without reaching Handle.
type Handler interface {
	Name() string
	Events() []enums.OutboxEventType
	Handle(ctx context.Context, envelope Envelope) error
}

type idempotencyChecker interface {
	Claim(ctx context.Context, key idempotency.Key) (bool, error)
	Release(ctx context.Context, key idempotency.Key) error
}

// Runner consumes one subscription for one handler.
type Runner struct {
	subscription *gcppubsub.Subscriber
	handler      Handler
	manager      idempotencyChecker
	logg         *logger.Logger
	accepts      map[enums.OutboxEventType]struct{}
}

// NewRunner wires a handler to its subscription.
func NewRunner(subscription *gcppubsub.Subscriber, handler Handler, manager idempotencyChecker, logg *logger.Logger) (*Runner, error) {
	if subscription == nil {
		return nil, errors.New("subscription is required")
	}
	r, err := newRunner(handler, manager, logg)
	if err != nil {
		return nil, err
	}
	r.subscription = subscription
	return r, nil
}

func newRunner(handler Handler, manager idempotencyChecker, logg *logger.Logger) (*Runner, error) {
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	accepts := make(map[enums.OutboxEventType]struct{})
	for _, et := range handler.Events() {
		accepts[et] = struct{}{}
	}
	return &Runner{handler: handler, manager: manager, logg: logg, accepts: accepts}, nil
}

// Name reports the handler name, used for logs and dedupe keys.
func (r *Runner) Name() string {
	return r.handler.Name()
}

// Run receives messages until ctx is canceled.
func (r *Runner) Run(ctx context.Context) error {
	return r.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if r.process(innerCtx, msg.ID, msg.Attributes, msg.Data).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	nack bool
}

func (r *Runner) process(ctx context.Context, messageID string, attrs map[string]string, data []byte) processResult {
	name := r.handler.Name()
	fields := map[string]any{
		"consumer":   name,
		"message_id": messageID,
		"event_type": attrs["event_type"],
	}
	logCtx := r.logg.WithFields(ctx, fields)

	eventType, err := enums.ParseOutboxEventType(strings.TrimSpace(attrs["event_type"]))
	if err != nil {
		r.logg.Warn(logCtx, "unknown event type")
		return processResult{}
	}
	if _, ok := r.accepts[eventType]; !ok {
		r.logg.Debug(logCtx, "event not handled by consumer")
		return processResult{}
	}

	envelope, err := buildEnvelope(eventType, attrs, data)
	if err != nil {
		fields["error"] = err.Error()
		r.logg.Warn(r.logg.WithFields(ctx, fields), "invalid event envelope")
		return processResult{}
	}
	logCtx = r.logg.WithFields(ctx, map[string]any{
		"event_id":     envelope.EventID.String(),
		"aggregate_id": envelope.AggregateID,
	})

	key := idempotency.EventKey(name, envelope.EventID)
	claimed, err := r.manager.Claim(logCtx, key)
	if err != nil {
		r.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !claimed {
		r.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	if err := r.handler.Handle(logCtx, envelope); err != nil {
		r.logg.Error(logCtx, "handler error", err)
		if relErr := r.manager.Release(logCtx, key); relErr != nil {
			r.logg.Error(logCtx, "release idempotency marker", relErr)
		}
		return processResult{nack: true}
	}
	return processResult{}
}

func buildEnvelope(eventType enums.OutboxEventType, attrs map[string]string, data []byte) (Envelope, error) {
	stored, eventID, err := outbox.DecodeEnvelope(data)
	if err != nil {
		if eventID, err = uuid.Parse(strings.TrimSpace(attrs["event_id"])); err != nil {
			return Envelope{}, fmt.Errorf("decode payload envelope: %w", err)
		}
		if len(stored.Data) == 0 {
			return Envelope{}, errors.New("payload envelope missing data")
		}
	}

	aggregateType, err := enums.ParseOutboxAggregateType(strings.TrimSpace(attrs["aggregate_type"]))
	if err != nil {
		return Envelope{}, fmt.Errorf("aggregate_type: %w", err)
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if created := strings.TrimSpace(attrs["created_at"]); created != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, created); err == nil {
				occurredAt = parsed
			}
		}
	}

	return Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   strings.TrimSpace(attrs["aggregate_id"]),
		OccurredAt:    occurredAt.UTC(),
		Actor:         stored.Actor,
		Data:          stored.Data,
	}, nil
}
