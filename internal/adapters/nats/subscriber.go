package natsadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/osm2svg/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn       *nats.Conn
	js         nats.JetStreamContext
	subs       []*nats.Subscription
	maxDeliver int
}

// NewSubscriber connects to NATS. Messages are redelivered at most maxDeliver
// times before JetStream gives up on them.
func NewSubscriber(url string, maxDeliver int) (*Subscriber, error) {
	conn, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	if maxDeliver <= 0 {
		maxDeliver = 3
	}
	return &Subscriber{conn: conn, js: js, maxDeliver: maxDeliver}, nil
}

func (s *Subscriber) SubscribeRenderRequests(ctx context.Context, handler func(ctx context.Context, req *domain.RenderRequest) error) error {
	sub, err := s.js.Subscribe(SubjectRequest, func(msg *nats.Msg) {
		var req domain.RenderRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			// A payload that cannot be decoded never will be.
			slog.Warn("dropping malformed render request", "error", err)
			_ = msg.Term()
			return
		}
		dispatch(ctx, msg, func(ctx context.Context) error { return handler(ctx, &req) })
	},
		nats.Durable("render-worker"),
		nats.ManualAck(),
		nats.MaxDeliver(s.maxDeliver),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Subscriber) SubscribeRenderCompleted(ctx context.Context, handler func(ctx context.Context, ev *domain.RenderCompleted) error) error {
	sub, err := s.js.Subscribe(subjectCompleted+".>", func(msg *nats.Msg) {
		var ev domain.RenderCompleted
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			slog.Warn("dropping malformed render completion", "error", err)
			_ = msg.Term()
			return
		}
		dispatch(ctx, msg, func(ctx context.Context) error { return handler(ctx, &ev) })
	},
		nats.Durable("render-completed"),
		nats.ManualAck(),
		nats.MaxDeliver(s.maxDeliver),
		nats.DeliverNew(),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func dispatch(ctx context.Context, msg *nats.Msg, fn func(ctx context.Context) error) {
	if err := fn(ctx); err != nil {
		slog.Warn("event handler failed", "subject", msg.Subject, "error", err)
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
