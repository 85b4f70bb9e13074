package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/osm2svg/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the render streams exist.
func NewPublisher(url string) (*Publisher, error) {
	conn, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, js: js}, nil
}

// PublishRenderRequest enqueues a fetch-and-render request. The request ID is
// used as the JetStream message ID so retried publishes are deduplicated.
func (p *Publisher) PublishRenderRequest(ctx context.Context, req *domain.RenderRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode render request: %w", err)
	}
	_, err = p.js.Publish(SubjectRequest, data, nats.MsgId(req.ID), nats.Context(ctx))
	return err
}

func (p *Publisher) PublishRenderCompleted(ctx context.Context, ev *domain.RenderCompleted) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode render completion: %w", err)
	}
	_, err = p.js.Publish(CompletedSubject(ev.RequestID), data, nats.Context(ctx))
	return err
}

// Connected reports whether the underlying connection is up.
func (p *Publisher) Connected() bool {
	return p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
