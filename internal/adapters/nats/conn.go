package natsadapter

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// RequestStream holds pending render requests until a worker acks them.
	RequestStream = "OSM2SVG_REQUESTS"
	// CompletedStream holds completion notices for API clients and auditing.
	CompletedStream = "OSM2SVG_COMPLETED"

	SubjectRequest   = "osm2svg.render.request"
	subjectCompleted = "osm2svg.render.completed"
)

// CompletedSubject is the subject a completion for requestID is published on.
func CompletedSubject(requestID string) string {
	return subjectCompleted + "." + requestID
}

// RawConn creates a plain NATS connection with reconnect enabled.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("osm2svg"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

func streams() []nats.StreamConfig {
	return []nats.StreamConfig{
		{
			Name:      RequestStream,
			Subjects:  []string{SubjectRequest},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      CompletedStream,
			Subjects:  []string{subjectCompleted + ".>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    7 * 24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}
}

func connect(url string) (*nats.Conn, nats.JetStreamContext, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}
	for _, cfg := range streams() {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				conn.Close()
				return nil, nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return conn, js, nil
}
