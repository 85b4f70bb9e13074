package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/osm2svg/internal/adapters/nats"
)

const wsPingInterval = 30 * time.Second

// wsMessage is sent from client to follow or unfollow render requests.
type wsMessage struct {
	Action    string `json:"action"`     // "subscribe" | "unsubscribe"
	RequestID string `json:"request_id"` // "" or "*" = every request
}

// completedSubject maps a client request ID onto the NATS subject carrying
// its completion.
func completedSubject(requestID string) string {
	if requestID == "" || requestID == "*" {
		return natsadapter.CompletedSubject(">")
	}
	return natsadapter.CompletedSubject(requestID)
}

// relay is the per-connection state of the completion feed. A request
// completes once, so a subscription to a single request ends with its
// completion; the wildcard subscription stays until the client leaves.
type relay struct {
	conn *websocket.Conn
	nc   *nats.Conn

	writeMu sync.Mutex
	subsMu  sync.Mutex
	subs    map[string]*nats.Subscription
}

func (r *relay) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.write(websocket.TextMessage, data)
}

func (r *relay) write(kind int, data []byte) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.conn.WriteMessage(kind, data)
}

func (r *relay) status(status, subject string) {
	_ = r.send(map[string]string{"status": status, "subject": subject})
}

func (r *relay) fail(msg string) {
	_ = r.send(map[string]string{"error": msg})
}

func (r *relay) subscribe(requestID string) {
	subject := completedSubject(requestID)
	if r.nc == nil {
		r.fail("event stream not configured")
		return
	}

	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	if _, ok := r.subs[subject]; ok {
		r.status("already subscribed", subject)
		return
	}

	once := requestID != "" && requestID != "*"
	sub, err := r.nc.Subscribe(subject, func(msg *nats.Msg) {
		_ = r.send(json.RawMessage(msg.Data))
		if once {
			r.drop(subject)
			r.status("completed", subject)
		}
	})
	if err != nil {
		r.fail("subscribe failed: " + err.Error())
		return
	}
	r.subs[subject] = sub
	r.status("subscribed", subject)
}

func (r *relay) unsubscribe(requestID string) {
	subject := completedSubject(requestID)
	if !r.drop(subject) {
		r.fail("not subscribed to " + subject)
		return
	}
	r.status("unsubscribed", subject)
}

// drop removes the subscription on subject and reports whether there was one.
func (r *relay) drop(subject string) bool {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	sub, ok := r.subs[subject]
	if !ok {
		return false
	}
	_ = sub.Unsubscribe()
	delete(r.subs, subject)
	return true
}

func (r *relay) close() int {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	n := len(r.subs)
	for subject, sub := range r.subs {
		_ = sub.Unsubscribe()
		delete(r.subs, subject)
	}
	return n
}

func (r *relay) keepAlive(done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := r.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// WebSocketHandler relays render completion events to connected clients.
// Clients send {"action":"subscribe","request_id":"<id>"} for the requests
// they queued; nothing is relayed until the first subscription.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		log := slog.With("remote", c.RemoteAddr().String())
		log.Debug("ws client connected")

		r := &relay{conn: c, nc: nc, subs: make(map[string]*nats.Subscription)}
		done := make(chan struct{})
		go r.keepAlive(done)

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				r.fail("invalid JSON")
				continue
			}
			switch m.Action {
			case "subscribe":
				r.subscribe(m.RequestID)
			case "unsubscribe":
				r.unsubscribe(m.RequestID)
			default:
				r.fail("unknown action: " + m.Action)
			}
		}

		close(done)
		log.Debug("ws client disconnected", "subscriptions", r.close())
	}
}
