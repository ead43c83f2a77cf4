package notify

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"taskify/internal/model"

	"github.com/nats-io/nats.go"
)

// Publisher is the part of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// NATSNotifier publishes group events as JSON on "<prefix>.<event type>".
// Failures are logged and swallowed: delivery is best-effort.
type NATSNotifier struct {
	pub    Publisher
	prefix string
	logger *log.Logger
}

func NewNATSNotifier(pub Publisher, prefix string) *NATSNotifier {
	return &NATSNotifier{
		pub:    pub,
		prefix: prefix,
		logger: log.New(os.Stdout, "[notify] ", log.LstdFlags),
	}
}

// Connect dials the NATS server at url.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("taskify"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[notify] disconnected: %v", err)
			}
		}),
	)
}

func (n *NATSNotifier) Subject(eventType string) string {
	if n.prefix == "" {
		return eventType
	}
	return n.prefix + "." + eventType
}

func (n *NATSNotifier) Publish(_ context.Context, ev model.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		n.logger.Printf("encode %s: %v", ev.Type, err)
		return
	}
	if err := n.pub.Publish(n.Subject(ev.Type), data); err != nil {
		n.logger.Printf("publish %s for %s: %v", ev.Type, ev.Username, err)
	}
}
