// Package events publishes analytics events to NATS.
package events

import (
	"encoding/json" // JSON encoding
	"sync"          // Mutex
	"time"          // Timestamps and durations

	"github.com/nats-io/nats.go" // NATS client
	"github.com/sirupsen/logrus" // Logging library
)

// SubjectPrefix is prepended to every analytics subject
const SubjectPrefix = "qiclife.analytics."

// Event is the payload published for one analytics event
type Event struct {
	ID         string          `json:"id"`                   // Stored event ID
	UserID     string          `json:"user_id,omitempty"`    // Empty for anonymous events
	EventType  string          `json:"event_type"`           // Also the subject suffix
	Properties json.RawMessage `json:"properties,omitempty"` // Event properties as stored
	CreatedAt  time.Time       `json:"created_at"`           // Event time
}

// Publisher sends analytics events somewhere
type Publisher interface {
	Publish(e Event) error
	Close()
}

// NopPublisher drops every event
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(Event) error { return nil }

// Close does nothing
func (NopPublisher) Close() {}

// NATSPublisher publishes events on qiclife.analytics.<event_type>
type NATSPublisher struct {
	nc *nats.Conn
}

// Connect opens a NATS connection that reconnects on its own
func Connect(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("qic-life-api"), // Client name shown by the server
		nats.MaxReconnects(-1),    // Reconnect forever
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logrus.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logrus.WithField("url", c.ConnectedUrl()).Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}
	logrus.WithField("url", url).Info("Connected to NATS")
	return &NATSPublisher{nc: nc}, nil
}

// Publish marshals the event and publishes it
func (p *NATSPublisher) Publish(e Event) error {
	if p.nc == nil || !p.nc.IsConnected() {
		return nats.ErrConnectionClosed // Caller logs and moves on
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.nc.Publish(SubjectPrefix+e.EventType, data) // One subject per event type
}

// Close drains and closes the connection
func (p *NATSPublisher) Close() {
	if p.nc != nil && !p.nc.IsClosed() {
		// Flush pending messages, close hard if that fails
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
		}
	}
}

// MemoryPublisher keeps published events in memory
type MemoryPublisher struct {
	mu     sync.Mutex // Guards events
	events []Event    // Published events in order
}

// Publish stores the event
func (m *MemoryPublisher) Publish(e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// Close does nothing
func (m *MemoryPublisher) Close() {}

// Events returns a copy of the stored events
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
