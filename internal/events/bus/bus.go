// Package bus provides the event bus used to fan executor config changes out
// to gateways and other instances.
package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Keys every session event carries in Data.
const (
	KeySessionID = "session_id"
	KeyContextID = "context_id"
	KeyScope     = "scope"
)

// Event is a message on the bus. Data must survive a JSON round trip so the
// NATS bus delivers what the memory bus does.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func NewEvent(eventType, source string, data map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// SessionRef names the editing session an event belongs to.
type SessionRef struct {
	SessionID string
	ContextID string
	Scope     string
}

// NewSessionEvent is NewEvent with the session keys set in data.
func NewSessionEvent(eventType, source string, ref SessionRef, data map[string]interface{}) *Event {
	if data == nil {
		data = make(map[string]interface{}, 3)
	}
	data[KeySessionID] = ref.SessionID
	data[KeyContextID] = ref.ContextID
	data[KeyScope] = ref.Scope
	return NewEvent(eventType, source, data)
}

// SessionID returns the session the event belongs to, or "" for
// catalog-wide events.
func (e *Event) SessionID() string {
	if e == nil {
		return ""
	}
	id, _ := e.Data[KeySessionID].(string)
	return id
}

type EventHandler func(ctx context.Context, event *Event) error

type Subscription interface {
	Unsubscribe() error
	IsValid() bool
}

// EventBus publishes events on dotted subjects. Subscribe patterns accept
// NATS wildcards: "*" for one token and a trailing ">" for the rest.
type EventBus interface {
	Publish(ctx context.Context, subject string, event *Event) error
	Subscribe(subject string, handler EventHandler) (Subscription, error)
	Close()
	IsConnected() bool
}
