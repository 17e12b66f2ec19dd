package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fenggwsx/dmrelay/internal/chat"
)

// EventType names the event carried by an envelope.
type EventType string

const (
	EventJoinRoom  EventType = "joinRoom"
	EventSend      EventType = "SEND"
	EventLeaveRoom EventType = "leaveRoom"
	EventError     EventType = "error"
)

// Envelope wraps every event sent over the wire.
type Envelope struct {
	ID        string          `json:"id,omitempty"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// JoinRoomRequest asks to join the room shared by Sender and Receiver.
type JoinRoomRequest struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
}

// ErrorPayload reports why an inbound event was rejected.
type ErrorPayload struct {
	ReferenceID string    `json:"reference_id,omitempty"`
	Event       EventType `json:"event"`
	Reason      string    `json:"reason"`
}

// NewEnvelope builds an outbound envelope with a fresh id.
func NewEnvelope(t EventType, payload any) (Envelope, error) {
	env := Envelope{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
	}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return env, err
	}
	env.Payload = data
	return env, nil
}

// SendEnvelope wraps a chat message as a SEND event.
func SendEnvelope(msg chat.Message) (Envelope, error) {
	return NewEnvelope(EventSend, msg)
}

// ErrorEnvelope builds the reply for a rejected event.
func ErrorEnvelope(ref Envelope, reason string) Envelope {
	env, _ := NewEnvelope(EventError, ErrorPayload{
		ReferenceID: ref.ID,
		Event:       ref.Type,
		Reason:      reason,
	})
	return env
}
