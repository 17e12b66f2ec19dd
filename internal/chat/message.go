package chat

import "encoding/json"

// Message is one entry of a room history. Payload is opaque JSON passed through unmodified.
type Message struct {
	Sender  UserID          `json:"sender"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (m Message) clone() Message {
	if m.Payload != nil {
		m.Payload = append(json.RawMessage(nil), m.Payload...)
	}
	return m
}
