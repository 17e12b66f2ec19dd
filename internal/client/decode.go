package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fenggwsx/dmrelay/internal/chat"
	"github.com/fenggwsx/dmrelay/internal/protocol"
)

var errEmptyPayload = errors.New("payload empty")

func decodeChatMessage(env protocol.Envelope) (chat.Message, error) {
	var msg chat.Message
	if len(env.Payload) == 0 {
		return msg, errEmptyPayload
	}
	if err := json.Unmarshal(env.Payload, &msg); err != nil {
		return msg, err
	}
	return msg, nil
}

func decodeErrorPayload(env protocol.Envelope) (protocol.ErrorPayload, error) {
	var p protocol.ErrorPayload
	if len(env.Payload) == 0 {
		return p, errEmptyPayload
	}
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return p, err
	}
	return p, nil
}

// textPayload encodes typed text as a JSON string payload.
func textPayload(text string) json.RawMessage {
	data, _ := json.Marshal(text)
	return data
}

// formatMessage renders msg as one chat line. String payloads are shown as text, anything
// else as compact JSON.
func formatMessage(msg chat.Message) string {
	var text string
	if err := json.Unmarshal(msg.Payload, &text); err == nil {
		return fmt.Sprintf("%s: %s", msg.Sender, text)
	}
	return fmt.Sprintf("%s: %s", msg.Sender, string(msg.Payload))
}
