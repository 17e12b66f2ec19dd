package server

import (
	"encoding/json"

	"github.com/fenggwsx/dmrelay/internal/chat"
	"github.com/fenggwsx/dmrelay/internal/protocol"
)

func decodeJoinRequest(payload json.RawMessage) (protocol.JoinRoomRequest, error) {
	var req protocol.JoinRoomRequest
	if len(payload) == 0 {
		return req, errInvalidPayload
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, errInvalidPayload
	}
	return req, nil
}

func decodeChatMessage(payload json.RawMessage) (chat.Message, error) {
	var msg chat.Message
	if len(payload) == 0 {
		return msg, errInvalidPayload
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, errInvalidPayload
	}
	return msg, nil
}
