package client

import (
	"github.com/fenggwsx/dmrelay/internal/protocol"
)

func (a *App) handleSessionEnvelope(env protocol.Envelope) {
	switch env.Type {
	case protocol.EventSend:
		msg, err := decodeChatMessage(env)
		if err != nil {
			a.logErrorf("Failed to decode message: %v", err)
			return
		}
		line := formatMessage(msg)
		if msg.Sender == a.user {
			line = a.styles.self.Render(line)
		}
		a.appendChatLine(line)
	case protocol.EventError:
		p, err := decodeErrorPayload(env)
		if err != nil {
			a.logErrorf("Failed to decode error: %v", err)
			return
		}
		a.logErrorf("%s rejected: %s", p.Event, p.Reason)
	default:
		a.logErrorf("Received %s event", string(env.Type))
	}
}
