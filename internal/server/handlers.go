package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/fenggwsx/dmrelay/internal/chat"
	"github.com/fenggwsx/dmrelay/internal/protocol"
	"github.com/fenggwsx/dmrelay/internal/relay"
)

var (
	errInvalidPayload   = errors.New("invalid payload")
	errUnsupportedEvent = errors.New("unsupported event")
	errMalformedFrame   = errors.New("malformed envelope")
	errHandlerPanic     = errors.New("internal error")
)

// dispatch runs the handler for one inbound envelope. Failures never escape: they are logged
// and answered with an error event on the same connection.
func (a *App) dispatch(ctx context.Context, session *clientSession, env protocol.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			session.log.Error("handler panic", "event", env.Type, "panic", r)
			a.reject(session, env, errHandlerPanic)
		}
	}()

	var err error
	switch env.Type {
	case protocol.EventJoinRoom:
		err = a.handleJoin(session, env)
	case protocol.EventSend:
		err = a.handleSend(session, env)
	case protocol.EventLeaveRoom:
		err = a.handleLeave(ctx, session)
	default:
		err = fmt.Errorf("%w: %q", errUnsupportedEvent, env.Type)
	}
	if err != nil {
		a.reject(session, env, err)
	}
}

func (a *App) handleJoin(session *clientSession, env protocol.Envelope) error {
	req, err := decodeJoinRequest(env.Payload)
	if err != nil {
		return err
	}
	_, err = a.manager.Join(session, chat.UserID(req.Sender), chat.UserID(req.Receiver))
	return err
}

func (a *App) handleSend(session *clientSession, env protocol.Envelope) error {
	msg, err := decodeChatMessage(env.Payload)
	if err != nil {
		return err
	}
	return a.manager.Send(session, msg)
}

func (a *App) handleLeave(ctx context.Context, session *clientSession) error {
	return a.manager.Leave(context.WithoutCancel(ctx), session)
}

func (a *App) reject(session *clientSession, env protocol.Envelope, err error) {
	reason := rejectReason(err)
	if errors.Is(err, chat.ErrUnknownRoom) || errors.Is(err, errHandlerPanic) {
		session.log.Error("event rejected", "event", env.Type, "err", err)
	} else {
		session.log.Warn("event rejected", "event", env.Type, "err", err)
	}
	session.send(protocol.ErrorEnvelope(env, reason))
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, relay.ErrNotJoined):
		return "join room first"
	case errors.Is(err, relay.ErrMissingSender):
		return "sender required"
	case errors.Is(err, chat.ErrNotParticipant):
		return "sender is not in this room"
	case errors.Is(err, chat.ErrInvalidUser):
		return "invalid user id"
	case errors.Is(err, chat.ErrUnknownRoom):
		return "room unavailable"
	case errors.Is(err, errInvalidPayload):
		return "invalid payload"
	case errors.Is(err, errUnsupportedEvent):
		return "unsupported event"
	case errors.Is(err, errMalformedFrame):
		return "malformed envelope"
	default:
		return "internal error"
	}
}
