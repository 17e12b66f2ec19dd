package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/fenggwsx/dmrelay/internal/chat"
	"github.com/fenggwsx/dmrelay/internal/protocol"
)

// envelopeWriter writes one envelope to the underlying transport. close ends the connection
// gracefully and may block on the network; abort drops it immediately.
type envelopeWriter interface {
	writeEnvelope(ctx context.Context, env protocol.Envelope) error
	close() error
	abort() error
}

// clientSession tracks per-connection state and outbound delivery. It implements relay.Conn.
type clientSession struct {
	id        string
	remote    string
	log       *slog.Logger
	out       *outbox
	writer    envelopeWriter
	closeOnce sync.Once
}

func newClientSession(writer envelopeWriter, remote string, log *slog.Logger, queueLimit int) *clientSession {
	id := uuid.NewString()
	return &clientSession{
		id:     id,
		remote: remote,
		log:    log.With("conn", id, "remote", remote),
		out:    newOutbox(queueLimit),
		writer: writer,
	}
}

func (s *clientSession) ID() string { return s.id }

// Deliver queues msg as a SEND event.
func (s *clientSession) Deliver(msg chat.Message) {
	env, err := protocol.SendEnvelope(msg)
	if err != nil {
		s.log.Error("encode message", "err", err)
		return
	}
	s.send(env)
}

// Replay queues a room history as one batch of SEND events.
func (s *clientSession) Replay(history []chat.Message) {
	envs := make([]protocol.Envelope, 0, len(history))
	for _, msg := range history {
		env, err := protocol.SendEnvelope(msg)
		if err != nil {
			s.log.Error("encode message", "err", err)
			continue
		}
		envs = append(envs, env)
	}
	if err := s.out.pushAll(envs); err != nil {
		s.log.Debug("replay dropped", "err", err)
	}
}

// send runs under relay locks, so the overflow path must not touch the network.
func (s *clientSession) send(env protocol.Envelope) {
	err := s.out.push(env)
	switch {
	case err == nil:
	case errors.Is(err, errOutboxFull):
		s.log.Warn("outbound queue full, dropping connection")
		s.abort()
	default:
	}
}

// abort stops accepting envelopes and drops the transport without a close handshake. The
// read loop then fails and the connection is cleaned up on its own goroutine.
func (s *clientSession) abort() {
	s.out.close()
	if err := s.writer.abort(); err != nil {
		s.log.Debug("abort transport", "err", err)
	}
}

func (s *clientSession) writeLoop(ctx context.Context) error {
	for {
		batch, ok := s.out.next(ctx)
		if !ok {
			return ctx.Err()
		}
		for _, env := range batch {
			if err := s.writer.writeEnvelope(ctx, env); err != nil {
				return err
			}
		}
	}
}

// close stops accepting envelopes and shuts the transport down.
func (s *clientSession) close() {
	s.closeOnce.Do(func() {
		s.out.close()
		if err := s.writer.close(); err != nil {
			s.log.Debug("close transport", "err", err)
		}
	})
}
