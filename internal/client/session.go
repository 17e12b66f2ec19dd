package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/fenggwsx/dmrelay/internal/protocol"
)

const (
	dialTimeout   = 5 * time.Second
	inboundBuffer = 64
)

// Session manages the client side of one relay connection.
type Session struct {
	addr     string
	conn     net.Conn
	encoder  *protocol.Encoder
	decoder  *protocol.Decoder
	messages chan protocol.Envelope
	cancelFn context.CancelFunc

	mu        sync.Mutex
	closeOnce sync.Once
}

// NewSession prepares a session for addr. Nothing is dialed until Connect.
func NewSession(addr string) *Session {
	return &Session{addr: addr, messages: make(chan protocol.Envelope, inboundBuffer)}
}

// Addr returns the server address of the session.
func (s *Session) Addr() string { return s.addr }

// Connect dials the server and starts delivering inbound envelopes on Messages.
func (s *Session) Connect(ctx context.Context) error {
	if s.addr == "" {
		return errors.New("no server address")
	}
	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.conn = conn
	s.encoder = protocol.NewEncoder(conn)
	s.decoder = protocol.NewDecoder(conn, 0)

	readCtx, cancel := context.WithCancel(context.Background())
	s.cancelFn = cancel
	go s.readLoop(readCtx)
	return nil
}

// Messages yields inbound envelopes. The channel is closed when the connection ends.
func (s *Session) Messages() <-chan protocol.Envelope {
	return s.messages
}

// Send writes env to the server.
func (s *Session) Send(ctx context.Context, env protocol.Envelope) error {
	if s.encoder == nil {
		return net.ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encoder.Encode(ctx, env)
}

// Close terminates the session.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.cancelFn != nil {
			s.cancelFn()
		}
		if s.conn != nil {
			err = s.conn.Close()
		}
	})
	return err
}

func (s *Session) readLoop(ctx context.Context) {
	defer close(s.messages)
	for {
		env, err := s.decoder.Decode(ctx)
		if err != nil {
			if protocol.IsMalformed(err) {
				continue
			}
			return
		}
		select {
		case s.messages <- env:
		case <-ctx.Done():
			return
		}
	}
}
