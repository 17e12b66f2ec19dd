package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fenggwsx/dmrelay/internal/config"
	"github.com/fenggwsx/dmrelay/internal/protocol"
	"github.com/fenggwsx/dmrelay/internal/query"
	"github.com/fenggwsx/dmrelay/internal/relay"
)

// outboundQueueLimit caps the envelopes waiting for a slow connection.
const outboundQueueLimit = 1 << 14

// App coordinates network listeners, session lifecycle, and room routing.
type App struct {
	cfg      config.ServerConfig
	log      *slog.Logger
	manager  *relay.Manager
	queries  *query.Service
	upgrader websocket.Upgrader

	// baseCtx bounds the lifetime of hijacked WebSocket connections.
	baseCtx context.Context

	listener     net.Listener
	httpListener net.Listener
	httpSrv      *http.Server
	closeOnce    sync.Once
	ready        chan struct{}
}

// NewApp constructs a server instance using the provided dependencies.
func NewApp(cfg config.ServerConfig, log *slog.Logger, manager *relay.Manager, queries *query.Service) *App {
	a := &App{
		cfg:     cfg,
		log:     log,
		manager: manager,
		queries: queries,
		baseCtx: context.Background(),
		ready:   make(chan struct{}),
	}
	a.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     a.checkOrigin,
	}
	return a
}

// Run serves the TCP relay and the HTTP surface until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	a.baseCtx = ctx

	listener, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	a.listener = listener

	httpListener, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		_ = listener.Close()
		return fmt.Errorf("listen http: %w", err)
	}
	a.httpListener = httpListener
	a.httpSrv = &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	close(a.ready)

	errCh := make(chan error, 2)

	go func() {
		<-ctx.Done()
		a.closeOnce.Do(func() {
			_ = a.listener.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = a.httpSrv.Shutdown(shutdownCtx)
		})
	}()

	go func() {
		a.log.Info("relay listening", "addr", listener.Addr().String())
		for {
			conn, err := a.listener.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					errCh <- nil
					return
				}
				errCh <- err
				return
			}
			go a.handleConnection(ctx, conn)
		}
	}()

	go func() {
		a.log.Info("http listening", "addr", httpListener.Addr().String())
		if err := a.httpSrv.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	first := <-errCh
	a.closeOnce.Do(func() {
		_ = a.listener.Close()
		_ = a.httpSrv.Close()
	})
	second := <-errCh
	return errors.Join(first, second)
}

// Addrs returns the bound TCP and HTTP addresses. It waits until Run is listening.
func (a *App) Addrs() (relayAddr, httpAddr net.Addr) {
	<-a.ready
	return a.listener.Addr(), a.httpListener.Addr()
}

func (a *App) handleConnection(parentCtx context.Context, conn net.Conn) {
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	session := newClientSession(&tcpWriter{
		conn:    conn,
		encoder: protocol.NewEncoder(conn),
		timeout: a.cfg.WriteTimeout,
	}, conn.RemoteAddr().String(), a.log, outboundQueueLimit)
	session.log.Debug("connection opened", "transport", "tcp")

	defer func() {
		a.manager.Disconnect(context.WithoutCancel(ctx), session)
		session.close()
		session.log.Debug("connection closed", "transport", "tcp")
	}()

	go func() {
		<-ctx.Done()
		session.close()
	}()
	go func() {
		if err := session.writeLoop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			session.log.Debug("write loop", "err", err)
		}
		cancel()
	}()

	decoder := protocol.NewDecoder(conn, a.cfg.MaxFrameBytes)
	for {
		if a.cfg.TCPIdleTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(a.cfg.TCPIdleTimeout)); err != nil {
				session.log.Debug("set read deadline", "err", err)
				return
			}
		}
		env, err := decoder.Decode(ctx)
		if err != nil {
			if protocol.IsMalformed(err) {
				a.reject(session, env, fmt.Errorf("%w: %v", errMalformedFrame, err))
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			session.log.Info("decode", "err", err)
			return
		}

		a.dispatch(ctx, session, env)
	}
}

type tcpWriter struct {
	conn    net.Conn
	encoder *protocol.Encoder
	timeout time.Duration
}

func (w *tcpWriter) writeEnvelope(ctx context.Context, env protocol.Envelope) error {
	if w.timeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
			return err
		}
	}
	return w.encoder.Encode(ctx, env)
}

func (w *tcpWriter) close() error {
	return w.conn.Close()
}

func (w *tcpWriter) abort() error {
	return w.conn.Close()
}
