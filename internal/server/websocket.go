package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fenggwsx/dmrelay/internal/protocol"
)

const wsControlTimeout = 5 * time.Second

// GET /ws
func (a *App) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn("ws upgrade failed", "err", err)
		return
	}

	ctx, cancel := context.WithCancel(a.baseCtx)
	defer cancel()

	writer := &wsWriter{conn: conn, timeout: a.cfg.WriteTimeout}
	session := newClientSession(writer, r.RemoteAddr, a.log, outboundQueueLimit)
	session.log.Debug("connection opened", "transport", "ws")

	defer func() {
		a.manager.Disconnect(context.WithoutCancel(ctx), session)
		session.close()
		session.log.Debug("connection closed", "transport", "ws")
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

	conn.SetReadLimit(int64(a.cfg.MaxFrameBytes))
	if a.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(a.cfg.ReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(a.cfg.ReadTimeout))
		})
		go writer.pingLoop(ctx, a.cfg.ReadTimeout/2)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				session.log.Debug("ws read", "err", err)
			}
			return
		}
		if a.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(a.cfg.ReadTimeout))
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			a.reject(session, env, fmt.Errorf("%w: %v", errMalformedFrame, err))
			continue
		}
		a.dispatch(ctx, session, env)
	}
}

type wsWriter struct {
	conn    *websocket.Conn
	timeout time.Duration
	mu      sync.Mutex
}

func (w *wsWriter) writeEnvelope(_ context.Context, env protocol.Envelope) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
			return err
		}
	}
	return w.conn.WriteJSON(env)
}

func (w *wsWriter) pingLoop(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsControlTimeout)); err != nil {
				return
			}
		}
	}
}

// abort closes the network connection without waiting for the write lock.
func (w *wsWriter) abort() error {
	return w.conn.Close()
}

func (w *wsWriter) close() error {
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsControlTimeout))
	return w.conn.Close()
}
