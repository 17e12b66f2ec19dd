package client

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/fenggwsx/dmrelay/internal/chat"
	"github.com/fenggwsx/dmrelay/internal/config"
	"github.com/fenggwsx/dmrelay/internal/protocol"
)

func testConfig(addr string) config.ClientConfig {
	return config.ClientConfig{ServerAddr: addr, RawPrefix: "/", CommandPrefix: '/'}
}

// fakeServer accepts one connection and exposes its codec.
type fakeServer struct {
	ln    net.Listener
	conns chan net.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	s := &fakeServer{ln: ln, conns: make(chan net.Conn, 1)}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		s.conns <- conn
	}()
	return s
}

func (s *fakeServer) accept(t *testing.T) net.Conn {
	t.Helper()
	select {
	case conn := <-s.conns:
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no connection accepted")
		return nil
	}
}

func connectedApp(t *testing.T) (*App, net.Conn) {
	t.Helper()
	srv := newFakeServer(t)
	app := NewApp(testConfig(srv.ln.Addr().String()))

	msg := app.executeCommand("/connect")()
	result, ok := msg.(connectResultMsg)
	require.True(t, ok)
	require.NoError(t, result.Err)
	app.Update(result)
	t.Cleanup(func() { _ = result.Session.Close() })

	require.True(t, app.statusOnline)
	return app, srv.accept(t)
}

func readEnvelope(t *testing.T, conn net.Conn, dec *protocol.Decoder) protocol.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	env, err := dec.Decode(context.Background())
	require.NoError(t, err)
	return env
}

func TestExecuteCommand_RequiresConnection(t *testing.T) {
	app := NewApp(testConfig(""))

	require.Nil(t, app.executeCommand("/join amy bob"))
	require.Equal(t, logLevelError, app.logLine.level)
	require.Contains(t, app.logLine.body, "Not connected")

	require.Nil(t, app.handleSubmit("hello"))
	require.Contains(t, app.logLine.body, "Not connected")

	require.Nil(t, app.executeCommand("/connect"))
	require.Contains(t, app.logLine.body, "No server address")

	require.Nil(t, app.executeCommand("/bogus"))
	require.Contains(t, app.logLine.body, "Unknown command")
}

func TestExecuteCommand_SwitchesViews(t *testing.T) {
	app := NewApp(testConfig(""))
	app.executeCommand("/help")
	require.Equal(t, viewHelp, app.view)
	app.executeCommand("/chat")
	require.Equal(t, viewChat, app.view)
}

func TestJoinSendLeave_OverSession(t *testing.T) {
	app, conn := connectedApp(t)
	dec := protocol.NewDecoder(conn, 0)

	require.Nil(t, app.executeCommand("/join amy"))
	require.Contains(t, app.logLine.body, "Usage")
	require.Nil(t, app.executeCommand("/join amy b-c"))
	require.Contains(t, app.logLine.body, "Invalid user")

	cmd := app.executeCommand("/join amy bob")
	require.NotNil(t, cmd)
	require.Equal(t, "amy-bob", app.room)
	require.NoError(t, cmd().(sendResultMsg).Err)

	env := readEnvelope(t, conn, dec)
	require.Equal(t, protocol.EventJoinRoom, env.Type)
	var req protocol.JoinRoomRequest
	require.NoError(t, json.Unmarshal(env.Payload, &req))
	require.Equal(t, protocol.JoinRoomRequest{Sender: "amy", Receiver: "bob"}, req)

	require.NoError(t, app.handleSubmit("hi there")().(sendResultMsg).Err)
	env = readEnvelope(t, conn, dec)
	require.Equal(t, protocol.EventSend, env.Type)
	var msg chat.Message
	require.NoError(t, json.Unmarshal(env.Payload, &msg))
	require.Equal(t, chat.UserID("amy"), msg.Sender)
	require.JSONEq(t, `"hi there"`, string(msg.Payload))

	require.NoError(t, app.executeCommand("/leave")().(sendResultMsg).Err)
	require.Equal(t, protocol.EventLeaveRoom, readEnvelope(t, conn, dec).Type)
	require.False(t, app.hasActiveRoom())
}

func TestInboundEnvelopes_UpdateHistory(t *testing.T) {
	app, conn := connectedApp(t)
	app.executeCommand("/join bob amy")

	enc := protocol.NewEncoder(conn)
	send, err := protocol.SendEnvelope(chat.Message{Sender: "amy", Payload: textPayload("hi")})
	require.NoError(t, err)
	require.NoError(t, enc.Encode(context.Background(), send))

	msg := listenForMessages(app.session)()
	_, cmd := app.Update(msg)
	require.NotNil(t, cmd, "listening continues after an envelope")
	require.Equal(t, []string{"amy: hi"}, app.chatHistory)

	require.NoError(t, enc.Encode(context.Background(), protocol.ErrorEnvelope(send, "join room first")))
	app.Update(listenForMessages(app.session)())
	require.Equal(t, logLevelError, app.logLine.level)
	require.Contains(t, app.logLine.body, "join room first")

	require.NoError(t, conn.Close())
	closed := listenForMessages(app.session)()
	require.IsType(t, sessionClosedMsg{}, closed)
	app.Update(closed)
	require.False(t, app.isConnected())
	require.False(t, app.statusOnline)
}

func TestFormatMessage(t *testing.T) {
	require.Equal(t, "amy: hi", formatMessage(chat.Message{Sender: "amy", Payload: textPayload("hi")}))
	require.Equal(t, `bob: {"k":1}`, formatMessage(chat.Message{Sender: "bob", Payload: json.RawMessage(`{"k":1}`)}))
}

func TestTabCompletion(t *testing.T) {
	app := NewApp(testConfig(""))
	app.input.SetValue("/co")
	app.input.CursorEnd()
	app.handleTabCompletion()
	require.Equal(t, "/connect ", app.input.Value())

	app.input.SetValue("/c")
	app.input.CursorEnd()
	app.handleTabCompletion()
	require.Equal(t, "/c", app.input.Value(), "ambiguous prefix stays as typed")
}

func TestCompleteCommand(t *testing.T) {
	cmds := buildCommands('/')
	got, ok := completeCommand(cmds, "/l")
	require.True(t, ok)
	require.Equal(t, "/leave ", got)

	_, ok = completeCommand(cmds, "/join amy")
	require.False(t, ok)
	_, ok = completeCommand(cmds, "/x")
	require.False(t, ok)
}

func TestWrapLines(t *testing.T) {
	lines := wrapLines([]string{"amy: " + strings.Repeat("word ", 6)}, 12)
	require.Greater(t, len(lines), 1)
	for _, l := range lines {
		require.LessOrEqual(t, len(l), 12)
	}
}

func TestQuitClosesSession(t *testing.T) {
	app, _ := connectedApp(t)
	cmd := app.executeCommand("/quit")
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.Nil(t, app.session)
}
