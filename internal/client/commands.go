package client

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fenggwsx/dmrelay/internal/chat"
	"github.com/fenggwsx/dmrelay/internal/protocol"
)

const sendTimeout = 5 * time.Second

type commandSpec struct {
	trigger     string
	usage       string
	description string
}

func buildCommands(prefix rune) []commandSpec {
	p := string(prefix)
	return []commandSpec{
		{trigger: p + "connect", usage: p + "connect [addr]", description: "Connect to a relay server"},
		{trigger: p + "join", usage: p + "join <me> <peer>", description: "Open the conversation with peer"},
		{trigger: p + "leave", usage: p + "leave", description: "Leave the current conversation"},
		{trigger: p + "chat", usage: p + "chat", description: "Show the chat view"},
		{trigger: p + "help", usage: p + "help", description: "List commands"},
		{trigger: p + "quit", usage: p + "quit", description: "Exit the client"},
	}
}

func (a *App) handleSubmit(value string) tea.Cmd {
	if strings.HasPrefix(value, string(a.cfg.CommandPrefix)) {
		return a.executeCommand(value)
	}
	return a.sendChatMessage(value)
}

func (a *App) executeCommand(raw string) tea.Cmd {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	name := strings.TrimPrefix(fields[0], string(a.cfg.CommandPrefix))
	args := fields[1:]

	switch strings.ToLower(name) {
	case "connect":
		return a.commandConnect(args)
	case "join":
		return a.commandJoin(args)
	case "leave":
		return a.commandLeave()
	case "chat":
		a.view = viewChat
		a.updateViewportContent()
		a.logf("Switched to CHAT view")
	case "help":
		a.view = viewHelp
		a.updateViewportContent()
		a.logf("Switched to HELP view")
	case "quit", "exit":
		return a.quit()
	default:
		a.logErrorf("Unknown command: %s", fields[0])
	}
	return nil
}

func (a *App) commandConnect(args []string) tea.Cmd {
	address := a.serverAddr
	if len(args) > 0 {
		address = args[0]
	}
	if address == "" {
		a.logErrorf("No server address configured")
		return nil
	}
	a.logf("Connecting to %s ...", address)
	return connectCommand(address)
}

func (a *App) commandJoin(args []string) tea.Cmd {
	if len(args) != 2 {
		a.logErrorf("Usage: %sjoin <me> <peer>", string(a.cfg.CommandPrefix))
		return nil
	}
	if !a.isConnected() {
		a.logErrorf("Not connected. Use %sconnect first.", string(a.cfg.CommandPrefix))
		return nil
	}
	user, peer := chat.UserID(args[0]), chat.UserID(args[1])
	for _, u := range []chat.UserID{user, peer} {
		if err := chat.ValidateUser(u); err != nil {
			a.logErrorf("Invalid user %q: %v", u, err)
			return nil
		}
	}

	env, err := protocol.NewEnvelope(protocol.EventJoinRoom, protocol.JoinRoomRequest{Sender: string(user), Receiver: string(peer)})
	if err != nil {
		a.logErrorf("Encode join: %v", err)
		return nil
	}

	// The server replays the history right after the join, so start from a clean view.
	a.user, a.peer = user, peer
	a.room = chat.Resolve(user, peer).String()
	a.chatHistory = nil
	a.view = viewChat
	a.updateViewportContent()
	a.logf("Joining %s ...", a.room)
	return a.sendEnvelope(env)
}

func (a *App) commandLeave() tea.Cmd {
	if !a.isConnected() {
		a.logErrorf("Not connected.")
		return nil
	}
	if !a.hasActiveRoom() {
		a.logErrorf("Not in a room.")
		return nil
	}
	env, err := protocol.NewEnvelope(protocol.EventLeaveRoom, nil)
	if err != nil {
		a.logErrorf("Encode leave: %v", err)
		return nil
	}
	a.logf("Left %s", a.room)
	a.resetRoom()
	return a.sendEnvelope(env)
}

func (a *App) sendChatMessage(text string) tea.Cmd {
	if !a.isConnected() {
		a.logErrorf("Not connected. Use %sconnect first.", string(a.cfg.CommandPrefix))
		return nil
	}
	if !a.hasActiveRoom() {
		a.logErrorf("Join a room first: %sjoin <me> <peer>", string(a.cfg.CommandPrefix))
		return nil
	}
	env, err := protocol.SendEnvelope(chat.Message{Sender: a.user, Payload: textPayload(text)})
	if err != nil {
		a.logErrorf("Encode message: %v", err)
		return nil
	}
	return a.sendEnvelope(env)
}

func (a *App) sendEnvelope(env protocol.Envelope) tea.Cmd {
	session := a.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		return sendResultMsg{Event: env.Type, Err: session.Send(ctx, env)}
	}
}

func connectCommand(address string) tea.Cmd {
	return func() tea.Msg {
		session := NewSession(address)
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		if err := session.Connect(ctx); err != nil {
			return connectResultMsg{Address: address, Err: err}
		}
		return connectResultMsg{Address: address, Session: session}
	}
}
