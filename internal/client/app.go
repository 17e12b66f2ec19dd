package client

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fenggwsx/dmrelay/internal/chat"
	"github.com/fenggwsx/dmrelay/internal/config"
	"github.com/fenggwsx/dmrelay/internal/protocol"
)

const (
	maxChatLines = 2000
	noValue      = "-"
)

type viewMode int

const (
	viewChat viewMode = iota
	viewHelp
)

func (v viewMode) String() string {
	switch v {
	case viewHelp:
		return "help"
	default:
		return "chat"
	}
}

type logLevel int

const (
	logLevelInfo logLevel = iota
	logLevelError
)

type logEntry struct {
	level logLevel
	label string
	body  string
}

type styleSet struct {
	title         lipgloss.Style
	view          lipgloss.Style
	statusOnline  lipgloss.Style
	statusOffline lipgloss.Style
	label         lipgloss.Style
	value         lipgloss.Style
	self          lipgloss.Style
	logLabel      lipgloss.Style
	logBody       lipgloss.Style
	logLabelError lipgloss.Style
	logBodyError  lipgloss.Style
	help          lipgloss.Style
}

// App implements the bubbletea tea.Model interface for the terminal client.
type App struct {
	cfg      config.ClientConfig
	commands []commandSpec
	styles   styleSet

	input    textinput.Model
	viewport viewport.Model
	helper   help.Model

	session    *Session
	serverAddr string
	user       chat.UserID
	peer       chat.UserID
	room       string

	chatHistory []string
	logLine     logEntry
	view        viewMode

	width        int
	height       int
	statusOnline bool
	showHelp     bool
	helpView     string
	helpHeight   int
}

type connectResultMsg struct {
	Address string
	Session *Session
	Err     error
}

type envelopeMsg struct {
	Session  *Session
	Envelope protocol.Envelope
}

type sessionClosedMsg struct {
	Session *Session
}

type sendResultMsg struct {
	Event protocol.EventType
	Err   error
}

// NewApp returns a Bubble Tea model pre-populated with defaults.
func NewApp(cfg config.ClientConfig) *App {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = fmt.Sprintf("type a message or %shelp", string(cfg.CommandPrefix))
	input.Focus()

	a := &App{
		cfg:        cfg,
		commands:   buildCommands(cfg.CommandPrefix),
		styles:     buildStyles(),
		input:      input,
		viewport:   viewport.New(0, 0),
		helper:     help.New(),
		serverAddr: cfg.ServerAddr,
		room:       noValue,
		view:       viewChat,
		logLine:    logEntry{label: "INFO", body: "ready"},
	}
	a.updateViewportContent()
	return a
}

// Init is part of the tea.Model interface.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles user input and session events.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		a.updateInputWidth()
		a.updateHelp()
		a.updateViewportSize()
		a.updateViewportContent()
		return a, nil
	case tea.KeyMsg:
		return a.handleKey(m)
	case connectResultMsg:
		return a, a.handleConnectResult(m)
	case envelopeMsg:
		if m.Session != a.session {
			return a, nil
		}
		a.handleSessionEnvelope(m.Envelope)
		return a, listenForMessages(a.session)
	case sessionClosedMsg:
		a.handleSessionClosed(m)
		return a, nil
	case sendResultMsg:
		if m.Err != nil {
			a.logErrorf("%s failed: %v", m.Event, m.Err)
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return a, a.quit()
	case tea.KeyEnter:
		value := strings.TrimSpace(a.input.Value())
		a.input.Reset()
		a.updateHelp()
		a.updateViewportSize()
		if value == "" {
			return a, nil
		}
		return a, a.handleSubmit(value)
	case tea.KeyTab:
		a.handleTabCompletion()
		a.updateHelp()
		a.updateViewportSize()
		return a, nil
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	a.updateHelp()
	a.updateViewportSize()
	return a, cmd
}

func (a *App) handleConnectResult(msg connectResultMsg) tea.Cmd {
	if msg.Err != nil {
		a.logErrorf("Connection to %s failed: %v", msg.Address, msg.Err)
		return nil
	}
	if a.session != nil {
		_ = a.session.Close()
	}
	a.session = msg.Session
	a.serverAddr = msg.Address
	a.statusOnline = true
	a.resetRoom()
	a.logf("Connected to %s", msg.Address)
	return listenForMessages(a.session)
}

func (a *App) handleSessionClosed(msg sessionClosedMsg) {
	if msg.Session != a.session || a.session == nil {
		return
	}
	_ = a.session.Close()
	a.session = nil
	a.statusOnline = false
	a.resetRoom()
	a.logErrorf("Connection closed")
}

func (a *App) resetRoom() {
	a.user, a.peer = "", ""
	a.room = noValue
	a.chatHistory = nil
	a.updateViewportContent()
}

func (a *App) isConnected() bool {
	return a.session != nil
}

func (a *App) hasActiveRoom() bool {
	return a.room != "" && a.room != noValue
}

func (a *App) appendChatLine(line string) {
	a.chatHistory = append(a.chatHistory, line)
	if over := len(a.chatHistory) - maxChatLines; over > 0 {
		a.chatHistory = a.chatHistory[over:]
	}
	a.updateViewportContent()
}

func (a *App) logf(format string, args ...any) {
	a.logLine = logEntry{level: logLevelInfo, label: "INFO", body: fmt.Sprintf(format, args...)}
}

func (a *App) logErrorf(format string, args ...any) {
	a.logLine = logEntry{level: logLevelError, label: "ERROR", body: fmt.Sprintf(format, args...)}
}

func (a *App) quit() tea.Cmd {
	if a.session != nil {
		_ = a.session.Close()
		a.session = nil
	}
	return tea.Quit
}

func listenForMessages(session *Session) tea.Cmd {
	if session == nil {
		return nil
	}
	ch := session.Messages()
	return func() tea.Msg {
		env, ok := <-ch
		if !ok {
			return sessionClosedMsg{Session: session}
		}
		return envelopeMsg{Session: session, Envelope: env}
	}
}
