package client

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	figure "github.com/common-nighthawk/go-figure"
	"github.com/mattn/go-runewidth"
)

const (
	minWrapWidth     = 10
	minViewportLines = 3
	// input, log line and status line
	chromeLines = 3
)

var banner = renderBanner()

// View renders the terminal UI.
func (a *App) View() string {
	sections := []string{a.viewport.View()}
	if a.showHelp {
		sections = append(sections, a.styles.help.Render(a.helpView))
	}
	sections = append(sections, a.input.View(), a.renderLogLine(), a.renderStatus())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (a *App) updateViewportContent() {
	if a.view == viewHelp {
		a.viewport.SetContent(a.renderCommandList())
		return
	}
	switch {
	case !a.hasActiveRoom():
		a.viewport.SetContent(banner)
	case len(a.chatHistory) == 0:
		a.viewport.SetContent(fmt.Sprintf("No messages with %s yet. Type and press Enter to send.", a.peer))
	default:
		a.viewport.SetContent(strings.Join(wrapLines(a.chatHistory, a.contentWidth()), "\n"))
	}
	a.viewport.GotoBottom()
}

func (a *App) contentWidth() int {
	if a.viewport.Width > 0 {
		return a.viewport.Width
	}
	return a.width
}

func (a *App) updateViewportSize() {
	if a.height == 0 {
		return
	}
	a.viewport.Width = a.width
	a.viewport.Height = max(a.height-chromeLines-a.helpHeight, minViewportLines)
}

func (a *App) updateInputWidth() {
	width := a.width
	if width <= 0 {
		width = 60
	}
	a.input.Width = max(width-lipgloss.Width(a.input.Prompt)-1, minWrapWidth)
}

// updateHelp shows the commands matching the typed prefix above the input.
func (a *App) updateHelp() {
	a.showHelp, a.helpView, a.helpHeight = false, "", 0

	value := a.input.Value()
	prefix := string(a.cfg.CommandPrefix)
	if !strings.HasPrefix(value, prefix) {
		return
	}
	token, _, _ := strings.Cut(value, " ")

	var bindings []key.Binding
	for _, c := range a.commands {
		if strings.HasPrefix(c.trigger, strings.ToLower(token)) {
			bindings = append(bindings, key.NewBinding(key.WithKeys(c.trigger), key.WithHelp(c.usage, c.description)))
		}
	}
	if len(bindings) == 0 {
		return
	}

	a.helper.Width = a.width
	a.helpView = strings.TrimRight(a.helper.ShortHelpView(bindings), "\n")
	a.helpHeight = lipgloss.Height(a.helpView)
	a.showHelp = true
}

func (a *App) renderStatus() string {
	status, statusStyle := "OFFLINE", a.styles.statusOffline
	if a.statusOnline {
		status, statusStyle = "ONLINE", a.styles.statusOnline
	}
	field := func(label, value string) string {
		return a.styles.label.Render(label+":") + " " + a.styles.value.Render(valueOrDash(value))
	}
	return strings.Join([]string{
		a.styles.title.Render("dmrelay"),
		a.styles.view.Render(strings.ToUpper(a.view.String())),
		statusStyle.Render(status),
		field("Server", a.serverAddr),
		field("User", string(a.user)),
		field("Room", a.room),
	}, " | ")
}

func (a *App) renderLogLine() string {
	label, body := a.styles.logLabel, a.styles.logBody
	if a.logLine.level == logLevelError {
		label, body = a.styles.logLabelError, a.styles.logBodyError
	}
	return label.Render(a.logLine.label) + " " + body.Render(a.logLine.body)
}

func (a *App) renderCommandList() string {
	var b strings.Builder
	b.WriteString(a.styles.title.Render("Commands"))
	b.WriteString("\n\n")
	for _, c := range a.commands {
		fmt.Fprintf(&b, "%-22s %s\n", c.usage, a.styles.label.Render(c.description))
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildStyles() styleSet {
	color := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }
	return styleSet{
		title:         color("13").Bold(true),
		view:          color("14").Bold(true),
		statusOnline:  color("10").Bold(true),
		statusOffline: color("9").Bold(true),
		label:         color("8"),
		value:         color("15"),
		self:          color("12"),
		logLabel:      color("11").Bold(true),
		logBody:       color("7"),
		logLabelError: color("9").Bold(true),
		logBodyError:  color("9"),
		help:          color("12"),
	}
}

func renderBanner() string {
	art := strings.TrimRight(figure.NewColorFigure("DM RELAY", "3-d", "green", true).String(), "\n")
	return art + "\n\n" + strings.Join([]string{
		"/connect [addr]     reach the relay server",
		"/join <me> <peer>   open a conversation and load its history",
		"/leave              close the conversation",
		"/help               list every command",
	}, "\n")
}

// wrapLines soft-wraps each line to width display cells.
func wrapLines(lines []string, width int) []string {
	if width <= 0 {
		return lines
	}
	width = max(width, minWrapWidth)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if runewidth.StringWidth(line) <= width {
			out = append(out, line)
			continue
		}
		out = append(out, strings.Split(runewidth.Wrap(line, width), "\n")...)
	}
	return out
}

func valueOrDash(s string) string {
	if s == "" {
		return noValue
	}
	return s
}
