package ui

import (
	"fmt"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/mattn/go-runewidth"

	"github.com/miyifan/deepchat/model"
	"github.com/miyifan/deepchat/store"
)

func (a *AppView) contentWidth() int {
	w := a.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

// updateViewportContent re-renders the current window's full history.
func (a *AppView) updateViewportContent(gotoBottom bool) {
	w, ok := a.store.CurrentWindow()
	if !ok || len(w.Messages) == 0 {
		a.viewport.SetContent(DimStyle.Render("No messages yet. Start chatting!"))
		return
	}

	var content strings.Builder
	for _, msg := range w.Messages {
		content.WriteString(a.renderMessage(msg))
	}

	a.viewport.SetContent(content.String())
	if gotoBottom {
		a.viewport.GotoBottom()
	}
}

// updateStreamingViewport renders the history plus the in-flight exchange:
// the reasoning stream above the answer stream, with a cursor on whichever
// channel text is still arriving on.
func (a *AppView) updateStreamingViewport() {
	w, ok := a.store.CurrentWindow()
	if !ok {
		return
	}

	var content strings.Builder
	for _, msg := range w.Messages {
		content.WriteString(a.renderMessage(msg))
	}

	timestamp := DimStyle.Render(time.Now().Format("[15:04]"))
	role := AssistantStyle.Render("Assistant")
	content.WriteString(fmt.Sprintf("%s %s\n", timestamp, role))

	if a.reasoningResp.Len() > 0 {
		content.WriteString(ReasoningStyle.Render(a.reasoningResp.String()))
		content.WriteString("\n")
	}

	if a.answerResp.Len() > 0 {
		content.WriteString(a.answerResp.String() + "▋")
	} else {
		content.WriteString(a.loadingSpinner.View())
	}
	content.WriteString("\n\n")

	a.viewport.SetContent(content.String())
	a.viewport.GotoBottom()
}

// renderMessage formats one finalized message. Assistant content goes
// through the terminal markdown renderer; everything else stays plain.
func (a *AppView) renderMessage(msg model.Message) string {
	timestamp := DimStyle.Render(time.UnixMilli(msg.Timestamp).Format("[15:04]"))

	switch msg.Role {
	case model.RoleUser:
		role := UserStyle.Render("You")
		return fmt.Sprintf("%s %s\n%s\n\n", timestamp, role, msg.Content)

	case model.RoleAssistant:
		role := AssistantStyle.Render("Assistant")
		var b strings.Builder
		b.WriteString(fmt.Sprintf("%s %s\n", timestamp, role))
		if msg.ReasoningContent != "" {
			b.WriteString(ReasoningStyle.Render(msg.ReasoningContent))
			b.WriteString("\n")
		}
		rendered := string(markdown.Render(msg.Content, a.contentWidth(), 0))
		b.WriteString(strings.TrimRight(rendered, "\n"))
		b.WriteString("\n\n")
		return b.String()

	default:
		return fmt.Sprintf("%s %s\n%s\n\n", timestamp, DimStyle.Render("System"), DimStyle.Render(msg.Content))
	}
}

// headerView shows the window title, the selected model and the balance.
func (a *AppView) headerView() string {
	w, ok := a.store.CurrentWindow()
	title := "deepchat"
	modelName := ""
	if ok {
		title = runewidth.Truncate(w.Title, 40, "...")
		modelName = string(w.Settings.Model)
	}

	left := TitleStyle.Render(title)
	if modelName != "" {
		left += DimStyle.Render("  [" + modelName + "]")
	}

	right := ""
	if a.balanceText != "" {
		right = DimStyle.Render(a.balanceText)
	}

	pad := a.width - runewidth.StringWidth(stripStyles(left)) - runewidth.StringWidth(stripStyles(right)) - 2
	if pad < 1 {
		pad = 1
	}
	return left + strings.Repeat(" ", pad) + right
}

// stripStyles removes ANSI escape sequences so runewidth measures only the
// visible characters.
func stripStyles(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape && r == 'm':
			inEscape = false
		case !inEscape:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (a *AppView) footerView() string {
	if a.statusNotice != "" {
		return a.statusNotice
	}
	if a.store.Sending() {
		return FormatFooter("Esc", "Cancel")
	}
	return FormatFooter(
		"Enter", "Send",
		"Ctrl+W", "Windows",
		"Ctrl+N", "New",
		"Ctrl+Y", "Copy reply",
		"Ctrl+G", "Help",
		"Ctrl+C", "Quit",
	)
}

// View renders the whole screen.
func (a AppView) View() string {
	if !a.ready {
		return "Initializing..."
	}
	if a.showHelp {
		return a.helpView()
	}
	if a.showWindowManager {
		return a.windowManagerView()
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s",
		a.headerView(),
		a.viewport.View(),
		a.textarea.View(),
		a.footerView(),
	)
}

// windowListLabel formats one row of the window manager.
func windowListLabel(w store.Window, selected bool) string {
	title := runewidth.Truncate(w.Title, 36, "...")
	label := fmt.Sprintf("%s  %s  %d messages",
		title,
		time.UnixMilli(w.LastActiveAt).Format("Jan 2 15:04"),
		len(w.Messages))
	if selected {
		return SelectedStyle.Render("> " + label)
	}
	return "  " + label
}
