package ui

import (
	"strings"
)

func (a *AppView) helpView() string {
	rows := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send message"},
		{"Esc", "Cancel the in-flight request"},
		{"Ctrl+N", "New conversation window"},
		{"Ctrl+W", "Window manager (select, rename, delete, filter)"},
		{"Ctrl+Y", "Copy the last reply to the clipboard"},
		{"Ctrl+L", "Clear the current window"},
		{"Ctrl+B", "Refresh the account balance"},
		{"Ctrl+G", "Toggle this help"},
		{"Ctrl+C", "Quit"},
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("deepchat keys"))
	b.WriteString("\n\n")
	for _, r := range rows {
		b.WriteString("  " + SelectedStyle.Render(r.key))
		b.WriteString(strings.Repeat(" ", 10-len(r.key)))
		b.WriteString(r.desc + "\n")
	}
	b.WriteString("\n" + HelpStyle.Render("Press any key to close"))
	return b.String()
}
