package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/miyifan/deepchat/store"
)

func (a *AppView) openWindowManager() {
	a.showWindowManager = true
	a.selectedWindowIdx = 0
	a.windowFilterMode = false
	a.windowFilterInput.Reset()
	a.windowRenameMode = false
	a.confirmDeleteID = ""

	// Start on the current window.
	for i, w := range a.store.Windows() {
		if w.ID == a.store.CurrentID() {
			a.selectedWindowIdx = i
			break
		}
	}
}

// visibleWindows applies the fuzzy title filter.
func (a *AppView) visibleWindows() []store.Window {
	windows := a.store.Windows()
	query := strings.TrimSpace(a.windowFilterInput.Value())
	if query == "" {
		return windows
	}

	titles := make([]string, len(windows))
	for i, w := range windows {
		titles[i] = w.Title
	}

	matches := fuzzy.Find(query, titles)
	out := make([]store.Window, 0, len(matches))
	for _, m := range matches {
		out = append(out, windows[m.Index])
	}
	return out
}

func (a AppView) handleWindowManagerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Rename mode captures all typing until enter/esc.
	if a.windowRenameMode {
		switch msg.String() {
		case "enter":
			windows := a.visibleWindows()
			if a.selectedWindowIdx < len(windows) {
				title := strings.TrimSpace(a.windowRenameInput.Value())
				if title != "" {
					a.store.RenameWindow(windows[a.selectedWindowIdx].ID, title)
				}
			}
			a.windowRenameMode = false
			return a, a.persistCmd()
		case "esc":
			a.windowRenameMode = false
			return a, nil
		default:
			var cmd tea.Cmd
			a.windowRenameInput, cmd = a.windowRenameInput.Update(msg)
			return a, cmd
		}
	}

	if a.windowFilterMode {
		switch msg.String() {
		case "enter", "esc":
			a.windowFilterMode = false
			a.windowFilterInput.Blur()
			return a, nil
		default:
			var cmd tea.Cmd
			a.windowFilterInput, cmd = a.windowFilterInput.Update(msg)
			a.selectedWindowIdx = 0
			return a, cmd
		}
	}

	// Delete confirmation.
	if a.confirmDeleteID != "" {
		switch msg.String() {
		case "y", "Y":
			a.store.DeleteWindow(a.confirmDeleteID)
			a.confirmDeleteID = ""
			if a.selectedWindowIdx > 0 {
				a.selectedWindowIdx--
			}
			if len(a.store.Windows()) == 0 {
				a.store.CreateWindow("")
			}
			a.updateViewportContent(true)
			return a, a.persistCmd()
		default:
			a.confirmDeleteID = ""
			return a, nil
		}
	}

	windows := a.visibleWindows()

	switch msg.String() {
	case "esc", "q", "ctrl+w":
		a.showWindowManager = false
		a.updateViewportContent(true)
		return a, nil

	case "up", "k":
		if a.selectedWindowIdx > 0 {
			a.selectedWindowIdx--
		}
		return a, nil

	case "down", "j":
		if a.selectedWindowIdx < len(windows)-1 {
			a.selectedWindowIdx++
		}
		return a, nil

	case "enter":
		if a.selectedWindowIdx < len(windows) {
			a.store.SelectWindow(windows[a.selectedWindowIdx].ID)
			a.showWindowManager = false
			a.updateViewportContent(true)
			return a, a.persistCmd()
		}
		return a, nil

	case "n":
		a.store.CreateWindow("")
		a.showWindowManager = false
		a.updateViewportContent(true)
		return a, a.persistCmd()

	case "d":
		if a.selectedWindowIdx < len(windows) {
			a.confirmDeleteID = windows[a.selectedWindowIdx].ID
		}
		return a, nil

	case "r":
		if a.selectedWindowIdx < len(windows) {
			a.windowRenameMode = true
			a.windowRenameInput.SetValue(windows[a.selectedWindowIdx].Title)
			a.windowRenameInput.Focus()
		}
		return a, nil

	case "/":
		a.windowFilterMode = true
		a.windowFilterInput.Focus()
		return a, nil
	}

	return a, nil
}

func (a *AppView) windowManagerView() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Conversation Windows"))
	b.WriteString("\n\n")

	if a.windowFilterMode || a.windowFilterInput.Value() != "" {
		b.WriteString("Filter: " + a.windowFilterInput.View() + "\n\n")
	}

	windows := a.visibleWindows()
	if len(windows) == 0 {
		b.WriteString(DimStyle.Render("No windows match.") + "\n")
	}
	for i, w := range windows {
		current := ""
		if w.ID == a.store.CurrentID() {
			current = DimStyle.Render(" (current)")
		}
		b.WriteString(windowListLabel(w, i == a.selectedWindowIdx) + current + "\n")
	}

	b.WriteString("\n")
	switch {
	case a.confirmDeleteID != "":
		b.WriteString(ErrorStyle.Render("Delete this window? (y/N)"))
	case a.windowRenameMode:
		b.WriteString("Rename: " + a.windowRenameInput.View())
	default:
		b.WriteString(HelpStyle.Render(fmt.Sprintf("%d/%d windows", len(windows), store.MaxWindows)))
		b.WriteString("\n")
		b.WriteString(FormatFooter(
			"j/k", "Navigate",
			"Enter", "Select",
			"n", "New",
			"r", "Rename",
			"d", "Delete",
			"/", "Filter",
			"Esc", "Close",
		))
	}

	return b.String()
}
