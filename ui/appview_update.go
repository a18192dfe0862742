package ui

import (
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/miyifan/deepchat/model"
)

// Update is the bubbletea message dispatcher.
func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return a.handleResize(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.loadingSpinner, cmd = a.loadingSpinner.Update(msg)
		if a.store.Sending() {
			a.updateStreamingViewport()
			return a, cmd
		}
		return a, cmd

	case balanceFetchedMsg:
		if msg.Err == nil && msg.Balance != nil && len(msg.Balance.BalanceInfos) > 0 {
			info := msg.Balance.BalanceInfos[0]
			a.balanceText = info.TotalBalance + " " + info.Currency
		}
		return a, nil

	case snapshotSaveFailedMsg:
		a.statusNotice = ErrorStyle.Render("save failed: " + msg.Err.Error())
		return a, nil

	case clearStatusMsg:
		a.statusNotice = ""
		return a, nil

	case model.StreamAnswerMsg, model.StreamReasoningMsg, model.StreamDoneMsg,
		model.StreamErrorMsg, model.StreamAbortedMsg, model.ToolNoteMsg:
		return a.handleStreamMsg(msg)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a.updateComponents(msg)
}

func (a AppView) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	a.width = msg.Width
	a.height = msg.Height

	headerHeight := 1
	footerHeight := 1
	inputHeight := a.textarea.Height()
	viewportHeight := msg.Height - headerHeight - footerHeight - inputHeight - 2
	if viewportHeight < 3 {
		viewportHeight = 3
	}

	if !a.ready {
		a.viewport = viewport.New(msg.Width, viewportHeight)
		a.ready = true
	} else {
		a.viewport.Width = msg.Width
		a.viewport.Height = viewportHeight
	}
	a.textarea.SetWidth(msg.Width - 2)

	a.updateViewportContent(true)
	return a, nil
}

func (a AppView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}
	if a.showWindowManager {
		return a.handleWindowManagerKey(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		a.cancelExchange()
		return a, tea.Quit

	case "esc":
		if a.store.Sending() {
			a.cancelExchange()
			return a, nil
		}
		return a, nil

	case "enter":
		return a.sendMessage(a.textarea.Value())

	case "ctrl+n":
		if a.store.Sending() {
			return a, nil
		}
		a.store.CreateWindow("")
		a.updateViewportContent(true)
		return a, a.persistCmd()

	case "ctrl+w":
		if a.store.Sending() {
			return a, nil
		}
		a.openWindowManager()
		return a, nil

	case "ctrl+y":
		return a.copyLastReply()

	case "ctrl+l":
		if err := a.store.ClearMessages(); err == nil {
			a.updateViewportContent(true)
			return a, a.persistCmd()
		}
		return a, nil

	case "ctrl+b":
		if a.balance != nil {
			a.balance.Invalidate()
		}
		return a, a.fetchBalanceCmd()

	case "ctrl+g":
		a.showHelp = true
		return a, nil
	}

	return a.updateComponents(msg)
}

func (a AppView) copyLastReply() (tea.Model, tea.Cmd) {
	w, ok := a.store.CurrentWindow()
	if !ok {
		return a, nil
	}
	for i := len(w.Messages) - 1; i >= 0; i-- {
		if w.Messages[i].Role == model.RoleAssistant {
			if err := clipboard.WriteAll(w.Messages[i].Content); err != nil {
				a.statusNotice = ErrorStyle.Render("copy failed: " + err.Error())
			} else {
				a.statusNotice = StatusStyle.Render("Reply copied to clipboard")
			}
			return a, clearStatusAfter(clearStatusDelay)
		}
	}
	return a, nil
}

func (a AppView) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		taCmd tea.Cmd
		vpCmd tea.Cmd
	)
	a.textarea, taCmd = a.textarea.Update(msg)
	a.viewport, vpCmd = a.viewport.Update(msg)
	return a, tea.Batch(taCmd, vpCmd)
}
