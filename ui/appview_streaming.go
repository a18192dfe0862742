package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/miyifan/deepchat/config"
	"github.com/miyifan/deepchat/deepseek"
	"github.com/miyifan/deepchat/model"
)

// streamChannelBuffer absorbs delta bursts so the exchange goroutine rarely
// blocks on the UI.
const streamChannelBuffer = 64

// clearStatusDelay is how long transient status notices stay visible.
const clearStatusDelay = 3 * time.Second

// sendMessage appends the user turn, claims the exchange slot and starts the
// streaming goroutine. The goroutine posts typed messages into streamCh in
// wire order; waitForStream pumps them into Update one at a time.
func (a AppView) sendMessage(text string) (AppView, tea.Cmd) {
	text = strings.TrimSpace(text)
	if text == "" || a.store.Sending() {
		return a, nil
	}

	if err := a.store.AppendMessage(model.NewMessage(model.RoleUser, text)); err != nil {
		a.statusNotice = ErrorStyle.Render(err.Error())
		return a, nil
	}
	if err := a.store.BeginExchange(); err != nil {
		a.statusNotice = ErrorStyle.Render(err.Error())
		return a, nil
	}

	w, _ := a.store.CurrentWindow()
	// History excludes nothing: the user turn just appended is the last entry.
	history := w.Messages
	settings := w.Settings

	ctx, cancel := context.WithCancel(context.Background())
	a.cancelStream = cancel

	ch := make(chan tea.Msg, streamChannelBuffer)
	a.streamCh = ch
	a.answerResp.Reset()
	a.reasoningResp.Reset()
	a.statusNotice = ""

	client := a.client
	go func() {
		defer close(ch)

		handlers := deepseek.StreamHandlers{
			OnAnswerDelta:    func(chunk string) { ch <- model.StreamAnswerMsg{Chunk: chunk} },
			OnReasoningDelta: func(chunk string) { ch <- model.StreamReasoningMsg{Chunk: chunk} },
			OnToolNote:       func(text string) { ch <- model.ToolNoteMsg{Text: text} },
		}

		res, err := client.ChatStream(ctx, history, settings, handlers)
		switch {
		case err == nil:
			ch <- model.StreamDoneMsg{Content: res.Content, ReasoningContent: res.ReasoningContent}
		case errors.Is(err, deepseek.ErrStreamAborted):
			ch <- model.StreamAbortedMsg{}
		default:
			if config.Debug && config.DebugLog != nil {
				config.DebugLog.Printf("exchange failed: %v", err)
			}
			ch <- model.StreamErrorMsg{Err: err}
		}
	}()

	a.textarea.Reset()
	a.updateViewportContent(true)
	return a, tea.Batch(waitForStream(ch), a.loadingSpinner.Tick)
}

// waitForStream returns a command that delivers the next stream message.
// Each handled message re-issues it until the channel closes.
func waitForStream(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// handleStreamMsg processes one message from the exchange goroutine.
func (a AppView) handleStreamMsg(msg tea.Msg) (AppView, tea.Cmd) {
	switch msg := msg.(type) {
	case model.StreamAnswerMsg:
		a.answerResp.WriteString(msg.Chunk)
		a.updateStreamingViewport()
		return a, waitForStream(a.streamCh)

	case model.StreamReasoningMsg:
		a.reasoningResp.WriteString(msg.Chunk)
		a.updateStreamingViewport()
		return a, waitForStream(a.streamCh)

	case model.ToolNoteMsg:
		a.statusNotice = StatusStyle.Render("⚠ " + msg.Text)
		return a, waitForStream(a.streamCh)

	case model.StreamDoneMsg:
		a.finishStream()
		if err := a.store.CompleteExchange(msg.Content, msg.ReasoningContent); err != nil {
			a.statusNotice = ErrorStyle.Render(err.Error())
			return a, nil
		}
		a.updateViewportContent(true)
		return a, tea.Batch(a.persistCmd(), a.fetchBalanceCmd())

	case model.StreamErrorMsg:
		a.finishStream()
		// Genuine failures leave a visible placeholder turn in the history.
		if err := a.store.FailExchange(); err != nil {
			a.statusNotice = ErrorStyle.Render(err.Error())
			return a, nil
		}
		a.statusNotice = ErrorStyle.Render(fmt.Sprintf("✗ %v", msg.Err))
		a.updateViewportContent(true)
		return a, a.persistCmd()

	case model.StreamAbortedMsg:
		a.finishStream()
		// Cancellation appends nothing; the partial stream is discarded.
		if err := a.store.AbortExchange(); err != nil {
			a.statusNotice = ErrorStyle.Render(err.Error())
			return a, nil
		}
		a.statusNotice = StatusStyle.Render("Request cancelled")
		a.updateViewportContent(true)
		return a, clearStatusAfter(clearStatusDelay)
	}

	return a, nil
}

// finishStream tears down per-exchange UI state.
func (a *AppView) finishStream() {
	if a.cancelStream != nil {
		a.cancelStream()
		a.cancelStream = nil
	}
	a.streamCh = nil
	a.answerResp.Reset()
	a.reasoningResp.Reset()
}

// cancelExchange aborts an in-flight request. The goroutine observes the
// context and posts StreamAbortedMsg, which does the store-side cleanup.
func (a *AppView) cancelExchange() {
	if a.cancelStream != nil {
		a.cancelStream()
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
