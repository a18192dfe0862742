// Package ui is the terminal front end: a bubbletea program over the
// conversation store and the streaming client.
package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/miyifan/deepchat/deepseek"
	"github.com/miyifan/deepchat/storage"
	"github.com/miyifan/deepchat/store"
)

// AppView is the root bubbletea model.
type AppView struct {
	store     *store.Store
	client    *deepseek.Client
	balance   *deepseek.BalanceCache
	snapshots *storage.SnapshotStorage

	// UI components
	viewport       viewport.Model
	textarea       textarea.Model
	loadingSpinner spinner.Model

	// Window state
	width  int
	height int
	ready  bool

	// Streaming UI state: live buffers for the in-flight exchange. The
	// store only sees the final message on completion.
	answerResp    *strings.Builder
	reasoningResp *strings.Builder
	streamCh      chan tea.Msg
	cancelStream  context.CancelFunc

	// Window manager overlay
	showWindowManager bool
	selectedWindowIdx int
	windowFilterMode  bool
	windowFilterInput textinput.Model
	windowRenameMode  bool
	windowRenameInput textinput.Model
	confirmDeleteID   string

	// Status line: transient notices (tool failures, cancel, copy, errors)
	statusNotice string

	// Header balance text, refreshed through the balance cache
	balanceText string

	showHelp bool
}

// New wires the root view. The store is expected to already hold its
// restored state.
func New(st *store.Store, client *deepseek.Client, balance *deepseek.BalanceCache, snapshots *storage.SnapshotStorage) AppView {
	ta := textarea.New()
	ta.Placeholder = "Type a message... (Enter to send)"
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accentColor)

	filter := textinput.New()
	filter.Placeholder = "filter windows"

	rename := textinput.New()
	rename.Placeholder = "new title"
	rename.CharLimit = 80

	return AppView{
		store:             st,
		client:            client,
		balance:           balance,
		snapshots:         snapshots,
		textarea:          ta,
		loadingSpinner:    sp,
		windowFilterInput: filter,
		windowRenameInput: rename,
		answerResp:        &strings.Builder{},
		reasoningResp:     &strings.Builder{},
	}
}

// Init starts the spinner and kicks off the initial balance fetch.
func (a AppView) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		a.loadingSpinner.Tick,
		a.fetchBalanceCmd(),
	)
}

// persistCmd saves the current snapshot off the UI thread.
func (a AppView) persistCmd() tea.Cmd {
	snap := a.store.Snapshot()
	return func() tea.Msg {
		if err := a.snapshots.Save(snap); err != nil {
			return snapshotSaveFailedMsg{Err: err}
		}
		return nil
	}
}

func (a AppView) fetchBalanceCmd() tea.Cmd {
	if a.balance == nil {
		return nil
	}
	return func() tea.Msg {
		resp, err := a.balance.Get(context.Background())
		if err != nil {
			return balanceFetchedMsg{Err: err}
		}
		return balanceFetchedMsg{Balance: resp}
	}
}
