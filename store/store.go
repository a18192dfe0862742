package store

import (
	"errors"
	"time"

	"github.com/miyifan/deepchat/model"
)

var (
	// ErrExchangeInFlight is returned when a mutation would race the one
	// exchange allowed at a time.
	ErrExchangeInFlight = errors.New("an exchange is already in flight")

	// ErrNoExchange is returned when completing or aborting without a
	// running exchange.
	ErrNoExchange = errors.New("no exchange in flight")

	// ErrWindowNotFound is returned for operations on an unknown window id.
	ErrWindowNotFound = errors.New("window not found")

	// ErrNoCurrentWindow is returned when an operation needs a current
	// window and none exists.
	ErrNoCurrentWindow = errors.New("no current window")

	// ErrNoMessages is returned when an operation needs at least one
	// message in the current window.
	ErrNoMessages = errors.New("window has no messages")
)

// FailedExchangePlaceholder is appended as the assistant turn when an
// exchange fails for any reason other than user cancellation, so the history
// records that the turn happened and broke.
const FailedExchangePlaceholder = "[reply failed - please try again]"

// Store owns the window list. The list is copy-on-write: every mutation
// replaces it wholesale, so a slice handed out by Windows or Snapshot never
// changes underneath the caller.
//
// One exchange runs at a time store-wide. BeginExchange claims the slot;
// message mutations are rejected while it is held; CompleteExchange,
// FailExchange and AbortExchange release it.
type Store struct {
	windows   []Window
	currentID string
	sending   bool
	defaults  model.ChatSettings

	nowMillis func() int64
}

// New creates an empty store whose new windows clone defaults.
func New(defaults model.ChatSettings) *Store {
	return &Store{
		defaults:  defaults,
		nowMillis: func() int64 { return time.Now().UnixMilli() },
	}
}

// Windows returns the window list, most recently mutated first.
func (s *Store) Windows() []Window {
	return s.windows
}

// CurrentWindow returns the selected window, if any.
func (s *Store) CurrentWindow() (Window, bool) {
	for _, w := range s.windows {
		if w.ID == s.currentID {
			return w, true
		}
	}
	return Window{}, false
}

// CurrentID returns the selected window's id, empty when none.
func (s *Store) CurrentID() string { return s.currentID }

// Sending reports whether an exchange is in flight.
func (s *Store) Sending() bool { return s.sending }

// CreateWindow makes a new window, inserts it at the front, evicts past the
// cap and selects it. An empty title gets the next auto title.
func (s *Store) CreateWindow(title string) Window {
	now := s.nowMillis()
	if title == "" {
		titles := make([]string, 0, len(s.windows))
		for _, w := range s.windows {
			titles = append(titles, w.Title)
		}
		title = NextAutoTitle(titles)
	}

	w := Window{
		ID:           NewWindowID(now),
		Title:        title,
		Messages:     []model.Message{},
		Settings:     s.defaults.Clone(),
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActiveAt: now,
	}

	next := make([]Window, 0, len(s.windows)+1)
	next = append(next, w)
	next = append(next, s.windows...)
	s.windows = evictOverflow(next)
	s.currentID = w.ID
	return w
}

// evictOverflow drops least-recently-active windows until the cap holds.
// List order is preserved for the survivors.
func evictOverflow(windows []Window) []Window {
	for len(windows) > MaxWindows {
		lowest := 0
		for i, w := range windows {
			if w.LastActiveAt < windows[lowest].LastActiveAt {
				lowest = i
			}
		}
		next := make([]Window, 0, len(windows)-1)
		next = append(next, windows[:lowest]...)
		next = append(next, windows[lowest+1:]...)
		windows = next
	}
	return windows
}

// DeleteWindow removes a window unconditionally. Deleting the current window
// selects the new first window, or nothing when none remain. Any in-flight
// exchange state is cleared.
func (s *Store) DeleteWindow(id string) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return ErrWindowNotFound
	}

	next := make([]Window, 0, len(s.windows)-1)
	next = append(next, s.windows[:idx]...)
	next = append(next, s.windows[idx+1:]...)
	s.windows = next

	if s.currentID == id {
		if len(s.windows) > 0 {
			s.currentID = s.windows[0].ID
		} else {
			s.currentID = ""
		}
	}
	s.sending = false
	return nil
}

// SelectWindow changes only the current pointer. It never bumps recency or
// reorders the list: selecting is not using.
func (s *Store) SelectWindow(id string) error {
	if s.indexOf(id) < 0 {
		return ErrWindowNotFound
	}
	s.currentID = id
	return nil
}

// RenameWindow sets a window's title without a recency bump.
func (s *Store) RenameWindow(id, title string) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return ErrWindowNotFound
	}
	next := s.cloneList()
	next[idx].Title = title
	s.windows = next
	return nil
}

// AppendMessage appends to the current window, bumps its recency and moves
// it to the front. A first user message overwrites a still-default title with
// a snippet of itself. Rejected while an exchange is in flight.
func (s *Store) AppendMessage(msg model.Message) error {
	if s.sending {
		return ErrExchangeInFlight
	}
	return s.appendToCurrent(msg)
}

func (s *Store) appendToCurrent(msg model.Message) error {
	idx := s.indexOf(s.currentID)
	if idx < 0 {
		return ErrNoCurrentWindow
	}

	now := s.nowMillis()
	next := s.cloneList()
	w := &next[idx]

	if msg.Role == model.RoleUser && len(w.Messages) == 0 && IsDefaultTitle(w.Title) {
		if t := TitleFromMessage(msg.Content); t != "" {
			w.Title = t
		}
	}

	w.Messages = append(w.Messages, msg)
	w.UpdatedAt = now
	w.LastActiveAt = now

	s.windows = moveToFront(next, idx)
	return nil
}

// ClearMessages empties the current window with the same recency bump as an
// append.
func (s *Store) ClearMessages() error {
	if s.sending {
		return ErrExchangeInFlight
	}
	idx := s.indexOf(s.currentID)
	if idx < 0 {
		return ErrNoCurrentWindow
	}

	now := s.nowMillis()
	next := s.cloneList()
	next[idx].Messages = []model.Message{}
	next[idx].UpdatedAt = now
	next[idx].LastActiveAt = now

	s.windows = moveToFront(next, idx)
	return nil
}

// AppendToLastMessage appends text to the current window's final message in
// place. This is the incremental-append path for non-streaming flows.
func (s *Store) AppendToLastMessage(chunk string) error {
	idx := s.indexOf(s.currentID)
	if idx < 0 {
		return ErrNoCurrentWindow
	}
	if len(s.windows[idx].Messages) == 0 {
		return ErrNoMessages
	}

	next := s.cloneList()
	last := len(next[idx].Messages) - 1
	next[idx].Messages[last].Content += chunk
	next[idx].UpdatedAt = s.nowMillis()
	s.windows = next
	return nil
}

// DeleteLastMessage removes the current window's final message.
func (s *Store) DeleteLastMessage() error {
	if s.sending {
		return ErrExchangeInFlight
	}
	idx := s.indexOf(s.currentID)
	if idx < 0 {
		return ErrNoCurrentWindow
	}
	if len(s.windows[idx].Messages) == 0 {
		return ErrNoMessages
	}

	next := s.cloneList()
	next[idx].Messages = next[idx].Messages[:len(next[idx].Messages)-1]
	next[idx].UpdatedAt = s.nowMillis()
	s.windows = next
	return nil
}

// SettingsPatch is a partial settings update; nil fields are left unchanged.
type SettingsPatch struct {
	Temperature  *float64
	TopP         *float64
	TopK         *int
	MaxLength    *int
	SystemPrompt *string
	Model        *model.ModelAlias
	Functions    []model.FunctionDefinition
}

// UpdateSettings merges a patch into the current window's settings only.
// Settings are owned per window; no other window is touched.
func (s *Store) UpdateSettings(patch SettingsPatch) error {
	idx := s.indexOf(s.currentID)
	if idx < 0 {
		return ErrNoCurrentWindow
	}

	now := s.nowMillis()
	next := s.cloneList()
	settings := &next[idx].Settings

	if patch.Temperature != nil {
		settings.Temperature = *patch.Temperature
	}
	if patch.TopP != nil {
		settings.TopP = *patch.TopP
	}
	if patch.TopK != nil {
		settings.TopK = *patch.TopK
	}
	if patch.MaxLength != nil {
		settings.MaxLength = *patch.MaxLength
	}
	if patch.SystemPrompt != nil {
		settings.SystemPrompt = *patch.SystemPrompt
	}
	if patch.Model != nil {
		settings.Model = *patch.Model
	}
	if patch.Functions != nil {
		funcs := make([]model.FunctionDefinition, len(patch.Functions))
		for i, f := range patch.Functions {
			funcs[i] = f.Clone()
		}
		settings.Functions = funcs
	}

	next[idx].UpdatedAt = now
	next[idx].LastActiveAt = now
	s.windows = next
	return nil
}

// BeginExchange claims the single exchange slot for the current window.
func (s *Store) BeginExchange() error {
	if s.sending {
		return ErrExchangeInFlight
	}
	if s.indexOf(s.currentID) < 0 {
		return ErrNoCurrentWindow
	}
	s.sending = true
	return nil
}

// CompleteExchange appends the accumulated assistant reply and releases the
// exchange slot.
func (s *Store) CompleteExchange(content, reasoningContent string) error {
	if !s.sending {
		return ErrNoExchange
	}
	s.sending = false

	msg := model.NewMessage(model.RoleAssistant, content)
	msg.ReasoningContent = reasoningContent
	return s.appendToCurrent(msg)
}

// FailExchange records a failed turn: a placeholder assistant message is
// appended so the user sees the turn broke, and the slot is released.
func (s *Store) FailExchange() error {
	if !s.sending {
		return ErrNoExchange
	}
	s.sending = false
	return s.appendToCurrent(model.NewMessage(model.RoleAssistant, FailedExchangePlaceholder))
}

// AbortExchange releases the slot without appending anything: cancellation
// leaves no trace in the history.
func (s *Store) AbortExchange() error {
	if !s.sending {
		return ErrNoExchange
	}
	s.sending = false
	return nil
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, w := range s.windows {
		if w.ID == id {
			return i
		}
	}
	return -1
}

// cloneList deep-copies the window list so mutations never reach slices
// previously handed out.
func (s *Store) cloneList() []Window {
	next := make([]Window, len(s.windows))
	for i, w := range s.windows {
		next[i] = w.Clone()
	}
	return next
}

func moveToFront(windows []Window, idx int) []Window {
	if idx == 0 {
		return windows
	}
	w := windows[idx]
	next := make([]Window, 0, len(windows))
	next = append(next, w)
	next = append(next, windows[:idx]...)
	next = append(next, windows[idx+1:]...)
	return next
}
