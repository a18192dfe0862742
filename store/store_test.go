package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/miyifan/deepchat/model"
)

// testStore returns a store with a controllable clock; each call to tick
// advances it by one millisecond.
func testStore() (*Store, func() int64) {
	s := New(model.DefaultSettings())
	now := int64(1_000_000)
	s.nowMillis = func() int64 { return now }
	tick := func() int64 {
		now++
		return now
	}
	return s, tick
}

func TestCreateWindowSelectsAndPrepends(t *testing.T) {
	s, tick := testStore()

	first := s.CreateWindow("")
	tick()
	second := s.CreateWindow("")

	windows := s.Windows()
	if len(windows) != 2 {
		t.Fatalf("len = %d", len(windows))
	}
	if windows[0].ID != second.ID || windows[1].ID != first.ID {
		t.Error("new window not at the front")
	}
	if s.CurrentID() != second.ID {
		t.Error("new window not selected")
	}
	if first.ID == second.ID {
		t.Error("ids collide")
	}
}

func TestCreateWindowIDsUniqueWithinSameMillisecond(t *testing.T) {
	s, _ := testStore()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		w := s.CreateWindow(fmt.Sprintf("w%d", i))
		if seen[w.ID] {
			t.Fatalf("duplicate id %q", w.ID)
		}
		seen[w.ID] = true
	}
}

func TestEvictionKeepsMostRecentlyActive(t *testing.T) {
	s, tick := testStore()

	var ids []string
	for i := 0; i < MaxWindows+3; i++ {
		tick()
		w := s.CreateWindow(fmt.Sprintf("w%d", i))
		ids = append(ids, w.ID)
	}

	windows := s.Windows()
	if len(windows) != MaxWindows {
		t.Fatalf("len = %d, want %d", len(windows), MaxWindows)
	}

	// The three oldest by lastActiveAt must be gone.
	alive := make(map[string]bool)
	for _, w := range windows {
		alive[w.ID] = true
	}
	for _, id := range ids[:3] {
		if alive[id] {
			t.Errorf("window %s should have been evicted", id)
		}
	}
	for _, id := range ids[3:] {
		if !alive[id] {
			t.Errorf("window %s should have survived", id)
		}
	}
}

func TestSelectWindowChangesOnlyThePointer(t *testing.T) {
	s, tick := testStore()

	a := s.CreateWindow("a")
	tick()
	b := s.CreateWindow("b")

	before := s.Windows()
	if err := s.SelectWindow(a.ID); err != nil {
		t.Fatalf("SelectWindow: %v", err)
	}

	after := s.Windows()
	for i := range before {
		if after[i].ID != before[i].ID {
			t.Error("select reordered the list")
		}
		if after[i].LastActiveAt != before[i].LastActiveAt {
			t.Error("select bumped lastActiveAt")
		}
	}
	if s.CurrentID() != a.ID {
		t.Errorf("current = %s, want %s", s.CurrentID(), a.ID)
	}
	_ = b

	if err := s.SelectWindow("nope"); !errors.Is(err, ErrWindowNotFound) {
		t.Errorf("got %v, want ErrWindowNotFound", err)
	}
}

func TestAppendMessageBumpsAndMovesToFront(t *testing.T) {
	s, tick := testStore()

	a := s.CreateWindow("a")
	tick()
	b := s.CreateWindow("b")
	tick()

	if err := s.SelectWindow(a.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendMessage(model.Message{Role: model.RoleUser, Content: "hi", Timestamp: 1}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	windows := s.Windows()
	if windows[0].ID != a.ID {
		t.Error("appended window not moved to front")
	}
	if len(windows[0].Messages) != 1 {
		t.Errorf("messages = %d", len(windows[0].Messages))
	}
	if windows[0].LastActiveAt <= a.LastActiveAt {
		t.Error("lastActiveAt not bumped")
	}

	// The other window is untouched.
	if windows[1].ID != b.ID || len(windows[1].Messages) != 0 {
		t.Errorf("other window mutated: %+v", windows[1])
	}
}

func TestAppendAdoptsTitleFromFirstUserMessage(t *testing.T) {
	s, _ := testStore()
	s.CreateWindow("")

	long := "Explain the difference between buffered and unbuffered channels in Go"
	if err := s.AppendMessage(model.Message{Role: model.RoleUser, Content: long, Timestamp: 1}); err != nil {
		t.Fatal(err)
	}

	w, _ := s.CurrentWindow()
	if IsDefaultTitle(w.Title) {
		t.Errorf("title still default: %q", w.Title)
	}
	if len([]rune(w.Title)) > titleSnippetLen+3 {
		t.Errorf("title too long: %q", w.Title)
	}

	// A second user message must not rewrite the title again.
	adopted := w.Title
	s.AppendMessage(model.Message{Role: model.RoleAssistant, Content: "sure", Timestamp: 2})
	s.AppendMessage(model.Message{Role: model.RoleUser, Content: "another question", Timestamp: 3})
	w, _ = s.CurrentWindow()
	if w.Title != adopted {
		t.Errorf("title rewritten to %q", w.Title)
	}
}

func TestRenamedWindowKeepsCustomTitle(t *testing.T) {
	s, _ := testStore()
	w := s.CreateWindow("")
	if err := s.RenameWindow(w.ID, "my project notes"); err != nil {
		t.Fatal(err)
	}
	s.AppendMessage(model.Message{Role: model.RoleUser, Content: "hello", Timestamp: 1})

	got, _ := s.CurrentWindow()
	if got.Title != "my project notes" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestDeleteWindow(t *testing.T) {
	s, tick := testStore()

	a := s.CreateWindow("a")
	tick()
	b := s.CreateWindow("b")

	if err := s.DeleteWindow(b.ID); err != nil {
		t.Fatalf("DeleteWindow: %v", err)
	}
	if s.CurrentID() != a.ID {
		t.Errorf("current = %s, want fallback to first remaining", s.CurrentID())
	}

	if err := s.DeleteWindow(a.ID); err != nil {
		t.Fatal(err)
	}
	if s.CurrentID() != "" || len(s.Windows()) != 0 {
		t.Errorf("store not empty: current=%q windows=%d", s.CurrentID(), len(s.Windows()))
	}

	if err := s.DeleteWindow("nope"); !errors.Is(err, ErrWindowNotFound) {
		t.Errorf("got %v, want ErrWindowNotFound", err)
	}
}

func TestSettingsIsolationBetweenWindows(t *testing.T) {
	s, tick := testStore()

	a := s.CreateWindow("a")
	tick()
	s.CreateWindow("b")

	temp := 1.5
	m := model.ModelReasoner
	if err := s.UpdateSettings(SettingsPatch{Temperature: &temp, Model: &m}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	current, _ := s.CurrentWindow()
	if current.Settings.Temperature != 1.5 || current.Settings.Model != model.ModelReasoner {
		t.Errorf("current settings = %+v", current.Settings)
	}
	// Unpatched fields keep their values.
	if current.Settings.TopP != model.DefaultSettings().TopP {
		t.Errorf("TopP changed: %v", current.Settings.TopP)
	}

	for _, w := range s.Windows() {
		if w.ID == a.ID {
			if w.Settings.Temperature == 1.5 || w.Settings.Model == model.ModelReasoner {
				t.Error("settings leaked into another window")
			}
		}
	}
}

func TestExchangeStateMachine(t *testing.T) {
	s, _ := testStore()
	s.CreateWindow("")
	s.AppendMessage(model.Message{Role: model.RoleUser, Content: "q", Timestamp: 1})

	if err := s.BeginExchange(); err != nil {
		t.Fatalf("BeginExchange: %v", err)
	}
	if err := s.BeginExchange(); !errors.Is(err, ErrExchangeInFlight) {
		t.Errorf("second begin: got %v, want ErrExchangeInFlight", err)
	}
	if err := s.AppendMessage(model.Message{Role: model.RoleUser, Content: "x", Timestamp: 2}); !errors.Is(err, ErrExchangeInFlight) {
		t.Errorf("append while sending: got %v, want ErrExchangeInFlight", err)
	}

	if err := s.CompleteExchange("answer", "thoughts"); err != nil {
		t.Fatalf("CompleteExchange: %v", err)
	}
	w, _ := s.CurrentWindow()
	last := w.Messages[len(w.Messages)-1]
	if last.Role != model.RoleAssistant || last.Content != "answer" || last.ReasoningContent != "thoughts" {
		t.Errorf("last = %+v", last)
	}
	if s.Sending() {
		t.Error("still sending after complete")
	}

	if err := s.CompleteExchange("again", ""); !errors.Is(err, ErrNoExchange) {
		t.Errorf("complete without begin: got %v, want ErrNoExchange", err)
	}
}

func TestAbortExchangeLeavesNoTrace(t *testing.T) {
	s, _ := testStore()
	s.CreateWindow("")
	s.AppendMessage(model.Message{Role: model.RoleUser, Content: "q", Timestamp: 1})

	before, _ := s.CurrentWindow()
	s.BeginExchange()
	if err := s.AbortExchange(); err != nil {
		t.Fatalf("AbortExchange: %v", err)
	}

	after, _ := s.CurrentWindow()
	if len(after.Messages) != len(before.Messages) {
		t.Errorf("abort appended a message: %d -> %d", len(before.Messages), len(after.Messages))
	}
	if s.Sending() {
		t.Error("still sending after abort")
	}
}

func TestFailExchangeAppendsPlaceholder(t *testing.T) {
	s, _ := testStore()
	s.CreateWindow("")
	s.AppendMessage(model.Message{Role: model.RoleUser, Content: "q", Timestamp: 1})

	s.BeginExchange()
	if err := s.FailExchange(); err != nil {
		t.Fatalf("FailExchange: %v", err)
	}

	w, _ := s.CurrentWindow()
	last := w.Messages[len(w.Messages)-1]
	if last.Role != model.RoleAssistant || last.Content != FailedExchangePlaceholder {
		t.Errorf("last = %+v", last)
	}
}

func TestAppendToLastMessage(t *testing.T) {
	s, _ := testStore()
	s.CreateWindow("")

	if err := s.AppendToLastMessage("x"); !errors.Is(err, ErrNoMessages) {
		t.Errorf("empty window: got %v, want ErrNoMessages", err)
	}

	s.AppendMessage(model.Message{Role: model.RoleAssistant, Content: "Hel", Timestamp: 1})
	if err := s.AppendToLastMessage("lo"); err != nil {
		t.Fatalf("AppendToLastMessage: %v", err)
	}

	w, _ := s.CurrentWindow()
	if got := w.Messages[0].Content; got != "Hello" {
		t.Errorf("content = %q", got)
	}
}

func TestDeleteLastMessage(t *testing.T) {
	s, _ := testStore()
	s.CreateWindow("")
	s.AppendMessage(model.Message{Role: model.RoleUser, Content: "a", Timestamp: 1})
	s.AppendMessage(model.Message{Role: model.RoleAssistant, Content: "b", Timestamp: 2})

	if err := s.DeleteLastMessage(); err != nil {
		t.Fatalf("DeleteLastMessage: %v", err)
	}
	w, _ := s.CurrentWindow()
	if len(w.Messages) != 1 || w.Messages[0].Content != "a" {
		t.Errorf("messages = %+v", w.Messages)
	}
}

func TestCopyOnWriteReadersSeeStableSlices(t *testing.T) {
	s, _ := testStore()
	s.CreateWindow("")
	s.AppendMessage(model.Message{Role: model.RoleUser, Content: "original", Timestamp: 1})

	held := s.Windows()
	heldMessages := held[0].Messages

	s.AppendMessage(model.Message{Role: model.RoleAssistant, Content: "reply", Timestamp: 2})
	s.AppendToLastMessage(" extended")

	if len(heldMessages) != 1 || heldMessages[0].Content != "original" {
		t.Errorf("previously handed-out slice changed: %+v", heldMessages)
	}
}

func TestSnapshotRestoreResetsTransientsAndRepairs(t *testing.T) {
	s, _ := testStore()
	w := s.CreateWindow("broken")
	s.AppendMessage(model.Message{Role: model.RoleUser, Content: "one", Timestamp: 100})

	snap := s.Snapshot()
	// Simulate a persisted history with broken alternation.
	snap.Windows[0].Messages = append(snap.Windows[0].Messages,
		model.Message{Role: model.RoleUser, Content: "two", Timestamp: 200})

	restored, _ := testStore()
	restored.sending = true
	restored.Restore(snap)

	if restored.Sending() {
		t.Error("sending flag survived restore")
	}
	if restored.CurrentID() != w.ID {
		t.Errorf("current = %q, want %q", restored.CurrentID(), w.ID)
	}

	got, _ := restored.CurrentWindow()
	if !IsAlternating(got.Messages) {
		t.Errorf("restored history not repaired: %+v", got.Messages)
	}
	if len(got.Messages) != 3 {
		t.Errorf("want placeholder inserted, got %d messages", len(got.Messages))
	}
}

func TestRestoreStaleCurrentFallsBackToFirst(t *testing.T) {
	s, tick := testStore()
	s.CreateWindow("a")
	tick()
	b := s.CreateWindow("b")

	snap := s.Snapshot()
	snap.CurrentWindowID = "gone"

	s.Restore(snap)
	if s.CurrentID() != b.ID {
		t.Errorf("current = %q, want first window %q", s.CurrentID(), b.ID)
	}
}

func TestRestoreEnforcesCap(t *testing.T) {
	s, tick := testStore()
	for i := 0; i < MaxWindows; i++ {
		tick()
		s.CreateWindow(fmt.Sprintf("w%d", i))
	}
	snap := s.Snapshot()

	extra := Window{ID: "extra", Title: "extra", LastActiveAt: 1}
	snap.Windows = append(snap.Windows, extra)

	s.Restore(snap)
	if len(s.Windows()) != MaxWindows {
		t.Fatalf("len = %d, want %d", len(s.Windows()), MaxWindows)
	}
	for _, w := range s.Windows() {
		if w.ID == "extra" {
			t.Error("least-recently-active window survived the cap")
		}
	}
}
