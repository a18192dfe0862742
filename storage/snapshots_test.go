package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/miyifan/deepchat/model"
	"github.com/miyifan/deepchat/store"
)

func sampleSnapshot() store.Snapshot {
	return store.Snapshot{
		Windows: []store.Window{{
			ID:    "1000-abcd1234",
			Title: "weather talk",
			Messages: []model.Message{
				{Role: model.RoleUser, Content: "weather in Berlin?", Timestamp: 1000},
				{Role: model.RoleAssistant, Content: "Sunny, 24 degrees.", ReasoningContent: "checked the tool", Timestamp: 2000},
			},
			Settings:     model.DefaultSettings(),
			CreatedAt:    1000,
			UpdatedAt:    2000,
			LastActiveAt: 2000,
		}},
		CurrentWindowID: "1000-abcd1234",
	}
}

func TestSnapshotSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSnapshotStorage(dir)
	if err != nil {
		t.Fatalf("NewSnapshotStorage: %v", err)
	}

	want := sampleSnapshot()
	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := s.Load()
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.CurrentWindowID != want.CurrentWindowID {
		t.Errorf("CurrentWindowID = %q", got.CurrentWindowID)
	}
	if len(got.Windows) != 1 || got.Windows[0].Title != "weather talk" {
		t.Fatalf("windows = %+v", got.Windows)
	}
	if got.Windows[0].Messages[1].ReasoningContent != "checked the tool" {
		t.Error("reasoning content lost in round trip")
	}

	info, err := os.Stat(filepath.Join(dir, "windows.json"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("snapshot perms = %o, want 0600", info.Mode().Perm())
	}
}

func TestSnapshotLoadMissingFile(t *testing.T) {
	s, err := NewSnapshotStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, ok, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Error("missing file reported as present")
	}
}

func TestInstanceLock(t *testing.T) {
	s, err := NewSnapshotStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	locked, _, err := s.CheckInstanceLock()
	if err != nil || locked {
		t.Fatalf("fresh dir: locked=%v err=%v", locked, err)
	}

	if err := s.LockInstance(); err != nil {
		t.Fatalf("LockInstance: %v", err)
	}
	locked, pid, err := s.CheckInstanceLock()
	if err != nil {
		t.Fatalf("CheckInstanceLock: %v", err)
	}
	if !locked || pid != os.Getpid() {
		t.Errorf("locked=%v pid=%d, want this process", locked, pid)
	}

	if err := s.UnlockInstance(); err != nil {
		t.Fatalf("UnlockInstance: %v", err)
	}
	if err := s.UnlockInstance(); err != nil {
		t.Errorf("double unlock: %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"weather talk", "weather-talk"},
		{"a/b\\c:d", "a-b-c-d"},
		{"---", "conversation"},
		{"", "conversation"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportJSONAndHTML(t *testing.T) {
	dir := t.TempDir()
	w := sampleSnapshot().Windows[0]

	jsonPath := filepath.Join(dir, "out.json")
	if err := ExportJSON(w, jsonPath); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "weather in Berlin?") {
		t.Error("JSON export missing message content")
	}

	htmlPath := filepath.Join(dir, "out.html")
	if err := ExportHTML(w, htmlPath); err != nil {
		t.Fatalf("ExportHTML: %v", err)
	}
	page, err := os.ReadFile(htmlPath)
	if err != nil {
		t.Fatal(err)
	}
	got := string(page)
	if !strings.Contains(got, "<title>weather talk</title>") {
		t.Error("HTML export missing title")
	}
	if !strings.Contains(got, "Sunny, 24 degrees.") {
		t.Error("HTML export missing assistant content")
	}
	if !strings.Contains(got, "checked the tool") {
		t.Error("HTML export missing reasoning content")
	}
}

func TestExportHTMLEscapesMarkup(t *testing.T) {
	w := store.Window{
		ID:    "w1",
		Title: `<script>alert("x")</script>`,
		Messages: []model.Message{
			{Role: model.RoleUser, Content: "hi", Timestamp: 1},
		},
	}
	path := filepath.Join(t.TempDir(), "out.html")
	if err := ExportHTML(w, path); err != nil {
		t.Fatal(err)
	}
	page, _ := os.ReadFile(path)
	if strings.Contains(string(page), `<title><script>`) {
		t.Error("title not escaped")
	}
}
