package ui

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/miyifan/deepchat/deepseek"
	"github.com/miyifan/deepchat/model"
	"github.com/miyifan/deepchat/store"
)

const testAPIKey = "sk-0123456789abcdef0123456789abcdef"

func testApp(t *testing.T, baseURL string) (AppView, *store.Store) {
	t.Helper()
	st := store.New(model.DefaultSettings())
	st.CreateWindow("")
	client := deepseek.NewClient(baseURL, testAPIKey, nil)
	return New(st, client, nil, nil), st
}

func TestSendMessageStreamsToCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w,
			"data: {\"choices\":[{\"delta\":{\"reasoning_content\":\"thinking \"}}]}\n\n",
			"data: {\"choices\":[{\"delta\":{\"content\":\"Hello, \"}}]}\n\n",
			"data: {\"choices\":[{\"delta\":{\"content\":\"world\"}}]}\n\n",
			"data: [DONE]\n\n")
	}))
	defer srv.Close()

	app, st := testApp(t, srv.URL)
	app, _ = app.sendMessage("hi there")
	if !st.Sending() {
		t.Fatal("exchange slot not claimed after send")
	}

	var answer string
	for msg := range app.streamCh {
		switch m := msg.(type) {
		case model.StreamAnswerMsg:
			answer += m.Chunk
		case model.StreamDoneMsg:
			app, _ = app.handleStreamMsg(m)
		}
	}

	if answer != "Hello, world" {
		t.Errorf("streamed answer = %q, want %q", answer, "Hello, world")
	}
	if st.Sending() {
		t.Error("exchange slot still held after completion")
	}

	w, ok := st.CurrentWindow()
	if !ok || len(w.Messages) != 2 {
		t.Fatalf("window has %d messages, want user + assistant", len(w.Messages))
	}
	if w.Messages[1].Content != "Hello, world" {
		t.Errorf("assistant content = %q", w.Messages[1].Content)
	}
	if w.Messages[1].ReasoningContent != "thinking " {
		t.Errorf("reasoning content = %q", w.Messages[1].ReasoningContent)
	}
}

func TestCancelExchangeLeavesNoTrace(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release
	}))
	defer srv.Close()
	defer close(release)

	app, st := testApp(t, srv.URL)
	app, _ = app.sendMessage("hi there")

	cancelled := false
	for msg := range app.streamCh {
		switch m := msg.(type) {
		case model.StreamAnswerMsg:
			app.cancelExchange()
		case model.StreamAbortedMsg:
			cancelled = true
			app, _ = app.handleStreamMsg(m)
		}
	}

	if !cancelled {
		t.Fatal("never saw the aborted message")
	}
	if st.Sending() {
		t.Error("exchange slot still held after cancel")
	}
	w, _ := st.CurrentWindow()
	if len(w.Messages) != 1 {
		t.Errorf("window has %d messages, want only the user turn", len(w.Messages))
	}
}
