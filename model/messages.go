package model

// Bubbletea messages produced by the streaming exchange goroutine. The UI
// receives them in wire order over a channel, so answer and reasoning deltas
// arrive exactly as the frames did.

type StreamAnswerMsg struct {
	Chunk string
}

type StreamReasoningMsg struct {
	Chunk string
}

type StreamDoneMsg struct {
	Content          string
	ReasoningContent string
}

type StreamErrorMsg struct {
	Err error
}

type StreamAbortedMsg struct{}

// ToolNoteMsg carries a non-fatal notice about a tool step (failure or
// missing definition); the exchange itself continues.
type ToolNoteMsg struct {
	Text string
}
