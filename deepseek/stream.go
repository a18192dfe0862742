package deepseek

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/miyifan/deepchat/config"
)

const dataPrefix = "data: "

// maxFrameSize bounds a single event frame; frames are small deltas, so 1MB
// is generous headroom.
const maxFrameSize = 1024 * 1024

// consumeSSE reads newline-delimited `data: ` frames from body until the
// `[DONE]` sentinel or EOF, calling onFrame with each complete frame body.
// Partial lines spanning two reads are carried over by the scanner and only
// surfaced once complete. Blank lines and `:` comment lines are skipped.
//
// A read failure caused by ctx cancellation maps to ErrStreamAborted.
func consumeSSE(ctx context.Context, body io.Reader, onFrame func(data []byte)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		data := strings.TrimSpace(line[len(dataPrefix):])
		if data == "[DONE]" {
			return nil
		}
		onFrame([]byte(data))
	}

	if err := scanner.Err(); err != nil {
		return mapStreamError(ctx, err)
	}
	// Upstream closed without [DONE]; treat as normal end of stream.
	return nil
}

// mapStreamError turns a mid-stream read failure into the caller-facing
// error: cancellation becomes ErrStreamAborted, anything else passes through.
func mapStreamError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrStreamAborted
	}
	return err
}

func debugf(format string, args ...interface{}) {
	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf(format, args...)
	}
}
