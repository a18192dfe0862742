// Package store holds the multi-window conversation state: an ordered,
// recency-bumped window list with least-recently-active eviction, per-window
// settings isolation, and an explicit one-exchange-at-a-time state machine.
package store

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/miyifan/deepchat/model"
)

// MaxWindows is the retention cap; overflow evicts the least recently active
// windows.
const MaxWindows = 20

// Window is one independent conversation thread. Timestamps are unix
// milliseconds.
type Window struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Messages     []model.Message    `json:"messages"`
	Settings     model.ChatSettings `json:"settings"`
	CreatedAt    int64              `json:"created_at"`
	UpdatedAt    int64              `json:"updated_at"`
	LastActiveAt int64              `json:"last_active_at"`
}

// NewWindowID derives a window id from the creation time plus random
// entropy, so windows created within the same millisecond still get distinct
// ids.
func NewWindowID(nowMillis int64) string {
	return fmt.Sprintf("%d-%s", nowMillis, uuid.NewString()[:8])
}

// Clone returns a deep copy; mutating the copy never touches the original.
func (w Window) Clone() Window {
	out := w
	out.Messages = make([]model.Message, len(w.Messages))
	copy(out.Messages, w.Messages)
	out.Settings = w.Settings.Clone()
	return out
}
