package store

import (
	"github.com/miyifan/deepchat/model"
)

// Placeholder contents for synthetic turns inserted by Repair.
const (
	placeholderAssistant = "[no reply recorded]"
	placeholderUser      = "[continue]"
)

// Repair restores strict user/assistant alternation in a message list by
// inserting a synthetic turn of the opposite role between two adjacent
// same-role messages. System and tool messages pass through untouched and do
// not participate in the alternation rule; when one sits between the two
// same-role turns, the placeholder goes directly before the turn that broke
// the alternation. The first message is never altered, the input slice is
// never mutated, and the pass is idempotent.
//
// A placeholder's timestamp falls strictly between its neighbours' where the
// gap allows; with no room it clamps to one past the earlier message, which
// keeps chronological ordering stable enough for render keys.
func Repair(messages []model.Message) []model.Message {
	out := make([]model.Message, 0, len(messages))
	lastConvIdx := -1 // index into out of the last user/assistant message

	for _, msg := range messages {
		if !model.IsConversational(msg.Role) {
			out = append(out, msg)
			continue
		}

		if lastConvIdx >= 0 && out[lastConvIdx].Role == msg.Role {
			prev := out[lastConvIdx]
			out = append(out, model.Message{
				Role:      oppositeRole(msg.Role),
				Content:   placeholderFor(oppositeRole(msg.Role)),
				Timestamp: betweenTimestamps(prev.Timestamp, msg.Timestamp),
			})
		}

		out = append(out, msg)
		lastConvIdx = len(out) - 1
	}

	return out
}

// IsAlternating reports whether the user/assistant subsequence of messages
// already alternates strictly.
func IsAlternating(messages []model.Message) bool {
	lastRole := ""
	for _, msg := range messages {
		if !model.IsConversational(msg.Role) {
			continue
		}
		if msg.Role == lastRole {
			return false
		}
		lastRole = msg.Role
	}
	return true
}

func oppositeRole(role string) string {
	if role == model.RoleUser {
		return model.RoleAssistant
	}
	return model.RoleUser
}

func placeholderFor(role string) string {
	if role == model.RoleAssistant {
		return placeholderAssistant
	}
	return placeholderUser
}

func betweenTimestamps(before, after int64) int64 {
	mid := before + (after-before)/2
	if mid <= before {
		mid = before + 1
	}
	return mid
}
