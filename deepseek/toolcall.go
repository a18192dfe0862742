package deepseek

import (
	"encoding/json"
	"strings"
)

// pendingToolCall accumulates a function call that arrives fragmented across
// many frames: the id and name are each set once, while the arguments JSON
// string is concatenated in arrival order and never overwritten.
type pendingToolCall struct {
	id   string
	name string
	args strings.Builder
}

func (p *pendingToolCall) merge(d toolCallDelta) {
	if d.ID != "" && p.id == "" {
		p.id = d.ID
	}
	if d.Function.Name != "" && p.name == "" {
		p.name = d.Function.Name
	}
	if d.Function.Arguments != "" {
		p.args.WriteString(d.Function.Arguments)
	}
}

// complete reports whether the accumulated call is ready to execute: id and
// name resolved, and the arguments string parses as JSON. Until the fragments
// add up to valid JSON the call is still streaming in.
func (p *pendingToolCall) complete() bool {
	if p.id == "" || p.name == "" || p.args.Len() == 0 {
		return false
	}
	return json.Valid([]byte(p.args.String()))
}

func (p *pendingToolCall) reset() {
	p.id = ""
	p.name = ""
	p.args.Reset()
}
