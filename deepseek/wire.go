package deepseek

import (
	"github.com/miyifan/deepchat/model"
)

// Wire types for the chat-completion endpoint. Only role and content of the
// local history go on the wire; timestamps and reasoning stay local.

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireTool struct {
	Type     string           `json:"type"`
	Function wireToolFunction `json:"function"`
}

type wireToolFunction struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Parameters  model.ParameterSchema `json:"parameters"`
}

type wireToolCall struct {
	ID       string               `json:"id"`
	Type     string               `json:"type"`
	Function wireToolCallFunction `json:"function"`
}

type wireToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Tools       []wireTool    `json:"tools,omitempty"`
	Stream      bool          `json:"stream"`
}

// streamFrame is one parsed `data:` frame of the response stream.
type streamFrame struct {
	Choices []struct {
		Delta struct {
			Content          string          `json:"content"`
			ReasoningContent string          `json:"reasoning_content"`
			ToolCalls        []toolCallDelta `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

type toolCallDelta struct {
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// buildWireMessages assembles the outgoing message list: optional system
// prompt first, then the history stripped to role and content.
func buildWireMessages(history []model.Message, systemPrompt string) []wireMessage {
	out := make([]wireMessage, 0, len(history)+1)
	if systemPrompt != "" {
		out = append(out, wireMessage{Role: model.RoleSystem, Content: systemPrompt})
	}
	for _, m := range history {
		out = append(out, wireMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// buildWireTools converts the window's function definitions into tool
// declarations.
func buildWireTools(functions []model.FunctionDefinition) []wireTool {
	if len(functions) == 0 {
		return nil
	}
	out := make([]wireTool, 0, len(functions))
	for _, f := range functions {
		out = append(out, wireTool{
			Type: "function",
			Function: wireToolFunction{
				Name:        f.Name,
				Description: f.Description,
				Parameters:  f.Parameters,
			},
		})
	}
	return out
}
