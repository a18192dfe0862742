// Package deepseek implements the streaming chat-completion client: it owns
// one logical exchange end to end, demultiplexing the event stream into
// answer deltas, reasoning deltas and an accumulating tool call, and running
// the nested tool invocation plus follow-up stream when a call completes.
package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/miyifan/deepchat/model"
	"github.com/miyifan/deepchat/tools"
)

const (
	// DefaultBaseURL is the hosted API endpoint.
	DefaultBaseURL = "https://api.deepseek.com"

	// minAPIKeyLength rejects implausible keys before any network call.
	minAPIKeyLength = 30
)

// Model aliases map to the hosted model names.
const (
	chatModelName     = "deepseek-chat"
	coderModelName    = "deepseek-coder"
	reasonerModelName = "deepseek-reasoner"
)

// ResolveModel maps a settings alias to the hosted model name. Unknown
// aliases fall back to the chat model rather than failing: the policy is
// lenient on model selection, strict on credentials.
func ResolveModel(alias model.ModelAlias) (name string, fellBack bool) {
	switch alias {
	case model.ModelChat:
		return chatModelName, false
	case model.ModelCoder:
		return coderModelName, false
	case model.ModelReasoner:
		return reasonerModelName, false
	default:
		return chatModelName, true
	}
}

// ToolInvoker executes one declarative HTTP function call. The production
// implementation is tools.Client; tests substitute mocks.
type ToolInvoker interface {
	Invoke(ctx context.Context, def model.FunctionDefinition, args interface{}) (interface{}, error)
}

// StreamHandlers receive deltas in the exact order their frames arrived on
// the wire. Any handler may be nil.
type StreamHandlers struct {
	OnAnswerDelta    func(chunk string)
	OnReasoningDelta func(chunk string)
	OnToolNote       func(text string)
}

// ExchangeResult is the accumulated outcome of one exchange. Content equals
// the byte-for-byte concatenation of every answer delta across both legs.
type ExchangeResult struct {
	Content          string
	ReasoningContent string
}

// Client talks to the chat-completion and balance endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	invoker    ToolInvoker
}

// NewClient creates a client. No request timeout is set on exchanges: a
// stream may legitimately run for minutes, and cancellation via context is
// the only bound.
func NewClient(baseURL, apiKey string, invoker ToolInvoker) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		invoker:    invoker,
	}
}

// exchangeState is the transient state of one exchange; it is discarded on
// completion, cancellation or error.
type exchangeState struct {
	answer    strings.Builder
	reasoning strings.Builder
	pending   pendingToolCall
	toolDone  bool
}

// legContext carries the per-exchange inputs a stream leg needs.
type legContext struct {
	settings     model.ChatSettings
	outgoing     []wireMessage
	modelName    string
	toolsEnabled bool
	handlers     StreamHandlers
}

// ChatStream runs one exchange: request, stream consumption, and, when a
// tool call completes, the nested invocation plus second stream leg. The
// returned result accumulates both legs into one logical response.
//
// Cancellation of ctx surfaces ErrStreamAborted; callers append no assistant
// message in that case. All other errors are genuine failures.
func (c *Client) ChatStream(ctx context.Context, history []model.Message, settings model.ChatSettings, h StreamHandlers) (*ExchangeResult, error) {
	key := strings.TrimSpace(c.apiKey)
	if len(key) < minAPIKeyLength {
		return nil, &CredentialError{Reason: "missing or too short - configure your DeepSeek API key first"}
	}

	modelName, fellBack := ResolveModel(settings.Model)
	if fellBack {
		debugf("unknown model alias %q, falling back to %s", settings.Model, modelName)
	}

	outgoing := buildWireMessages(history, settings.SystemPrompt)

	// The reasoner model does not support tool calls.
	var wireTools []wireTool
	if modelName != reasonerModelName {
		wireTools = buildWireTools(settings.Functions)
	}

	leg := legContext{
		settings:     settings,
		outgoing:     outgoing,
		modelName:    modelName,
		toolsEnabled: len(wireTools) > 0,
		handlers:     h,
	}

	body, err := c.openStream(ctx, chatRequest{
		Model:       modelName,
		Messages:    outgoing,
		Temperature: settings.Temperature,
		Tools:       wireTools,
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	st := &exchangeState{}
	if err := c.consumeLeg(ctx, body, st, leg); err != nil {
		return nil, err
	}

	return &ExchangeResult{
		Content:          st.answer.String(),
		ReasoningContent: st.reasoning.String(),
	}, nil
}

// openStream POSTs a chat request and returns the response body on 200.
// Non-2xx responses are classified into the error taxonomy.
func (c *Client) openStream(ctx context.Context, req chatRequest) (io.ReadCloser, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.apiKey))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, mapStreamError(ctx, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, classifyHTTPError(resp.StatusCode, string(body))
	}

	return resp.Body, nil
}

// consumeLeg processes one stream leg frame by frame. Frame-level parse
// failures are logged and skipped; they never escape the read loop. Tool-call
// frames are only honored on the first leg while no call has run yet -
// anything else (reasoner anomaly, a second call) is treated as a malformed
// event.
func (c *Client) consumeLeg(ctx context.Context, body io.Reader, st *exchangeState, leg legContext) error {
	var abortErr error

	err := consumeSSE(ctx, body, func(data []byte) {
		if abortErr != nil {
			return
		}

		var frame streamFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			debugf("skipping malformed event: %v", err)
			return
		}
		if len(frame.Choices) == 0 {
			return
		}
		delta := frame.Choices[0].Delta

		// Deltas are appended verbatim; no trimming until display time.
		if delta.Content != "" {
			st.answer.WriteString(delta.Content)
			if leg.handlers.OnAnswerDelta != nil {
				leg.handlers.OnAnswerDelta(delta.Content)
			}
		}
		if delta.ReasoningContent != "" {
			st.reasoning.WriteString(delta.ReasoningContent)
			if leg.handlers.OnReasoningDelta != nil {
				leg.handlers.OnReasoningDelta(delta.ReasoningContent)
			}
		}

		if len(delta.ToolCalls) == 0 {
			return
		}
		if !leg.toolsEnabled || st.toolDone {
			debugf("skipping unexpected tool-call frame (toolsEnabled=%v, toolDone=%v)", leg.toolsEnabled, st.toolDone)
			return
		}

		st.pending.merge(delta.ToolCalls[0])
		if !st.pending.complete() {
			return
		}

		// The call is fully assembled: suspend this leg, run the tool and
		// the follow-up stream, then keep reading the remaining frames.
		name := st.pending.name
		if err := c.runToolStep(ctx, st, leg); err != nil {
			if errors.Is(err, ErrStreamAborted) {
				abortErr = err
				return
			}
			// Tool failures degrade: whatever already streamed stays valid.
			debugf("tool step failed: %v", err)
			if leg.handlers.OnToolNote != nil {
				leg.handlers.OnToolNote(fmt.Sprintf("function call %s failed: %v", name, err))
			}
		}
		st.toolDone = true
		st.pending.reset()
	})
	if err != nil {
		return err
	}
	return abortErr
}

// runToolStep resolves and executes the assembled tool call, then opens the
// second stream leg feeding the same buffers and handlers.
func (c *Client) runToolStep(ctx context.Context, st *exchangeState, leg legContext) error {
	name := st.pending.name
	def, ok := leg.settings.FindFunction(name)
	if !ok {
		return &ToolNotFoundError{Name: name}
	}

	// Object schemas get coerced property by property; a primitive schema
	// means the accumulated arguments are one bare JSON value.
	var invokeArgs interface{}
	if def.Parameters.IsObject() {
		var rawArgs map[string]interface{}
		if err := json.Unmarshal([]byte(st.pending.args.String()), &rawArgs); err != nil {
			return fmt.Errorf("failed to parse arguments for %s: %w", name, err)
		}
		coerced, err := tools.Coerce(rawArgs, def.Parameters)
		if err != nil {
			return fmt.Errorf("invalid arguments for %s: %w", name, err)
		}
		invokeArgs = coerced
	} else {
		var raw interface{}
		if err := json.Unmarshal([]byte(st.pending.args.String()), &raw); err != nil {
			return fmt.Errorf("failed to parse arguments for %s: %w", name, err)
		}
		coerced, err := tools.CoercePrimitive(raw, def.Parameters.Type)
		if err != nil {
			return fmt.Errorf("invalid arguments for %s: %w", name, err)
		}
		invokeArgs = coerced
	}

	if c.invoker == nil {
		return fmt.Errorf("no tool invoker configured")
	}
	result, err := c.invoker.Invoke(ctx, def, invokeArgs)
	if err != nil {
		return err
	}

	argsJSON, err := json.Marshal(invokeArgs)
	if err != nil {
		return fmt.Errorf("failed to encode arguments for %s: %w", name, err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result of %s: %w", name, err)
	}

	// Prior outgoing messages + the assistant's tool-call turn + the tool
	// result, then stream the continuation.
	followUp := make([]wireMessage, 0, len(leg.outgoing)+2)
	followUp = append(followUp, leg.outgoing...)
	followUp = append(followUp, wireMessage{
		Role:    model.RoleAssistant,
		Content: st.answer.String(),
		ToolCalls: []wireToolCall{{
			ID:   st.pending.id,
			Type: "function",
			Function: wireToolCallFunction{
				Name:      name,
				Arguments: string(argsJSON),
			},
		}},
	})
	followUp = append(followUp, wireMessage{
		Role:       model.RoleTool,
		ToolCallID: st.pending.id,
		Content:    string(resultJSON),
	})

	body, err := c.openStream(ctx, chatRequest{
		Model:       leg.modelName,
		Messages:    followUp,
		Temperature: leg.settings.Temperature,
		Stream:      true,
	})
	if err != nil {
		return err
	}
	defer body.Close()

	// One tool call per exchange: the second leg runs with tools disabled,
	// so any further tool-call frames are skipped.
	second := leg
	second.toolsEnabled = false
	return c.consumeLeg(ctx, body, st, second)
}
