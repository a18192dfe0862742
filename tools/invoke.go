package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/miyifan/deepchat/model"
)

// ErrorKind classifies an invocation failure.
type ErrorKind string

const (
	KindNetwork     ErrorKind = "network"
	KindAuth        ErrorKind = "auth"
	KindNotFound    ErrorKind = "not_found"
	KindRateLimited ErrorKind = "rate_limited"
	KindUpstream    ErrorKind = "upstream"
)

// InvocationError is a failed function call. The message is written for the
// person configuring the function, since the usual cause is a bad URL, a
// missing API key placeholder, or endpoint quota.
type InvocationError struct {
	Func   string
	Kind   ErrorKind
	Status int
	Msg    string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("function %s: %s", e.Func, e.Msg)
}

// Client performs declarative HTTP function invocations. Each call is a
// single attempt with no retry; the caller already degrades on failure.
type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{httpClient: &http.Client{}}
}

// SubstituteParams replaces {name} placeholders in rawURL with the
// query-escaped argument values, returning the substituted URL and the set of
// argument names consumed. Placeholders with no matching argument are left
// as-is, so unconfigured API-key placeholders surface verbatim in the request
// and fail loudly at the endpoint.
func SubstituteParams(rawURL string, args map[string]interface{}) (string, map[string]bool) {
	return substitute(rawURL, args, url.QueryEscape)
}

// substituteRaw is SubstituteParams without query escaping, for header
// values.
func substituteRaw(value string, args map[string]interface{}) (string, map[string]bool) {
	return substitute(value, args, func(s string) string { return s })
}

func substitute(in string, args map[string]interface{}, escape func(string) string) (string, map[string]bool) {
	used := make(map[string]bool)
	out := in
	for name, v := range args {
		placeholder := "{" + name + "}"
		if !strings.Contains(out, placeholder) {
			continue
		}
		out = strings.ReplaceAll(out, placeholder, escape(fmt.Sprintf("%v", v)))
		used[name] = true
	}
	return out, used
}

// Invoke performs one function call: placeholder substitution in the URL and
// header values, then a GET with leftover arguments as query parameters or a
// POST with them as a JSON body. A primitive-schema argument skips the object
// shaping entirely and goes on the wire as the bare JSON value. JSON
// responses are decoded; anything else is returned as raw text.
func (c *Client) Invoke(ctx context.Context, def model.FunctionDefinition, args interface{}) (interface{}, error) {
	argMap, isObject := args.(map[string]interface{})

	target, used := SubstituteParams(def.URL, argMap)

	headers := make(map[string]string, len(def.Headers))
	for k, v := range def.Headers {
		sub, headerUsed := substituteRaw(v, argMap)
		headers[k] = sub
		for name := range headerUsed {
			used[name] = true
		}
	}

	leftover := make(map[string]interface{})
	for name, v := range argMap {
		if !used[name] {
			leftover[name] = v
		}
	}

	var req *http.Request
	var err error
	switch def.Method {
	case model.MethodPost:
		var payload interface{} = leftover
		if !isObject {
			payload = args
		}
		var body bytes.Buffer
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return nil, &InvocationError{Func: def.Name, Kind: KindUpstream, Msg: fmt.Sprintf("failed to encode request body: %v", err)}
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, target, &body)
	default:
		target = appendQuery(target, leftover)
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	}
	if err != nil {
		return nil, &InvocationError{Func: def.Name, Kind: KindNetwork, Msg: fmt.Sprintf("invalid request: %v", err)}
	}

	req.Header.Set("Accept", "application/json")
	if def.Method == model.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &InvocationError{Func: def.Name, Kind: KindNetwork, Msg: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &InvocationError{Func: def.Name, Kind: KindNetwork, Msg: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyResponse(def.Name, resp.StatusCode, raw)
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// Not JSON; hand the text back as the tool result.
		return string(raw), nil
	}
	return decoded, nil
}

func appendQuery(target string, args map[string]interface{}) string {
	if len(args) == 0 {
		return target
	}
	values := url.Values{}
	for name, v := range args {
		values.Set(name, fmt.Sprintf("%v", v))
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + values.Encode()
}

func classifyResponse(funcName string, status int, body []byte) *InvocationError {
	switch {
	case status == http.StatusNotFound:
		return &InvocationError{
			Func: funcName, Kind: KindNotFound, Status: status,
			Msg: "endpoint not found (404) - check the function URL",
		}
	case status == http.StatusTooManyRequests:
		return &InvocationError{
			Func: funcName, Kind: KindRateLimited, Status: status,
			Msg: "rate limited (429) - the endpoint is rejecting requests, try again later",
		}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &InvocationError{
			Func: funcName, Kind: KindAuth, Status: status,
			Msg: fmt.Sprintf("authorization failed (%d) - check the API key configured for this function", status),
		}
	default:
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return &InvocationError{
			Func: funcName, Kind: KindUpstream, Status: status,
			Msg: fmt.Sprintf("endpoint returned %d: %s", status, msg),
		}
	}
}
