package deepseek

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStreamAborted is returned when the caller cancels an in-flight exchange.
// Callers treat it as "no new assistant message", unlike every other failure.
var ErrStreamAborted = errors.New("stream aborted")

// CredentialError means the API key is missing or implausible. It is raised
// before any network call, and also when the upstream rejects the key.
type CredentialError struct {
	Reason string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("invalid API key: %s", e.Reason)
}

// UpstreamHTTPError is a non-2xx response from the chat endpoint.
type UpstreamHTTPError struct {
	Status int
	Body   string
}

func (e *UpstreamHTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API request failed (%d)", e.Status)
	}
	return fmt.Sprintf("API request failed (%d): %s", e.Status, e.Body)
}

// ToolNotFoundError means the model requested a function that is absent from
// the window's function list. The exchange degrades instead of failing.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("function definition not found: %s", e.Name)
}

// authKeywords mirror the upstream's unauthenticated error bodies.
var authKeywords = []string{"authentication", "apikey", "api key", "access token", "unauthorized"}

func looksLikeAuthFailure(body string) bool {
	lower := strings.ToLower(body)
	for _, kw := range authKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// classifyHTTPError maps a non-2xx chat-endpoint response onto the taxonomy:
// auth-flavored bodies become credential errors, everything else surfaces the
// status and body.
func classifyHTTPError(status int, body string) error {
	if looksLikeAuthFailure(body) {
		return &CredentialError{Reason: "rejected by the API - check your DeepSeek API key"}
	}
	return &UpstreamHTTPError{Status: status, Body: body}
}
