package model

import (
	"fmt"

	"github.com/google/uuid"
)

// HTTP methods a function definition may use.
const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

// FunctionDefinition is a declarative template for a model-invokable HTTP
// call. The URL and header values may contain `{param}` placeholders that are
// substituted per invocation; the definition itself is never mutated.
type FunctionDefinition struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  ParameterSchema   `json:"parameters"`
	URL         string            `json:"url"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// Clone returns a copy with its own header map.
func (f FunctionDefinition) Clone() FunctionDefinition {
	out := f
	if f.Headers != nil {
		out.Headers = make(map[string]string, len(f.Headers))
		for k, v := range f.Headers {
			out.Headers[k] = v
		}
	}
	if f.Parameters.Properties != nil {
		out.Parameters.Properties = make(map[string]PropertySpec, len(f.Parameters.Properties))
		for k, v := range f.Parameters.Properties {
			out.Parameters.Properties[k] = v
		}
	}
	out.Parameters.Required = append([]string(nil), f.Parameters.Required...)
	return out
}

// NewFunctionID generates an identifier for a user-defined function.
func NewFunctionID() string {
	return fmt.Sprintf("func_%s", uuid.New().String()[:8])
}

// ParameterSchema is a tagged JSON-Schema-like description of a function's
// arguments: either an object of named properties or a single primitive value.
type ParameterSchema struct {
	Type       string                  `json:"type"`
	Properties map[string]PropertySpec `json:"properties,omitempty"`
	Required   []string                `json:"required,omitempty"`
}

// PropertySpec describes one named argument of an object schema.
type PropertySpec struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// IsObject reports whether the schema describes an object of properties, as
// opposed to a single primitive value.
func (s ParameterSchema) IsObject() bool {
	return s.Type == "object"
}

// DefaultFunctions returns the starter function library seeded into default
// settings. API keys are left as placeholders for the user to fill in via the
// definition's headers or URL.
func DefaultFunctions() []FunctionDefinition {
	return []FunctionDefinition{
		{
			ID:          "weather",
			Name:        "get_weather",
			Description: "Get current weather for a city",
			Parameters: ParameterSchema{
				Type: "object",
				Properties: map[string]PropertySpec{
					"location": {Type: "string", Description: "City name, postcode or coordinates"},
					"aqi":      {Type: "string", Description: "Include air quality data", Enum: []string{"yes", "no"}},
					"lang":     {Type: "string", Description: "Response language", Enum: []string{"zh", "en"}},
				},
				Required: []string{"location"},
			},
			URL:    "https://api.weatherapi.com/v1/current.json?q={location}&key={WEATHER_API_KEY}",
			Method: MethodGet,
		},
		{
			ID:          "search",
			Name:        "search_web",
			Description: "Search the web for relevant pages",
			Parameters: ParameterSchema{
				Type: "object",
				Properties: map[string]PropertySpec{
					"q": {Type: "string", Description: "Search query"},
				},
				Required: []string{"q"},
			},
			URL:    "https://serpapi.com/search.json?api_key={SERP_API_KEY}&q={q}",
			Method: MethodGet,
		},
		{
			ID:          "translate",
			Name:        "translate_text",
			Description: "Translate text between languages",
			Parameters: ParameterSchema{
				Type: "object",
				Properties: map[string]PropertySpec{
					"text":        {Type: "string", Description: "Text to translate"},
					"source_lang": {Type: "string", Description: "Source language", Enum: []string{"auto", "en", "zh", "ja", "ko", "fr", "de"}},
					"target_lang": {Type: "string", Description: "Target language", Enum: []string{"en", "zh", "ja", "ko", "fr", "de"}},
				},
				Required: []string{"text", "target_lang"},
			},
			URL:    "https://api.deepl.com/v2/translate",
			Method: MethodPost,
			Headers: map[string]string{
				"Authorization": "DeepL-Auth-Key {DEEPL_API_KEY}",
			},
		},
		{
			ID:          "image_generation",
			Name:        "generate_image",
			Description: "Generate an image from a text prompt",
			Parameters: ParameterSchema{
				Type: "object",
				Properties: map[string]PropertySpec{
					"prompt": {Type: "string", Description: "Image description"},
					"size":   {Type: "string", Description: "Image size", Enum: []string{"256x256", "512x512", "1024x1024"}},
					"style":  {Type: "string", Description: "Image style", Enum: []string{"realistic", "artistic", "anime"}},
				},
				Required: []string{"prompt"},
			},
			URL:    "https://api.stability.ai/v1/generation",
			Method: MethodPost,
			Headers: map[string]string{
				"Authorization": "Bearer {STABILITY_API_KEY}",
			},
		},
	}
}
