package model

// ModelAlias selects one of the hosted chat models by short name.
type ModelAlias string

const (
	ModelChat     ModelAlias = "chat"
	ModelCoder    ModelAlias = "coder"
	ModelReasoner ModelAlias = "reasoner"
)

// Known reports whether the alias names one of the three supported models.
func (a ModelAlias) Known() bool {
	switch a {
	case ModelChat, ModelCoder, ModelReasoner:
		return true
	}
	return false
}

// ChatSettings holds the per-window generation parameters.
//
// Every window owns its own copy; a shared settings value leaking across
// windows is a defect, so callers clone before assigning.
type ChatSettings struct {
	Temperature  float64              `json:"temperature" toml:"temperature"`
	TopP         float64              `json:"topP" toml:"top_p"`
	TopK         int                  `json:"topK" toml:"top_k"`
	MaxLength    int                  `json:"maxLength" toml:"max_length"`
	SystemPrompt string               `json:"systemPrompt" toml:"system_prompt"`
	Model        ModelAlias           `json:"model" toml:"model"`
	Functions    []FunctionDefinition `json:"functions" toml:"-"`
}

// DefaultSettings returns the settings cloned into each new window.
func DefaultSettings() ChatSettings {
	return ChatSettings{
		Temperature: 0.7,
		TopP:        0.9,
		TopK:        50,
		MaxLength:   2000,
		Model:       ModelChat,
		Functions:   DefaultFunctions(),
	}
}

// Clone returns a deep copy, including the function list and its header maps.
func (s ChatSettings) Clone() ChatSettings {
	out := s
	if s.Functions != nil {
		out.Functions = make([]FunctionDefinition, len(s.Functions))
		for i, f := range s.Functions {
			out.Functions[i] = f.Clone()
		}
	}
	return out
}

// FindFunction looks a function definition up by its dispatch name.
func (s ChatSettings) FindFunction(name string) (FunctionDefinition, bool) {
	for _, f := range s.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return FunctionDefinition{}, false
}
