// Package tools executes the declarative HTTP function calls a chat window
// declares: argument coercion against the declared parameter schema, URL
// placeholder substitution, and the request itself.
package tools

import (
	"fmt"
	"strconv"

	"github.com/miyifan/deepchat/model"
)

// Coerce validates args against the declared parameter schema and coerces
// each declared property to its declared type. Undeclared arguments are
// dropped; a missing required parameter is an error. Non-object schemas pass
// the arguments through untouched.
func Coerce(args map[string]interface{}, schema model.ParameterSchema) (map[string]interface{}, error) {
	if !schema.IsObject() {
		return args, nil
	}

	out := make(map[string]interface{}, len(schema.Properties))
	for name, spec := range schema.Properties {
		raw, ok := args[name]
		if !ok {
			continue
		}
		v, err := coerceValue(raw, spec.Type)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		out[name] = v
	}

	for _, name := range schema.Required {
		if _, ok := out[name]; !ok {
			return nil, fmt.Errorf("missing required parameter %q", name)
		}
	}

	return out, nil
}

// CoercePrimitive coerces the single argument of a primitive-shaped schema
// to its declared type.
func CoercePrimitive(v interface{}, typ string) (interface{}, error) {
	return coerceValue(v, typ)
}

func coerceValue(v interface{}, typ string) (interface{}, error) {
	switch typ {
	case "string":
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", v), nil

	case "number":
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case string:
			f, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return nil, fmt.Errorf("expected a number, got %q", n)
			}
			return f, nil
		}
		return nil, fmt.Errorf("expected a number, got %T", v)

	case "integer":
		switch n := v.(type) {
		case float64:
			return int(n), nil
		case int:
			return n, nil
		case string:
			i, err := strconv.Atoi(n)
			if err != nil {
				return nil, fmt.Errorf("expected an integer, got %q", n)
			}
			return i, nil
		}
		return nil, fmt.Errorf("expected an integer, got %T", v)

	case "boolean":
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, fmt.Errorf("expected a boolean, got %q", b)
			}
			return parsed, nil
		}
		return nil, fmt.Errorf("expected a boolean, got %T", v)

	default:
		// Unknown declared types pass through; the endpoint decides.
		return v, nil
	}
}
