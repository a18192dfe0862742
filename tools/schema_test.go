package tools

import (
	"strings"
	"testing"

	"github.com/miyifan/deepchat/model"
)

func objectSchema() model.ParameterSchema {
	return model.ParameterSchema{
		Type: "object",
		Properties: map[string]model.PropertySpec{
			"city":   {Type: "string"},
			"days":   {Type: "integer"},
			"lat":    {Type: "number"},
			"metric": {Type: "boolean"},
		},
		Required: []string{"city"},
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]interface{}
		want    map[string]interface{}
		wantErr string
	}{
		{
			name: "already typed",
			args: map[string]interface{}{"city": "Berlin", "days": 3.0, "lat": 52.5, "metric": true},
			want: map[string]interface{}{"city": "Berlin", "days": 3, "lat": 52.5, "metric": true},
		},
		{
			name: "strings coerced to declared types",
			args: map[string]interface{}{"city": "Berlin", "days": "5", "lat": "48.8", "metric": "true"},
			want: map[string]interface{}{"city": "Berlin", "days": 5, "lat": 48.8, "metric": true},
		},
		{
			name: "number coerced to string",
			args: map[string]interface{}{"city": 404.0},
			want: map[string]interface{}{"city": "404"},
		},
		{
			name: "undeclared arguments dropped",
			args: map[string]interface{}{"city": "Berlin", "injected": "value"},
			want: map[string]interface{}{"city": "Berlin"},
		},
		{
			name:    "missing required",
			args:    map[string]interface{}{"days": 2.0},
			wantErr: "missing required parameter",
		},
		{
			name:    "uncoercible integer",
			args:    map[string]interface{}{"city": "Berlin", "days": "soon"},
			wantErr: "expected an integer",
		},
		{
			name:    "uncoercible boolean",
			args:    map[string]interface{}{"city": "Berlin", "metric": "maybe"},
			wantErr: "expected a boolean",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.args, objectSchema())
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("got err %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Coerce: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %#v (%T), want %#v (%T)", k, got[k], got[k], v, v)
				}
			}
		})
	}
}

func TestCoerceNonObjectPassthrough(t *testing.T) {
	args := map[string]interface{}{"anything": "goes"}
	got, err := Coerce(args, model.ParameterSchema{Type: "string"})
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}
	if got["anything"] != "goes" {
		t.Errorf("got %#v", got)
	}
}

func TestCoercePrimitive(t *testing.T) {
	tests := []struct {
		name    string
		in      interface{}
		typ     string
		want    interface{}
		wantErr string
	}{
		{name: "string kept", in: "Berlin", typ: "string", want: "Berlin"},
		{name: "number to string", in: 7.0, typ: "string", want: "7"},
		{name: "string to integer", in: "42", typ: "integer", want: 42},
		{name: "float to integer", in: 3.0, typ: "integer", want: 3},
		{name: "string to boolean", in: "true", typ: "boolean", want: true},
		{name: "unknown type passthrough", in: "raw", typ: "", want: "raw"},
		{name: "uncoercible number", in: "soon", typ: "number", wantErr: "expected a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoercePrimitive(tt.in, tt.typ)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("got err %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CoercePrimitive: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %#v (%T), want %#v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}
