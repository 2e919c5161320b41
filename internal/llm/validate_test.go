package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func reflectionSchema() *Schema {
	return &Schema{
		Name:        "test-reflection",
		Description: "A reflection card",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"strategy": map[string]any{"type": "string", "enum": []any{"pattern", "guess", "step"}},
				"stars":    map[string]any{"type": "integer", "minimum": 0},
				"notes": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"required": []any{"strategy", "stars"},
		},
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"strategy":"pattern","stars":3,"notes":["nice"]}`, false},
		{"optional omitted", `{"strategy":"step","stars":0}`, false},
		{"missing required", `{"strategy":"step"}`, true},
		{"wrong type", `{"strategy":"step","stars":"three"}`, true},
		{"bad enum", `{"strategy":"luck","stars":1}`, true},
		{"below minimum", `{"strategy":"guess","stars":-1}`, true},
		{"wrong item type", `{"strategy":"guess","stars":1,"notes":[1,2]}`, true},
		{"malformed", `{not json}`, true},
		{"empty", ``, true},
	}
	for _, tt := range tests {
		err := validateResponse(reflectionSchema(), json.RawMessage(tt.raw))
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: validateResponse() error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if err != nil {
			var inv *ErrInvalidResponse
			if !errors.As(err, &inv) {
				t.Errorf("%s: error type = %T, want *ErrInvalidResponse", tt.name, err)
			}
		}
	}
}

func TestValidateResponseNilSchema(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`"free text"`)); err != nil {
		t.Fatalf("nil schema should accept anything, got %v", err)
	}
}
