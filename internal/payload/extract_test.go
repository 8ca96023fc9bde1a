package payload

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brickyard/internal/errors"
)

func TestExtract(t *testing.T) {
	want := map[string]any{"module": "greeter", "bricks": []any{"core"}}

	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "raw JSON with no wrapping",
			raw:  `{"module": "greeter", "bricks": ["core"]}`,
		},
		{
			name: "fenced block with language label",
			raw:  "```json\n{\"module\": \"greeter\", \"bricks\": [\"core\"]}\n```",
		},
		{
			name: "fenced block without label",
			raw:  "```\n{\"module\": \"greeter\", \"bricks\": [\"core\"]}\n```",
		},
		{
			name: "preceded by prose",
			raw:  "Here is the plan:\n{\"module\": \"greeter\", \"bricks\": [\"core\"]}",
		},
		{
			name: "followed by prose",
			raw:  "{\"module\": \"greeter\", \"bricks\": [\"core\"]}\n\nLet me know if you need changes.",
		},
		{
			name: "prose on both sides with fence",
			raw:  "Sure! Here you go:\n```json\n{\"module\": \"greeter\", \"bricks\": [\"core\"]}\n```\nHope that helps.",
		},
		{
			name: "smart quotes",
			raw:  "{“module”: “greeter”, “bricks”: [“core”]}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := Extract(tt.raw)
			require.NoError(t, err)

			var got map[string]any
			require.NoError(t, json.Unmarshal(payload, &got))
			assert.Equal(t, want, got)
		})
	}
}

func TestExtract_Array(t *testing.T) {
	payload, err := Extract("The bricks are:\n[\"a\", \"b\"]")
	require.NoError(t, err)

	var got []string
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestExtract_NoPayload(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"refusal", "I cannot help with that."},
		{"empty", ""},
		{"whitespace", "   \n\t  "},
		{"unbalanced braces", "this { is not json"},
		{"bare scalar", `"just a string"`},
		{"fenced non-json", "```python\nprint('hi')\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodePayloadNotFound),
				"want PAYLOAD-001, got: %v", err)
		})
	}
}

func TestExtractInto(t *testing.T) {
	type planDoc struct {
		Module string   `json:"module"`
		Bricks []string `json:"bricks"`
	}

	var doc planDoc
	raw := "Here is the result:\n```json\n{\"module\": \"greeter\", \"bricks\": [\"core\", \"cli\"]}\n```"
	require.NoError(t, ExtractInto(raw, &doc))
	assert.Equal(t, "greeter", doc.Module)
	assert.Equal(t, []string{"core", "cli"}, doc.Bricks)
}

func TestExtractInto_ShapeMismatch(t *testing.T) {
	var target struct {
		Bricks []string `json:"bricks"`
	}
	err := ExtractInto(`{"bricks": "not-a-list"}`, &target)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePayloadInvalid))
}
