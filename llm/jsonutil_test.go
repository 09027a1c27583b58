package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bare object",
			content: `{"a": 1}`,
			want:    `{"a": 1}`,
		},
		{
			name:    "markdown code block",
			content: "Here you go:\n```json\n{\"a\": 1}\n```\nHope that helps!",
			want:    `{"a": 1}`,
		},
		{
			name:    "code block without language tag",
			content: "```\n{\"a\": 1}\n```",
			want:    `{"a": 1}`,
		},
		{
			name:    "object with surrounding prose",
			content: `The proposal is {"a": 1} as requested.`,
			want:    `{"a": 1}`,
		},
		{
			name:    "no json at all",
			content: "I cannot produce a plan for this.",
			want:    "",
		},
		{
			name:    "empty input",
			content: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.content))
		})
	}
}

func TestExtractJSONCleansArtifacts(t *testing.T) {
	content := `{
		"summary": "plan", // the short version
		"routes": ["/", "/tasks",],
	}`

	got := ExtractJSON(content)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(got), &parsed), "cleaned JSON should parse: %s", got)
	assert.Equal(t, "plan", parsed["summary"])
	assert.Len(t, parsed["routes"], 2)
}

// Comment stripping must not mangle URLs inside string values.
func TestExtractJSONPreservesURLs(t *testing.T) {
	content := `{"reference": "https://example.com/path"} // trailing note`

	got := ExtractJSON(content)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal([]byte(got), &parsed))
	assert.Equal(t, "https://example.com/path", parsed["reference"])
}

func TestStripLineComment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"key": "value", // comment`, `"key": "value",`},
		{`"url": "http://x.com/y"`, `"url": "http://x.com/y"`},
		{`// whole line comment`, ``},
		{`"escaped \" quote" // gone`, `"escaped \" quote"`},
		{`no comment here`, `no comment here`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, stripLineComment(tt.in), "input %q", tt.in)
	}
}
