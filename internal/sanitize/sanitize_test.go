package sanitize

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairJSONText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already valid", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n[1, 2]\n```", `[1, 2]`},
		{"inline fence", "```json {\"a\": 1}```", `{"a": 1}`},
		{"crlf fence", "```json\r\n{\"a\": 1}\r\n```", `{"a": 1}`},
		{"trailing comma in array", `[1, 2, 3,]`, `[1, 2, 3]`},
		{"trailing comma in object", `{"a": [1, 2,],}`, `{"a": [1, 2]}`},
		{"trailing comma before newline", "{\"a\": 1,\n}", "{\"a\": 1\n}"},
		{"smart quotes", `{“a”: “b”}`, `{"a": "b"}`},
		{"control characters", "{\"a\":\x01 1\x02}", `{"a": 1}`},
		{"byte order mark", "\uFEFF{\"a\": 1}", `{"a": 1}`},
		{"latex frac", `{"latex": "\frac{a}{b}"}`, `{"latex": "\\frac{a}{b}"}`},
		{"latex sqrt", `{"latex": "\sqrt{2}"}`, `{"latex": "\\sqrt{2}"}`},
		{"latex theta", `{"latex": "\theta"}`, `{"latex": "\\theta"}`},
		{"latex neq", `{"latex": "a \neq b"}`, `{"latex": "a \\neq b"}`},
		{"valid escapes kept", `{"a": "line\n", "b": "q\"uote", "c": "é"}`, `{"a": "line\n", "b": "q\"uote", "c": "é"}`},
		{"newline before a word kept", `{"q": "Line one\nWhat is x?\tif y"}`, `{"q": "Line one\nWhat is x?\tif y"}`},
		{"newline before code kept", `{"q": "x = 1\nfor i in range(3):\n\treturn i"}`, `{"q": "x = 1\nfor i in range(3):\n\treturn i"}`},
		{"latex nu and tau", `{"latex": "\nu + \tau"}`, `{"latex": "\\nu + \\tau"}`},
		{"escaped backslash kept", `{"a": "\\frac"}`, `{"a": "\\frac"}`},
		{"backslash outside strings untouched", `[1]`, `[1]`},
		{"fence and trailing comma", "```json\n[{\"q\": \"x\"},]\n```", `[{"q": "x"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RepairJSONText(tt.input)
			assert.Equal(t, tt.want, got)
			assert.True(t, json.Valid([]byte(got)), "repaired text must be valid JSON: %s", got)
		})
	}
}

func TestRepairJSONText_FencedPayloadRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload any
	}{
		{"object", map[string]any{
			"conceptExplanations":   map[string]any{"Stacks": "LIFO structure"},
			"realWorldApplications": []any{"Undo history", "Call stacks"},
		}},
		{"embedded newline before a word", []any{
			map[string]any{"questionText": "Line one\nWhat is x?"},
			map[string]any{"questionText": "x = 0\nfor i := range 3 {\n\tx += i\n}"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.MarshalIndent(tt.payload, "", "  ")
			require.NoError(t, err)

			wrapped := "Here you go:\n```json\n" + string(raw) + "\n```\nLet me know."
			cleaned := RepairJSONText(wrapped)
			start := strings.IndexAny(cleaned, "[{")
			require.GreaterOrEqual(t, start, 0)
			end := strings.LastIndexAny(cleaned, "]}")
			assert.Equal(t, string(raw), cleaned[start:end+1])
		})
	}
}

func TestIsolateObject(t *testing.T) {
	got, ok := IsolateObject(`Here is the result: {"a": {"b": "}"}} and some trailing prose.`)
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": "}"}}`, got)

	_, ok = IsolateObject("no braces here")
	assert.False(t, ok)

	_, ok = IsolateObject(`{"unterminated": 1`)
	assert.False(t, ok)
}

func TestIsolateArray(t *testing.T) {
	got, ok := IsolateArray("Sure! [\"a\", [\"b\"], \"c]\"]\nLet me know.")
	require.True(t, ok)
	assert.Equal(t, `["a", ["b"], "c]"]`, got)
}

func TestRecoverArray(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"missing opening bracket", `2, 3, 4]`, `[2, 3, 4]`, true},
		{"leading prose", `Here are the values: 2, 3, 4]`, `[2, 3, 4]`, true},
		{"objects", `{"q": "a"}, {"q": "b"}]`, `[{"q": "a"}, {"q": "b"}]`, true},
		{"balanced array is left alone", `[1, 2]`, "", false},
		{"no closing bracket", `1, 2, 3`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RecoverArray(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.want, got)

			var values []any
			require.NoError(t, json.Unmarshal([]byte(got), &values))
		})
	}
}

func TestRecoverArray_ThreeElements(t *testing.T) {
	got, ok := RecoverArray("2, 3, 4]")
	require.True(t, ok)

	var values []int
	require.NoError(t, json.Unmarshal([]byte(got), &values))
	assert.Equal(t, []int{2, 3, 4}, values)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "what is a binary search tree?", Normalize("  What is a   binary search\ttree?  "))
	assert.Equal(t, Normalize("What is a binary search tree?"), Normalize("what is a binary search tree?"))
}

func TestStripControl_KeepsWhitespace(t *testing.T) {
	assert.Equal(t, "a\nb\tc\r", StripControl("a\nb\tc\r\x00"))
}
