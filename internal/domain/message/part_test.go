package message_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/domain/message"
)

func TestValidPart_RecognizedTags(t *testing.T) {
	cases := []struct {
		name  string
		input map[string]any
		valid bool
	}{
		{"text ok", map[string]any{"type": "text", "text": "hello"}, true},
		{"text missing field", map[string]any{"type": "text"}, false},
		{"text wrong field type", map[string]any{"type": "text", "text": 42}, false},
		{"reasoning ok", map[string]any{"type": "reasoning", "text": "thinking"}, true},
		{"tool-call ok", map[string]any{"type": "tool-call", "toolName": "search", "state": "output-available"}, true},
		{"tool-call bad state", map[string]any{"type": "tool-call", "toolName": "search", "state": "done"}, false},
		{"tool-call missing name", map[string]any{"type": "tool-call", "state": "input-available"}, false},
		{"image via url", map[string]any{"type": "image", "url": "https://x/i.png", "mimeType": "image/png"}, true},
		{"image via image field", map[string]any{"type": "image", "image": "data:image/png;base64,AAAA"}, true},
		{"image empty", map[string]any{"type": "image"}, false},
		{"file ok", map[string]any{"type": "file", "url": "https://x/f.pdf", "mediaType": "application/pdf"}, true},
		{"file missing mediaType", map[string]any{"type": "file", "url": "https://x/f.pdf"}, false},
		{"source-url ok", map[string]any{"type": "source-url", "url": "https://x", "title": "x"}, true},
		{"source-url empty url", map[string]any{"type": "source-url", "url": ""}, false},
		{"unknown tag passes through", map[string]any{"type": "step-start"}, true},
		{"missing tag", map[string]any{"text": "hello"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, message.ValidPart(tc.input))
		})
	}
}

func TestPart_RoundTrip(t *testing.T) {
	inputs := []string{
		`{"type":"text","text":"hello world"}`,
		`{"type":"reasoning","text":"let me think"}`,
		`{"type":"tool-call","toolName":"search","state":"output-available","input":{"q":"go"},"output":{"hits":3}}`,
		`{"type":"image","url":"https://x/i.png","mimeType":"image/png"}`,
		`{"type":"file","url":"https://x/f.pdf","mediaType":"application/pdf","filename":"f.pdf"}`,
		`{"type":"source-url","url":"https://example.com","title":"Example"}`,
	}

	for _, input := range inputs {
		var p message.Part
		require.NoError(t, json.Unmarshal([]byte(input), &p))

		out, err := json.Marshal(p)
		require.NoError(t, err)

		var back message.Part
		require.NoError(t, json.Unmarshal(out, &back))
		assert.True(t, message.PartsEqual([]message.Part{p}, []message.Part{back}), "round trip changed %s", input)
	}
}

func TestPart_UnknownTagPreservedVerbatim(t *testing.T) {
	input := `{"type":"step-start","custom":{"nested":true},"n":7}`

	var p message.Part
	require.NoError(t, json.Unmarshal([]byte(input), &p))
	assert.True(t, p.IsUnknown())
	assert.False(t, p.IsText())

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
}

func TestPart_InvalidShapeForKnownTag(t *testing.T) {
	var p message.Part
	err := json.Unmarshal([]byte(`{"type":"tool-call","state":"output-available"}`), &p)
	require.Error(t, err)

	var invalidErr *message.InvalidPartError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, "tool-call", invalidErr.Tag)
}

func TestExtractionHelpers(t *testing.T) {
	raw := `[
		{"type":"reasoning","text":"hmm"},
		{"type":"text","text":"first"},
		{"type":"tool-call","toolName":"search","state":"output-available"},
		{"type":"step-start"},
		{"type":"text","text":"second"}
	]`
	var parts []message.Part
	require.NoError(t, json.Unmarshal([]byte(raw), &parts))

	msg := message.Message{ID: "msg_1", Role: message.RoleAssistant, Parts: parts}

	texts := msg.TextParts()
	require.Len(t, texts, 2)
	assert.Equal(t, "first", texts[0].Text)
	assert.Equal(t, "second", texts[1].Text)

	assert.Len(t, msg.ReasoningParts(), 1)
	assert.Len(t, msg.ToolCallParts(), 1)
	assert.Empty(t, msg.ImageParts())

	// Re-derived each call, not cached
	msg.Parts = msg.Parts[:2]
	assert.Len(t, msg.TextParts(), 1)
}

func TestMessageEqualTo(t *testing.T) {
	a := message.NewUserMessage("msg_1", "hello")
	b := message.NewUserMessage("msg_1", "hello")
	c := message.NewUserMessage("msg_1", "changed")

	assert.True(t, a.EqualTo(b))
	assert.False(t, a.EqualTo(c))
	assert.False(t, a.EqualTo(message.Message{ID: "msg_2", Role: message.RoleUser, Parts: a.Parts}))
}
