package a2a

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbench/a2abridge/pkg/message"
	"github.com/agentbench/a2abridge/pkg/tool"
)

func sampleTools() []tool.Descriptor {
	return []tool.Descriptor{
		{
			Name:        "get_weather",
			Description: "Get current weather for a location",
			Parameters: []tool.Parameter{
				{Name: "location", Type: "string", Required: true, Description: "City name"},
				{Name: "units", Type: "string", Description: "Temperature units"},
			},
		},
		{
			Name: "ping",
		},
	}
}

func TestFormatToolCatalog(t *testing.T) {
	catalog := FormatToolCatalog(sampleTools())

	assert.True(t, strings.HasPrefix(catalog, "<available_tools>"))
	assert.Contains(t, catalog, "- get_weather(location: string, units: string)")
	assert.Contains(t, catalog, "  Description: Get current weather for a location")
	assert.Contains(t, catalog, "    - location (string, required): City name")
	assert.Contains(t, catalog, "    - units (string, optional): Temperature units")
	assert.Contains(t, catalog, "- ping()")
	assert.Contains(t, catalog, "  Description: No description available")
	assert.Contains(t, catalog, "</available_tools>")
	assert.Contains(t, catalog, `{"tool_call":`)
}

func TestFormatToolCatalog_Empty(t *testing.T) {
	assert.Equal(t, "", FormatToolCatalog(nil))
	assert.Equal(t, "", FormatToolCatalog([]tool.Descriptor{}))
}

func TestFormatToolCatalog_UntypedParameter(t *testing.T) {
	catalog := FormatToolCatalog([]tool.Descriptor{
		{Name: "t", Parameters: []tool.Parameter{{Name: "x"}}},
	})
	assert.Contains(t, catalog, "- t(x: any)")
}

func TestToWireContent_UserMessage(t *testing.T) {
	content, err := ToWireContent(message.User("hello"), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
}

func TestToWireContent_UserMessageWithTools(t *testing.T) {
	content, err := ToWireContent(message.User("hello"), sampleTools())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(content, "hello"))
	assert.Contains(t, content, "<available_tools>")
	// Catalog comes after the content, not before.
	assert.Less(t, strings.Index(content, "hello"), strings.Index(content, "<available_tools>"))
}

func TestToWireContent_AssistantText(t *testing.T) {
	content, err := ToWireContent(message.Assistant("sure thing"), nil)
	require.NoError(t, err)
	assert.Equal(t, "sure thing", content)
}

func TestToWireContent_AssistantToolCalls(t *testing.T) {
	msg := message.AssistantToolCalls(message.ToolCall{
		ID:   "call-1",
		Name: "get_weather",
		Arguments: map[string]any{
			"location": "Paris",
		},
	})

	content, err := ToWireContent(msg, nil)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(content), &decoded))
	inner, ok := decoded["tool_call"].(map[string]any)
	require.True(t, ok, "single call must use the tool_call envelope")
	assert.Equal(t, "get_weather", inner["name"])
	assert.Equal(t, "call-1", inner["id"])
}

func TestToWireContent_AssistantMultipleToolCalls(t *testing.T) {
	msg := message.AssistantToolCalls(
		message.ToolCall{ID: "1", Name: "a", Arguments: map[string]any{}},
		message.ToolCall{ID: "2", Name: "b", Arguments: map[string]any{}},
	)

	content, err := ToWireContent(msg, nil)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(content), &decoded))
	list, ok := decoded["tool_calls"].([]any)
	require.True(t, ok, "multiple calls must use the tool_calls envelope")
	assert.Len(t, list, 2)
}

func TestToWireContent_ToolResult(t *testing.T) {
	content, err := ToWireContent(message.ToolResult("call-7", "42 degrees", false), nil)
	require.NoError(t, err)
	assert.Equal(t, "Tool result (id=call-7): 42 degrees", content)
}

func TestToWireContent_ToolResultError(t *testing.T) {
	content, err := ToWireContent(message.ToolResult("call-7", "not found", true), nil)
	require.NoError(t, err)
	assert.Equal(t, "Tool result (id=call-7): ERROR: not found", content)

	content, err = ToWireContent(message.ToolResult("call-8", "", true), nil)
	require.NoError(t, err)
	assert.Equal(t, "Tool result (id=call-8): ERROR: Unknown error", content)
}

func TestToWireContent_UnsupportedRole(t *testing.T) {
	_, err := ToWireContent(message.Message{Role: "system"}, nil)
	assert.Error(t, err)
}

func TestParseToolCalls_Single(t *testing.T) {
	calls, err := ParseToolCalls(`{"tool_call": {"name": "get_weather", "arguments": {"location": "Paris"}}}`)
	require.NoError(t, err)
	require.Len(t, calls, 1)

	assert.Equal(t, "get_weather", calls[0].Name)
	assert.Equal(t, "Paris", calls[0].Arguments["location"])
	assert.NotEmpty(t, calls[0].ID, "missing id gets generated")
	assert.Equal(t, "assistant", calls[0].Requestor)
}

func TestParseToolCalls_Multiple(t *testing.T) {
	content := `{"tool_calls": [
		{"tool_call": {"id": "1", "name": "a", "arguments": {}}},
		{"tool_call": {"id": "2", "name": "b", "arguments": {"k": 1}}}
	]}`
	calls, err := ParseToolCalls(content)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "a", calls[0].Name)
	assert.Equal(t, "b", calls[1].Name)
	assert.Equal(t, "2", calls[1].ID)
}

func TestParseToolCalls_NotAToolCall(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "   \n "},
		{"plain text", "I checked the weather for you."},
		{"json without envelope", `{"weather": "sunny"}`},
		{"json array", `[1, 2, 3]`},
		{"empty tool_calls entries", `{"tool_calls": [{"other": 1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, err := ParseToolCalls(tt.content)
			assert.NoError(t, err)
			assert.Nil(t, calls)
		})
	}
}

func TestParseToolCalls_StructuralErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing name", `{"tool_call": {"arguments": {}}}`},
		{"empty name", `{"tool_call": {"name": "", "arguments": {}}}`},
		{"missing arguments", `{"tool_call": {"name": "a"}}`},
		{"arguments not object", `{"tool_call": {"name": "a", "arguments": [1]}}`},
		{"tool_call not object", `{"tool_call": "nope"}`},
		{"tool_calls not list", `{"tool_calls": {"a": 1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToolCalls(tt.content)
			var msgErr *MessageError
			require.True(t, errors.As(err, &msgErr), "expected MessageError, got %v", err)
		})
	}
}

func TestToolCallRoundTrip(t *testing.T) {
	original := message.AssistantToolCalls(message.ToolCall{
		ID:        "rt-1",
		Name:      "search",
		Arguments: map[string]any{"query": "golang"},
	})

	content, err := ToWireContent(original, nil)
	require.NoError(t, err)

	decoded, err := FromWireContent(content)
	require.NoError(t, err)
	require.True(t, decoded.IsToolCall())
	assert.Equal(t, "search", decoded.ToolCalls[0].Name)
	assert.Equal(t, "rt-1", decoded.ToolCalls[0].ID)
	assert.Equal(t, "golang", decoded.ToolCalls[0].Arguments["query"])
}

func TestFromWireContent_PlainText(t *testing.T) {
	msg, err := FromWireContent("just an answer")
	require.NoError(t, err)
	assert.Equal(t, message.RoleAssistant, msg.Role)
	assert.Equal(t, "just an answer", msg.Content)
	assert.False(t, msg.IsToolCall())
}

func TestFromWireContent_EmptyUsesFallback(t *testing.T) {
	for _, content := range []string{"", "   ", "\n\t"} {
		msg, err := FromWireContent(content)
		require.NoError(t, err)
		assert.Equal(t, FallbackResponse, msg.Content)
	}
}

func TestFromWireContent_StructuralErrorPropagates(t *testing.T) {
	_, err := FromWireContent(`{"tool_call": {"arguments": {}}}`)
	var msgErr *MessageError
	assert.True(t, errors.As(err, &msgErr))
}
