package a2a

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/agentbench/a2abridge/pkg/message"
	"github.com/agentbench/a2abridge/pkg/tool"
)

// FallbackResponse substitutes for empty agent output so an empty assistant
// turn never propagates to the harness.
const FallbackResponse = "I apologize, but I was unable to generate a response. Could you please rephrase your request?"

// toolCallInstruction is appended to every rendered tool catalog.
const toolCallInstruction = `To use a tool, respond with JSON: {"tool_call": {"name": "tool_name", "arguments": {"param1": "value"}}}`

// ============================================================================
// MESSAGE TRANSLATION
// Pure conversions between structured messages and A2A text content.
// ============================================================================

// FormatToolCatalog renders tool descriptors as a delimited text block the
// remote agent can read, followed by the tool-call JSON convention. An empty
// catalog yields an empty string.
func FormatToolCatalog(tools []tool.Descriptor) string {
	if len(tools) == 0 {
		return ""
	}

	lines := []string{"<available_tools>"}

	for _, t := range tools {
		sig := make([]string, 0, len(t.Parameters))
		for _, p := range t.Parameters {
			sig = append(sig, fmt.Sprintf("%s: %s", p.Name, paramType(p)))
		}
		lines = append(lines, fmt.Sprintf("- %s(%s)", t.Name, strings.Join(sig, ", ")))

		desc := t.Description
		if desc == "" {
			desc = "No description available"
		}
		lines = append(lines, fmt.Sprintf("  Description: %s", desc))

		if len(t.Parameters) > 0 {
			lines = append(lines, "  Parameters:")
			for _, p := range t.Parameters {
				requiredStr := "optional"
				if p.Required {
					requiredStr = "required"
				}
				pdesc := p.Description
				if pdesc == "" {
					pdesc = "No description"
				}
				lines = append(lines, fmt.Sprintf("    - %s (%s, %s): %s", p.Name, paramType(p), requiredStr, pdesc))
			}
		}

		lines = append(lines, "")
	}

	lines = append(lines, "</available_tools>", "", toolCallInstruction)

	return strings.Join(lines, "\n")
}

func paramType(p tool.Parameter) string {
	if p.Type == "" {
		return "any"
	}
	return p.Type
}

// ToWireContent converts a structured message to A2A text content. For user
// messages the tool catalog, when supplied, is appended after the content.
// Assistant messages render either their text or their tool calls as JSON;
// tool messages render a fixed "Tool result" prefix.
func ToWireContent(msg message.Message, tools []tool.Descriptor) (string, error) {
	switch msg.Role {
	case message.RoleUser:
		var parts []string
		if msg.Content != "" {
			parts = append(parts, msg.Content)
		}
		if toolText := FormatToolCatalog(tools); toolText != "" {
			parts = append(parts, "\n"+toolText)
		}
		return strings.Join(parts, "\n\n"), nil

	case message.RoleAssistant:
		if msg.HasTextContent() {
			return msg.Content, nil
		}
		if msg.IsToolCall() {
			return marshalToolCalls(msg.ToolCalls)
		}
		return "", nil

	case message.RoleTool:
		prefix := fmt.Sprintf("Tool result (id=%s):", msg.ToolCallID)
		if msg.Error {
			content := msg.Content
			if content == "" {
				content = "Unknown error"
			}
			return fmt.Sprintf("%s ERROR: %s", prefix, content), nil
		}
		return fmt.Sprintf("%s %s", prefix, msg.Content), nil
	}

	return "", fmt.Errorf("unsupported message role: %q", msg.Role)
}

func marshalToolCalls(calls []message.ToolCall) (string, error) {
	envelopes := make([]map[string]any, 0, len(calls))
	for _, tc := range calls {
		envelopes = append(envelopes, map[string]any{
			"tool_call": map[string]any{
				"id":        tc.ID,
				"name":      tc.Name,
				"arguments": tc.Arguments,
			},
		})
	}

	var payload any = envelopes[0]
	if len(envelopes) > 1 {
		payload = map[string]any{"tool_calls": envelopes}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool calls: %w", err)
	}
	return string(data), nil
}

// ParseToolCalls extracts tool calls from agent response content.
//
// Recognized layouts:
//   - single: {"tool_call": {"name": "...", "arguments": {...}}}
//   - multiple: {"tool_calls": [{"tool_call": {...}}, ...]}
//
// Content that is not JSON, or JSON without either key, is not a tool call
// and returns (nil, nil). A recognized envelope missing "name" or
// "arguments" is a structural error and returns a MessageError.
func ParseToolCalls(content string) ([]message.ToolCall, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, nil
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
		// Not JSON (or not an object): plain content, not an error.
		return nil, nil
	}

	if raw, ok := data["tool_call"]; ok {
		tc, err := decodeToolCall(raw)
		if err != nil {
			return nil, err
		}
		return []message.ToolCall{tc}, nil
	}

	if raw, ok := data["tool_calls"]; ok {
		entries, ok := raw.([]any)
		if !ok {
			return nil, NewMessageError("invalid tool call format: tool_calls is not a list")
		}
		var calls []message.ToolCall
		for _, entry := range entries {
			wrapper, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			inner, ok := wrapper["tool_call"]
			if !ok {
				continue
			}
			tc, err := decodeToolCall(inner)
			if err != nil {
				return nil, err
			}
			calls = append(calls, tc)
		}
		if len(calls) == 0 {
			return nil, nil
		}
		return calls, nil
	}

	return nil, nil
}

func decodeToolCall(raw any) (message.ToolCall, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return message.ToolCall{}, NewMessageError("invalid tool call format: tool_call is not an object")
	}

	name, ok := obj["name"].(string)
	if !ok || name == "" {
		slog.Warn("failed to parse tool call from agent response", "reason", "missing name")
		return message.ToolCall{}, NewMessageError("invalid tool call format: missing name")
	}

	rawArgs, ok := obj["arguments"]
	if !ok {
		slog.Warn("failed to parse tool call from agent response", "reason", "missing arguments")
		return message.ToolCall{}, NewMessageError("invalid tool call format: missing arguments")
	}
	args, ok := rawArgs.(map[string]any)
	if !ok {
		return message.ToolCall{}, NewMessageError("invalid tool call format: arguments is not an object")
	}

	id, _ := obj["id"].(string)
	if id == "" {
		id = uuid.New().String()
	}

	return message.ToolCall{
		ID:        id,
		Name:      name,
		Arguments: args,
		Requestor: string(message.RoleAssistant),
	}, nil
}

// FromWireContent converts agent response content to a structured assistant
// message: a tool-call message when the content carries the tool-call
// convention, a fallback apology for empty content, plain text otherwise.
func FromWireContent(content string) (message.Message, error) {
	calls, err := ParseToolCalls(content)
	if err != nil {
		return message.Message{}, err
	}

	if len(calls) > 0 {
		return message.AssistantToolCalls(calls...), nil
	}

	if strings.TrimSpace(content) == "" {
		slog.Warn("agent returned empty content, using fallback message")
		return message.Assistant(FallbackResponse), nil
	}

	return message.Assistant(content), nil
}
