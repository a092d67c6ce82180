// Package message defines the structured conversation model exchanged
// between the evaluation harness and a remote agent.
package message

import "github.com/google/uuid"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a structured request to invoke a named tool with arguments.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Requestor string         `json:"requestor,omitempty"`
}

// NewToolCall creates a tool call with a generated ID.
func NewToolCall(name string, arguments map[string]any) ToolCall {
	return ToolCall{
		ID:        uuid.New().String(),
		Name:      name,
		Arguments: arguments,
		Requestor: string(RoleAssistant),
	}
}

// Message is a single conversation turn. Exactly one role is set; the
// remaining fields are populated according to that role:
//   - user: Content
//   - assistant: Content or ToolCalls (never both)
//   - tool: Content, ToolCallID (originating call) and Error flag
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Error      bool       `json:"error,omitempty"`
}

// User creates a user message with text content.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant creates an assistant message with text content.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// AssistantToolCalls creates an assistant message carrying tool calls.
func AssistantToolCalls(calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, ToolCalls: calls}
}

// ToolResult creates a tool message reporting the outcome of a call.
func ToolResult(callID, content string, isError bool) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, Error: isError}
}

// HasTextContent reports whether the message carries non-empty text.
func (m Message) HasTextContent() bool {
	return m.Content != ""
}

// IsToolCall reports whether the message requests tool invocations.
func (m Message) IsToolCall() bool {
	return len(m.ToolCalls) > 0
}
