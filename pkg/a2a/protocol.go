// Package a2a implements the client side of the Agent-to-Agent (A2A)
// protocol: agent discovery, JSON-RPC 2.0 message exchange over HTTP,
// translation between structured messages and wire content, and
// per-request protocol metrics.
package a2a

import (
	"encoding/json"
	"fmt"
)

// AgentCardPath is the well-known discovery path (A2A spec Section 5.3).
const AgentCardPath = ".well-known/agent-card.json"

// sendMethod is the JSON-RPC method for message exchange (Section 7.1).
const sendMethod = "message/send"

// ============================================================================
// AGENT CARD - Agent Discovery & Capability Advertisement
// ============================================================================

// AgentCapabilities describes optional protocol features the agent supports.
type AgentCapabilities struct {
	Streaming         bool `json:"streaming"`
	PushNotifications bool `json:"push_notifications"`
}

// AgentSkill is informational skill metadata from the agent card.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// AgentCard is the capability descriptor served at AgentCardPath.
type AgentCard struct {
	Name            string            `json:"name"`
	URL             string            `json:"url"`
	Description     string            `json:"description,omitempty"`
	Version         string            `json:"version,omitempty"`
	Capabilities    AgentCapabilities `json:"capabilities"`
	SecuritySchemes map[string]any    `json:"security_schemes,omitempty"`
	Security        []string          `json:"security,omitempty"`
	Skills          []AgentSkill      `json:"skills,omitempty"`
}

// Validate checks the required card fields.
func (c *AgentCard) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("agent card missing required field: name")
	}
	if c.URL == "" {
		return fmt.Errorf("agent card missing required field: url")
	}
	return nil
}

// ============================================================================
// JSON-RPC 2.0 ENVELOPE (message/send)
// ============================================================================

type rpcRequest struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      string     `json:"id"`
	Method  string     `json:"method"`
	Params  sendParams `json:"params"`
}

type sendParams struct {
	Message wireMessage `json:"message"`
}

// wireMessage carries text content as a single part. ContextID is a pointer
// so an unassigned context serializes as an explicit null.
type wireMessage struct {
	MessageID string     `json:"messageId"`
	Role      string     `json:"role"`
	Parts     []wirePart `json:"parts"`
	ContextID *string    `json:"contextId"`
}

type wirePart struct {
	Text string `json:"text"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ============================================================================
// RESPONSE SHAPES
// ============================================================================

// textPart uses a pointer so a present-but-empty "text" key is
// distinguishable from an absent one.
type textPart struct {
	Text *string `json:"text"`
}

type partsHolder struct {
	Parts []textPart `json:"parts"`
}

type historyEntry struct {
	Role  string     `json:"role"`
	Parts []textPart `json:"parts"`
}

// resultEnvelope is the union of every legal result layout observed from
// A2A server implementations. Which fields are populated depends on the
// server; extractText walks them in a fixed priority order.
type resultEnvelope struct {
	ContextID string `json:"contextId"`

	// Shape 1: host-agent style, artifacts carrying parts.
	Artifacts []partsHolder `json:"artifacts"`

	// Shape 2: a plain Message result, parts directly on the result.
	Parts []textPart `json:"parts"`

	// Shape 3: status-update style, status.message.parts.
	Status struct {
		Message partsHolder `json:"message"`
	} `json:"status"`

	// Shape 4: wrapped message, message.parts (message may also carry
	// the context token).
	Message struct {
		ContextID string     `json:"contextId"`
		Parts     []textPart `json:"parts"`
	} `json:"message"`

	// Shape 5: task history, last agent entry wins.
	History []historyEntry `json:"history"`
}

// collectText gathers the text fragments of a part list, joined later with
// newlines. Empty strings count as matches; absence of the key does not.
func collectText(parts []textPart) []string {
	var texts []string
	for _, p := range parts {
		if p.Text != nil {
			texts = append(texts, *p.Text)
		}
	}
	return texts
}
