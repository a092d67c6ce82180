// Package tool describes the tool catalog supplied by the evaluation
// harness. Descriptors are read-only metadata; execution happens elsewhere.
package tool

// Parameter describes a single tool parameter in JSON-schema terms.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// Descriptor describes a callable tool exposed to the remote agent.
type Descriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters,omitempty"`
}
