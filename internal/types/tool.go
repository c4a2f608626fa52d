// Package types provides shared data structures for the agentfs service
// surface: tool definitions advertised to agents and the standard
// execution result envelope.
package types

// Tool describes one agent-callable tool.
type Tool struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Returns     string      `json:"returns"`
}

// Parameter describes a tool parameter.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Result is the failure envelope for a rejected tool call. Successful
// executions carry their own response shape; Error holds the contract
// violation that aborted this one.
type Result struct {
	Success bool    `json:"success"`
	Error   *string `json:"error,omitempty"`
}
