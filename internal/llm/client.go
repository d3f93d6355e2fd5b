package llm

import "context"

// Message roles. Tool results travel as user messages carrying ToolCallID.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// IsToolResult reports whether m answers an earlier tool call.
func (m Message) IsToolResult() bool { return m.ToolCallID != "" }

type ToolCall struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

type Response struct {
	Content   string
	ToolCalls []ToolCall
}

type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Client sends one chat turn to a model. Implementations must honour ctx
// cancellation and deadlines.
type Client interface {
	Chat(ctx context.Context, systemPrompt string, messages []Message, tools []Tool) (*Response, error)
}

// UserText is a convenience for single-shot prompts.
func UserText(text string) []Message {
	return []Message{{Role: RoleUser, Content: text}}
}
