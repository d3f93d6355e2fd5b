package llm

import "encoding/json"

// charsPerToken approximates English text; real tokenizers vary.
const charsPerToken = 4

const (
	messageOverhead = 4
	toolCallFraming = 4
	toolDefFraming  = 10

	// minHistoryBudget leaves room for at least the active turn.
	minHistoryBudget = 1000
	// outputReserve is held back for the model's reply.
	outputReserve = 2048
)

func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + charsPerToken - 1) / charsPerToken
}

func jsonTokens(v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return EstimateTokens(string(b))
}

// EstimateMessageTokens counts content, tool calls and framing.
func EstimateMessageTokens(m Message) int {
	n := messageOverhead + EstimateTokens(m.Content)
	for _, tc := range m.ToolCalls {
		n += EstimateTokens(tc.Name) + jsonTokens(tc.Params) + toolCallFraming
	}
	if m.IsToolResult() {
		n += EstimateTokens(m.ToolCallID) + 2
	}
	return n
}

func EstimateMessagesTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateMessageTokens(m)
	}
	return total
}

// EstimateToolsTokens counts tool schemas, which are sent with every request.
func EstimateToolsTokens(tools []Tool) int {
	total := 0
	for _, t := range tools {
		total += EstimateTokens(t.Name) + EstimateTokens(t.Description) + jsonTokens(t.Parameters) + toolDefFraming
	}
	return total
}

// HistoryBudget is what remains of maxContext for conversation history once
// the system prompt, tool definitions and the reply reserve are paid for.
func HistoryBudget(maxContext int, systemPrompt string, tools []Tool) int {
	b := maxContext - EstimateTokens(systemPrompt) - EstimateToolsTokens(tools) - outputReserve
	if b < minHistoryBudget {
		return minHistoryBudget
	}
	return b
}
