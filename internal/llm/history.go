package llm

// TrimHistory drops the oldest exchanges until messages fit in maxTokens.
// The newest exchange is always kept, and an assistant tool call is kept or
// dropped together with all of its results. A leading orphaned tool result
// is never left at the front of the history.
func TrimHistory(messages []Message, maxTokens int) []Message {
	if len(messages) == 0 {
		return messages
	}

	ex := exchanges(messages)
	total := 0
	for _, e := range ex {
		total += e.tokens
	}
	if total <= maxTokens {
		return messages
	}

	first := 0
	for first < len(ex)-1 && total > maxTokens {
		total -= ex[first].tokens
		first++
	}
	for first < len(ex)-1 && ex[first].messages[0].IsToolResult() {
		first++
	}

	var out []Message
	for _, e := range ex[first:] {
		out = append(out, e.messages...)
	}
	return out
}

// exchange is a run of messages that must stay together.
type exchange struct {
	messages []Message
	tokens   int
}

func exchanges(messages []Message) []exchange {
	var out []exchange
	for i := 0; i < len(messages); {
		e := exchange{messages: []Message{messages[i]}, tokens: EstimateMessageTokens(messages[i])}
		calls := messages[i].Role == RoleAssistant && len(messages[i].ToolCalls) > 0
		i++
		if calls {
			for i < len(messages) && messages[i].IsToolResult() {
				e.messages = append(e.messages, messages[i])
				e.tokens += EstimateMessageTokens(messages[i])
				i++
			}
		}
		out = append(out, e)
	}
	return out
}
