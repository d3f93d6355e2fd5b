package llm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

const (
	geminiRoleUser  = "user"
	geminiRoleModel = "model"
)

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModels[ProviderGemini]
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Chat(ctx context.Context, systemPrompt string, messages []Message, tools []Tool) (*Response, error) {
	cfg := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}}
	}
	if len(tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: geminiFunctions(tools)}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, geminiContents(messages), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return geminiResponse(resp), nil
}

func geminiFunctions(tools []Tool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		decls[i] = &genai.FunctionDeclaration{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJsonSchema: t.Parameters,
		}
	}
	return decls
}

// geminiContents converts history. Gemini function responses carry the
// function name, so it is looked up from the call that produced them.
// Consecutive tool results share one user turn.
func geminiContents(messages []Message) []*genai.Content {
	names := make(map[string]string)
	var out []*genai.Content
	lastWasResult := false

	for _, m := range messages {
		switch {
		case m.IsToolResult():
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       m.ToolCallID,
				Name:     names[m.ToolCallID],
				Response: map[string]any{"output": m.Content},
			}}
			if lastWasResult {
				last := out[len(out)-1]
				last.Parts = append(last.Parts, part)
			} else {
				out = append(out, &genai.Content{Role: geminiRoleUser, Parts: []*genai.Part{part}})
			}
			lastWasResult = true
			continue

		case m.Role == RoleUser:
			out = append(out, &genai.Content{Role: geminiRoleUser, Parts: []*genai.Part{{Text: m.Content}}})

		case m.Role == RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				names[tc.ID] = tc.Name
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Name,
					Args: tc.Params,
				}})
			}
			if len(parts) > 0 {
				out = append(out, &genai.Content{Role: geminiRoleModel, Parts: parts})
			}
		}
		lastWasResult = false
	}
	return out
}

func geminiResponse(resp *genai.GenerateContentResponse) *Response {
	result := &Response{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return result
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		result.Content += p.Text
		if fc := p.FunctionCall; fc != nil {
			id := fc.ID
			if id == "" {
				// The Gemini API often omits call ids.
				id = "call_" + uuid.NewString()
			}
			params := fc.Args
			if params == nil {
				params = map[string]any{}
			}
			result.ToolCalls = append(result.ToolCalls, ToolCall{ID: id, Name: fc.Name, Params: params})
		}
	}
	return result
}
