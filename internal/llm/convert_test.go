package llm

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

var toolHistory = []Message{
	{Role: RoleUser, Content: "how am I doing?"},
	{Role: RoleAssistant, Content: "Let me check.", ToolCalls: []ToolCall{
		{ID: "c1", Name: "get_habit_stats", Params: map[string]any{"habit": "smoking"}},
		{ID: "c2", Name: "get_time"},
	}},
	{Role: RoleUser, ToolCallID: "c1", Content: `{"total_days":4}`},
	{Role: RoleUser, ToolCallID: "c2", Content: "2026-01-10 09:00"},
	{Role: RoleAssistant, Content: "Four days logged."},
}

func TestGeminiContents(t *testing.T) {
	got := geminiContents(toolHistory)
	require.Len(t, got, 4)

	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, "how am I doing?", got[0].Parts[0].Text)

	assert.Equal(t, "model", got[1].Role)
	require.Len(t, got[1].Parts, 3)
	assert.Equal(t, "get_habit_stats", got[1].Parts[1].FunctionCall.Name)

	// Both results share one turn and carry the function names.
	require.Len(t, got[2].Parts, 2)
	assert.Equal(t, "get_habit_stats", got[2].Parts[0].FunctionResponse.Name)
	assert.Equal(t, "get_time", got[2].Parts[1].FunctionResponse.Name)
	assert.Equal(t, map[string]any{"output": `{"total_days":4}`}, got[2].Parts[0].FunctionResponse.Response)

	assert.Equal(t, "model", got[3].Role)
}

func TestGeminiResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "thinking...", Thought: true},
			{Text: "Checking "},
			{Text: "now."},
			{FunctionCall: &genai.FunctionCall{Name: "get_time"}},
		}},
	}}}
	got := geminiResponse(resp)
	assert.Equal(t, "Checking now.", got.Content)
	require.Len(t, got.ToolCalls, 1)
	assert.Equal(t, "get_time", got.ToolCalls[0].Name)
	assert.NotEmpty(t, got.ToolCalls[0].ID)
	assert.NotNil(t, got.ToolCalls[0].Params)

	assert.Equal(t, &Response{}, geminiResponse(nil))
	assert.Equal(t, &Response{}, geminiResponse(&genai.GenerateContentResponse{}))
}

func TestGeminiFunctions(t *testing.T) {
	decls := geminiFunctions(SupportTools)
	require.Len(t, decls, len(SupportTools))
	assert.Equal(t, "get_plan_day", decls[2].Name)
	assert.Equal(t, SupportTools[2].Parameters, decls[2].ParametersJsonSchema)
}

func TestAnthropicMessages(t *testing.T) {
	got := anthropicMessages(toolHistory)
	require.Len(t, got, 4)

	assert.Equal(t, anthropic.MessageParamRoleUser, got[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, got[1].Role)
	require.Len(t, got[1].Content, 3)
	require.NotNil(t, got[1].Content[2].OfToolUse)
	assert.Equal(t, "c2", got[1].Content[2].OfToolUse.ID)

	require.Len(t, got[2].Content, 2)
	require.NotNil(t, got[2].Content[0].OfToolResult)
	assert.Equal(t, "c1", got[2].Content[0].OfToolResult.ToolUseID)
	assert.Equal(t, "c2", got[2].Content[1].OfToolResult.ToolUseID)
}

func TestAnthropicTools(t *testing.T) {
	got := anthropicTools(SupportTools)
	require.Len(t, got, len(SupportTools))
	assert.Equal(t, "get_plan_day", got[2].OfTool.Name)
	assert.Equal(t, []string{"day"}, got[2].OfTool.InputSchema.Required)
	assert.Nil(t, got[4].OfTool.InputSchema.Required)
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, []string{"a"}, requiredFields(map[string]any{"required": []any{"a", 3}}))
	assert.Nil(t, requiredFields(map[string]any{}))
}

func TestOpenAIMessages(t *testing.T) {
	got := openaiMessages("be kind", toolHistory)
	require.Len(t, got, 6)
	require.NotNil(t, got[0].OfSystem)
	require.NotNil(t, got[2].OfAssistant)
	assert.Len(t, got[2].OfAssistant.ToolCalls, 2)
	require.NotNil(t, got[3].OfTool)
	assert.Equal(t, "c1", got[3].OfTool.ToolCallID)

	assert.Len(t, openaiMessages("", UserText("hi")), 1)
}
