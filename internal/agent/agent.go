// Package agent builds Phoenix's coaching prompts and talks to the model.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chris/phoenix/internal/llm"
	"github.com/chris/phoenix/internal/session"
	"go.uber.org/zap"
)

const maxToolRounds = 6

// DefaultTimeout bounds a single model call when none is configured.
const DefaultTimeout = 60 * time.Second

// ErrEmptyReply means the model answered with no text.
var ErrEmptyReply = errors.New("model returned an empty reply")

type Agent struct {
	client           llm.Client
	log              *zap.Logger
	MaxContextTokens int
	Timeout          time.Duration

	now func() time.Time
}

func New(client llm.Client, log *zap.Logger, maxContextTokens int, timeout time.Duration) *Agent {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Agent{
		client:           client,
		log:              log,
		MaxContextTokens: maxContextTokens,
		Timeout:          timeout,
		now:              time.Now,
	}
}

// Generate sends a single prompt and returns the reply text.
func (a *Agent) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	resp, err := a.client.Chat(ctx, llm.SystemPrompt, llm.UserText(prompt), nil)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", ErrEmptyReply
	}
	a.log.Debug("generated reply", zap.Int("prompt_chars", len(prompt)), zap.Int("reply_chars", len(text)))
	return text, nil
}

// RootCause asks for the root-cause analysis. The reply is raw model text;
// callers extract the JSON record from it.
func (a *Agent) RootCause(ctx context.Context, intake *session.Intake) (string, error) {
	return a.Generate(ctx, RootCausePrompt(intake))
}

func (a *Agent) Plan(ctx context.Context, intake *session.Intake, rc *session.RootCause) (string, error) {
	return a.Generate(ctx, PlanPrompt(intake, rc))
}

func (a *Agent) CheckIn(ctx context.Context, doc *session.Document, entry session.HabitLogEntry) (string, error) {
	return a.Generate(ctx, CheckInPrompt(doc, entry, a.now()))
}

func (a *Agent) Craving(ctx context.Context, doc *session.Document, details string) (string, error) {
	return a.Generate(ctx, CravingPrompt(doc, details))
}

func (a *Agent) Relapse(ctx context.Context, doc *session.Document, details string) (string, error) {
	return a.Generate(ctx, RelapsePrompt(doc, details))
}

func (a *Agent) Nudge(ctx context.Context, doc *session.Document) (string, error) {
	return a.Generate(ctx, NudgePrompt(doc, a.now()))
}

// Support runs one turn of the support conversation, letting the model call
// read-only tools against doc. It returns the reply and the updated history.
// doc is never modified.
func (a *Agent) Support(ctx context.Context, doc *session.Document, history []llm.Message, userMessage string) (string, []llm.Message, error) {
	messages := make([]llm.Message, len(history), len(history)+1)
	copy(messages, history)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})

	system := llm.SupportPrompt + "\n\n" + ToneGuidance(rootCause(doc))
	budget := llm.HistoryBudget(a.MaxContextTokens, system, llm.SupportTools)

	for i := 0; i < maxToolRounds; i++ {
		trimmed := llm.TrimHistory(messages, budget)
		if len(trimmed) < len(messages) {
			a.log.Debug("support history trimmed", zap.Int("from", len(messages)), zap.Int("to", len(trimmed)))
		}

		callCtx, cancel := context.WithTimeout(ctx, a.Timeout)
		resp, err := a.client.Chat(callCtx, system, trimmed, llm.SupportTools)
		cancel()
		if err != nil {
			return "", history, fmt.Errorf("support chat: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			reply := strings.TrimSpace(resp.Content)
			if reply == "" {
				return "", history, ErrEmptyReply
			}
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: reply})
			return reply, messages, nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			result := a.executeTool(doc, tc.Name, tc.Params)
			a.log.Debug("tool call", zap.String("tool", tc.Name), zap.String("result", truncate(result, 200)))
			messages = append(messages, llm.Message{
				Role:       llm.RoleUser,
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	const giveUp = "I went looking for too much at once. Tell me again what's on your mind?"
	messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: giveUp})
	return giveUp, messages, nil
}

func rootCause(doc *session.Document) *session.RootCause {
	if doc == nil || doc.Context == nil {
		return nil
	}
	return doc.Context.RootCause
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
