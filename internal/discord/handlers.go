package discord

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/chris/phoenix/internal/llm"
	"github.com/chris/phoenix/internal/store"
	"go.uber.org/zap"
)

// MaxMessageLen is Discord's per-message character limit.
const MaxMessageLen = 2000

const (
	replyFailed   = "Something went wrong. Try again?"
	replyNoIntake = "Run `phoenix` in your terminal to finish the intake first. I'll be here after that."
)

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore own messages
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}

	// Only respond to DMs or when mentioned
	isDM := m.GuildID == ""
	isMentioned := false
	for _, u := range m.Mentions {
		if u.ID == s.State.User.ID {
			isMentioned = true
			break
		}
	}
	if !isDM && !isMentioned {
		return
	}

	content := strings.TrimSpace(stripMention(m.Content, s.State.User.ID))
	b.respond(context.Background(), s, m.ChannelID, m.Author.ID, content)
}

// messenger is the part of *discordgo.Session used to answer in a channel.
type messenger interface {
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

func (b *Bot) respond(ctx context.Context, out messenger, channelID, authorID, content string) {
	if !b.accepts(authorID, content) {
		return
	}

	// Show typing while the reply is generated.
	_ = out.ChannelTyping(channelID)
	reply, ok := b.handle(ctx, channelID, authorID, content)
	if !ok {
		return
	}
	for _, chunk := range splitMessage(reply, MaxMessageLen) {
		if _, err := out.ChannelMessageSend(channelID, chunk); err != nil {
			b.log.Warn("sending reply", zap.String("channel", channelID), zap.Error(err))
			return
		}
	}
}

// handle produces the reply for one incoming message. ok is false when the
// message should be ignored.
func (b *Bot) handle(ctx context.Context, channelID, authorID, content string) (reply string, ok bool) {
	if !b.accepts(authorID, content) {
		return "", false
	}

	// Reload every turn so check-ins made in the terminal are visible.
	doc, err := store.LoadOrEmpty(ctx, b.store, b.log)
	if err != nil {
		b.log.Error("loading session", zap.Error(err))
		return replyFailed, true
	}
	if !doc.IsIntakeComplete() {
		return replyNoIntake, true
	}

	b.mu.Lock()
	history := b.histories[channelID]
	b.mu.Unlock()

	reply, newHistory, err := b.coach.Support(ctx, doc, history, content)
	if err != nil {
		b.log.Warn("support reply failed", zap.String("channel", channelID), zap.Error(err))
		return replyFailed, true
	}

	if b.maxTokens > 0 {
		newHistory = llm.TrimHistory(newHistory, b.maxTokens)
	}
	b.mu.Lock()
	b.histories[channelID] = newHistory
	b.mu.Unlock()
	return reply, true
}

// accepts reports whether a message deserves a reply at all.
func (b *Bot) accepts(authorID, content string) bool {
	if content == "" {
		return false
	}
	if b.allowUser != "" && authorID != b.allowUser {
		b.log.Debug("ignoring message from unknown user", zap.String("author", authorID))
		return false
	}
	return true
}

func stripMention(s, userID string) string {
	s = strings.ReplaceAll(s, "<@"+userID+">", "")
	s = strings.ReplaceAll(s, "<@!"+userID+">", "")
	return s
}

func splitMessage(s string, maxLen int) []string {
	if len(s) <= maxLen {
		return []string{s}
	}
	var chunks []string
	for len(s) > 0 {
		end := maxLen
		if end > len(s) {
			end = len(s)
		}
		// Try to split at a newline, otherwise on a rune boundary
		if idx := strings.LastIndex(s[:end], "\n"); idx > 0 {
			end = idx + 1
		} else {
			for end > 0 && end < len(s) && !utf8.RuneStart(s[end]) {
				end--
			}
			if end == 0 {
				_, end = utf8.DecodeRuneInString(s)
			}
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}
