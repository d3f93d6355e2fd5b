package discord

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/chris/phoenix/internal/llm"
	"github.com/chris/phoenix/internal/session"
	"github.com/chris/phoenix/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStripMention(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<@123456> hello", " hello"},
		{"<@!123456> hello", " hello"},
		{"<@123456> and <@!123456>", " and "},
		{"just text", "just text"},
		{"<@999> hello", "<@999> hello"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stripMention(tt.in, "123456"); got != tt.want {
			t.Errorf("stripMention(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   []string
	}{
		{"short", "hello", 2000, []string{"hello"}},
		{"empty", "", 2000, []string{""}},
		{"exact limit", strings.Repeat("a", 20), 20, []string{strings.Repeat("a", 20)}},
		{"at newline", strings.Repeat("a", 15) + "\n" + strings.Repeat("b", 15), 20,
			[]string{strings.Repeat("a", 15) + "\n", strings.Repeat("b", 15)}},
		{"last newline wins", "line1\nline2\nline3\nline4", 12, []string{"line1\nline2\n", "line3\n", "line4"}},
		{"hard split", strings.Repeat("x", 50), 20,
			[]string{strings.Repeat("x", 20), strings.Repeat("x", 20), strings.Repeat("x", 10)}},
		{"keeps runes whole", "héllo", 2, []string{"h", "é", "ll", "o"}},
		{"rune wider than limit", "🔥🔥", 3, []string{"🔥", "🔥"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitMessage(tt.in, tt.maxLen))
		})
	}
}

func TestSplitMessage_MultibyteText(t *testing.T) {
	in := strings.Repeat("wörld ünd 日本語 ", 300)
	chunks := splitMessage(in, MaxMessageLen)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %d is not valid UTF-8", i)
		assert.LessOrEqual(t, len(c), MaxMessageLen)
	}
	assert.Equal(t, in, strings.Join(chunks, ""))
}

type fakeSupporter struct {
	err       error
	seenHist  [][]llm.Message
	onSupport func()
}

func (f *fakeSupporter) Support(ctx context.Context, doc *session.Document, h []llm.Message, msg string) (string, []llm.Message, error) {
	if f.onSupport != nil {
		f.onSupport()
	}
	f.seenHist = append(f.seenHist, h)
	if f.err != nil {
		return "", h, f.err
	}
	reply := doc.Habit() + ": " + msg
	return reply, append(append([]llm.Message(nil), h...),
		llm.Message{Role: llm.RoleUser, Content: msg},
		llm.Message{Role: llm.RoleAssistant, Content: reply}), nil
}

func readyStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	d := session.New()
	require.NoError(t, d.SetIntakeResult(&session.Intake{Habit: "gambling"}, &session.RootCause{}, &session.Plan{}))
	st := store.NewMemoryStore()
	require.NoError(t, st.Save(context.Background(), d))
	return st
}

func TestHandle_KeepsHistoryPerChannel(t *testing.T) {
	coach := &fakeSupporter{}
	b := newBot(coach, readyStore(t), zap.NewNop(), BotConfig{})
	ctx := context.Background()

	reply, ok := b.handle(ctx, "c1", "u1", "rough night")
	require.True(t, ok)
	assert.Equal(t, "gambling: rough night", reply)

	_, ok = b.handle(ctx, "c1", "u1", "still rough")
	require.True(t, ok)
	_, ok = b.handle(ctx, "c2", "u1", "other channel")
	require.True(t, ok)

	require.Len(t, coach.seenHist, 3)
	assert.Empty(t, coach.seenHist[0])
	assert.Len(t, coach.seenHist[1], 2)
	assert.Empty(t, coach.seenHist[2])
}

func TestHandle_Ignores(t *testing.T) {
	coach := &fakeSupporter{}
	b := newBot(coach, readyStore(t), zap.NewNop(), BotConfig{AllowUser: "owner"})

	_, ok := b.handle(context.Background(), "c", "owner", "")
	assert.False(t, ok)
	_, ok = b.handle(context.Background(), "c", "stranger", "hi")
	assert.False(t, ok)
	assert.Empty(t, coach.seenHist)

	_, ok = b.handle(context.Background(), "c", "owner", "hi")
	assert.True(t, ok)
}

func TestHandle_NoIntakeYet(t *testing.T) {
	coach := &fakeSupporter{}
	b := newBot(coach, store.NewMemoryStore(), zap.NewNop(), BotConfig{})

	reply, ok := b.handle(context.Background(), "c", "u", "hello")
	assert.True(t, ok)
	assert.Equal(t, replyNoIntake, reply)
	assert.Empty(t, coach.seenHist)
}

func TestHandle_SupportErrorKeepsHistory(t *testing.T) {
	coach := &fakeSupporter{}
	b := newBot(coach, readyStore(t), zap.NewNop(), BotConfig{})
	_, _ = b.handle(context.Background(), "c", "u", "first")

	coach.err = errors.New("model down")
	reply, ok := b.handle(context.Background(), "c", "u", "second")
	assert.True(t, ok)
	assert.Equal(t, replyFailed, reply)
	assert.Len(t, b.histories["c"], 2)
}

func TestHandle_TrimsHistory(t *testing.T) {
	coach := &fakeSupporter{}
	b := newBot(coach, readyStore(t), zap.NewNop(), BotConfig{MaxContextTokens: 30})
	for i := 0; i < 10; i++ {
		_, _ = b.handle(context.Background(), "c", "u", strings.Repeat("word ", 10))
	}
	assert.Less(t, len(b.histories["c"]), 20)
	assert.NotEmpty(t, b.histories["c"])
}

// recordingChannel logs typing indicators and sends in call order.
type recordingChannel struct {
	events  *[]string
	sendErr error
}

func (r recordingChannel) ChannelTyping(channelID string, _ ...discordgo.RequestOption) error {
	*r.events = append(*r.events, "typing:"+channelID)
	return nil
}

func (r recordingChannel) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if r.sendErr != nil {
		return nil, r.sendErr
	}
	*r.events = append(*r.events, "send:"+content)
	return &discordgo.Message{}, nil
}

func TestRespond_TypingBeforeReply(t *testing.T) {
	var events []string
	coach := &fakeSupporter{onSupport: func() { events = append(events, "support") }}
	b := newBot(coach, readyStore(t), zap.NewNop(), BotConfig{})

	b.respond(context.Background(), recordingChannel{events: &events}, "c", "u", "hi")
	assert.Equal(t, []string{"typing:c", "support", "send:gambling: hi"}, events)
}

func TestRespond_IgnoredMessagesShowNothing(t *testing.T) {
	var events []string
	coach := &fakeSupporter{}
	b := newBot(coach, readyStore(t), zap.NewNop(), BotConfig{AllowUser: "owner"})

	b.respond(context.Background(), recordingChannel{events: &events}, "c", "stranger", "hi")
	b.respond(context.Background(), recordingChannel{events: &events}, "c", "owner", "")
	assert.Empty(t, events)
	assert.Empty(t, coach.seenHist)
}

func TestRespond_SendFailureStops(t *testing.T) {
	var events []string
	b := newBot(&fakeSupporter{}, readyStore(t), zap.NewNop(), BotConfig{})

	b.respond(context.Background(), recordingChannel{events: &events, sendErr: errors.New("gone")}, "c", "u", "hi")
	assert.Equal(t, []string{"typing:c"}, events)
}
