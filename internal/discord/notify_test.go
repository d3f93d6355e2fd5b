package discord

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	channelErr error
	sendErr    error
	opened     []string
	sent       []string
	webhooks   []*discordgo.WebhookParams
}

func (f *fakeAPI) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.channelErr != nil {
		return nil, f.channelErr
	}
	f.opened = append(f.opened, recipientID)
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (f *fakeAPI) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, channelID+":"+content)
	return &discordgo.Message{}, nil
}

func (f *fakeAPI) WebhookExecute(id, token string, wait bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.webhooks = append(f.webhooks, data)
	return nil, nil
}

func TestDMNotifier(t *testing.T) {
	api := &fakeAPI{}
	n := &DMNotifier{api: api, userID: "42"}
	require.NoError(t, n.Notify(context.Background(), "keep going"))
	assert.Equal(t, []string{"42"}, api.opened)
	assert.Equal(t, []string{"dm-42:keep going"}, api.sent)

	assert.Error(t, (&DMNotifier{api: api}).Notify(context.Background(), "x"))

	api.channelErr = errors.New("blocked")
	assert.ErrorContains(t, n.Notify(context.Background(), "x"), "blocked")
}

func TestWebhookNotifier_SplitsLongMessages(t *testing.T) {
	api := &fakeAPI{}
	n := &WebhookNotifier{api: api, id: "1", token: "t"}
	require.NoError(t, n.Notify(context.Background(), strings.Repeat("y", MaxMessageLen+5)))
	require.Len(t, api.webhooks, 2)
	assert.Len(t, api.webhooks[0].Content, MaxMessageLen)
	assert.Equal(t, "Agent Phoenix", api.webhooks[1].Username)

	api.sendErr = errors.New("429")
	assert.ErrorContains(t, n.Notify(context.Background(), "x"), "discord webhook")
}

func TestParseWebhookURL(t *testing.T) {
	id, token, err := parseWebhookURL("https://discord.com/api/webhooks/1234/abc-DEF")
	require.NoError(t, err)
	assert.Equal(t, "1234", id)
	assert.Equal(t, "abc-DEF", token)

	id, token, err = parseWebhookURL("https://discord.com/api/v10/webhooks/55/tok/")
	require.NoError(t, err)
	assert.Equal(t, "55", id)
	assert.Equal(t, "tok", token)

	for _, bad := range []string{"", "https://discord.com/api/webhooks/1234", "https://example.com/hook"} {
		_, _, err := parseWebhookURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewWebhookNotifier(t *testing.T) {
	n, err := NewWebhookNotifier("https://discord.com/api/webhooks/9/secret")
	require.NoError(t, err)
	assert.Equal(t, "9", n.id)
	_, err = NewWebhookNotifier("nope")
	assert.Error(t, err)
}
