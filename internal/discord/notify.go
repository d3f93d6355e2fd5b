package discord

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// api is the part of *discordgo.Session the notifiers use.
type api interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DMNotifier sends messages as a direct message to one user.
type DMNotifier struct {
	api    api
	userID string
}

func NewDMNotifier(s *discordgo.Session, userID string) *DMNotifier {
	return &DMNotifier{api: s, userID: userID}
}

func (d *DMNotifier) Notify(ctx context.Context, content string) error {
	if d.userID == "" {
		return errors.New("discord DM: no user ID")
	}
	ch, err := d.api.UserChannelCreate(d.userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord DM: opening channel: %w", err)
	}
	for _, chunk := range splitMessage(content, MaxMessageLen) {
		if _, err := d.api.ChannelMessageSend(ch.ID, chunk, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord DM: sending: %w", err)
		}
	}
	return nil
}

// WebhookNotifier posts messages to a channel webhook. It needs no bot token.
type WebhookNotifier struct {
	api   api
	id    string
	token string
}

// NewWebhookNotifier accepts a URL of the form
// https://discord.com/api/webhooks/<id>/<token>.
func NewWebhookNotifier(webhookURL string) (*WebhookNotifier, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	s, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}
	return &WebhookNotifier{api: s, id: id, token: token}, nil
}

func (w *WebhookNotifier) Notify(ctx context.Context, content string) error {
	for _, chunk := range splitMessage(content, MaxMessageLen) {
		params := &discordgo.WebhookParams{Content: chunk, Username: "Agent Phoenix"}
		if _, err := w.api.WebhookExecute(w.id, w.token, false, params, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord webhook: %w", err)
		}
	}
	return nil
}

func parseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("parsing webhook URL: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("webhook URL %q has no /webhooks/<id>/<token> path", raw)
}
