// Package discord delivers nudges over Discord and runs a support-only DM bot.
package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/chris/phoenix/internal/llm"
	"github.com/chris/phoenix/internal/session"
	"github.com/chris/phoenix/internal/store"
	"go.uber.org/zap"
)

// Supporter answers one turn of the support conversation.
type Supporter interface {
	Support(ctx context.Context, doc *session.Document, history []llm.Message, message string) (string, []llm.Message, error)
}

type Bot struct {
	session   *discordgo.Session
	coach     Supporter
	store     store.Store
	log       *zap.Logger
	allowUser string
	maxTokens int

	mu        sync.Mutex
	histories map[string][]llm.Message // channel ID -> conversation
}

// BotConfig holds what the bot needs besides the connection.
type BotConfig struct {
	// AllowUser, when set, is the only Discord user the bot answers.
	AllowUser        string
	MaxContextTokens int
}

func newBot(coach Supporter, st store.Store, log *zap.Logger, cfg BotConfig) *Bot {
	return &Bot{
		coach:     coach,
		store:     st,
		log:       log,
		allowUser: cfg.AllowUser,
		maxTokens: cfg.MaxContextTokens,
		histories: make(map[string][]llm.Message),
	}
}

// NewBot connects to Discord and starts answering DMs and mentions.
func NewBot(token string, coach Supporter, st store.Store, log *zap.Logger, cfg BotConfig) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}

	bot := newBot(coach, st, log, cfg)
	bot.session = s
	s.AddHandler(bot.onMessage)
	s.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("opening Discord connection: %w", err)
	}

	log.Info("Discord bot connected", zap.String("user", s.State.User.Username))
	return bot, nil
}

// Session exposes the connection so nudges can be sent as DMs from it.
func (b *Bot) Session() *discordgo.Session { return b.session }

func (b *Bot) Close() error {
	if b.session == nil {
		return nil
	}
	return b.session.Close()
}
