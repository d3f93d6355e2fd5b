package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bwmarrin/discordgo"
	"github.com/chris/phoenix/internal/discord"
	"github.com/chris/phoenix/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var remindOnce bool

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send the daily nudge on NUDGE_CRON",
	Long: `Runs until interrupted, sending one nudge per NUDGE_CRON tick (default
every day at 20:00). Nudges go to DISCORD_USER_ID as a DM when a bot token is
set, otherwise to DISCORD_WEBHOOK_URL, otherwise to stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		ag, err := newAgent(ctx)
		if err != nil {
			return err
		}

		var dm *discordgo.Session
		if cfg.DiscordToken != "" {
			dm, err = discordgo.New("Bot " + cfg.DiscordToken)
			if err != nil {
				return fmt.Errorf("creating Discord session: %w", err)
			}
		}
		notify, err := notifiers(dm, cmd.OutOrStdout())
		if err != nil {
			return err
		}

		sched, err := scheduler.New(cfg.NudgeCron, st, ag, notify, logger)
		if err != nil {
			return err
		}
		if remindOnce {
			return sched.RunOnce(ctx)
		}
		if err := sched.Start(); err != nil {
			return err
		}
		<-ctx.Done()
		<-sched.Stop().Done()
		logger.Info("scheduler stopped")
		return nil
	},
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Answer Discord DMs as the support companion",
	Long: `Connects to Discord with DISCORD_BOT_TOKEN and answers direct messages
and mentions like menu option 4. Only DISCORD_USER_ID is answered when it is
set. Daily nudges are sent from the same connection when a recipient is
configured.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DiscordToken == "" {
			return errors.New("DISCORD_BOT_TOKEN is required for the bot")
		}
		ctx, cancel := signalContext()
		defer cancel()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		ag, err := newAgent(ctx)
		if err != nil {
			return err
		}

		bot, err := discord.NewBot(cfg.DiscordToken, ag, st, logger, discord.BotConfig{
			AllowUser:        cfg.DiscordUserID,
			MaxContextTokens: cfg.MaxContextTokens,
		})
		if err != nil {
			return err
		}
		defer bot.Close()

		if cfg.DiscordUserID != "" || cfg.DiscordWebhook != "" {
			notify, err := notifiers(bot.Session(), nil)
			if err != nil {
				return err
			}
			sched, err := scheduler.New(cfg.NudgeCron, st, ag, notify, logger)
			if err != nil {
				return err
			}
			if err := sched.Start(); err != nil {
				return err
			}
			defer func() { <-sched.Stop().Done() }()
		}

		logger.Info("bot is running, press Ctrl+C to exit")
		<-ctx.Done()
		logger.Info("shutting down")
		return nil
	},
}

func init() {
	remindCmd.Flags().BoolVar(&remindOnce, "once", false, "Send one nudge now and exit")
}

// notifiers builds the delivery chain: DM first, then the webhook, then
// fallback when nothing else is configured. A nil fallback means none.
func notifiers(dm *discordgo.Session, fallback io.Writer) (scheduler.Chain, error) {
	var chain scheduler.Chain
	if dm != nil && cfg.DiscordUserID != "" {
		chain = append(chain, discord.NewDMNotifier(dm, cfg.DiscordUserID))
	}
	if cfg.DiscordWebhook != "" {
		wh, err := discord.NewWebhookNotifier(cfg.DiscordWebhook)
		if err != nil {
			return nil, err
		}
		chain = append(chain, wh)
	}
	if len(chain) == 0 && fallback != nil {
		logger.Warn("no Discord delivery configured, nudges go to stdout")
		chain = append(chain, writerNotifier{fallback})
	}
	logger.Debug("nudge delivery", zap.Int("notifiers", len(chain)))
	return chain, nil
}

type writerNotifier struct{ w io.Writer }

func (n writerNotifier) Notify(ctx context.Context, content string) error {
	_, err := fmt.Fprintf(n.w, "%s\n", content)
	return err
}
