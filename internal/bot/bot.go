package bot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"subreminder/internal/config"
	"subreminder/internal/model"
	"subreminder/internal/service"
)

// Bot aggregates Telegram API with services. It is both the command
// dispatcher and the arrival notifier.
type Bot struct {
	api    *tgbotapi.BotAPI
	tasks  *service.TaskService
	config *config.Config
	log    zerolog.Logger
}

func New(cfg *config.Config, tasks *service.TaskService, log zerolog.Logger) (*Bot, error) {
	// Long polling holds a request open for 60s.
	client := &http.Client{Timeout: 75 * time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	b := newBot(cfg, tasks, log)
	b.api = api
	b.log.Info().Str("account", api.Self.UserName).Msg("bot authorized")
	return b, nil
}

func newBot(cfg *config.Config, tasks *service.TaskService, log zerolog.Logger) *Bot {
	return &Bot{
		tasks:  tasks,
		config: cfg,
		log:    log.With().Str("component", "bot").Logger(),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil {
			continue
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error().Err(err).Int64("chat", update.Message.Chat.ID).Msg("handle message")
		}
	}

	return ctx.Err()
}

// Deliver sends the arrival notice for task to channelID. Pacing is up to
// the caller.
func (b *Bot) Deliver(ctx context.Context, channelID int64, task model.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(channelID, formatArrival(task, b.config.Location, b.config.RoleMention))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send arrival notice: %w", err)
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil || !msg.IsCommand() {
		return nil
	}

	b.log.Info().Int64("user", msg.From.ID).Int64("chat", msg.Chat.ID).
		Str("command", msg.Command()).Msg("command")

	replies := b.runCommand(ctx, msg.Command(), msg.CommandArguments(), scope{
		guildID:   msg.Chat.ID,
		channelID: msg.Chat.ID,
		userID:    msg.From.ID,
	})
	for _, text := range replies {
		if err := b.sendText(msg.Chat.ID, text); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
