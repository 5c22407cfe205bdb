package bot

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/coachline/internal/bot/handlers"
)

// NewAPI connects to Telegram with the bot token.
func NewAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = debug
	return api, nil
}

// SendTimeout bounds each outgoing API request. Long polling keeps its own client
// since getUpdates holds the connection for the whole update timeout.
const SendTimeout = 15 * time.Second

// NewSendAPI connects a second client for outgoing messages whose HTTP requests
// cannot hang past SendTimeout.
func NewSendAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	return newSendAPI(token, tgbotapi.APIEndpoint, debug)
}

func newSendAPI(token, endpoint string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: SendTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create send client: %w", err)
	}
	api.Debug = debug
	return api, nil
}

type Bot struct {
	api      *tgbotapi.BotAPI
	handlers *handlers.Handlers
}

func New(api *tgbotapi.BotAPI, h *handlers.Handlers) *Bot {
	return &Bot{
		api:      api,
		handlers: h,
	}
}

func (b *Bot) Start(ctx context.Context) error {
	log.Printf("Authorized on account %s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("update channel closed")
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[bot] handler panicked: %v", r)
		}
	}()

	if update.Message == nil || update.Message.Text == "" {
		return
	}
	log.Printf("[bot] received %q from %d", update.Message.Text, update.Message.Chat.ID)

	if update.Message.IsCommand() {
		b.handlers.HandleCommand(ctx, update.Message)
		return
	}

	b.handlers.HandleMessage(ctx, update.Message)
}
