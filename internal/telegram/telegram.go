// Package telegram runs the Telegram transport for the campaign bot: each
// chat is one conversation session, routed through the flow engine.
package telegram

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/lukia-marketing/campaignbot/internal/api"
	"github.com/lukia-marketing/campaignbot/internal/models"
)

// DefaultLongPollTimeout applies when the config leaves the timeout at 0.
const DefaultLongPollTimeout = 10 * time.Second

const msgTransportError = "Disculpa, ocurrió un problema procesando tu mensaje. Intenta de nuevo, por favor."

// Opts holds configuration options for the Telegram bot.
type Opts struct {
	Token           string
	LongPollTimeout time.Duration
}

// Option defines a configuration option for the Telegram bot.
type Option func(*Opts)

// WithToken sets the bot token.
func WithToken(token string) Option {
	return func(o *Opts) { o.Token = token }
}

// WithLongPollTimeout sets the long polling timeout.
func WithLongPollTimeout(d time.Duration) Option {
	return func(o *Opts) { o.LongPollTimeout = d }
}

// Bot bridges Telegram chats to the conversation engine.
type Bot struct {
	engine api.BotEngine
	bot    *tele.Bot
}

// NewBot creates the Telegram transport over the given engine.
func NewBot(engine api.BotEngine, options ...Option) (*Bot, error) {
	opts := Opts{LongPollTimeout: DefaultLongPollTimeout}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.Token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if opts.LongPollTimeout <= 0 {
		opts.LongPollTimeout = DefaultLongPollTimeout
	}

	b, err := tele.NewBot(tele.Settings{
		Token:  opts.Token,
		Poller: &tele.LongPoller{Timeout: opts.LongPollTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot initialization failed: %w", err)
	}

	tb := &Bot{engine: engine, bot: b}
	b.Handle("/start", tb.handleStart)
	b.Handle("/reset", tb.handleReset)
	b.Handle(tele.OnText, tb.handleText)
	return tb, nil
}

// Run starts long polling and blocks until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		slog.Info("Bot.Run: telegram transport polling")
		b.bot.Start()
		close(done)
	}()

	select {
	case <-ctx.Done():
		b.bot.Stop()
		<-done
		slog.Info("Bot.Run: telegram transport stopped")
		return nil
	case <-done:
		return fmt.Errorf("telegram poller stopped unexpectedly")
	}
}

// sessionID derives the engine session from the chat. One chat is one
// conversation.
func sessionID(c tele.Context) string {
	return "tg-" + strconv.FormatInt(c.Chat().ID, 10)
}

func (b *Bot) handleStart(c tele.Context) error {
	id := sessionID(c)
	slog.Info("Bot.handleStart: new chat", "sessionID", id)

	// A /start always begins from a clean record.
	if err := b.engine.Reset(context.Background(), id); err != nil {
		slog.Error("Bot.handleStart: reset failed", "error", err, "sessionID", id)
	}

	greeting := models.DefaultGreeting
	if name := c.Sender().FirstName; name != "" {
		greeting = fmt.Sprintf("¡Hola, %s! %s", name, models.DefaultGreeting)
	}
	return c.Send(greeting)
}

func (b *Bot) handleReset(c tele.Context) error {
	id := sessionID(c)
	if err := b.engine.Reset(context.Background(), id); err != nil {
		slog.Error("Bot.handleReset: reset failed", "error", err, "sessionID", id)
		return c.Send(msgTransportError)
	}
	slog.Info("Bot.handleReset: session reset", "sessionID", id)
	return c.Send(models.NewCampaignPrompt)
}

func (b *Bot) handleText(c tele.Context) error {
	id := sessionID(c)
	rec, err := b.engine.HandleTurn(context.Background(), id, c.Text())
	if err != nil {
		slog.Error("Bot.handleText: turn failed", "error", err, "sessionID", id)
		return c.Send(msgTransportError)
	}

	// Group links go out as clickable HTML; everything else as plain text
	// so user-provided characters cannot break the markup.
	if rec.GroupURL != "" && rec.CurrentStep == models.StepCompleted {
		body := fmt.Sprintf("%s\n\n<a href=\"%s\">Abrir grupo de WhatsApp</a>",
			html.EscapeString(rec.BotResponse), html.EscapeString(rec.GroupURL))
		return c.Send(body, tele.ModeHTML)
	}
	return c.Send(rec.BotResponse)
}
