// Package telegram is the optional second transport: the same conversation
// engine behind a long-polling Telegram bot, enabled when a token is set.
package telegram

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/fieldops/spendbot/core/config"
	"github.com/fieldops/spendbot/core/logger"
	"github.com/fieldops/spendbot/internal/channel"
	"log/slog"
)

const channelName = "telegram"

// Responder is the conversation entry point the bot feeds into.
type Responder interface {
	Handle(ctx context.Context, sender, text string) (string, error)
}

// Bot adapts inbound Telegram text messages into conversation turns.
// Sender identities are namespaced with a "tg:" prefix so ledger rows from
// the two transports never collide.
type Bot struct {
	bot     *tele.Bot
	engine  Responder
	limiter *channel.Limiter
}

// New builds the bot with a long poller. Returns an error when the token is
// rejected by the Telegram API.
func New(cfg config.TelegramConfig, engine Responder, limiter *channel.Limiter) (*Bot, error) {
	timeoutSec := cfg.LongPollTimeoutSeconds
	if timeoutSec <= 0 {
		timeoutSec = 10
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: time.Duration(timeoutSec) * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	b := &Bot{bot: bot, engine: engine, limiter: limiter}
	bot.Use(recoverMiddleware)
	bot.Handle(tele.OnText, b.onText)
	return b, nil
}

// Start polls until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.bot.Stop()
	}()

	logger.Info(logger.Background(), "tg", "tg.start",
		slog.String("mode", "longpoll"),
	)
	b.bot.Start()
	logger.Info(logger.Background(), "tg", "tg.stop")
}

func (b *Bot) onText(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	sender := "tg:" + strconv.FormatInt(user.ID, 10)

	if !b.limiter.Allow(sender) {
		logger.Warn(logger.Background(), "tg", "tg.rate_limited",
			slog.Int64("user_id", user.ID),
		)
		return nil
	}

	ctx := logger.WithRID(logger.Background(), logger.NewRID())
	ctx = logger.WithMessageMeta(ctx, sender, channelName)

	reply, err := b.engine.Handle(ctx, sender, c.Text())
	if err != nil {
		logger.Error(ctx, "tg", "tg.handle_failed",
			slog.String("status", "fail"),
			slog.Any("err", err),
		)
		return err
	}
	return c.Send(reply)
}

// recoverMiddleware keeps a panicking handler from taking the poller down.
func recoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(logger.Background(), "tg", "tg.panic",
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		return next(c)
	}
}
