// Package twilio serves the inbound WhatsApp webhook and delivers replies,
// either inline as TwiML or out of band through the Twilio REST API.
package twilio

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	twilioclient "github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"

	"github.com/fieldops/spendbot/core/config"
	"github.com/fieldops/spendbot/core/logger"
	"github.com/fieldops/spendbot/internal/channel"
	"log/slog"
)

const channelName = "whatsapp"

// Responder is the conversation entry point the webhook feeds into.
type Responder interface {
	Handle(ctx context.Context, sender, text string) (string, error)
}

// Webhook handles POSTed Twilio form payloads.
type Webhook struct {
	cfg       config.TwilioConfig
	engine    Responder
	limiter   *channel.Limiter
	messenger Messenger
	validator twilioclient.RequestValidator
}

// NewWebhook builds the webhook handler. messenger may be nil when the
// reply mode is "twiml".
func NewWebhook(cfg config.TwilioConfig, engine Responder, limiter *channel.Limiter, messenger Messenger) *Webhook {
	return &Webhook{
		cfg:       cfg,
		engine:    engine,
		limiter:   limiter,
		messenger: messenger,
		validator: twilioclient.NewRequestValidator(cfg.AuthToken),
	}
}

// Register mounts the webhook route on the echo instance.
func (w *Webhook) Register(e *echo.Echo) {
	e.POST("/webhook/whatsapp", w.Handle)
}

// Handle processes one inbound message. Twilio retries non-2xx responses,
// so data errors answer 200 with an empty TwiML document and only handler
// failures surface as 5xx.
func (w *Webhook) Handle(c echo.Context) error {
	start := time.Now()
	ctx := logger.WithRID(c.Request().Context(), logger.NewRID())

	if w.cfg.ValidateSignature && !w.validSignature(c) {
		webhookRequests.WithLabelValues("unauthorized").Inc()
		logger.Warn(ctx, "http", "webhook.signature_rejected",
			slog.String("status", "fail"),
			slog.String("path", c.Path()),
		)
		return c.NoContent(http.StatusForbidden)
	}

	sender := c.FormValue("From")
	body := c.FormValue("Body")
	if sender == "" {
		webhookRequests.WithLabelValues("invalid").Inc()
		logger.Warn(ctx, "http", "webhook.missing_sender",
			slog.String("status", "fail"),
		)
		return c.NoContent(http.StatusBadRequest)
	}
	ctx = logger.WithMessageMeta(ctx, sender, channelName)

	if !w.limiter.Allow(sender) {
		webhookRequests.WithLabelValues("rate_limited").Inc()
		logger.Warn(ctx, "http", "webhook.rate_limited")
		return w.answer(c, "")
	}

	reply, err := w.engine.Handle(ctx, sender, body)
	if err != nil {
		webhookRequests.WithLabelValues("error").Inc()
		logger.Error(ctx, "http", "webhook.handle_failed",
			slog.String("status", "fail"),
			slog.Duration("duration", logger.Took(start)),
			slog.Any("err", err),
		)
		return c.NoContent(http.StatusInternalServerError)
	}

	webhookRequests.WithLabelValues("ok").Inc()
	logger.Info(ctx, "http", "webhook.handled",
		slog.String("status", "ok"),
		slog.String("mode", w.cfg.ReplyMode),
		slog.Duration("duration", logger.Took(start)),
	)

	if w.cfg.ReplyMode == config.ReplyModeREST && w.messenger != nil {
		if err := w.messenger.Send(ctx, sender, reply); err != nil {
			logger.Error(ctx, "http", "webhook.send_failed",
				slog.String("status", "fail"),
				slog.Any("err", err),
			)
		}
		return w.answer(c, "")
	}
	return w.answer(c, reply)
}

// answer writes a TwiML response; an empty body yields <Response/> which
// tells Twilio there is nothing to deliver.
func (w *Webhook) answer(c echo.Context, body string) error {
	var verbs []twiml.Element
	if body != "" {
		verbs = append(verbs, &twiml.MessagingMessage{Body: body})
	}
	doc, err := twiml.Messages(verbs)
	if err != nil {
		return err
	}
	return c.XMLBlob(http.StatusOK, []byte(doc))
}

func (w *Webhook) validSignature(c echo.Context) bool {
	sig := c.Request().Header.Get("X-Twilio-Signature")
	if sig == "" {
		return false
	}
	if err := c.Request().ParseForm(); err != nil {
		return false
	}
	params := make(map[string]string, len(c.Request().PostForm))
	for key, values := range c.Request().PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return w.validator.Validate(w.cfg.PublicURL, params, sig)
}
