package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fieldops/spendbot/core/config"
	"github.com/fieldops/spendbot/internal/channel"
)

type stubResponder struct {
	reply string
	err   error
	calls int
	last  struct{ sender, text string }
}

func (s *stubResponder) Handle(_ context.Context, sender, text string) (string, error) {
	s.calls++
	s.last.sender = sender
	s.last.text = text
	return s.reply, s.err
}

type recordingMessenger struct {
	sent []string
}

func (m *recordingMessenger) Send(_ context.Context, to, body string) error {
	m.sent = append(m.sent, to+"|"+body)
	return nil
}

func postForm(t *testing.T, w *Webhook, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	if err := w.Handle(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	return rec
}

func TestWebhookRepliesWithTwiML(t *testing.T) {
	responder := &stubResponder{reply: "Please choose an option:"}
	w := NewWebhook(config.TwilioConfig{ReplyMode: config.ReplyModeTwiML}, responder, channel.NewLimiter(0), nil)

	rec := postForm(t, w, url.Values{
		"From": {"whatsapp:+15550001111"},
		"Body": {"hi"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.Contains(ct, "application/xml") {
		t.Fatalf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<Message>") || !strings.Contains(body, "Please choose an option:") {
		t.Fatalf("unexpected TwiML: %q", body)
	}
	if responder.last.sender != "whatsapp:+15550001111" || responder.last.text != "hi" {
		t.Fatalf("responder got %+v", responder.last)
	}
}

func TestWebhookRejectsMissingSender(t *testing.T) {
	responder := &stubResponder{}
	w := NewWebhook(config.TwilioConfig{ReplyMode: config.ReplyModeTwiML}, responder, channel.NewLimiter(0), nil)

	rec := postForm(t, w, url.Values{"Body": {"hi"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if responder.calls != 0 {
		t.Fatal("engine must not run without a sender")
	}
}

func TestWebhookRateLimitAnswersEmptyTwiML(t *testing.T) {
	responder := &stubResponder{reply: "ok"}
	w := NewWebhook(config.TwilioConfig{ReplyMode: config.ReplyModeTwiML}, responder, channel.NewLimiter(time.Minute), nil)
	form := url.Values{"From": {"whatsapp:+15550002222"}, "Body": {"hi"}}

	postForm(t, w, form)
	rec := postForm(t, w, form)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<Message>") {
		t.Fatalf("limited request must not carry a message: %q", rec.Body.String())
	}
	if responder.calls != 1 {
		t.Fatalf("engine calls = %d, want 1", responder.calls)
	}
}

func TestWebhookHandlerErrorAnswers500(t *testing.T) {
	responder := &stubResponder{err: context.DeadlineExceeded}
	w := NewWebhook(config.TwilioConfig{ReplyMode: config.ReplyModeTwiML}, responder, channel.NewLimiter(0), nil)

	rec := postForm(t, w, url.Values{"From": {"whatsapp:+15550003333"}, "Body": {"hi"}})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestWebhookRESTModeSendsOutOfBand(t *testing.T) {
	responder := &stubResponder{reply: "saved"}
	messenger := &recordingMessenger{}
	w := NewWebhook(config.TwilioConfig{ReplyMode: config.ReplyModeREST}, responder, channel.NewLimiter(0), messenger)

	rec := postForm(t, w, url.Values{"From": {"whatsapp:+15550004444"}, "Body": {"-"}})

	if strings.Contains(rec.Body.String(), "<Message>") {
		t.Fatalf("rest mode must answer empty TwiML, got %q", rec.Body.String())
	}
	if len(messenger.sent) != 1 || messenger.sent[0] != "whatsapp:+15550004444|saved" {
		t.Fatalf("messenger.sent = %v", messenger.sent)
	}
}
