package twilio

import (
	"context"
	"fmt"

	twilioclient "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/fieldops/spendbot/core/config"
)

// Messenger delivers an outbound message to a WhatsApp address.
type Messenger interface {
	Send(ctx context.Context, to, body string) error
}

// RestMessenger sends messages through the Twilio REST API from the
// configured sending address. Used in "rest" reply mode; "twiml" mode
// answers inline and never calls out.
type RestMessenger struct {
	api  *twilioclient.RestClient
	from string
}

// NewRestMessenger builds a Messenger on the Twilio REST API.
func NewRestMessenger(cfg config.TwilioConfig) *RestMessenger {
	return &RestMessenger{
		api: twilioclient.NewRestClientWithParams(twilioclient.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		from: cfg.From,
	}
}

// Send posts one outbound message. Twilio's SDK carries no context, so ctx
// is only consulted up front.
func (m *RestMessenger) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(m.from)
	params.SetBody(body)

	if _, err := m.api.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send to %s: %w", to, err)
	}
	return nil
}
