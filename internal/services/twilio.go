package services

import (
	"context"
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioMessenger sends WhatsApp messages via Twilio, for deployments that
// use Twilio instead of an Evolution API instance (GATEWAY_PROVIDER=twilio).
type TwilioMessenger struct {
	client *twilio.RestClient
	from   string // Format: "whatsapp:+14155238886"
}

// NewTwilioMessenger creates a new Twilio-backed messenger.
func NewTwilioMessenger(accountSID, authToken, from string) (*TwilioMessenger, error) {
	if accountSID == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioMessenger{client: client, from: from}, nil
}

// SendText sends a WhatsApp text message via Twilio.
func (t *TwilioMessenger) SendText(ctx context.Context, to, text string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", to))
	params.SetBody(text)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send failed: %w", err)
	}
	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, *resp.ErrorMessage)
	}

	if resp.Sid != nil {
		log.Printf("WhatsApp message sent via Twilio, SID: %s", *resp.Sid)
	}
	return nil
}
