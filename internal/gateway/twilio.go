package gateway

import (
	"context"

	"github.com/pkg/errors"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

const (
	ChannelTwilioWhatsApp = "twilio-whatsapp"
	ChannelTwilioSMS      = "twilio-sms"
)

type twilioWhatsAppChannel struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioWhatsApp sends through the Twilio WhatsApp API. from must carry
// the whatsapp: prefix.
func NewTwilioWhatsApp(client *twilio.RestClient, from string) Channel {
	return &twilioWhatsAppChannel{client: client, from: from}
}

func (c *twilioWhatsAppChannel) ID() string {
	return ChannelTwilioWhatsApp
}

func (c *twilioWhatsAppChannel) Send(ctx context.Context, to string, body string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(c.from)
	params.SetTo("whatsapp:" + to)
	params.SetBody(body)

	msg, err := c.client.Api.CreateMessage(params)
	if err != nil {
		return "", errors.Wrap(err, "twilio whatsapp send failed")
	}
	if msg.Sid == nil {
		return "", errors.New("twilio whatsapp response without sid")
	}

	return *msg.Sid, nil
}

type twilioSMSChannel struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSMS sends plain text messages, used as the fallback channel.
func NewTwilioSMS(client *twilio.RestClient, from string) Channel {
	return &twilioSMSChannel{client: client, from: from}
}

func (c *twilioSMSChannel) ID() string {
	return ChannelTwilioSMS
}

func (c *twilioSMSChannel) Send(ctx context.Context, to string, body string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(c.from)
	params.SetTo(to)
	params.SetBody(body)

	msg, err := c.client.Api.CreateMessage(params)
	if err != nil {
		return "", errors.Wrap(err, "twilio sms send failed")
	}
	if msg.Sid == nil {
		return "", errors.New("twilio sms response without sid")
	}

	return *msg.Sid, nil
}
