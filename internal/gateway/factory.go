package gateway

import (
	"fmt"
	"strings"

	"github.com/alchile/backend/internal/config"

	"github.com/twilio/twilio-go"
)

// FromConfig builds the gateway for the configured provider. The SMS
// fallback channel is attached only when a sender number is configured.
func FromConfig(cfg config.DeliveryConfig) (*Gateway, error) {
	switch strings.ToLower(cfg.Provider) {
	case "twilio":
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.Twilio.AccountSID,
			Password: cfg.Twilio.AuthToken,
		})

		channels := []Channel{NewTwilioWhatsApp(client, cfg.Twilio.WhatsAppFrom)}
		if cfg.Twilio.SMSFrom != "" {
			channels = append(channels, NewTwilioSMS(client, cfg.Twilio.SMSFrom))
		}

		return New(channels...)
	default:
		return nil, fmt.Errorf("unknown delivery provider %q", cfg.Provider)
	}
}
