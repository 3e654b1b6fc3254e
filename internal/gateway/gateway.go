package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alchile/backend/pkg/logger"

	"go.uber.org/zap"
)

// Channel is one outbound delivery path for a verification code. Providers
// return their own message id for delivery tracking.
type Channel interface {
	ID() string
	Send(ctx context.Context, to string, body string) (messageID string, err error)
}

// Gateway tries its channels in order and reports which one served the
// message. Operational metrics depend on the channel id, so a success must
// always name its channel.
type Gateway struct {
	channels []Channel
}

func New(channels ...Channel) (*Gateway, error) {
	if len(channels) == 0 {
		return nil, errors.New("no delivery channels configured")
	}

	return &Gateway{channels: channels}, nil
}

func (g *Gateway) Send(ctx context.Context, to string, body string) (string, error) {
	var lastErr error

	for _, ch := range g.channels {
		messageID, err := ch.Send(ctx, to, body)
		if err != nil {
			logger.Warn("delivery channel failed",
				zap.String("channel", ch.ID()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}

		logger.Info("message delivered",
			zap.String("channel", ch.ID()),
			zap.String("message_id", messageID),
		)

		return ch.ID(), nil
	}

	return "", lastErr
}

const otpTemplate = "Al Chile FB\nTu código de verificación es: %s\nVálido por %d minutos."

// SendOTP formats the verification message and delivers it.
func (g *Gateway) SendOTP(ctx context.Context, to string, code string, validity time.Duration) (string, error) {
	body := fmt.Sprintf(otpTemplate, code, int(validity.Minutes()))

	return g.Send(ctx, to, body)
}
