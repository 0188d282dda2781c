package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/tmarsden/waypoint/internal/security"
)

// SESAlertNotifier delivers security alerts to an operator mailbox via AWS
// SES. It implements security.Notifier, so the monitor treats it exactly
// like the webhook channel: best effort, bounded by the alert timeout.
type SESAlertNotifier struct {
	sesClient   *ses.Client
	fromAddress string
	toAddress   string
	logger      *slog.Logger
}

// NewSESAlertNotifier creates an SES-backed alert notifier
func NewSESAlertNotifier(region, fromAddress, toAddress string, logger *slog.Logger) (*SESAlertNotifier, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESAlertNotifier{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		toAddress:   toAddress,
		logger:      logger,
	}, nil
}

// Notify sends one alert email describing the event that tripped a threshold
func (n *SESAlertNotifier) Notify(ctx context.Context, event security.Event) error {
	subject := fmt.Sprintf("[waypoint] security alert: %s", event.Type)

	textBody := fmt.Sprintf(`A security alert threshold was crossed.

Event type: %s
Severity:   %s
Message:    %s
Source IP:  %s
User ID:    %s
Timestamp:  %s

Review recent activity in the admin security dashboard.
`, event.Type, event.Severity, event.Message, event.IP, event.UserID, event.Timestamp.Format("2006-01-02 15:04:05 UTC"))

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{n.toAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := n.sesClient.SendEmail(ctx, input)
	if err != nil {
		n.logger.Error("failed to send alert email via SES",
			slog.String("event_type", event.Type),
			slog.Any("error", err))
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	n.logger.Info("alert email sent",
		slog.String("event_type", event.Type),
		slog.String("message_id", *result.MessageId))

	return nil
}
