// Package alerts tells on-call staff about ALTO triage results over SNS and SES.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"mental-triage/internal/common/config"
	apperrors "mental-triage/internal/common/errors"
	"mental-triage/internal/common/logger"
	"mental-triage/internal/common/metrics"
	"mental-triage/internal/models"
	"mental-triage/internal/triage/analysis"
)

const (
	ChannelSNS = "sns"
	ChannelSES = "ses"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Notifier struct {
	cfg       config.AlertsConfig
	sesClient SESService
	snsClient SNSService
	logger    logger.Logger
}

// New returns a notifier for the enabled channels. A nil client disables its
// channel.
func New(cfg config.AlertsConfig, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	return &Notifier{
		cfg:       cfg,
		sesClient: sesClient,
		snsClient: snsClient,
		logger:    log.WithFields(map[string]interface{}{"component": "alerts"}),
	}
}

// NotifyHighUrgency sends on every enabled channel. Channels fail
// independently; all failures are returned joined.
func (n *Notifier) NotifyHighUrgency(ctx context.Context, conversationID string, result *models.AnalysisResult) error {
	if !n.cfg.Enabled || result == nil {
		return nil
	}

	subject := "Triage ALTO: atención inmediata requerida"
	body := alertBody(conversationID, result)

	var errs []error
	if n.cfg.SNS.Enabled && n.snsClient != nil {
		errs = append(errs, n.send(ChannelSNS, func() error {
			_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
				TopicArn: aws.String(n.cfg.SNS.TopicARN),
				Subject:  aws.String(subject),
				Message:  aws.String(body),
			})
			return err
		}))
	}
	if n.cfg.SES.Enabled && n.sesClient != nil && len(n.cfg.SES.To) > 0 {
		errs = append(errs, n.send(ChannelSES, func() error {
			_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
				Destination: &types.Destination{
					ToAddresses: n.cfg.SES.To,
				},
				Message: &types.Message{
					Subject: &types.Content{Data: aws.String(subject)},
					Body: &types.Body{
						Text: &types.Content{Data: aws.String(body)},
					},
				},
				Source: aws.String(n.cfg.SES.FromEmail),
			})
			return err
		}))
	}
	return errors.Join(errs...)
}

func (n *Notifier) send(channel string, fn func() error) error {
	if err := fn(); err != nil {
		metrics.AlertsSent.WithLabelValues(channel, "error").Inc()
		n.logger.Error("alert send failed", map[string]interface{}{"channel": channel, "error": err.Error()})
		return apperrors.NewNotificationSendFailedError(channel, err)
	}
	metrics.AlertsSent.WithLabelValues(channel, "success").Inc()
	n.logger.Info("alert sent", map[string]interface{}{"channel": channel})
	return nil
}

// alertBody carries the analysis report, never the raw answers.
func alertBody(conversationID string, result *models.AnalysisResult) string {
	var b strings.Builder
	if conversationID == "" {
		conversationID = "(no persistida)"
	}
	fmt.Fprintf(&b, "Conversación: %s\n", conversationID)
	if len(result.RiskFactors) > 0 {
		fmt.Fprintf(&b, "Factores de riesgo: %s\n", strings.Join(result.RiskFactors, ", "))
	}
	b.WriteString("\n")
	b.WriteString(analysis.FormatReport(result))
	return b.String()
}
