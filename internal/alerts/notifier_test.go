package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mental-triage/internal/common/config"
	apperrors "mental-triage/internal/common/errors"
	"mental-triage/internal/common/logger"
	"mental-triage/internal/models"
)

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	calls         int
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.calls++
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	calls       int
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.calls++
	return m.PublishFunc(ctx, params, optFns...)
}

func testConfig() config.AlertsConfig {
	var cfg config.AlertsConfig
	cfg.Enabled = true
	cfg.SNS.Enabled = true
	cfg.SNS.TopicARN = "arn:aws:sns:us-east-1:123456789012:triage-alto"
	cfg.SES.Enabled = true
	cfg.SES.FromEmail = "alertas@clinica.example"
	cfg.SES.To = []string{"guardia@clinica.example"}
	return cfg
}

func altoResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		UrgencyLevel:         models.UrgencyAlto,
		MainConcerns:         []string{"Ideación suicida"},
		PreliminaryDiagnoses: []models.Diagnosis{},
		RiskFactors:          []string{"Pensamientos de autolesión"},
		ProtectiveFactors:    []string{},
		Recommendations:      []string{"Contactar servicios de emergencia"},
		Timestamp:            "2026-03-01T10:15:00Z",
	}
}

func TestNotifier_SendsOnBothChannels(t *testing.T) {
	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			assert.Equal(t, "guardia@clinica.example", params.Destination.ToAddresses[0])
			assert.Equal(t, "alertas@clinica.example", *params.Source)
			assert.Contains(t, *params.Message.Body.Text.Data, "abc-123")
			return &ses.SendEmailOutput{}, nil
		},
	}
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:triage-alto", *params.TopicArn)
			assert.Contains(t, *params.Message, "Pensamientos de autolesión")
			assert.Contains(t, *params.Message, "ALTO")
			return &sns.PublishOutput{}, nil
		},
	}

	n := New(testConfig(), mockSES, mockSNS, logger.NewTestLogger(t))
	err := n.NotifyHighUrgency(context.Background(), "abc-123", altoResult())

	require.NoError(t, err)
	assert.Equal(t, 1, mockSES.calls)
	assert.Equal(t, 1, mockSNS.calls)
}

func TestNotifier_ChannelFailuresAreIndependent(t *testing.T) {
	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("SES service unavailable")
		},
	}
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return &sns.PublishOutput{}, nil
		},
	}

	n := New(testConfig(), mockSES, mockSNS, logger.NewTestLogger(t))
	err := n.NotifyHighUrgency(context.Background(), "abc-123", altoResult())

	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.Contains(t, stdErr.Details, "ses")
	assert.Equal(t, 1, mockSNS.calls)
}

func TestNotifier_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	mockSNS := &MockSNSService{}

	n := New(cfg, nil, mockSNS, logger.NewTestLogger(t))

	assert.NoError(t, n.NotifyHighUrgency(context.Background(), "abc-123", altoResult()))
	assert.Zero(t, mockSNS.calls)
}

func TestNotifier_NilClientSkipsChannel(t *testing.T) {
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return &sns.PublishOutput{}, nil
		},
	}

	n := New(testConfig(), nil, mockSNS, logger.NewTestLogger(t))

	assert.NoError(t, n.NotifyHighUrgency(context.Background(), "", altoResult()))
	assert.Equal(t, 1, mockSNS.calls)
}

func TestAlertBody_UnsavedConversation(t *testing.T) {
	body := alertBody("", altoResult())
	assert.Contains(t, body, "(no persistida)")
	assert.Contains(t, body, "Contactar servicios de emergencia")
}
