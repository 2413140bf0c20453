// internal/common/aws/clients.go
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Clients bundles the AWS services used for high-urgency alerts.
type Clients struct {
	SNS *sns.Client
	SES *ses.Client
}

// NewClients loads the default credential chain once for the given region.
func NewClients(ctx context.Context, region string) (*Clients, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &Clients{
		SNS: sns.NewFromConfig(cfg),
		SES: ses.NewFromConfig(cfg),
	}, nil
}
