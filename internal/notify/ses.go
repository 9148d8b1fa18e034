package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/ignite/signup-capture/internal/domain"
	"github.com/ignite/signup-capture/internal/pkg/logger"
)

// SendEmailAPI is the part of the SES v2 client the sender needs.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends welcome emails via AWS SES.
type SESSender struct {
	client    SendEmailAPI
	from      string
	templates *Templates
}

// NewSESSender creates a sender that mails from the given address.
func NewSESSender(client SendEmailAPI, from string, templates *Templates) *SESSender {
	return &SESSender{client: client, from: from, templates: templates}
}

// Welcome renders and sends the welcome email to s.
func (n *SESSender) Welcome(ctx context.Context, s domain.Subscriber) error {
	subject, body, err := n.templates.Render(s)
	if err != nil {
		return err
	}

	out, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination:      &types.Destination{ToAddresses: []string{s.Email}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("subscriber_id"), Value: aws.String(s.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("SES send: %w", err)
	}

	logger.Info("welcome email sent", "email", s.Email, "message_id", aws.ToString(out.MessageId))
	return nil
}
