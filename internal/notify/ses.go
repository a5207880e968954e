package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier sends messages through Amazon SES.
type SESNotifier struct {
	client    sesAPI
	fromEmail string
	fromName  string
}

func NewSESNotifier(ctx context.Context, region string, fromEmail string, fromName string) (*SESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	slog.Info("ses notifier enabled", "from", fromEmail, "region", region)

	return &SESNotifier{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

func (n *SESNotifier) Send(ctx context.Context, msg Message) error {
	from := n.fromEmail
	if n.fromName != "" {
		from = fmt.Sprintf("%s <%s>", n.fromName, n.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	out, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("send %s email: %w", msg.Purpose, err)
	}

	slog.Info("email sent", "purpose", msg.Purpose, "message_id", aws.ToString(out.MessageId))
	return nil
}
