package mailer

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESSender delivers mail through AWS SES.
type SESSender struct {
	client      *ses.Client
	fromAddress string
}

// NewSESSender creates an SES-backed sender.
func NewSESSender(client *ses.Client, fromAddress string) *SESSender {
	return &SESSender{client: client, fromAddress: fromAddress}
}

// SendEmail implements EmailSender.
func (s *SESSender) SendEmail(ctx context.Context, msg Message) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(msg.TextBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	_, err := s.client.SendEmail(ctx, input)
	return err
}
