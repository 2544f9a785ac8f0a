// Package mailer abstracts outbound invitation mail behind a small sender
// interface with SES and console providers.
package mailer

import (
	"context"

	appconfig "access-service/pkg/config"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"go.uber.org/zap"
)

// Message is a single outbound email.
type Message struct {
	To       string
	Subject  string
	TextBody string
}

// EmailSender sends a single email.
type EmailSender interface {
	SendEmail(ctx context.Context, msg Message) error
}

// New builds the configured provider: SES in deployed environments, console
// for local development.
func New(cfg *appconfig.Config, log *zap.Logger) (EmailSender, error) {
	switch cfg.Mail.Provider {
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Mail.AWSRegion))
		if err != nil {
			return nil, err
		}
		return NewSESSender(ses.NewFromConfig(awsCfg), cfg.Mail.FromAddress), nil
	default:
		return NewConsoleSender(log, cfg.Mail.FromAddress), nil
	}
}

// ConsoleSender logs messages instead of delivering them.
type ConsoleSender struct {
	log  *zap.Logger
	from string
}

// NewConsoleSender creates the development sender.
func NewConsoleSender(log *zap.Logger, from string) *ConsoleSender {
	return &ConsoleSender{log: log, from: from}
}

// SendEmail implements EmailSender.
func (s *ConsoleSender) SendEmail(_ context.Context, msg Message) error {
	s.log.Info("Email (console sender)",
		zap.String("from", s.from),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.TextBody))
	return nil
}
