package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/tbourn/go-outreach/internal/services"
)

// SESAPI is the subset of the SES v2 client used by SESSender.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	GetAccount(ctx context.Context, in *sesv2.GetAccountInput, optFns ...func(*sesv2.Options)) (*sesv2.GetAccountOutput, error)
}

// SESSender delivers mail through Amazon SES v2.
type SESSender struct {
	Client    SESAPI
	FromEmail string
	FromName  string
}

// NewSESSender loads the default AWS configuration (env, shared config,
// instance role) for region and returns a sender.
func NewSESSender(ctx context.Context, region, fromEmail, fromName string) (*SESSender, error) {
	if fromEmail == "" {
		return nil, fmt.Errorf("SES_FROM_EMAIL is not set")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESSender{
		Client:    sesv2.NewFromConfig(cfg),
		FromEmail: fromEmail,
		FromName:  fromName,
	}, nil
}

func (s *SESSender) from() string {
	if s.FromName == "" {
		return s.FromEmail
	}
	return fmt.Sprintf("%q <%s>", s.FromName, s.FromEmail)
}

// Deliver sends msg and returns the SES message ID.
func (s *SESSender) Deliver(ctx context.Context, msg Message) (string, error) {
	body := &types.Body{Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}
	out, err := s.Client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from()),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	})
	if err != nil {
		return "", classifySESError(err)
	}
	return aws.ToString(out.MessageId), nil
}

// Verify confirms that credentials work and sending is enabled.
func (s *SESSender) Verify(ctx context.Context) error {
	out, err := s.Client.GetAccount(ctx, &sesv2.GetAccountInput{})
	if err != nil {
		return fmt.Errorf("%w: ses verify: %v", services.ErrTransportUnavailable, err)
	}
	if !out.SendingEnabled {
		return fmt.Errorf("%w: ses sending is disabled for this account", services.ErrTransportUnavailable)
	}
	return nil
}

// Close is a no-op; the SDK client holds no dedicated connection.
func (s *SESSender) Close() error { return nil }

// classifySESError marks network failures and account-wide throttling or
// suspension as outages; everything else is a per-message rejection.
func classifySESError(err error) error {
	var ne net.Error
	if errors.As(err, &ne) {
		return fmt.Errorf("%w: ses: %v", services.ErrTransportUnavailable, err)
	}
	var sendingPaused *types.SendingPausedException
	var accountSuspended *types.AccountSuspendedException
	if errors.As(err, &sendingPaused) || errors.As(err, &accountSuspended) {
		return fmt.Errorf("%w: ses: %v", services.ErrTransportUnavailable, err)
	}
	return fmt.Errorf("ses send: %w", err)
}
