package mailer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-outreach/internal/domain"
	"github.com/tbourn/go-outreach/internal/services"
)

// Message is a rendered email addressed to one recipient.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers rendered messages. Deliver returns the provider's message
// ID. Failures to reach the provider at all must wrap
// services.ErrTransportUnavailable; anything else is a per-message failure.
type Sender interface {
	Deliver(ctx context.Context, msg Message) (string, error)
	Verify(ctx context.Context) error
	Close() error
}

// Transport renders campaign messages from a Catalog and delivers them
// through a Sender. It implements services.Transport.
type Transport struct {
	Sender     Sender
	Catalog    Catalog
	SenderName string
	// Pick chooses a variant index in [0, n); defaults to math/rand/v2.IntN.
	Pick func(n int) int
}

// NewTransport wires a Transport with the default catalog.
func NewTransport(s Sender, senderName string) *Transport {
	return &Transport{Sender: s, Catalog: DefaultCatalog(), SenderName: senderName, Pick: rand.IntN}
}

var _ services.Transport = (*Transport)(nil)

// Send renders the message m for c and delivers it. Delivery rejections are
// reported as an unsuccessful SendResult; provider outages are returned as
// errors wrapping services.ErrTransportUnavailable.
func (t *Transport) Send(ctx context.Context, c domain.Contact, m domain.MessageType) (services.SendResult, error) {
	pick := t.Pick
	if pick == nil {
		pick = rand.IntN
	}
	r, err := t.Catalog.Render(c, m, t.SenderName, pick)
	if err != nil {
		return services.SendResult{Error: err.Error()}, nil
	}

	id, err := t.Sender.Deliver(ctx, Message{To: c.Email, Subject: r.Subject, Text: r.Text, HTML: r.HTML})
	if err != nil {
		if errors.Is(err, services.ErrTransportUnavailable) {
			return services.SendResult{}, err
		}
		return services.SendResult{Error: err.Error()}, nil
	}

	log.Debug().
		Str("contact_id", c.ID).
		Str("message_type", string(m)).
		Int("template_variant", r.TemplateVariant).
		Str("message_id", id).
		Msg("message delivered")

	return services.SendResult{
		Success:         true,
		TemplateVariant: r.TemplateVariant,
		SubjectVariant:  r.SubjectVariant,
		MessageID:       id,
	}, nil
}

// SendTest delivers a fixed test message to verify the configuration end to
// end and returns the provider message ID.
func (t *Transport) SendTest(ctx context.Context, to string) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return "", services.ErrEmailRequired
	}
	const text = "This is a test email to verify the outreach mail configuration is working correctly."
	id, err := t.Sender.Deliver(ctx, Message{
		To:      to,
		Subject: "Test email from outreach",
		Text:    text,
		HTML:    ToHTML(text),
	})
	if err != nil {
		return "", fmt.Errorf("send test email: %w", err)
	}
	return id, nil
}

// Verify checks that every message type has templates and that the
// underlying provider is reachable and accepts the configured credentials.
func (t *Transport) Verify(ctx context.Context) error {
	if err := t.Catalog.Validate(); err != nil {
		return err
	}
	return t.Sender.Verify(ctx)
}

// Close releases the underlying sender.
func (t *Transport) Close() error { return t.Sender.Close() }
