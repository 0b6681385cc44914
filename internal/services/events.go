package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-outreach/internal/domain"
)

// Routing keys of the campaign events.
const (
	EventMessageSent      = "outreach.message.sent"
	EventContactResponded = "outreach.contact.responded"
	EventBatchCompleted   = "outreach.batch.completed"
)

// Publisher fans campaign events out to other systems. Publishing is best
// effort: a failure is logged and never affects the campaign state.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// MessageSent is published after a send has been recorded.
type MessageSent struct {
	ContactID       string             `json:"contact_id"`
	Email           string             `json:"email"`
	MessageType     domain.MessageType `json:"message_type"`
	Status          domain.Status      `json:"status"`
	TemplateVariant int                `json:"template_variant"`
	SentAt          time.Time          `json:"sent_at"`
}

// ContactResponded is published when a reply moves a contact to responded.
type ContactResponded struct {
	ContactID   string    `json:"contact_id"`
	Email       string    `json:"email"`
	RespondedAt time.Time `json:"responded_at"`
}

func publish(ctx context.Context, p Publisher, key string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, key, payload); err != nil {
		log.Warn().Err(err).Str("routing_key", key).Msg("event publish failed")
	}
}
