package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-outreach/internal/domain"
)

// ReplyBridge turns "legitimate reply detected" signals into the terminal
// responded transition. Calling it redundantly is safe.
type ReplyBridge struct {
	Store  *ContactStore
	Events Publisher
}

// OnReplyDetected marks the contact behind sender as responded. It reports
// whether a transition happened; unknown senders, non-legitimate replies and
// contacts that already responded are no-ops.
func (b *ReplyBridge) OnReplyDetected(ctx context.Context, sender string, legitimate bool) (bool, error) {
	ctx, span := otel.Tracer("services/ReplyBridge").Start(ctx, "OnReplyDetected",
		trace.WithAttributes(attribute.Bool("reply.legitimate", legitimate)),
	)
	defer span.End()

	if !legitimate {
		repliesTotal.WithLabelValues("ignored").Inc()
		return false, nil
	}

	c, err := b.Store.GetByEmail(ctx, sender)
	if errors.Is(err, ErrContactNotFound) {
		repliesTotal.WithLabelValues("unknown_sender").Inc()
		return false, nil
	}
	if err != nil {
		return false, err
	}
	span.SetAttributes(attribute.String("contact.id", c.ID))

	if c.Status == domain.StatusResponded {
		repliesTotal.WithLabelValues("already_responded").Inc()
		return false, nil
	}

	changed, err := b.Store.MarkResponded(ctx, c.ID)
	if err != nil {
		return false, err
	}
	if !changed {
		repliesTotal.WithLabelValues("already_responded").Inc()
		return false, nil
	}

	repliesTotal.WithLabelValues("responded").Inc()
	log.Info().Str("contact_id", c.ID).Str("previous_status", string(c.Status)).Msg("contact responded")

	if updated, err := b.Store.Get(ctx, c.ID); err == nil && updated.RespondedAt != nil {
		publish(ctx, b.Events, EventContactResponded, ContactResponded{
			ContactID:   c.ID,
			Email:       c.Email,
			RespondedAt: *updated.RespondedAt,
		})
	}
	return true, nil
}
