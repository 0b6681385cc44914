package inbox

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-outreach/internal/domain"
	"github.com/tbourn/go-outreach/internal/repo"
)

// Source lists messages received since a point in time.
type Source interface {
	Recent(ctx context.Context, since time.Time) ([]Email, error)
}

// Replier receives reply signals. *services.ReplyBridge satisfies it.
type Replier interface {
	OnReplyDetected(ctx context.Context, sender string, legitimate bool) (bool, error)
}

// Result summarizes one inbox check.
type Result struct {
	Checked   int `json:"checked"`
	Responses int `json:"responses"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// Checker polls a Source and forwards every new message to a Replier.
// Processed Message-IDs are stored as receipts so that overlapping lookback
// windows do not process the same message twice.
type Checker struct {
	Source       Source
	Replier      Replier
	DB           *gorm.DB
	LookbackDays int
	// ReceiptTTL defaults to the lookback window plus one day.
	ReceiptTTL time.Duration
	Now        func() time.Time
}

// NewChecker builds a Checker with a lookback of days.
func NewChecker(src Source, r Replier, db *gorm.DB, days int) *Checker {
	return &Checker{Source: src, Replier: r, DB: db, LookbackDays: days, Now: time.Now}
}

func (c *Checker) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Checker) ttl() time.Duration {
	if c.ReceiptTTL > 0 {
		return c.ReceiptTTL
	}
	return time.Duration(c.LookbackDays+1) * 24 * time.Hour
}

// Check fetches mail from the lookback window and processes what it has not
// seen before. A failure to reach the mailbox is returned as an error;
// failures on individual messages are counted in Result.Errors and retried
// on the next check.
func (c *Checker) Check(ctx context.Context) (Result, error) {
	ctx, span := otel.Tracer("inbox/Checker").Start(ctx, "Check")
	defer span.End()

	var res Result
	now := c.now()
	msgs, err := c.Source.Recent(ctx, now.AddDate(0, 0, -c.LookbackDays))
	if err != nil {
		span.RecordError(err)
		return res, err
	}
	res.Checked = len(msgs)

	for _, m := range msgs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		outcome, err := c.process(ctx, m, now)
		switch {
		case err != nil:
			res.Errors++
			log.Error().Err(err).Str("message_id", m.MessageID).Msg("reply processing failed")
		case outcome == "":
			res.Skipped++
		case outcome == domain.ReceiptResponded:
			res.Responses++
		}
	}

	if n, err := repo.PurgeExpiredReceipts(ctx, c.DB, now); err != nil {
		log.Warn().Err(err).Msg("receipt purge failed")
	} else if n > 0 {
		log.Debug().Int64("purged", n).Msg("expired inbox receipts purged")
	}

	span.SetAttributes(
		attribute.Int("inbox.checked", res.Checked),
		attribute.Int("inbox.responses", res.Responses),
		attribute.Int("inbox.errors", res.Errors),
	)
	log.Info().
		Int("checked", res.Checked).
		Int("responses", res.Responses).
		Int("skipped", res.Skipped).
		Int("errors", res.Errors).
		Int("lookback_days", c.LookbackDays).
		Msg("inbox check complete")
	return res, nil
}

// process handles one message and returns its receipt outcome, or "" when
// the message was already processed.
func (c *Checker) process(ctx context.Context, m Email, now time.Time) (string, error) {
	if m.MessageID != "" {
		_, err := repo.GetReceipt(ctx, c.DB, m.MessageID, now)
		if err == nil {
			return "", nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return "", err
		}
	}

	sender := ExtractAddress(m.From)
	if sender == "" {
		log.Warn().Str("message_id", m.MessageID).Msg("message has no sender address")
		return c.record(ctx, m, sender, domain.ReceiptIgnored, now), nil
	}

	legit := IsLegitimateReply(m)
	changed, err := c.Replier.OnReplyDetected(ctx, sender, legit)
	if err != nil {
		return "", err
	}

	outcome := domain.ReceiptNoChange
	switch {
	case changed:
		outcome = domain.ReceiptResponded
	case !legit:
		outcome = domain.ReceiptIgnored
		log.Debug().Str("message_id", m.MessageID).Msg("skipping auto-reply or bounce")
	}
	return c.record(ctx, m, sender, outcome, now), nil
}

func (c *Checker) record(ctx context.Context, m Email, sender, outcome string, now time.Time) string {
	if m.MessageID == "" {
		return outcome
	}
	_, err := repo.CreateReceipt(ctx, c.DB, m.MessageID, sender, outcome, now, c.ttl())
	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		log.Warn().Err(err).Str("message_id", m.MessageID).Msg("receipt write failed")
	}
	return outcome
}
