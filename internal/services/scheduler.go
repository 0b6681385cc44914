// Package services – Scheduler
//
// Scheduler runs one rate-limited batch of outreach sends per invocation.
// A run is guarded so that at most one proceeds at a time; a concurrent
// invocation returns an empty result immediately. Inside a run the
// scheduler applies the business-hours gate, resets the daily counter on a
// new calendar day, draws the daily quota, picks a random subset of the
// eligible contacts sized to half the remaining quota (rounded up) and sends
// to them one after another with a random pause in between.
//
// Per-contact failures are counted and never abort the batch. Store errors
// during setup, a transport reporting ErrTransportUnavailable, or a
// cancelled context end the run early; the result so far is returned with
// the error.
//
// Observability: RunBatch is OpenTelemetry-instrumented and every run is
// logged with its result and counted in Prometheus.
package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-outreach/internal/domain"
)

// SendResult is the outcome of one transport attempt. Ordinary delivery
// failures are reported with Success false and a description in Error.
type SendResult struct {
	Success         bool
	TemplateVariant int
	SubjectVariant  int
	MessageID       string
	Error           string
}

// Transport delivers one message to one contact.
type Transport interface {
	Send(ctx context.Context, c domain.Contact, m domain.MessageType) (SendResult, error)
}

// CampaignStore is the slice of ContactStore the scheduler depends on.
type CampaignStore interface {
	ResetDailyCounterIfNeeded(ctx context.Context) (*domain.CampaignState, error)
	CachedQuota(ctx context.Context, roll func() int) (int, error)
	Contacts(ctx context.Context) ([]domain.Contact, error)
	RecordSend(ctx context.Context, contactID string, rec domain.MessageRecord) (*domain.Contact, error)
	Statistics(ctx context.Context, iv Intervals) (Statistics, error)
}

// Early-exit reasons reported in BatchResult.Reason.
const (
	ReasonAlreadyRunning = "already_running"
	ReasonOutsideHours   = "outside_business_hours"
	ReasonQuotaReached   = "daily_quota_reached"
	ReasonNoneEligible   = "no_eligible_contacts"
)

// BatchResult is the outcome of one run. Reason is set on early exits.
type BatchResult struct {
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
	Skipped int    `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}

// Scheduler orchestrates batch runs. The zero value is not usable; set
// Store, Transport and Policy.
type Scheduler struct {
	Store     CampaignStore
	Transport Transport
	Policy    Policy
	Intervals Intervals

	// SendTimeout bounds each transport call; 0 disables the bound.
	SendTimeout time.Duration
	// Events receives message_sent and batch_completed events; optional.
	Events Publisher

	// Now and Sleep are test seams; defaults are time.Now and a
	// context-aware timer.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error

	running atomic.Bool
}

// NewScheduler wires a scheduler with default clock and sleep.
func NewScheduler(store CampaignStore, tr Transport, p Policy, iv Intervals) *Scheduler {
	return &Scheduler{
		Store:     store,
		Transport: tr,
		Policy:    p,
		Intervals: iv,
		Now:       time.Now,
		Sleep:     sleepCtx,
	}
}

// IsSending reports whether a batch run currently holds the guard.
func (s *Scheduler) IsSending() bool { return s.running.Load() }

// RunBatch executes one batch run. See the package documentation above for
// the algorithm.
func (s *Scheduler) RunBatch(ctx context.Context) (res BatchResult, err error) {
	if !s.running.CompareAndSwap(false, true) {
		log.Info().Msg("batch run already in progress; skipping")
		batchRuns.WithLabelValues(ReasonAlreadyRunning).Inc()
		return BatchResult{Reason: ReasonAlreadyRunning}, nil
	}
	batchInflight.Set(1)
	defer func() {
		batchInflight.Set(0)
		s.running.Store(false)
	}()

	ctx, span := otel.Tracer("services/Scheduler").Start(ctx, "RunBatch")
	defer func() {
		span.SetAttributes(
			attribute.Int("batch.sent", res.Sent),
			attribute.Int("batch.failed", res.Failed),
			attribute.String("batch.reason", res.Reason),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.finish(ctx, res, err)
	}()

	now := s.now()
	if !s.Policy.IsBusinessHours(now) {
		return BatchResult{Reason: ReasonOutsideHours}, nil
	}

	st, err := s.Store.ResetDailyCounterIfNeeded(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	quota, err := s.quota(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	if st.ContactedToday >= quota {
		log.Info().Int("contacted_today", st.ContactedToday).Int("quota", quota).Msg("daily quota reached")
		return BatchResult{Reason: ReasonQuotaReached}, nil
	}
	batch := BatchSize(quota - st.ContactedToday)

	contacts, err := s.Store.Contacts(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	pairs := ResolveEligible(contacts, s.Intervals, now)
	if len(pairs) == 0 {
		return BatchResult{Reason: ReasonNoneEligible}, nil
	}
	s.Policy.Shuffle(len(pairs), func(i, j int) { pairs[i], pairs[j] = pairs[j], pairs[i] })
	selected := pairs[:min(batch, len(pairs))]

	log.Info().
		Int("contacted_today", st.ContactedToday).
		Int("quota", quota).
		Int("eligible", len(pairs)).
		Int("selected", len(selected)).
		Msg("batch run started")

	for i, p := range selected {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ok, err := s.sendOne(ctx, p)
		if err != nil {
			return res, err
		}
		if ok {
			res.Sent++
		} else {
			res.Failed++
		}
		if i < len(selected)-1 {
			d := s.Policy.Delay()
			log.Debug().Dur("delay", d).Msg("waiting before next send")
			if err := s.sleep(ctx, d); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

// sendOne sends and records one pair. It reports whether the send counted
// as successful; a non-nil error aborts the run.
func (s *Scheduler) sendOne(ctx context.Context, p domain.EligiblePair) (bool, error) {
	c := p.Contact
	ctx, span := otel.Tracer("services/Scheduler").Start(ctx, "SendOne",
		trace.WithAttributes(
			attribute.String("contact.id", c.ID),
			attribute.String("message.type", string(p.MessageType)),
		),
	)
	defer span.End()

	sctx, cancel := ctx, context.CancelFunc(func() {})
	if s.SendTimeout > 0 {
		sctx, cancel = context.WithTimeout(ctx, s.SendTimeout)
	}
	out, err := s.Transport.Send(sctx, c, p.MessageType)
	cancel()

	if err != nil {
		if errors.Is(err, ErrTransportUnavailable) {
			log.Error().Err(err).Str("contact_id", c.ID).Msg("transport unavailable; aborting batch")
			sendsTotal.WithLabelValues(string(p.MessageType), "aborted").Inc()
			return false, err
		}
		log.Warn().Err(err).Str("contact_id", c.ID).Str("message_type", string(p.MessageType)).Msg("send failed")
		sendsTotal.WithLabelValues(string(p.MessageType), "failed").Inc()
		return false, nil
	}
	if !out.Success {
		log.Warn().Str("contact_id", c.ID).Str("message_type", string(p.MessageType)).Str("error", out.Error).Msg("send rejected")
		sendsTotal.WithLabelValues(string(p.MessageType), "failed").Inc()
		return false, nil
	}

	sentAt := s.now().UTC()
	updated, err := s.Store.RecordSend(ctx, c.ID, domain.MessageRecord{
		Type:              p.MessageType,
		SentAt:            sentAt,
		TemplateVariant:   out.TemplateVariant,
		SubjectVariant:    out.SubjectVariant,
		ProviderMessageID: out.MessageID,
	})
	if err != nil {
		log.Error().Err(err).Str("contact_id", c.ID).Msg("send delivered but not recorded")
		sendsTotal.WithLabelValues(string(p.MessageType), "unrecorded").Inc()
		return false, nil
	}

	log.Info().
		Str("contact_id", c.ID).
		Str("message_type", string(p.MessageType)).
		Str("status", string(updated.Status)).
		Int("template_variant", out.TemplateVariant).
		Msg("message sent")
	sendsTotal.WithLabelValues(string(p.MessageType), "sent").Inc()
	publish(ctx, s.Events, EventMessageSent, MessageSent{
		ContactID:       c.ID,
		Email:           c.Email,
		MessageType:     p.MessageType,
		Status:          updated.Status,
		TemplateVariant: out.TemplateVariant,
		SentAt:          sentAt,
	})
	return true, nil
}

func (s *Scheduler) quota(ctx context.Context) (int, error) {
	if s.Policy.QuotaMode == QuotaPerDay {
		return s.Store.CachedQuota(ctx, s.Policy.DailyQuota)
	}
	return s.Policy.DailyQuota(), nil
}

func (s *Scheduler) finish(ctx context.Context, res BatchResult, err error) {
	outcome := "completed"
	switch {
	case err != nil:
		outcome = "error"
	case res.Reason != "":
		outcome = res.Reason
	}
	batchRuns.WithLabelValues(outcome).Inc()

	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Int("sent", res.Sent).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Str("reason", res.Reason).
		Msg("batch run finished")

	if res.Sent > 0 || res.Failed > 0 {
		publish(context.WithoutCancel(ctx), s.Events, EventBatchCompleted, res)
	}
}

// SchedulerStatus is a snapshot for dashboards and the status endpoint.
type SchedulerStatus struct {
	IsSending       bool       `json:"is_sending"`
	IsBusinessHours bool       `json:"is_business_hours"`
	DailySent       int        `json:"daily_sent"`
	Statistics      Statistics `json:"statistics"`
}

// Statistics returns the campaign statistics under the scheduler's intervals.
func (s *Scheduler) Statistics(ctx context.Context) (Statistics, error) {
	return s.Store.Statistics(ctx, s.Intervals)
}

// Status reports whether a run is active, whether sending is currently
// allowed and the campaign statistics.
func (s *Scheduler) Status(ctx context.Context) (SchedulerStatus, error) {
	stats, err := s.Statistics(ctx)
	if err != nil {
		return SchedulerStatus{}, err
	}
	return SchedulerStatus{
		IsSending:       s.IsSending(),
		IsBusinessHours: s.Policy.IsBusinessHours(s.now()),
		DailySent:       stats.ContactedToday,
		Statistics:      stats,
	}, nil
}

// Eligible returns the pairs that are due right now, without sending.
func (s *Scheduler) Eligible(ctx context.Context) ([]domain.EligiblePair, error) {
	contacts, err := s.Store.Contacts(ctx)
	if err != nil {
		return nil, err
	}
	return ResolveEligible(contacts, s.Intervals, s.now()), nil
}

func (s *Scheduler) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep == nil {
		return sleepCtx(ctx, d)
	}
	return s.Sleep(ctx, d)
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
