// Package jobs triggers the periodic campaign work on cron schedules: batch
// sends during business hours and inbox checks for replies. Schedules are
// evaluated in the campaign timezone, overlapping runs of the same job are
// skipped and a panic in a job is logged instead of crashing the process.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-outreach/internal/inbox"
	"github.com/tbourn/go-outreach/internal/services"
)

// BatchRunner runs one send batch. *services.Scheduler satisfies it.
type BatchRunner interface {
	RunBatch(ctx context.Context) (services.BatchResult, error)
}

// ReplyChecker runs one inbox check. *inbox.Checker satisfies it.
type ReplyChecker interface {
	Check(ctx context.Context) (inbox.Result, error)
}

// Runner owns the cron scheduler and the context handed to every job.
// Stop cancels that context, so an in-flight batch ends at its next delay.
type Runner struct {
	cron    *cron.Cron
	batch   BatchRunner
	replies ReplyChecker

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Runner whose schedules are interpreted in loc. replies may
// be nil when no inbox is configured.
func New(loc *time.Location, batch BatchRunner, replies ReplyChecker) *Runner {
	if loc == nil {
		loc = time.Local
	}
	l := cronLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		batch:   batch,
		replies: replies,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Schedule registers the send job on sendSpec and, if a ReplyChecker is
// set, the reply job on replySpec. Specs use the standard five-field
// format, e.g. "0 9,12,15,18 * * 1-5".
func (r *Runner) Schedule(sendSpec, replySpec string) error {
	if _, err := r.cron.AddFunc(sendSpec, r.runSend); err != nil {
		return err
	}
	if r.replies != nil {
		if _, err := r.cron.AddFunc(replySpec, r.runReplies); err != nil {
			return err
		}
	}
	return nil
}

// Start begins running scheduled jobs in the background.
func (r *Runner) Start() {
	r.cron.Start()
	for _, e := range r.cron.Entries() {
		log.Info().Time("next", e.Next).Msg("job scheduled")
	}
}

// Stop cancels running jobs and waits for them to return or for ctx to end.
func (r *Runner) Stop(ctx context.Context) error {
	r.cancel()
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) runSend() {
	log.Info().Str("job", "send").Msg("job started")
	res, err := r.batch.RunBatch(r.ctx)
	if err != nil {
		log.Error().Err(err).Str("job", "send").
			Int("sent", res.Sent).Int("failed", res.Failed).
			Msg("job failed")
		return
	}
	log.Info().Str("job", "send").
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Str("reason", res.Reason).
		Msg("job completed")
}

func (r *Runner) runReplies() {
	log.Info().Str("job", "replies").Msg("job started")
	res, err := r.replies.Check(r.ctx)
	if err != nil {
		log.Error().Err(err).Str("job", "replies").Msg("job failed")
		return
	}
	log.Info().Str("job", "replies").
		Int("checked", res.Checked).
		Int("responses", res.Responses).
		Int("errors", res.Errors).
		Msg("job completed")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
