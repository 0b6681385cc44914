package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-outreach/internal/inbox"
	"github.com/tbourn/go-outreach/internal/services"
)

type countingBatch struct {
	calls atomic.Int32
	err   error
	// block, when set, makes RunBatch wait for ctx cancellation.
	block   bool
	started chan struct{}
}

func (b *countingBatch) RunBatch(ctx context.Context) (services.BatchResult, error) {
	b.calls.Add(1)
	if b.block {
		close(b.started)
		<-ctx.Done()
		return services.BatchResult{Sent: 1}, ctx.Err()
	}
	return services.BatchResult{Sent: 2, Skipped: 1}, b.err
}

type countingChecker struct {
	calls atomic.Int32
	err   error
}

func (c *countingChecker) Check(ctx context.Context) (inbox.Result, error) {
	c.calls.Add(1)
	return inbox.Result{Checked: 3, Responses: 1}, c.err
}

func TestSchedule_RegistersJobs(t *testing.T) {
	r := New(time.UTC, &countingBatch{}, &countingChecker{})
	require.NoError(t, r.Schedule("0 9,12,15,18 * * 1-5", "*/30 * * * *"))
	assert.Len(t, r.cron.Entries(), 2)

	r = New(nil, &countingBatch{}, nil)
	require.NoError(t, r.Schedule("0 9 * * *", "not a spec"))
	assert.Len(t, r.cron.Entries(), 1, "reply job is skipped without a checker")
}

func TestSchedule_InvalidSpec(t *testing.T) {
	r := New(time.UTC, &countingBatch{}, &countingChecker{})
	require.Error(t, r.Schedule("every day", "*/30 * * * *"))

	r = New(time.UTC, &countingBatch{}, &countingChecker{})
	require.Error(t, r.Schedule("0 9 * * *", "61 * * * *"))
}

func TestJobs_InvokeCollaborators(t *testing.T) {
	b := &countingBatch{}
	c := &countingChecker{}
	r := New(time.UTC, b, c)

	r.runSend()
	r.runReplies()
	b.err = errors.New("store down")
	c.err = errors.New("imap down")
	r.runSend()
	r.runReplies()

	assert.EqualValues(t, 2, b.calls.Load())
	assert.EqualValues(t, 2, c.calls.Load())
}

func TestStop_CancelsInFlightBatch(t *testing.T) {
	b := &countingBatch{block: true, started: make(chan struct{})}
	r := New(time.UTC, b, nil)
	r.Start()

	done := make(chan struct{})
	go func() { r.runSend(); close(done) }()
	<-b.started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("batch did not observe cancellation")
	}
}

func TestCronLogger(t *testing.T) {
	l := cronLogger{}
	l.Info("wake", "now", time.Now())
	l.Error(errors.New("boom"), "panic", "job", "send")
}
