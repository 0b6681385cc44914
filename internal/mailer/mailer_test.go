package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/tbourn/go-outreach/internal/domain"
	"github.com/tbourn/go-outreach/internal/services"
)

func TestDefaultCatalog_FiveVariantsPerType(t *testing.T) {
	c := DefaultCatalog()
	require.NoError(t, c.Validate())
	for _, m := range domain.MessageTypes {
		assert.Len(t, c[m].Subjects, 5, m)
		assert.Len(t, c[m].Bodies, 5, m)
	}
}

func TestCatalog_ValidateMissingType(t *testing.T) {
	c := DefaultCatalog()
	delete(c, domain.MessageFollowUp2)
	require.Error(t, c.Validate())
}

func TestRender_PersonalizesWithFallbacks(t *testing.T) {
	cat := Catalog{domain.MessageInitial: {
		Subjects: []string{"Hi {firstName} at {companyName}"},
		Bodies:   []string{"{firstName} {lastName} <{email}> in {city}\n-- {senderName}"},
	}}
	pick := func(n int) int { return 0 }

	r, err := cat.Render(domain.Contact{Email: "jane@x.com", FirstName: "jane", LastName: "DOE", City: "Milford"}, domain.MessageInitial, "Sam", pick)
	require.NoError(t, err)
	assert.Equal(t, "Hi Jane at your company", r.Subject)
	assert.Equal(t, "Jane Doe <jane@x.com> in Milford\n-- Sam", r.Text)
	assert.Contains(t, r.HTML, "Jane Doe &lt;jane@x.com&gt; in Milford<br>")

	r, err = cat.Render(domain.Contact{Email: "a@x.com", Name: "McKenzie"}, domain.MessageInitial, "", pick)
	require.NoError(t, err)
	assert.Equal(t, "Hi McKenzie at your company", r.Subject)
	assert.True(t, strings.HasSuffix(r.Text, "-- Outreach"))

	r, err = cat.Render(domain.Contact{Email: "a@x.com"}, domain.MessageInitial, "", pick)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(r.Text, "there  <a@x.com> in your area"), r.Text)

	_, err = cat.Render(domain.Contact{}, domain.MessageFollowUp3, "", pick)
	require.Error(t, err)
}

func TestRender_VariantIndexesComeFromPick(t *testing.T) {
	calls := 0
	pick := func(n int) int { calls++; return n - calls } // subject 4, body 3
	r, err := DefaultCatalog().Render(domain.Contact{Email: "a@x.com"}, domain.MessageFollowUp1, "", pick)
	require.NoError(t, err)
	assert.Equal(t, 4, r.SubjectVariant)
	assert.Equal(t, 3, r.TemplateVariant)
	assert.Equal(t, "One more idea for your company", r.Subject)
}

// ----- Transport -----

type fakeSender struct {
	sent      []Message
	err       error
	verifyErr error
	closed    bool
}

func (f *fakeSender) Deliver(ctx context.Context, m Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, m)
	return fmt.Sprintf("<%d@test>", len(f.sent)), nil
}
func (f *fakeSender) Verify(ctx context.Context) error { return f.verifyErr }
func (f *fakeSender) Close() error                     { f.closed = true; return nil }

func TestTransport_SendSuccess(t *testing.T) {
	fs := &fakeSender{}
	tr := NewTransport(fs, "Sam")
	tr.Pick = func(n int) int { return 2 }

	res, err := tr.Send(context.Background(), domain.Contact{ID: "c1", Email: "jane@x.com", FirstName: "Jane"}, domain.MessageInitial)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.TemplateVariant)
	assert.Equal(t, 2, res.SubjectVariant)
	assert.Equal(t, "<1@test>", res.MessageID)
	require.Len(t, fs.sent, 1)
	assert.Equal(t, "jane@x.com", fs.sent[0].To)
	assert.Equal(t, "Jane, a quick question", fs.sent[0].Subject)
}

func TestTransport_RejectionIsUnsuccessfulResult(t *testing.T) {
	tr := NewTransport(&fakeSender{err: errors.New("550 no such user")}, "")
	res, err := tr.Send(context.Background(), domain.Contact{Email: "x@x.com"}, domain.MessageInitial)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "550")
}

func TestTransport_OutageIsError(t *testing.T) {
	outage := fmt.Errorf("%w: dial tcp: refused", services.ErrTransportUnavailable)
	tr := NewTransport(&fakeSender{err: outage}, "")
	_, err := tr.Send(context.Background(), domain.Contact{Email: "x@x.com"}, domain.MessageInitial)
	require.ErrorIs(t, err, services.ErrTransportUnavailable)
}

func TestTransport_SendTestVerifyClose(t *testing.T) {
	fs := &fakeSender{}
	tr := NewTransport(fs, "")

	_, err := tr.SendTest(context.Background(), " ")
	require.ErrorIs(t, err, services.ErrEmailRequired)

	id, err := tr.SendTest(context.Background(), "me@x.com")
	require.NoError(t, err)
	assert.Equal(t, "<1@test>", id)
	assert.Equal(t, "Test email from outreach", fs.sent[0].Subject)

	require.NoError(t, tr.Verify(context.Background()))
	broken := *tr
	broken.Catalog = Catalog{domain.MessageInitial: DefaultCatalog()[domain.MessageInitial]}
	require.ErrorContains(t, broken.Verify(context.Background()), "no template")

	fs.verifyErr = errors.New("auth failed")
	require.Error(t, tr.Verify(context.Background()))
	require.NoError(t, tr.Close())
	assert.True(t, fs.closed)
}

// ----- SMTP -----

type fakeSendCloser struct {
	from    string
	to      []string
	raw     bytes.Buffer
	sendErr error
	closed  bool
}

func (f *fakeSendCloser) Send(from string, to []string, msg io.WriterTo) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.from, f.to = from, to
	_, err := msg.WriteTo(&f.raw)
	return err
}
func (f *fakeSendCloser) Close() error { f.closed = true; return nil }

type fakeDialer struct {
	sc  *fakeSendCloser
	err error
}

func (d *fakeDialer) Dial() (gomail.SendCloser, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.sc, nil
}

func TestSMTPSender_Deliver(t *testing.T) {
	sc := &fakeSendCloser{}
	s := &SMTPSender{Dialer: &fakeDialer{sc: sc}, FromName: "Sam", FromAddr: "sam@corp.com"}

	id, err := s.Deliver(context.Background(), Message{To: "jane@x.com", Subject: "Hello", Text: "Hi", HTML: "<p>Hi</p>"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(id, "@corp.com>"), id)
	assert.Equal(t, "sam@corp.com", sc.from)
	assert.Equal(t, []string{"jane@x.com"}, sc.to)
	raw := sc.raw.String()
	assert.Contains(t, raw, "Subject: Hello")
	assert.Contains(t, raw, "Message-ID: "+id)
	assert.Contains(t, raw, "text/html")
	assert.True(t, sc.closed)
}

func TestSMTPSender_DialFailureIsOutage(t *testing.T) {
	s := &SMTPSender{Dialer: &fakeDialer{err: errors.New("connection refused")}, FromAddr: "a@b.c"}
	_, err := s.Deliver(context.Background(), Message{To: "x@y.z"})
	require.ErrorIs(t, err, services.ErrTransportUnavailable)
	require.ErrorIs(t, s.Verify(context.Background()), services.ErrTransportUnavailable)
}

func TestSMTPSender_SendFailureIsPerMessage(t *testing.T) {
	s := &SMTPSender{Dialer: &fakeDialer{sc: &fakeSendCloser{sendErr: errors.New("550 mailbox unavailable")}}, FromAddr: "a@b.c"}
	_, err := s.Deliver(context.Background(), Message{To: "x@y.z"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, services.ErrTransportUnavailable))
}

// stalledSendCloser models a relay that accepts the connection and then
// never answers DATA. Send returns once the session is closed.
type stalledSendCloser struct {
	release chan struct{}
	once    sync.Once
	closed  atomic.Bool
}

func newStalledSendCloser() *stalledSendCloser {
	return &stalledSendCloser{release: make(chan struct{})}
}

func (f *stalledSendCloser) Send(string, []string, io.WriterTo) error {
	select {
	case <-f.release:
		return errors.New("use of closed network connection")
	case <-time.After(2 * time.Second):
		return nil
	}
}

func (f *stalledSendCloser) Close() error {
	f.closed.Store(true)
	f.once.Do(func() { close(f.release) })
	return nil
}

type stalledDialer struct{ sc *stalledSendCloser }

func (d stalledDialer) Dial() (gomail.SendCloser, error) { return d.sc, nil }

func TestSMTPSender_DeliverHonoursDeadline(t *testing.T) {
	sc := newStalledSendCloser()
	s := &SMTPSender{Dialer: stalledDialer{sc}, FromAddr: "a@b.c"}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := s.Deliver(ctx, Message{To: "x@y.z", Subject: "s", Text: "t"})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.Is(err, services.ErrTransportUnavailable))
	assert.Less(t, elapsed, time.Second)
	assert.True(t, sc.closed.Load(), "stalled session must be closed")
}

func TestSMTPSender_VerifyHonoursDeadline(t *testing.T) {
	blocked := make(chan struct{})
	t.Cleanup(func() { close(blocked) })
	s := &SMTPSender{Dialer: dialFunc(func() (gomail.SendCloser, error) {
		<-blocked
		return nil, errors.New("gave up")
	})}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	require.ErrorIs(t, s.Verify(ctx), context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

type dialFunc func() (gomail.SendCloser, error)

func (f dialFunc) Dial() (gomail.SendCloser, error) { return f() }

func TestTransport_SendTimeoutIsUnsuccessfulResult(t *testing.T) {
	sc := newStalledSendCloser()
	tr := NewTransport(&SMTPSender{Dialer: stalledDialer{sc}, FromAddr: "a@b.c"}, "")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res, err := tr.Send(ctx, domain.Contact{Email: "x@x.com"}, domain.MessageInitial)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "deadline exceeded")
}

func TestNewMessageID(t *testing.T) {
	assert.True(t, strings.HasSuffix(newMessageID("me@example.org"), "@example.org>"))
	assert.True(t, strings.HasSuffix(newMessageID("broken"), "@localhost>"))
}

// ----- SES -----

type fakeSES struct {
	in        *sesv2.SendEmailInput
	sendErr   error
	enabled   bool
	accountEr error
}

func (f *fakeSES) SendEmail(ctx context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.in = in
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-123")}, nil
}

func (f *fakeSES) GetAccount(ctx context.Context, in *sesv2.GetAccountInput, _ ...func(*sesv2.Options)) (*sesv2.GetAccountOutput, error) {
	if f.accountEr != nil {
		return nil, f.accountEr
	}
	return &sesv2.GetAccountOutput{SendingEnabled: f.enabled}, nil
}

func TestSESSender_Deliver(t *testing.T) {
	api := &fakeSES{}
	s := &SESSender{Client: api, FromEmail: "out@corp.com", FromName: "Sam"}

	id, err := s.Deliver(context.Background(), Message{To: "jane@x.com", Subject: "Hello", Text: "Hi", HTML: "<p>Hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, "ses-123", id)
	assert.Equal(t, `"Sam" <out@corp.com>`, aws.ToString(api.in.FromEmailAddress))
	assert.Equal(t, []string{"jane@x.com"}, api.in.Destination.ToAddresses)
	assert.Equal(t, "Hello", aws.ToString(api.in.Content.Simple.Subject.Data))
	assert.Equal(t, "<p>Hi</p>", aws.ToString(api.in.Content.Simple.Body.Html.Data))
}

func TestSESSender_ErrorClassification(t *testing.T) {
	s := &SESSender{Client: &fakeSES{sendErr: &types.MessageRejected{Message: aws.String("bad address")}}, FromEmail: "a@b.c"}
	_, err := s.Deliver(context.Background(), Message{To: "x@y.z"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, services.ErrTransportUnavailable))

	s.Client = &fakeSES{sendErr: &types.SendingPausedException{Message: aws.String("paused")}}
	_, err = s.Deliver(context.Background(), Message{To: "x@y.z"})
	require.ErrorIs(t, err, services.ErrTransportUnavailable)
}

func TestSESSender_Verify(t *testing.T) {
	s := &SESSender{Client: &fakeSES{enabled: true}, FromEmail: "a@b.c"}
	require.NoError(t, s.Verify(context.Background()))

	s.Client = &fakeSES{enabled: false}
	require.ErrorIs(t, s.Verify(context.Background()), services.ErrTransportUnavailable)

	s.Client = &fakeSES{accountEr: errors.New("no credentials")}
	require.ErrorIs(t, s.Verify(context.Background()), services.ErrTransportUnavailable)
}

func TestNewSESSender_RequiresFrom(t *testing.T) {
	_, err := NewSESSender(context.Background(), "us-east-1", "", "")
	require.Error(t, err)
}
