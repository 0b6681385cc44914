package inbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes caps how much of a message body is read for classification.
const maxBodyBytes = 64 << 10

// IMAPSource reads recent INBOX messages over implicit-TLS IMAP. Each call
// opens its own session and selects the mailbox read-only, so polling never
// marks mail as seen.
type IMAPSource struct {
	Addr      string
	User      string
	Pass      string
	TLSConfig *tls.Config
	Timeout   time.Duration
}

// NewIMAPSource configures a source for host:port with TLS 1.2 or newer.
func NewIMAPSource(host string, port int, user, pass string) *IMAPSource {
	return &IMAPSource{
		Addr:      net.JoinHostPort(host, strconv.Itoa(port)),
		User:      user,
		Pass:      pass,
		TLSConfig: &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12},
		Timeout:   30 * time.Second,
	}
}

// Recent returns the INBOX messages received on or after since.
func (s *IMAPSource) Recent(ctx context.Context, since time.Time) ([]Email, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := client.DialTLS(s.Addr, s.TLSConfig)
	if err != nil {
		return nil, fmt.Errorf("imap dial %s: %w", s.Addr, err)
	}
	c.Timeout = s.Timeout
	defer func() {
		if err := c.Logout(); err != nil {
			log.Debug().Err(err).Msg("imap logout")
		}
	}()

	if err := c.Login(s.User, s.Pass); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("imap select: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{Specifier: imap.TextSpecifier},
		Peek:         true,
	}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() { done <- c.UidFetch(seqset, items, messages) }()

	out := make([]Email, 0, len(uids))
	for msg := range messages {
		if e, ok := toEmail(msg, section); ok {
			out = append(out, e)
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}
	return out, nil
}

func toEmail(msg *imap.Message, section *imap.BodySectionName) (Email, bool) {
	env := msg.Envelope
	if env == nil {
		return Email{}, false
	}
	e := Email{MessageID: env.MessageId, Subject: env.Subject}
	if len(env.From) > 0 && env.From[0] != nil {
		from := env.From[0]
		e.From = from.MailboxName + "@" + from.HostName
		if from.PersonalName != "" {
			e.From = fmt.Sprintf("%s <%s>", from.PersonalName, e.From)
		}
	}
	if r := msg.GetBody(section); r != nil {
		b, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
		if err != nil {
			log.Debug().Err(err).Uint32("uid", msg.Uid).Msg("imap body read")
		}
		e.Body = PlainText(string(b))
	}
	return e, true
}
