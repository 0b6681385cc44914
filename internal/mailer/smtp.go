package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"github.com/tbourn/go-outreach/internal/services"
)

// Dialer opens an authenticated SMTP session. *gomail.Dialer satisfies it.
type Dialer interface {
	Dial() (gomail.SendCloser, error)
}

// SMTPSender delivers mail through an SMTP relay using gomail. Each message
// uses its own session; sends are sequential and low-volume.
type SMTPSender struct {
	Dialer   Dialer
	FromName string
	FromAddr string
}

// NewSMTPSender configures a STARTTLS (587) or implicit TLS (465) SMTP sender.
func NewSMTPSender(host string, port int, user, pass, fromName string) *SMTPSender {
	d := gomail.NewDialer(host, port, user, pass)
	d.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	return &SMTPSender{Dialer: d, FromName: fromName, FromAddr: user}
}

// Deliver sends msg and returns the generated Message-ID.
func (s *SMTPSender) Deliver(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := newMessageID(s.FromAddr)

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.FromAddr, s.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", id)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	err := s.session(ctx, func(sc gomail.SendCloser) error {
		if err := gomail.Send(sc, m); err != nil {
			return fmt.Errorf("smtp send to %s: %w", msg.To, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Verify dials and authenticates without sending anything.
func (s *SMTPSender) Verify(ctx context.Context) error {
	return s.session(ctx, func(gomail.SendCloser) error { return nil })
}

// session dials, runs fn and closes the connection, giving up when ctx ends.
// gomail has no context support, so the exchange runs on its own goroutine;
// on expiry the connection is closed to unblock it and ctx.Err() is
// returned. Dial failures wrap services.ErrTransportUnavailable.
func (s *SMTPSender) session(ctx context.Context, fn func(gomail.SendCloser) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		mu        sync.Mutex
		conn      gomail.SendCloser
		abandoned bool
		closeOnce sync.Once
	)
	closeConn := func(sc gomail.SendCloser) {
		closeOnce.Do(func() {
			if err := sc.Close(); err != nil {
				log.Debug().Err(err).Msg("smtp close")
			}
		})
	}

	done := make(chan error, 1)
	go func() {
		sc, err := s.Dialer.Dial()
		if err != nil {
			done <- fmt.Errorf("%w: smtp dial: %v", services.ErrTransportUnavailable, err)
			return
		}
		mu.Lock()
		if abandoned {
			mu.Unlock()
			closeConn(sc)
			return
		}
		conn = sc
		mu.Unlock()

		err = fn(sc)
		closeConn(sc)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		mu.Lock()
		abandoned = true
		if conn != nil {
			closeConn(conn)
		}
		mu.Unlock()
		return fmt.Errorf("smtp: %w", ctx.Err())
	}
}

// Close is a no-op; sessions are closed after each message.
func (s *SMTPSender) Close() error { return nil }

// newMessageID builds an RFC 5322 Message-ID on the sender's domain.
func newMessageID(from string) string {
	host := "localhost"
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		host = from[i+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), host)
}
