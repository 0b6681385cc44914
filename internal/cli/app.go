// Package cli implements the outreach command line. Every command loads the
// environment configuration and builds only the components it needs: the
// contact store always, the mail transport for sending commands and the
// inbox checker when IMAP is configured.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-outreach/internal/config"
	"github.com/tbourn/go-outreach/internal/events"
	"github.com/tbourn/go-outreach/internal/inbox"
	"github.com/tbourn/go-outreach/internal/mailer"
	"github.com/tbourn/go-outreach/internal/repo"
	"github.com/tbourn/go-outreach/internal/services"
	"github.com/tbourn/go-outreach/internal/sysutil"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=v1.2.3".
var Version = "dev"

// loadConfig reads an optional .env file, loads the configuration and sets
// up the global logger.
func loadConfig() (config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config.Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	return cfg, nil
}

// app holds the components shared by the commands. close releases them in
// reverse order of acquisition.
type app struct {
	cfg       config.Config
	db        *gorm.DB
	store     *services.ContactStore
	intervals services.Intervals
	events    services.Publisher

	closers []func() error
}

// openApp loads the configuration, opens and migrates the database and
// connects the event publisher.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, intervals: intervalsFrom(cfg.Campaign)}

	dsn := cfg.DBPath
	if cfg.DBDriver == repo.DriverPostgres {
		dsn = cfg.DatabaseURL
	}
	db, err := repo.Open(cfg.DBDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	if err := repo.Instrument(db); err != nil {
		a.close()
		return nil, fmt.Errorf("instrument database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		a.close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	a.db = db
	a.store = services.NewContactStore(db, cfg.Campaign.Location)

	if cfg.AMQP.URL != "" {
		pub, err := events.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect event broker: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		a.events = pub
	} else {
		a.events = events.LogPublisher{}
	}
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}

// transport builds the configured mail transport.
func (a *app) transport(ctx context.Context) (*mailer.Transport, error) {
	m := a.cfg.Mail
	var s mailer.Sender
	switch m.Provider {
	case "ses":
		if err := m.CheckSES(); err != nil {
			return nil, err
		}
		ses, err := mailer.NewSESSender(ctx, m.SESRegion, m.SESFromEmail, m.FromName)
		if err != nil {
			return nil, err
		}
		s = ses
	default:
		if err := m.CheckSMTP(); err != nil {
			return nil, err
		}
		s = mailer.NewSMTPSender(m.SMTPHost, m.SMTPPort, m.User, m.Pass, m.FromName)
	}
	tr := mailer.NewTransport(s, sysutil.FirstNonEmpty(m.FromName, m.User, m.SESFromEmail))
	if err := tr.Catalog.Validate(); err != nil {
		_ = tr.Close()
		return nil, err
	}
	a.closers = append(a.closers, tr.Close)
	return tr, nil
}

// scheduler wires a batch scheduler around tr.
func (a *app) scheduler(tr services.Transport) *services.Scheduler {
	s := services.NewScheduler(a.store, tr, policyFrom(a.cfg.Campaign), a.intervals)
	s.SendTimeout = a.cfg.Campaign.SendTimeout
	s.Events = a.events
	return s
}

func (a *app) replies() *services.ReplyBridge {
	return &services.ReplyBridge{Store: a.store, Events: a.events}
}

// checker returns the inbox checker, or nil when no inbox is configured.
func (a *app) checker() *inbox.Checker {
	if !a.cfg.IMAP.Enabled() {
		return nil
	}
	src := inbox.NewIMAPSource(a.cfg.IMAP.Host, a.cfg.IMAP.Port, a.cfg.Mail.User, a.cfg.Mail.Pass)
	return inbox.NewChecker(src, a.replies(), a.db, a.cfg.Jobs.ReplyLookbackDays)
}

func policyFrom(c config.CampaignConfig) services.Policy {
	return services.Policy{
		Location:        c.Location,
		StartHour:       c.BusinessHoursStart,
		EndHour:         c.BusinessHoursEnd,
		WorkDays:        c.BusinessDays,
		QuotaMin:        c.MinDailyEmails,
		QuotaMax:        c.MaxDailyEmails,
		QuotaMode:       c.QuotaMode,
		DelayMinMinutes: c.MinDelayMinutes,
		DelayMaxMinutes: c.MaxDelayMinutes,
	}
}

func intervalsFrom(c config.CampaignConfig) services.Intervals {
	return services.Intervals{
		AfterInitial:   c.FollowUp1Days,
		AfterFollowUp1: c.FollowUp2Days,
		AfterFollowUp2: c.FollowUp3Days,
	}
}
