// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, storage, campaign timing, mail and inbox
// credentials, event publishing and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without zoneinfo
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
	// APIKeys guard the admin API. Empty disables authentication.
	APIKeys []string
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-outreach")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// CampaignConfig holds the drip timing rules.
type CampaignConfig struct {
	// Days to wait after each message before the next one is due.
	FollowUp1Days int // FOLLOW_UP_1_DAYS, after the initial message
	FollowUp2Days int // FOLLOW_UP_2_DAYS, after follow-up 1
	FollowUp3Days int // FOLLOW_UP_3_DAYS, after follow-up 2

	BusinessHoursStart int            // 0..23
	BusinessHoursEnd   int            // 1..24, exclusive
	BusinessDays       []time.Weekday // BUSINESS_DAYS, e.g. mon,tue,wed
	Timezone           string         // IANA name
	Location           *time.Location // resolved Timezone

	MinDailyEmails  int
	MaxDailyEmails  int
	QuotaMode       string // per_run|per_day
	MinDelayMinutes int
	MaxDelayMinutes int
	SendTimeout     time.Duration
}

// JobsConfig holds the cron schedules.
type JobsConfig struct {
	SendSchedule      string // SEND_SCHEDULE
	ReplySchedule     string // REPLY_SCHEDULE
	ReplyLookbackDays int    // REPLY_LOOKBACK_DAYS
}

// MailConfig selects and configures the outbound transport.
type MailConfig struct {
	Provider     string // smtp|ses
	SMTPHost     string
	SMTPPort     int
	User         string // EMAIL_USER, also the SMTP From address
	Pass         string // EMAIL_PASS
	FromName     string // EMAIL_FROM_NAME
	SESFromEmail string
	SESRegion    string
}

// IMAPConfig configures the inbox used for reply detection. Credentials are
// shared with MailConfig.
type IMAPConfig struct {
	Host string
	Port int
}

// AMQPConfig configures event publishing. Publishing is off when URL is empty.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBDriver    string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // Postgres DSN

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	Campaign CampaignConfig
	Jobs     JobsConfig
	Mail     MailConfig
	IMAP     IMAPConfig
	AMQP     AMQPConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBDriver:    strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:      getenv("DB_PATH", "outreach.db"),
		DatabaseURL: getenv("DATABASE_URL", ""),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
			APIKeys:    splitCSV(getenv("ADMIN_API_KEYS", "")),
		},

		Campaign: CampaignConfig{
			FollowUp1Days:      getint("FOLLOW_UP_1_DAYS", 3),
			FollowUp2Days:      getint("FOLLOW_UP_2_DAYS", 5),
			FollowUp3Days:      getint("FOLLOW_UP_3_DAYS", 7),
			BusinessHoursStart: getint("BUSINESS_HOURS_START", 8),
			BusinessHoursEnd:   getint("BUSINESS_HOURS_END", 17),
			Timezone:           getenv("TIMEZONE", "America/New_York"),
			MinDailyEmails:     getint("MIN_DAILY_EMAILS", 18),
			MaxDailyEmails:     getint("MAX_DAILY_EMAILS", 40),
			QuotaMode:          strings.ToLower(getenv("QUOTA_MODE", "per_run")),
			MinDelayMinutes:    getint("MIN_DELAY_MINUTES", 5),
			MaxDelayMinutes:    getint("MAX_DELAY_MINUTES", 20),
			SendTimeout:        getdur("SEND_TIMEOUT", 60*time.Second),
		},

		Jobs: JobsConfig{
			SendSchedule:      getenv("SEND_SCHEDULE", "0 9,12,15,18 * * 1-5"),
			ReplySchedule:     getenv("REPLY_SCHEDULE", "*/30 * * * *"),
			ReplyLookbackDays: getint("REPLY_LOOKBACK_DAYS", 7),
		},

		Mail: MailConfig{
			Provider:     strings.ToLower(getenv("MAIL_PROVIDER", "smtp")),
			SMTPHost:     getenv("SMTP_HOST", ""),
			SMTPPort:     getint("SMTP_PORT", 587),
			User:         getenv("EMAIL_USER", ""),
			Pass:         getenv("EMAIL_PASS", ""),
			FromName:     getenv("EMAIL_FROM_NAME", "Outreach"),
			SESFromEmail: getenv("SES_FROM_EMAIL", ""),
			SESRegion:    getenv("SES_REGION", ""),
		},

		IMAP: IMAPConfig{
			Host: getenv("IMAP_HOST", ""),
			Port: getint("IMAP_PORT", 993),
		},

		AMQP: AMQPConfig{
			URL:      getenv("AMQP_URL", ""),
			Exchange: getenv("AMQP_EXCHANGE", "ex.outreach"),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-outreach"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL must be set when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if err := cfg.Campaign.resolve(getenv("BUSINESS_DAYS", "mon,tue,wed,thu,fri")); err != nil {
		return cfg, err
	}
	if cfg.Jobs.ReplyLookbackDays < 1 {
		return cfg, errors.New("REPLY_LOOKBACK_DAYS must be >= 1")
	}
	switch cfg.Mail.Provider {
	case "smtp", "ses":
	default:
		return cfg, errors.New("MAIL_PROVIDER must be one of: smtp, ses")
	}
	if cfg.Mail.SMTPPort <= 0 || cfg.IMAP.Port <= 0 {
		return cfg, errors.New("SMTP_PORT and IMAP_PORT must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// resolve validates the campaign rules and fills Location and BusinessDays.
func (c *CampaignConfig) resolve(days string) error {
	if c.FollowUp1Days < 0 || c.FollowUp2Days < 0 || c.FollowUp3Days < 0 {
		return errors.New("FOLLOW_UP_*_DAYS must be >= 0")
	}
	if c.BusinessHoursStart < 0 || c.BusinessHoursEnd > 24 || c.BusinessHoursStart >= c.BusinessHoursEnd {
		return errors.New("business hours must satisfy 0 <= BUSINESS_HOURS_START < BUSINESS_HOURS_END <= 24")
	}
	if c.MinDailyEmails < 1 || c.MinDailyEmails > c.MaxDailyEmails {
		return errors.New("daily quota must satisfy 1 <= MIN_DAILY_EMAILS <= MAX_DAILY_EMAILS")
	}
	if c.MinDelayMinutes < 0 || c.MinDelayMinutes > c.MaxDelayMinutes {
		return errors.New("delays must satisfy 0 <= MIN_DELAY_MINUTES <= MAX_DELAY_MINUTES")
	}
	switch c.QuotaMode {
	case "per_run", "per_day":
	default:
		return errors.New("QUOTA_MODE must be one of: per_run, per_day")
	}
	if c.SendTimeout <= 0 {
		return errors.New("SEND_TIMEOUT must be > 0")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	c.Location = loc

	wd, err := parseWeekdays(days)
	if err != nil {
		return err
	}
	c.BusinessDays = wd
	return nil
}

// CheckSMTP reports missing SMTP settings.
func (m MailConfig) CheckSMTP() error {
	if m.SMTPHost == "" || m.User == "" || m.Pass == "" {
		return errors.New("SMTP_HOST, EMAIL_USER and EMAIL_PASS must be set for MAIL_PROVIDER=smtp")
	}
	return nil
}

// CheckSES reports missing SES settings.
func (m MailConfig) CheckSES() error {
	if m.SESFromEmail == "" {
		return errors.New("SES_FROM_EMAIL must be set for MAIL_PROVIDER=ses")
	}
	return nil
}

// Enabled reports whether an inbox is configured.
func (i IMAPConfig) Enabled() bool { return i.Host != "" }

// ---- helpers (no external deps) ----

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

func parseWeekdays(s string) ([]time.Weekday, error) {
	names := splitCSV(s)
	if len(names) == 0 {
		return nil, errors.New("BUSINESS_DAYS must list at least one day")
	}
	seen := make(map[time.Weekday]bool, len(names))
	out := make([]time.Weekday, 0, len(names))
	for _, n := range names {
		d, ok := weekdayNames[strings.ToLower(n)]
		if !ok {
			return nil, fmt.Errorf("BUSINESS_DAYS: unknown day %q", n)
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out, nil
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
