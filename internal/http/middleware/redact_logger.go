// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger of the admin API.
// Contact email addresses are the main PII this service handles, and they
// show up in query strings (?email=) and occasionally in headers, so every
// logged value is scrubbed first. Bodies are never logged.
package middleware

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// maxQueryLogLength caps the number of bytes of the raw query string logged.
const maxQueryLogLength = 2048

var (
	emailRE = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	// Digits only, so hex runs inside IDs are left alone.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// Redact replaces email addresses and phone numbers in s.
func Redact(s string) string {
	if s == "" {
		return s
	}
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// unescapeQuery decodes %40 and friends so encoded addresses are still
// caught by Redact. Malformed queries are returned as-is.
func unescapeQuery(q string) string {
	if u, err := url.QueryUnescape(q); err == nil {
		return u
	}
	return q
}

// RedactOptions configures RedactingLogger.
//
// MaskHeaders lists extra header names whose values are replaced with
// "[REDACTED]"; Authorization, Cookie, Set-Cookie and X-API-Key are always
// masked. LogHeaders turns header logging on.
type RedactOptions struct {
	MaskHeaders []string
	LogHeaders  bool
}

// RedactingLogger attaches a request-scoped logger (see LoggerFrom) and
// writes one structured access log line per request, at info level, warn
// for 4xx and error for 5xx or when handlers recorded errors.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	mask := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
		"x-api-key":     {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			mask[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		route := c.FullPath()
		if route == "" {
			route = Redact(c.Request.URL.Path)
		}

		l := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", route).
			Str("remote_ip", c.ClientIP()).
			Logger()
		c.Set(loggerKey, &l)

		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = l.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", Redact(c.Errors.String()))
			}
		case status >= 400:
			ev = l.Warn()
		}

		ev = ev.
			Str("query", truncate(Redact(unescapeQuery(c.Request.URL.RawQuery)), maxQueryLogLength)).
			Str("client", ClientFrom(c)).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start))

		if opts.LogHeaders {
			headers := make(map[string]string, len(c.Request.Header))
			for k, vv := range c.Request.Header {
				if _, ok := mask[strings.ToLower(k)]; ok {
					headers[k] = "[REDACTED]"
					continue
				}
				headers[k] = Redact(strings.Join(vv, ", "))
			}
			ev = ev.Interface("headers", headers)
		}
		ev.Msg("http_request")
	}
}
