// Package inbox watches the campaign mailbox for replies. It fetches recent
// messages over IMAP, filters out auto-replies and bounces with keyword
// heuristics and reports legitimate replies to the reply bridge, which moves
// the sender's contact to responded.
package inbox

import (
	"html"
	"net/mail"
	"regexp"
	"strings"
)

// Email is the part of an inbound message the classifier looks at.
type Email struct {
	MessageID string
	From      string
	Subject   string
	Body      string
}

var (
	bracketAddr = regexp.MustCompile(`<([^>]+)>`)
	plainAddr   = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z0-9_-]+`)
	htmlTag     = regexp.MustCompile(`<[^>]*>`)
	spaces      = regexp.MustCompile(`\s+`)
)

var autoReplyIndicators = []string{
	"out of office",
	"out of the office",
	"automatic reply",
	"auto-reply",
	"autoreply",
	"vacation",
	"away from my desk",
	"currently unavailable",
	"do not reply",
	"automated response",
	"delivery status notification",
}

var bounceIndicators = []string{
	"mailer-daemon",
	"postmaster",
	"mail delivery",
	"delivery status",
	"undeliverable",
	"failure notice",
	"returned mail",
	"delivery failed",
}

// ExtractAddress returns the lower-cased mailbox address from a header value
// such as `"Jane Doe" <jane@example.com>` or a bare address. It returns ""
// when s holds no address.
func ExtractAddress(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if a, err := mail.ParseAddress(s); err == nil {
		return strings.ToLower(a.Address)
	}
	if m := bracketAddr.FindStringSubmatch(s); m != nil {
		return strings.ToLower(strings.TrimSpace(m[1]))
	}
	if m := plainAddr.FindString(s); m != "" {
		return strings.ToLower(m)
	}
	return ""
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// IsAutoReply reports whether the subject or body looks like an
// out-of-office or other automated response.
func IsAutoReply(e Email) bool {
	return containsAny(strings.ToLower(e.Subject), autoReplyIndicators) ||
		containsAny(strings.ToLower(e.Body), autoReplyIndicators)
}

// IsBounce reports whether the sender or subject looks like a delivery
// failure notice.
func IsBounce(e Email) bool {
	return containsAny(strings.ToLower(e.From), bounceIndicators) ||
		containsAny(strings.ToLower(e.Subject), bounceIndicators)
}

// IsLegitimateReply is true for anything that is neither an auto-reply nor a
// bounce.
func IsLegitimateReply(e Email) bool {
	return !IsAutoReply(e) && !IsBounce(e)
}

// PlainText strips HTML tags, decodes entities and collapses whitespace.
func PlainText(body string) string {
	if body == "" {
		return ""
	}
	text := htmlTag.ReplaceAllString(body, " ")
	text = strings.ReplaceAll(html.UnescapeString(text), "\u00a0", " ")
	return strings.TrimSpace(spaces.ReplaceAllString(text, " "))
}
