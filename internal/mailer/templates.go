// Package mailer renders outreach messages and delivers them over SMTP
// (gomail) or Amazon SES. Its Transport type is the campaign's message
// transport: it picks a template variant, personalizes it for the contact
// and hands the result to a Sender.
//
// Templates use the placeholders {firstName}, {lastName}, {email},
// {companyName}, {city} and {senderName}. Missing contact attributes fall
// back to neutral wording ("there", "your company", "your area").
package mailer

import (
	"fmt"
	"html"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-outreach/internal/domain"
)

// Template is the set of interchangeable subjects and bodies for one
// message type.
type Template struct {
	Subjects []string
	Bodies   []string
}

// Catalog maps each message type to its template set.
type Catalog map[domain.MessageType]Template

// Rendered is a personalized message ready for delivery.
type Rendered struct {
	Subject         string
	Text            string
	HTML            string
	SubjectVariant  int
	TemplateVariant int
}

// Validate checks that every message type has at least one subject and body.
func (c Catalog) Validate() error {
	for _, m := range domain.MessageTypes {
		t, ok := c[m]
		if !ok || len(t.Subjects) == 0 || len(t.Bodies) == 0 {
			return fmt.Errorf("mailer: no template for %s", m)
		}
	}
	return nil
}

// Render picks a subject and body for m with pick (which must return a
// value in [0, n)) and personalizes them for c.
func (c Catalog) Render(contact domain.Contact, m domain.MessageType, senderName string, pick func(n int) int) (Rendered, error) {
	t, ok := c[m]
	if !ok || len(t.Subjects) == 0 || len(t.Bodies) == 0 {
		return Rendered{}, fmt.Errorf("mailer: no template for %s", m)
	}
	si := pick(len(t.Subjects))
	bi := pick(len(t.Bodies))
	r := newReplacer(contact, senderName)
	text := r.Replace(t.Bodies[bi])
	return Rendered{
		Subject:         r.Replace(t.Subjects[si]),
		Text:            text,
		HTML:            ToHTML(text),
		SubjectVariant:  si,
		TemplateVariant: bi,
	}, nil
}

// properName title-cases names typed entirely in one case ("jane", "DOE")
// and leaves mixed-case names ("McKenzie") untouched.
func properName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	hasUpper, hasLower := false, false
	for _, r := range s {
		hasUpper = hasUpper || unicode.IsUpper(r)
		hasLower = hasLower || unicode.IsLower(r)
	}
	if hasUpper && hasLower {
		return s
	}
	// Casers are stateful; build one per call.
	return cases.Title(language.English).String(s)
}

func fallback(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

func newReplacer(c domain.Contact, senderName string) *strings.Replacer {
	first := properName(c.FirstName)
	if first == "" {
		first = properName(c.Name)
	}
	return strings.NewReplacer(
		"{firstName}", fallback(first, "there"),
		"{lastName}", properName(c.LastName),
		"{email}", c.Email,
		"{companyName}", fallback(c.CompanyName, "your company"),
		"{city}", fallback(c.City, "your area"),
		"{senderName}", fallback(senderName, "Outreach"),
	)
}

// ToHTML wraps plain text in a minimal HTML document, escaping it and
// turning line breaks into <br>.
func ToHTML(text string) string {
	body := strings.ReplaceAll(html.EscapeString(text), "\n", "<br>\n")
	return `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
` + body + `
</body>
</html>`
}

// DefaultCatalog returns the built-in five-variant templates.
func DefaultCatalog() Catalog {
	return Catalog{
		domain.MessageInitial: {
			Subjects: []string{
				"Quick intro for {companyName}",
				"Helping {city} teams move faster",
				"{firstName}, a quick question",
				"Idea for {companyName}",
				"Local partner in {city}",
			},
			Bodies: []string{
				"Hi {firstName},\n\nI work with teams across {city} and wanted to introduce myself. We help companies like {companyName} turn around time-sensitive work in hours instead of days.\n\nWould you be open to a 10-minute call next week?\n\nBest,\n{senderName}",
				"Hi {firstName},\n\nI came across {companyName} and thought a short intro was worth it. We have helped several {city} teams take on the tricky projects others pass on.\n\nIf that sounds useful, I would love to find 10 minutes to connect.\n\nThanks,\n{senderName}",
				"Hi {firstName},\n\nQuick intro: I am {senderName}, and I am rebuilding my network around {city}. When a deal or project gets complicated, that is usually where I can help the most.\n\nDoes a short call next week work for you?\n\nBest,\n{senderName}",
				"Hi {firstName},\n\nI help businesses like {companyName} with fast, reliable turnarounds. A recent client in {city} went from stuck to done in ten days.\n\nHappy to share how, if you have 10 minutes.\n\nRegards,\n{senderName}",
				"Hi {firstName},\n\nI am reaching out because we work with a number of teams near {city}, and {companyName} looked like a great fit.\n\nWould you be open to a quick intro call?\n\nAll the best,\n{senderName}",
			},
		},
		domain.MessageFollowUp1: {
			Subjects: []string{
				"Following up, {firstName}",
				"Re: quick intro for {companyName}",
				"Any thoughts?",
				"Circling back",
				"One more idea for {companyName}",
			},
			Bodies: []string{
				"Hi {firstName},\n\nJust following up on my note from last week. If timing was the issue, I am happy to work around your schedule.\n\nBest,\n{senderName}",
				"Hi {firstName},\n\nI know inboxes get busy. I would still love to connect about how we could help {companyName}.\n\nWould a 10-minute call work?\n\nThanks,\n{senderName}",
				"Hi {firstName},\n\nCircling back in case my last message got buried. Even a quick reply letting me know the right person to talk to would help.\n\nBest,\n{senderName}",
				"Hi {firstName},\n\nOne more thought: we usually get started within a day, which tends to matter most when deadlines are tight in {city}.\n\nOpen to a short chat?\n\n{senderName}",
				"Hi {firstName},\n\nFollowing up briefly. If now is not the right time, just let me know and I will check back later.\n\nRegards,\n{senderName}",
			},
		},
		domain.MessageFollowUp2: {
			Subjects: []string{
				"A quick story from {city}",
				"Still interested, {firstName}?",
				"How we helped a team like {companyName}",
				"Worth a look?",
				"Last idea before I go quiet",
			},
			Bodies: []string{
				"Hi {firstName},\n\nA quick story: a {city} client had a project three others had turned down. We found a path and wrapped it up two weeks early.\n\nIf you ever have one like that, I would love to help.\n\nBest,\n{senderName}",
				"Hi {firstName},\n\nI have reached out a couple of times, so I will keep this short: if {companyName} ever needs a fast, dependable partner, I am a reply away.\n\nThanks,\n{senderName}",
				"Hi {firstName},\n\nWe recently helped a company similar to {companyName} cut their turnaround in half. Happy to walk you through it in 10 minutes.\n\n{senderName}",
				"Hi {firstName},\n\nNo pressure at all. I just wanted to share that we are taking on a few new partners in {city} this month.\n\nInterested in a quick call?\n\nBest,\n{senderName}",
				"Hi {firstName},\n\nBefore I go quiet, here is the short version: fast turnarounds, local support, and no surprises.\n\nIf that is useful for {companyName}, let us talk.\n\nRegards,\n{senderName}",
			},
		},
		domain.MessageFollowUp3: {
			Subjects: []string{
				"Closing the loop, {firstName}",
				"Final note",
				"Taking you off my list",
				"Last note, thanks for your time",
				"Goodbye for now",
			},
			Bodies: []string{
				"Hi {firstName},\n\nThis is my final email. I will take the silence as a no, which is completely fine.\n\nIf anything changes, feel free to reach out anytime.\n\nBest of luck with {companyName}!\n\n{senderName}",
				"Hi {firstName},\n\nI am closing the loop and removing you from my outreach list. If circumstances change, you know where to find me.\n\nAll the best,\n{senderName}",
				"Hi {firstName},\n\nGenuinely my last email. I will assume the timing is not right.\n\nWishing you and {companyName} a great year.\n\n{senderName}",
				"Hi {firstName},\n\nTaking you off my list, no hard feelings! If you ever need a hand in {city}, just reply.\n\nBest,\n{senderName}",
				"Hi {firstName},\n\nFinal note from me. If things change, feel free to reach out anytime.\n\nThanks for your time,\n{senderName}",
			},
		},
	}
}
