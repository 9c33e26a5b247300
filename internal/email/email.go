// Package email renders the weekly digest to HTML and delivers it over
// SMTP. Templating is deliberately minimal: literal token replacement plus
// flat conditional blocks, matching the digest template's needs without a
// full engine.
package email

import (
	"crypto/tls"
	"fmt"
	"html"
	"net/smtp"
	"regexp"
	"strings"
	"time"

	"cardiobrief/internal/core"
	"cardiobrief/internal/logger"
)

// ifBlockPattern matches one flat {{#if name}}...{{/if}} block. Blocks must
// not nest; overlapping matches would be ambiguous and are not supported.
var ifBlockPattern = regexp.MustCompile(`(?s)\{\{#if (\w+)\}\}(.*?)\{\{/if\}\}`)

// BuildDigest renders the digest HTML for the given classified articles.
// Articles whose generated content is empty are filtered out before
// rendering; a section whose filtered count is zero is removed wholesale.
func BuildDigest(b2c, b2b []*core.Article) string {
	b2c = withContent(b2c)
	b2b = withContent(b2b)

	now := time.Now()
	tokens := map[string]string{
		"subject":      fmt.Sprintf("CardioBrief Digest - %s", now.Format("January 2, 2006")),
		"date":         now.Format("January 2, 2006"),
		"b2c_articles": renderCards(b2c),
		"b2b_articles": renderCards(b2b),
	}

	guards := map[string]bool{
		"b2c": len(b2c) > 0,
		"b2b": len(b2b) > 0,
	}

	return Render(digestTemplate, tokens, guards)
}

// Render applies conditional-block resolution, then literal token
// replacement, to a template. Each {{#if name}} block is kept (tags
// stripped) when guards[name] is true and removed entirely otherwise.
func Render(template string, tokens map[string]string, guards map[string]bool) string {
	out := ifBlockPattern.ReplaceAllStringFunc(template, func(block string) string {
		groups := ifBlockPattern.FindStringSubmatch(block)
		if guards[groups[1]] {
			return groups[2]
		}
		return ""
	})

	for token, value := range tokens {
		out = strings.ReplaceAll(out, "{{"+token+"}}", value)
	}
	return out
}

// renderCards renders one article card per article.
func renderCards(articles []*core.Article) string {
	var cards []string
	for _, article := range articles {
		tokens := map[string]string{
			"title":   html.EscapeString(article.Title),
			"journal": html.EscapeString(article.Journal),
			"url":     html.EscapeString(article.URL),
			"content": html.EscapeString(article.GeneratedContent),
		}
		cards = append(cards, Render(articleCardTemplate, tokens, nil))
	}
	return strings.Join(cards, "\n")
}

// withContent filters out articles whose generation failed.
func withContent(articles []*core.Article) []*core.Article {
	var kept []*core.Article
	for _, article := range articles {
		if strings.TrimSpace(article.GeneratedContent) != "" {
			kept = append(kept, article)
		}
	}
	return kept
}

// Subject derives the digest subject line for a given date.
func Subject(date time.Time) string {
	return fmt.Sprintf("CardioBrief Digest - %s", date.Format("January 2, 2006"))
}

// SMTPOptions configures the mail transport.
type SMTPOptions struct {
	Host        string
	Port        int
	Username    string
	Password    string
	TLSEnabled  bool
	FromAddress string
	FromName    string
}

// Sender delivers HTML digests over SMTP.
type Sender struct {
	opts SMTPOptions
}

// NewSender creates an SMTP sender. Missing host or credentials leave the
// sender disabled; Send then fails fast with an error the caller logs.
func NewSender(opts SMTPOptions) *Sender {
	if opts.Port <= 0 {
		opts.Port = 587
	}
	if opts.Host == "" || opts.Username == "" || opts.Password == "" {
		logger.Warn("Email delivery disabled: SMTP host or credentials not configured")
	}
	return &Sender{opts: opts}
}

// Enabled reports whether the sender has a usable SMTP configuration.
func (s *Sender) Enabled() bool {
	return s.opts.Host != "" && s.opts.Username != "" && s.opts.Password != ""
}

// Send submits one multipart HTML message to a single recipient. Auth and
// network failures are returned as errors, never raised further; the caller
// logs and moves on.
func (s *Sender) Send(htmlBody, subject, recipient string) error {
	if !s.Enabled() {
		return fmt.Errorf("smtp transport not configured")
	}
	if recipient == "" {
		return fmt.Errorf("recipient must not be empty")
	}

	from := s.opts.FromAddress
	if from == "" {
		from = s.opts.Username
	}
	fromHeader := from
	if s.opts.FromName != "" {
		fromHeader = fmt.Sprintf("%s <%s>", s.opts.FromName, from)
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", fromHeader))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", recipient))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	auth := smtp.PlainAuth("", s.opts.Username, s.opts.Password, s.opts.Host)

	if err := s.submit(addr, auth, from, recipient, []byte(msg.String())); err != nil {
		logger.Error("Digest delivery failed", err, "recipient", recipient)
		return err
	}

	logger.Info("Digest delivered", "recipient", recipient, "subject", subject)
	return nil
}

// submit performs the SMTP session with STARTTLS when enabled.
func (s *Sender) submit(addr string, auth smtp.Auth, from, recipient string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("connecting to smtp server: %w", err)
	}
	defer client.Close()

	if s.opts.TLSEnabled {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			return fmt.Errorf("smtp server does not support STARTTLS")
		}
		if err := client.StartTLS(&tls.Config{ServerName: s.opts.Host}); err != nil {
			return fmt.Errorf("starting TLS: %w", err)
		}
	}

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing message: %w", err)
	}

	return client.Quit()
}
