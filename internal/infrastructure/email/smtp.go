package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"paperdigest/internal/config"
	"paperdigest/internal/ports"
)

// SMTPSender delivers rendered digests over SMTP with STARTTLS.
type SMTPSender struct {
	cfg config.EmailConfig
}

var _ ports.EmailSender = (*SMTPSender)(nil)

// NewSMTPSender wires the sender from configuration.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send builds a multipart/alternative message and submits it.
func (s *SMTPSender) Send(ctx context.Context, subject, textBody, htmlBody string) error {
	if s.cfg.SMTPHost == "" || len(s.cfg.Recipients) == 0 {
		return fmt.Errorf("smtp sender misconfigured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(s.cfg.From, s.cfg.Recipients, subject, textBody, htmlBody)

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.From, s.cfg.Recipients, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

const mimeBoundary = "digest-boundary-7f3a9c"

func buildMessage(from string, to []string, subject, textBody, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", mimeBoundary)
	b.WriteString("\r\n")

	// Plain text first, HTML last: clients prefer the final part.
	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(textBody)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return []byte(b.String())
}

// DryRunSender records messages instead of sending them.
type DryRunSender struct {
	Sent []RecordedMessage
}

// RecordedMessage is one message captured by the dry-run sender.
type RecordedMessage struct {
	Subject  string
	TextBody string
	HTMLBody string
}

var _ ports.EmailSender = (*DryRunSender)(nil)

// Send stores the message for later inspection.
func (d *DryRunSender) Send(_ context.Context, subject, textBody, htmlBody string) error {
	d.Sent = append(d.Sent, RecordedMessage{Subject: subject, TextBody: textBody, HTMLBody: htmlBody})
	return nil
}
