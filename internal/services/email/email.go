package email

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"

	"github.com/homefix-app/platform_be_homefix/internal/config"
)

// Sender delivers transactional mail. Callers treat delivery as
// fire-and-forget: a returned error is for the caller to log, never to
// surface to the end user.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewSender returns an SMTP-backed Sender, or a logging stand-in when no
// SMTP host is configured (local dev, CI).
func NewSender(cfg config.SMTPConfig) Sender {
	if cfg.Host == "" {
		log.Println("SMTP host not configured, using logging email sender")
		return &LoggingSender{From: cfg.From}
	}
	return &SMTPSender{
		cfg:  cfg,
		auth: smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host),
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
}

// SMTPSender sends through a plain-auth SMTP relay.
type SMTPSender struct {
	cfg  config.SMTPConfig
	auth smtp.Auth
	addr string
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg := buildMessage(s.cfg.From, to, subject, body)
	if err := smtp.SendMail(s.addr, s.auth, s.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	log.Printf("Email sent to %s (subject: %s)", to, subject)
	return nil
}

// buildMessage assembles a minimal plain-text RFC 5322 message.
func buildMessage(from, to, subject, body string) []byte {
	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")
	return []byte(sb.String())
}

// LoggingSender logs mail instead of sending it.
type LoggingSender struct {
	From string
}

func (s *LoggingSender) Send(ctx context.Context, to, subject, body string) error {
	log.Printf("--- Email (logged, not sent) ---")
	log.Printf("From: %s", s.From)
	log.Printf("To: %s", to)
	log.Printf("Subject: %s", subject)
	log.Printf("%s", body)
	log.Printf("--- End email ---")
	return nil
}
