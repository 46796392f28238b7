package email

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
)

// SendResult reports, per recipient, whether the mail server accepted the
// message for delivery.
type SendResult struct {
	Accepted []string
	Rejected []string
}

// Confirmed reports whether every recipient was accepted. A message with any
// rejected recipient does not count as delivered.
func (r SendResult) Confirmed() bool {
	return len(r.Rejected) == 0 && len(r.Accepted) > 0
}

// Sender delivers transactional mail to a user.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) (SendResult, error)
}

// SMTPConfig holds SMTP transport configuration.
type SMTPConfig struct {
	Host      string
	Port      string
	Username  string
	Password  string
	FromEmail string
}

// SMTPSender sends mail over SMTP with STARTTLS upgrade. The configured
// port must be a submission port (587 or 25); implicit-TLS ports like 465
// are not supported by the underlying transport.
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender creates a new SMTP-backed sender.
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{config: config}
}

// Send delivers a plain-text message to a single recipient.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) (SendResult, error) {
	if s.config.Host == "" || s.config.Port == "" || s.config.Username == "" || s.config.Password == "" {
		log.Println("Email service not configured properly. Check environment variables.")
		return SendResult{Rejected: []string{to}}, fmt.Errorf("email service not configured")
	}

	from := fmt.Sprintf("From: FootieDrop <%s>\n", s.config.FromEmail)
	toHeader := fmt.Sprintf("To: %s\n", to)
	subjectHeader := fmt.Sprintf("Subject: %s\n\n", subject)
	message := []byte(from + toHeader + subjectHeader + body)

	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%s", s.config.Host, s.config.Port)

	type sendOutcome struct{ err error }
	done := make(chan sendOutcome, 1)
	go func() {
		done <- sendOutcome{err: smtp.SendMail(addr, auth, s.config.FromEmail, []string{to}, message)}
	}()

	select {
	case <-ctx.Done():
		return SendResult{Rejected: []string{to}}, ctx.Err()
	case outcome := <-done:
		if outcome.err != nil {
			return SendResult{Rejected: []string{to}}, outcome.err
		}
		return SendResult{Accepted: []string{to}}, nil
	}
}
