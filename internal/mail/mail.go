// Package mail delivers StoreIt's transactional email over SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	gomail "github.com/go-mail/mail"
	"go.uber.org/zap"
)

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	Host    string
	Port    int
	From    string
	User    string
	Pass    string
	TLSMode string // "auto" | "starttls" | "ssl" | "none"
	Timeout time.Duration

	log *zap.Logger
}

// NewSMTPSender creates an SMTPSender negotiating STARTTLS when offered.
func NewSMTPSender(host string, port int, from, user, pass, tlsMode string, log *zap.Logger) *SMTPSender {
	if tlsMode == "" {
		tlsMode = "auto"
	}
	return &SMTPSender{
		Host:    host,
		Port:    port,
		From:    from,
		User:    user,
		Pass:    pass,
		TLSMode: tlsMode,
		Timeout: 10 * time.Second,
		log:     log,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)

	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
	}
	if msg.HTML != "" {
		if msg.Text == "" {
			m.SetBody("text/html", msg.HTML)
		} else {
			m.AddAlternative("text/html", msg.HTML)
		}
	}

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.Timeout = s.Timeout
	d.TLSConfig = &tls.Config{ServerName: s.Host, MinVersion: tls.VersionTLS12}

	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "starttls":
		d.StartTLSPolicy = gomail.MandatoryStartTLS
	case "none":
		d.StartTLSPolicy = gomail.NoStartTLS
	}

	if err := d.DialAndSend(m); err != nil {
		s.log.Error("smtp send failed", zap.String("to", msg.To), zap.String("subject", msg.Subject), zap.Error(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	s.log.Info("smtp send ok", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// LogSender writes messages to the log instead of sending them. It is used
// in development when no SMTP host is configured.
type LogSender struct {
	log *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("mail (not sent)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Text),
	)
	return nil
}
