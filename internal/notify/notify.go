// Package notify delivers human notifications raised by the agent.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var ErrInvalidRecipient = errors.New("invalid recipient")

// Notifier sends a plain text message to one recipient.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

// ValidRecipient reports whether addr looks like an email address.
func ValidRecipient(addr string) bool {
	addr = strings.TrimSpace(addr)
	at := strings.Index(addr, "@")
	return at > 0 && at < len(addr)-1 && !strings.ContainsAny(addr, " \t\r\n")
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP sends notifications through an SMTP server.
type SMTP struct {
	sender sender
	from   string
	logger *zap.Logger
}

func NewSMTP(cfg SMTPConfig, logger *zap.Logger) (*SMTP, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid smtp port %d", cfg.Port)
	}

	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = cfg.Username
	}
	if !ValidRecipient(from) {
		return nil, fmt.Errorf("smtp sender %q: %w", from, ErrInvalidRecipient)
	}

	return newSMTP(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), from, logger), nil
}

func newSMTP(s sender, from string, logger *zap.Logger) *SMTP {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTP{sender: s, from: from, logger: logger}
}

func (s *SMTP) Notify(ctx context.Context, recipient, subject, body string) error {
	if !ValidRecipient(recipient) {
		return fmt.Errorf("%q: %w", recipient, ErrInvalidRecipient)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("sending email to %s: %w", recipient, err)
	}

	s.logger.Info("email sent", zap.String("recipient", recipient), zap.String("subject", subject))
	return nil
}

// Log records notifications in the log instead of sending them. It stands in
// when no mail server is configured.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, recipient, subject, body string) error {
	if !ValidRecipient(recipient) {
		return fmt.Errorf("%q: %w", recipient, ErrInvalidRecipient)
	}

	l.logger.Info("email not sent, smtp is not configured",
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
