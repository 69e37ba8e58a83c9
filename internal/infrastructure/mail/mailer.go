// Package mail delivers plain-text transactional mail such as verification codes.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/wellnest/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrInvalidRecipient is returned for an empty or malformed address
var ErrInvalidRecipient = errors.New("mail: invalid recipient")

// Mailer sends one plain-text mail
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// New returns an SMTP mailer, or a log mailer when no host is configured
func New(cfg config.MailConfig, logger *zap.Logger) Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		logger.Warn("mail host not configured, mails will only be logged")
		return NewLogMailer(logger)
	}
	return NewSMTPMailer(cfg, logger)
}

// SMTPMailer sends through an SMTP relay with STARTTLS when offered
type SMTPMailer struct {
	cfg     config.MailConfig
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewSMTPMailer creates an SMTP mailer
func NewSMTPMailer(cfg config.MailConfig, logger *zap.Logger) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg, logger: logger, timeout: 15 * time.Second, now: time.Now}
}

// Send delivers the mail. The dial honours ctx; the SMTP exchange is bounded by a deadline
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := checkAddress(to); err != nil {
		return err
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	dialer := &net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("mail: dial %s: %w", addr, err)
	}
	deadline := m.now().Add(m.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mail: smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("mail: starttls: %w", err)
		}
	}
	if m.cfg.User != "" {
		if err := c.Auth(smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)); err != nil {
			return fmt.Errorf("mail: auth: %w", err)
		}
	}
	if err := c.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("mail: from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("mail: rcpt: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("mail: data: %w", err)
	}
	if _, err := w.Write(buildMessage(m.cfg.From, to, subject, body, m.now())); err != nil {
		return fmt.Errorf("mail: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mail: close data: %w", err)
	}
	if err := c.Quit(); err != nil {
		m.logger.Debug("smtp quit failed", zap.Error(err))
	}
	m.logger.Info("mail sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// LogMailer writes mails to the log. Used in development
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a log mailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the mail
func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	if err := checkAddress(to); err != nil {
		return err
	}
	m.logger.Info("mail",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

func checkAddress(to string) error {
	if to == "" || strings.ContainsAny(to, "\r\n") || !strings.Contains(to, "@") {
		return ErrInvalidRecipient
	}
	return nil
}

func buildMessage(from, to, subject, body string, now time.Time) []byte {
	subject = strings.NewReplacer("\r", " ", "\n", " ").Replace(subject)
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

var (
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = (*LogMailer)(nil)
)
