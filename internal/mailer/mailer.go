// Package mailer delivers discount codes to players.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"text/template"
	"time"

	"github.com/jason-s-yu/crazyaces/internal/claim"
	"github.com/sirupsen/logrus"
)

var discountTmpl = template.Must(template.New("discount").Parse(
	`You beat the computer! Here is your {{.Percent}}% discount code:

    {{.Code}}

Thanks for playing Crazy Aces.
`))

func renderDiscount(d claim.Discount) (string, error) {
	var b bytes.Buffer
	if err := discountTmpl.Execute(&b, d); err != nil {
		return "", err
	}
	return b.String(), nil
}

// LogSender logs the email instead of sending it. For development.
type LogSender struct {
	Log *logrus.Entry
}

// SendDiscount implements claim.Sender.
func (s LogSender) SendDiscount(_ context.Context, to string, d claim.Discount) error {
	body, err := renderDiscount(d)
	if err != nil {
		return err
	}
	s.Log.WithFields(logrus.Fields{"to": to, "percent": d.Percent, "code": d.Code}).Info("Discount email (not sent)")
	s.Log.Debug(body)
	return nil
}

// SMTPConfig configures SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPSender delivers mail through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender returns a sender for cfg.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}
}

// SendDiscount implements claim.Sender. smtp.SendMail has no context, so
// the send runs in a goroutine and ctx (or the configured timeout) bounds
// how long the caller waits.
func (s *SMTPSender) SendDiscount(ctx context.Context, to string, d claim.Discount) error {
	if strings.ContainsAny(to, "\r\n") {
		return errors.New("invalid recipient")
	}
	body, err := renderDiscount(d)
	if err != nil {
		return err
	}
	msg := buildMessage(s.cfg.From, to, fmt.Sprintf("Your %d%% Crazy Aces discount", d.Percent), body)

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.send(addr, auth, s.cfg.From, []string{to}, msg) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s: %w", addr, ctx.Err())
	}
}

func buildMessage(from, to, subject, body string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.Bytes()
}
