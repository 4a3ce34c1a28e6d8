// Package mailer renders and delivers the password reset email.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io"
	"log/slog"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	texttemplate "text/template"
	"time"

	"github.com/samber/oops"

	"github.com/iliyamo/bearer-auth-api/internal/config"
)

var (
	//go:embed templates/password_reset.html templates/password_reset.txt
	emailTemplates embed.FS

	passwordResetHTML = htmltemplate.Must(htmltemplate.ParseFS(emailTemplates, "templates/password_reset.html"))
	passwordResetText = texttemplate.Must(texttemplate.ParseFS(emailTemplates, "templates/password_reset.txt"))
)

// PasswordResetMail is everything needed to compose a reset email.
type PasswordResetMail struct {
	To        string
	FirstName string
	ResetURL  string
	ExpiresIn time.Duration
}

// Mailer delivers password reset emails.
type Mailer interface {
	SendPasswordReset(ctx context.Context, m PasswordResetMail) error
}

// Message is a rendered email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    []byte // full RFC 5322 message including headers
}

// Render builds a multipart/alternative message with text and HTML parts.
func Render(m PasswordResetMail, from, subject string) (Message, error) {
	data := struct {
		FirstName string
		ResetURL  string
		ExpiresIn string
	}{m.FirstName, m.ResetURL, humanizeDuration(m.ExpiresIn)}

	var html, text bytes.Buffer
	if err := passwordResetHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render password reset html: %w", err)
	}
	if err := passwordResetText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render password reset text: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fmt.Fprintf(&body, "From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: multipart/alternative; boundary=%q\r\n\r\n",
		from, m.To, subject, mw.Boundary())

	for _, part := range []struct {
		contentType string
		content     []byte
	}{
		{"text/plain; charset=\"utf-8\"", text.Bytes()},
		{"text/html; charset=\"utf-8\"", html.Bytes()},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.contentType}})
		if err != nil {
			return Message{}, err
		}
		if _, err := w.Write(part.content); err != nil {
			return Message{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return Message{}, err
	}

	return Message{From: from, To: m.To, Subject: subject, Body: body.Bytes()}, nil
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "a short while"
	case d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	}
	return d.String()
}

// SMTPMailer delivers through an SMTP relay.  Port 465 uses implicit TLS;
// other ports go through smtp.SendMail, which upgrades with STARTTLS when
// the server offers it.
type SMTPMailer struct {
	cfg  config.EmailConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg config.EmailConfig) (*SMTPMailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &SMTPMailer{cfg: cfg}
	m.send = smtp.SendMail
	if cfg.Port == 465 {
		m.send = m.sendTLS
	}
	return m, nil
}

func (c *SMTPMailer) from() string {
	if c.cfg.FromAddress != "" {
		return c.cfg.FromAddress
	}
	return c.cfg.Username
}

func (c *SMTPMailer) SendPasswordReset(ctx context.Context, m PasswordResetMail) error {
	msg, err := Render(m, c.from(), c.cfg.Subject)
	if err != nil {
		return oops.Code("MAIL_RENDER_FAILED").Wrap(err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	var auth smtp.Auth
	if c.cfg.Username != "" || c.cfg.Password != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}
	if err := c.send(addr, auth, msg.From, []string{msg.To}, msg.Body); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("smtp_addr", addr).Wrap(err)
	}
	return nil
}

func (c *SMTPMailer) sendTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: c.cfg.Host, MinVersion: tls.VersionTLS12})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, c.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	wc, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// LogMailer writes rendered messages to w instead of sending them.  It is
// meant for development; the message itself carries the reset link, so only
// the recipient goes to the structured log.
type LogMailer struct {
	w       io.Writer
	from    string
	subject string
	logger  *slog.Logger
}

func NewLogMailer(w io.Writer, cfg config.EmailConfig, logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	from := cfg.FromAddress
	if from == "" {
		from = "no-reply@localhost"
	}
	return &LogMailer{w: w, from: from, subject: cfg.Subject, logger: logger}
}

func (l *LogMailer) SendPasswordReset(ctx context.Context, m PasswordResetMail) error {
	msg, err := Render(m, l.from, l.subject)
	if err != nil {
		return oops.Code("MAIL_RENDER_FAILED").Wrap(err)
	}
	if _, err := l.w.Write(append(msg.Body, '\n')); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "password reset mail written", "to", m.To)
	return nil
}
