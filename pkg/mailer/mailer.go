// Package mailer builds MIME messages and hands them to an SMTP relay.
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/rusa-rba/route-assign/pkg/config"
)

// Attachment is a file carried alongside the text body.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is a plain-text mail with optional attachments.
type Message struct {
	From        string
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers through a single relay.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
	send sendFunc
}

// NewSMTPSender constructs a sender from config. Auth is only used when a user is set.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	s := &SMTPSender{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		from: cfg.From,
		send: smtp.SendMail,
	}
	if cfg.User != "" {
		s.auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	return s
}

// Send implements Sender. smtp.SendMail has no context support, so the
// context is only checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.From == "" {
		msg.From = s.from
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("mail %q has no recipients", msg.Subject)
	}
	raw, err := Encode(msg, time.Now())
	if err != nil {
		return err
	}
	if err := s.send(s.addr, s.auth, msg.From, msg.To, raw); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// Encode renders msg as an RFC 5322 multipart/mixed document.
func Encode(msg Message, now time.Time) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fmt.Fprintf(buf, "From: %s\r\n", msg.From)
	fmt.Fprintf(buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", w.Boundary())

	body, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=utf-8"},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, fmt.Errorf("create body part: %w", err)
	}
	if _, err := body.Write([]byte(msg.Body)); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}

	for _, att := range msg.Attachments {
		part, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {att.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": att.Name})},
		})
		if err != nil {
			return nil, fmt.Errorf("create attachment %s: %w", att.Name, err)
		}
		encoded := base64.StdEncoding.EncodeToString(att.Data)
		for len(encoded) > 76 {
			if _, err := part.Write([]byte(encoded[:76] + "\r\n")); err != nil {
				return nil, err
			}
			encoded = encoded[76:]
		}
		if _, err := part.Write([]byte(encoded + "\r\n")); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), nil
}
