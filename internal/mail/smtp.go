package mail

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ntcogk/auth-server/internal/model"
)

// SMTPConfig holds the relay address and credentials.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	FromName string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers messages through an SMTP relay, upgrading to
// STARTTLS when the server offers it.
type SMTPSender struct {
	cfg      SMTPConfig
	from     mail.Address
	sendMail sendFunc
	now      func() time.Time
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		cfg:      cfg,
		from:     mail.Address{Name: cfg.FromName, Address: cfg.User},
		sendMail: smtp.SendMail,
		now:      time.Now,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg model.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}

	body, err := s.build(to, msg)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := s.sendMail(addr, auth, s.from.Address, []string{to.Address}, body); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// build renders a multipart/alternative message with text and HTML parts.
func (s *SMTPSender) build(to *mail.Address, msg model.Message) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	headers := []struct{ key, value string }{
		{"From", s.from.String()},
		{"To", to.String()},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", s.now().Format(time.RFC1123Z)},
		{"Message-ID", "<" + uuid.NewString() + "@" + s.cfg.Host + ">"},
		{"MIME-Version", "1.0"},
		{"Content-Type", `multipart/alternative; boundary="` + w.Boundary() + `"`},
	}
	var head bytes.Buffer
	for _, h := range headers {
		head.WriteString(h.key + ": " + h.value + "\r\n")
	}
	head.WriteString("\r\n")

	parts := []struct{ contentType, body string }{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", msg.HTML},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		pw, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, fmt.Errorf("build message: %w", err)
		}
		if _, err := pw.Write([]byte(p.body)); err != nil {
			return nil, fmt.Errorf("build message: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("build message: %w", err)
	}

	return append(head.Bytes(), buf.Bytes()...), nil
}
