package mail

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ntcogk/auth-server/internal/model"
)

var _ model.Notifier = (*Notifier)(nil)

// NotifierOptions configures links and expiry wording in emails.
type NotifierOptions struct {
	FrontendURL string
	OTPTTL      time.Duration
	ResetTTL    time.Duration
}

// Notifier renders account emails and hands them to a Mailer.
type Notifier struct {
	mailer    model.Mailer
	templates *Templates
	opts      NotifierOptions
	now       func() time.Time
}

func NewNotifier(mailer model.Mailer, templates *Templates, opts NotifierOptions) *Notifier {
	return &Notifier{
		mailer:    mailer,
		templates: templates,
		opts:      opts,
		now:       time.Now,
	}
}

func (n *Notifier) SendVerificationCode(ctx context.Context, user model.User, code string) error {
	return n.send(ctx, user, KindVerification, Data{
		Code:      code,
		ExpiresIn: humanize(n.opts.OTPTTL),
	})
}

func (n *Notifier) SendPasswordReset(ctx context.Context, user model.User, token string) error {
	return n.send(ctx, user, KindPasswordReset, Data{
		ResetURL:  n.ResetURL(token),
		ExpiresIn: humanize(n.opts.ResetTTL),
	})
}

func (n *Notifier) SendWelcome(ctx context.Context, user model.User) error {
	return n.send(ctx, user, KindWelcome, Data{})
}

// ResetURL is the frontend page that accepts token.
func (n *Notifier) ResetURL(token string) string {
	return strings.TrimRight(n.opts.FrontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

func (n *Notifier) send(ctx context.Context, user model.User, kind Kind, data Data) error {
	data.Name = user.FirstName
	data.FrontendURL = n.opts.FrontendURL
	data.Year = n.now().Year()

	subject, html, text, err := n.templates.Render(kind, data)
	if err != nil {
		return err
	}

	if err := n.mailer.Send(ctx, model.Message{
		To:      user.Email,
		Subject: subject,
		HTML:    html,
		Text:    text,
	}); err != nil {
		return fmt.Errorf("send %s email: %w", kind, err)
	}

	return nil
}
