// Package mailer delivers account emails over SMTP.
package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/vidfriends/vidvault/internal/config"
	"github.com/vidfriends/vidvault/internal/logging"
	"github.com/vidfriends/vidvault/internal/models"
)

// Sender dials the SMTP server and delivers messages.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPMailer sends verification emails through an SMTP relay.
type SMTPMailer struct {
	sender   Sender
	from     string
	fromName string
}

// NewSMTPMailer builds a mailer from the SMTP configuration.
func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("mailer: host is required")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return NewSMTPMailerWithSender(client, from, cfg.FromName), nil
}

// NewSMTPMailerWithSender builds a mailer around an existing sender.
func NewSMTPMailerWithSender(sender Sender, from, fromName string) *SMTPMailer {
	return &SMTPMailer{sender: sender, from: from, fromName: fromName}
}

// SendVerification mails the account activation link to the user.
func (m *SMTPMailer) SendVerification(ctx context.Context, to models.User, link string) error {
	msg, err := m.verificationMessage(to, link)
	if err != nil {
		return err
	}

	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}

	logging.FromContext(ctx).Info("verification email sent", "userId", to.ID)
	return nil
}

func (m *SMTPMailer) verificationMessage(to models.User, link string) (*mail.Msg, error) {
	msg := mail.NewMsg(mail.WithEncoding(mail.NoEncoding))

	var err error
	if m.fromName != "" {
		err = msg.FromFormat(m.fromName, m.from)
	} else {
		err = msg.From(m.from)
	}
	if err != nil {
		return nil, fmt.Errorf("set sender %q: %w", m.from, err)
	}
	if err := msg.AddToFormat(to.Name, to.Email); err != nil {
		return nil, fmt.Errorf("set recipient %q: %w", to.Email, err)
	}

	msg.Subject("Verify your email")
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Hi %s,\n\nConfirm your email address to activate your account:\n\n%s\n",
		to.Name, link,
	))
	msg.AddAlternativeString(mail.TypeTextHTML, fmt.Sprintf(
		`<p>Hi %s,</p><p>Confirm your email address to activate your account:</p><p><a href="%s">Verify email</a></p>`,
		html.EscapeString(to.Name), html.EscapeString(link),
	))

	return msg, nil
}

// LogMailer writes verification links to the log instead of sending them.
// It is used when no SMTP host is configured.
type LogMailer struct{}

// SendVerification logs the activation link for the user.
func (LogMailer) SendVerification(ctx context.Context, to models.User, link string) error {
	logging.FromContext(ctx).Warn("smtp not configured; verification link not mailed",
		"userId", to.ID, "email", to.Email, "link", link)
	return nil
}
