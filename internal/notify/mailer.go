package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/fau-events/internal/config"
)

// Mailer delivers a rendered message.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPMailer sends through an authenticated SMTP relay.
type SMTPMailer struct {
	from   string
	client *mail.Client
}

func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(cfg.SendTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPMailer{from: cfg.From, client: client}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	out := mail.NewMsg()
	if err := out.From(m.from); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := out.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.Body)

	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// NoopMailer is used when no SMTP credentials are configured.
type NoopMailer struct{}

func (NoopMailer) Send(_ context.Context, msg *Message) error {
	zap.L().Debug("mail transport disabled, dropping message",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

// NewMailer picks the SMTP transport when configured and the no-op one
// otherwise.
func NewMailer(cfg config.MailConfig) (Mailer, error) {
	if !cfg.Enabled() {
		zap.L().Warn("SMTP credentials not configured, notifications will not be delivered")
		return NoopMailer{}, nil
	}
	return NewSMTPMailer(cfg)
}
