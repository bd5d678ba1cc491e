package usecase

import (
	"context"
	"fmt"

	"mycabinet-backend/pkg/utils"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Mailer delivers lifecycle emails. Implementations must be safe for
// concurrent use; send paths fire from goroutines.
type Mailer interface {
	SendLoginLink(ctx context.Context, to, link string) error
	SendResetLink(ctx context.Context, to, link string) error
	SendLoginCode(ctx context.Context, to, code string, expiryMinutes int) error
	SendVerifyCode(ctx context.Context, to, code string, expiryMinutes int) error
	SendResetCode(ctx context.Context, to, code string, expiryMinutes int) error
	SendDeleteCode(ctx context.Context, to, code string, expiryMinutes int) error
	SendPasswordChangedNotice(ctx context.Context, to string) error
	SendAccountDeletedNotice(ctx context.Context, to string) error
}

type smtpMailer struct {
	client *mail.Client
	from   string
	reply  string
	log    *zap.Logger
}

func NewMailer(cfg utils.EmailConfig, log *zap.Logger) (Mailer, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &smtpMailer{
		client: client,
		from:   cfg.From,
		reply:  cfg.ReplyTo,
		log:    log.With(zap.String("service", "mailer")),
	}, nil
}

func (m *smtpMailer) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	if m.reply != "" {
		if err := msg.ReplyTo(m.reply); err != nil {
			return fmt.Errorf("mail reply-to: %w", err)
		}
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		m.log.Error("Failed to send email",
			zap.Error(err),
			zap.String("subject", subject),
		)
		return fmt.Errorf("send email: %w", err)
	}

	return nil
}

func (m *smtpMailer) SendLoginLink(ctx context.Context, to, link string) error {
	body := fmt.Sprintf(
		"Tap the link below to sign in to MyCabinet:\n\n%s\n\nThe link works once and expires soon. If you didn't request it, you can ignore this email.\n",
		link,
	)
	return m.send(ctx, to, "Your MyCabinet sign-in link", body)
}

func (m *smtpMailer) SendResetLink(ctx context.Context, to, link string) error {
	body := fmt.Sprintf(
		"Tap the link below to reset your MyCabinet password:\n\n%s\n\nThe link works once and expires soon. If you didn't request it, your password is unchanged.\n",
		link,
	)
	return m.send(ctx, to, "Reset your MyCabinet password", body)
}

func (m *smtpMailer) sendCode(ctx context.Context, to, subject, action, code string, expiryMinutes int) error {
	body := fmt.Sprintf(
		"Your code to %s is:\n\n%s\n\nIt expires in %d minutes. If you didn't request it, you can ignore this email.\n",
		action, groupCode(code), expiryMinutes,
	)
	return m.send(ctx, to, subject, body)
}

// groupCode splits a 6-digit code into two readable halves.
func groupCode(code string) string {
	if len(code) == 6 {
		return code[:3] + " " + code[3:]
	}
	return code
}

func (m *smtpMailer) SendLoginCode(ctx context.Context, to, code string, expiryMinutes int) error {
	return m.sendCode(ctx, to, "Your MyCabinet sign-in code", "sign in to MyCabinet", code, expiryMinutes)
}

func (m *smtpMailer) SendVerifyCode(ctx context.Context, to, code string, expiryMinutes int) error {
	return m.sendCode(ctx, to, "Verify your MyCabinet email", "verify your email address", code, expiryMinutes)
}

func (m *smtpMailer) SendResetCode(ctx context.Context, to, code string, expiryMinutes int) error {
	return m.sendCode(ctx, to, "Your MyCabinet password reset code", "reset your password", code, expiryMinutes)
}

func (m *smtpMailer) SendDeleteCode(ctx context.Context, to, code string, expiryMinutes int) error {
	return m.sendCode(ctx, to, "Confirm MyCabinet account deletion", "delete your account", code, expiryMinutes)
}

func (m *smtpMailer) SendPasswordChangedNotice(ctx context.Context, to string) error {
	body := "Your MyCabinet password was just changed.\n\nIf this was you, no action is needed. If not, request a password reset right away.\n"
	return m.send(ctx, to, "Your MyCabinet password was changed", body)
}

func (m *smtpMailer) SendAccountDeletedNotice(ctx context.Context, to string) error {
	body := "Your MyCabinet account and its data have been deleted.\n\nThanks for giving MyCabinet a try.\n"
	return m.send(ctx, to, "Your MyCabinet account was deleted", body)
}
